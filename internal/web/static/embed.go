package static

import (
	"embed"
	"net/http"
)

//go:embed index.html
var pages embed.FS

// FileSystem returns an http.FileSystem with the embedded pages.
func FileSystem() http.FileSystem {
	return http.FS(pages)
}
