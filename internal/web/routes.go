package web

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/web/handlers"
	"github.com/kozaktomas/face-attendance/internal/web/static"
)

func (s *Server) setupRoutes(
	processor *pipeline.Processor,
	attendance *ledger.Ledger,
	galleryStore *gallery.Store,
	loader *gallery.Loader,
) {
	// Create handlers
	framesHandler := handlers.NewFramesHandler(processor, s.logger)
	attendanceHandler := handlers.NewAttendanceHandler(attendance, s.config.Ledger.Location())
	galleryHandler := handlers.NewGalleryHandler(galleryStore, loader, s.config.Gallery.Path, s.logger)

	// Health check
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Frames
		r.Post("/frames/process", framesHandler.Process)
		r.Post("/recognize/file", framesHandler.RecognizeFile)

		// Attendance
		r.Get("/attendance", attendanceHandler.ListDay)
		r.Get("/attendance/export", attendanceHandler.Export)
		r.Get("/attendance/{identity}", attendanceHandler.Query)

		// Gallery
		r.Get("/gallery", galleryHandler.List)
		r.Post("/gallery/reload", galleryHandler.Reload)
	})

	// Camera capture page
	s.router.Get("/*", serveIndex)
}

// serveIndex serves the embedded browser camera page for every non-API path.
func serveIndex(w http.ResponseWriter, r *http.Request) {
	f, err := static.FileSystem().Open("/index.html")
	if err != nil {
		http.Error(w, "page not available", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.Copy(w, f)
}
