package gallery

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/identity"
	"github.com/kozaktomas/face-attendance/internal/imaging"
)

// CachedFace is a previously computed reference embedding, keyed by the
// content hash of the image file.
type CachedFace struct {
	Embedding []float32
	BBox      []float64
	Dim       int
}

// Cache stores reference embeddings across restarts so unchanged gallery
// images are not re-encoded. Implementations live in the store backends;
// a nil Cache disables caching.
type Cache interface {
	Get(ctx context.Context, imageHash string) (*CachedFace, error)
	Put(ctx context.Context, imageHash, identityName string, face CachedFace) error
}

// Loader builds gallery snapshots from a directory of reference images.
type Loader struct {
	provider     embedding.Provider
	cache        Cache
	maxImageSize int
	logger       *slog.Logger

	// Progress is called once per processed file when set (CLI progress bar).
	Progress func()
}

// NewLoader creates a gallery loader. cache may be nil.
func NewLoader(provider embedding.Provider, cache Cache, maxImageSize int, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		provider:     provider,
		cache:        cache,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// imageExtensions lists accepted reference image formats.
var imageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".bmp":  true,
}

// ListImages returns the reference image paths in dir, sorted by name.
// A missing directory is created empty rather than treated as an error.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
			return nil, fmt.Errorf("create gallery directory: %w", mkErr)
		}
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read gallery directory: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Load builds a snapshot from the reference images in dir. A reference image
// with no detectable face, an unreadable file, or an empty derived identity
// is skipped with a warning; a single bad photo never aborts the load.
func (l *Loader) Load(ctx context.Context, dir string) (*Snapshot, error) {
	files, err := ListImages(dir)
	if err != nil {
		return nil, err
	}

	var entries []Entry
	var warnings []Warning

	for _, path := range files {
		entry, warning := l.loadOne(ctx, path)
		if warning != nil {
			warnings = append(warnings, *warning)
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
		if l.Progress != nil {
			l.Progress()
		}
	}

	return NewSnapshot(entries, warnings), nil
}

// loadOne processes a single reference image. Returns the entry (nil if the
// image is unusable) and an optional warning.
func (l *Loader) loadOne(ctx context.Context, path string) (*Entry, *Warning) {
	name := identity.FromFilename(path)
	if name == "" {
		l.logger.Warn("gallery image has no usable identity name", "file", path)
		return nil, &Warning{File: path, Reason: ReasonNoFace}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Warn("failed to read gallery image", "file", path, "error", err)
		return nil, &Warning{File: path, Identity: name, Reason: ReasonNoFace}
	}

	hash := sha256.Sum256(data)
	imageHash := hex.EncodeToString(hash[:])

	if l.cache != nil {
		cached, err := l.cache.Get(ctx, imageHash)
		if err != nil {
			l.logger.Warn("gallery cache lookup failed", "file", path, "error", err)
		} else if cached != nil {
			return &Entry{
				Identity:   name,
				Embedding:  cached.Embedding,
				SourceFile: path,
				BBox:       cached.BBox,
			}, nil
		}
	}

	if l.maxImageSize > 0 {
		resized, err := imaging.ResizeToFit(data, l.maxImageSize)
		if err != nil {
			l.logger.Warn("failed to decode gallery image", "file", path, "error", err)
			return nil, &Warning{File: path, Identity: name, Reason: ReasonNoFace}
		}
		data = resized
	}

	faces, err := l.provider.DetectFaces(ctx, data)
	if err != nil {
		l.logger.Warn("face detection failed for gallery image", "file", path, "error", err)
		return nil, &Warning{File: path, Identity: name, Reason: ReasonNoFace}
	}

	if len(faces) == 0 {
		l.logger.Warn("no face detected in gallery image", "file", path, "identity", name)
		return nil, &Warning{File: path, Identity: name, Reason: ReasonNoFace}
	}

	face := largestFace(faces)
	var warning *Warning
	if len(faces) > 1 {
		l.logger.Warn("multiple faces in gallery image, using largest",
			"file", path, "identity", name, "faces", len(faces))
		warning = &Warning{File: path, Identity: name, Reason: ReasonAmbiguous}
	}

	if l.cache != nil {
		cached := CachedFace{Embedding: face.Embedding, BBox: face.BBox, Dim: face.Dim}
		if err := l.cache.Put(ctx, imageHash, name, cached); err != nil {
			l.logger.Warn("gallery cache store failed", "file", path, "error", err)
		}
	}

	return &Entry{
		Identity:   name,
		Embedding:  face.Embedding,
		SourceFile: path,
		BBox:       face.BBox,
	}, warning
}

// largestFace picks the detection with the largest bounding box area. Falls
// back to the first detection when boxes are missing.
func largestFace(faces []embedding.Detection) embedding.Detection {
	best := faces[0]
	bestArea := best.Area()
	for _, f := range faces[1:] {
		if a := f.Area(); a > bestArea {
			best = f
			bestArea = a
		}
	}
	return best
}
