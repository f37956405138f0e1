package handlers

import (
	"log/slog"
	"net/http"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryHandler handles gallery inspection and reload endpoints.
type GalleryHandler struct {
	store       *gallery.Store
	loader      *gallery.Loader
	galleryPath string
	logger      *slog.Logger
}

// NewGalleryHandler creates a new gallery handler.
func NewGalleryHandler(store *gallery.Store, loader *gallery.Loader, galleryPath string, logger *slog.Logger) *GalleryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &GalleryHandler{
		store:       store,
		loader:      loader,
		galleryPath: galleryPath,
		logger:      logger,
	}
}

// gallerySummary is the JSON shape for the current snapshot.
type gallerySummary struct {
	Identities []gallery.IdentityCount `json:"identities"`
	Entries    int                     `json:"entries"`
	Warnings   []gallery.Warning       `json:"warnings"`
	LoadedAt   string                  `json:"loaded_at"`
}

func summarize(snap *gallery.Snapshot) gallerySummary {
	summary := gallerySummary{
		Identities: snap.Identities(),
		Entries:    snap.Len(),
		Warnings:   snap.Warnings(),
		LoadedAt:   snap.LoadedAt().Format("2006-01-02T15:04:05Z07:00"),
	}
	if summary.Identities == nil {
		summary.Identities = []gallery.IdentityCount{}
	}
	if summary.Warnings == nil {
		summary.Warnings = []gallery.Warning{}
	}
	return summary
}

// List reports the identities, entry counts and load warnings of the
// currently active snapshot.
func (h *GalleryHandler) List(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, summarize(h.store.Snapshot()))
}

// Reload rebuilds the snapshot from the gallery directory and swaps it in
// atomically. Frames already in flight finish against the old snapshot.
func (h *GalleryHandler) Reload(w http.ResponseWriter, r *http.Request) {
	snap, err := h.loader.Load(r.Context(), h.galleryPath)
	if err != nil {
		h.logger.Error("gallery reload failed", "path", h.galleryPath, "error", err)
		respondError(w, http.StatusInternalServerError, "gallery reload failed")
		return
	}

	h.store.Swap(snap)
	h.logger.Info("gallery reloaded", "entries", snap.Len(), "warnings", len(snap.Warnings()))
	respondJSON(w, http.StatusOK, summarize(snap))
}
