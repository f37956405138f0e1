package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/kozaktomas/face-attendance/internal/pipeline"
)

// FramesHandler handles camera frame processing endpoints.
type FramesHandler struct {
	processor *pipeline.Processor
	logger    *slog.Logger
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(processor *pipeline.Processor, logger *slog.Logger) *FramesHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FramesHandler{
		processor: processor,
		logger:    logger,
	}
}

// frameResponse is the JSON shape for processed frames.
type frameResponse struct {
	Detections  []pipeline.AnnotatedDetection `json:"detections"`
	ProcessedAt time.Time                     `json:"processed_at"`
}

// Process handles a multipart camera frame upload. The frame is detected,
// matched against the gallery and known identities are recorded for today.
func (h *FramesHandler) Process(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxFrameUpload); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	frame, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read uploaded frame")
		return
	}

	h.respondProcessed(w, r, frame)
}

// recognizeFileRequest asks the server to recognize faces in a local file.
type recognizeFileRequest struct {
	Path string `json:"path"`
}

// RecognizeFile recognizes faces in a server-local image file. Kept for
// kiosk setups that drop snapshots on disk instead of streaming uploads.
func (h *FramesHandler) RecognizeFile(w http.ResponseWriter, r *http.Request) {
	var req recognizeFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	if req.Path == "" {
		respondError(w, http.StatusBadRequest, "path is required")
		return
	}

	frame, err := os.ReadFile(req.Path)
	if err != nil {
		h.logger.Warn("recognize file not readable", "path", sanitizeForLog(req.Path), "error", err)
		respondError(w, http.StatusNotFound, "file not found")
		return
	}

	h.respondProcessed(w, r, frame)
}

func (h *FramesHandler) respondProcessed(w http.ResponseWriter, r *http.Request, frame []byte) {
	detections, err := h.processor.Process(r.Context(), frame, time.Now())
	if err != nil {
		if errors.Is(err, pipeline.ErrInvalidFrame) {
			respondError(w, http.StatusBadRequest, "frame is not a decodable image")
			return
		}
		h.logger.Error("frame processing failed", "error", err)
		respondError(w, http.StatusBadGateway, "face detection failed")
		return
	}

	if detections == nil {
		detections = []pipeline.AnnotatedDetection{}
	}
	respondJSON(w, http.StatusOK, frameResponse{
		Detections:  detections,
		ProcessedAt: time.Now(),
	})
}
