// Package pipeline orchestrates per-frame processing: decode, detect faces,
// match each one against the gallery and record attendance. The pipeline
// owns no durable state; every frame is processed independently against the
// gallery snapshot current when the frame arrived.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/imaging"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
)

// ErrInvalidFrame reports undecodable frame input. The request is rejected
// without partial processing.
var ErrInvalidFrame = errors.New("invalid frame")

// AnnotatedDetection is one detected face with its match and attendance
// outcome, consumed by the overlay renderer and the API layer.
type AnnotatedDetection struct {
	Name       string        `json:"name"` // identity name or "Unknown"
	Known      bool          `json:"known"`
	Distance   float64       `json:"distance"`
	BBox       []float64     `json:"box"` // [x1, y1, x2, y2] in original frame pixels
	Attendance ledger.Status `json:"attendance,omitempty"`
	// AttendanceError is set when recording failed; the detection itself is
	// still reported so overlay feedback survives persistence outages.
	AttendanceError string `json:"attendance_error,omitempty"`
}

// Processor runs frames through detection, matching and attendance.
type Processor struct {
	provider     embedding.Provider
	galleryStore *gallery.Store
	matcher      *match.Matcher
	ledger       *ledger.Ledger
	maxImageSize int
	logger       *slog.Logger
}

// New creates a frame processor. maxImageSize bounds the larger frame
// dimension sent to the embedding server (0 disables downscaling).
func New(
	provider embedding.Provider,
	galleryStore *gallery.Store,
	matcher *match.Matcher,
	attendance *ledger.Ledger,
	maxImageSize int,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		provider:     provider,
		galleryStore: galleryStore,
		matcher:      matcher,
		ledger:       attendance,
		maxImageSize: maxImageSize,
		logger:       logger,
	}
}

// Process runs one frame. Frames with no detectable faces yield an empty,
// non-error result; an embedding server timeout is treated the same way
// (detection fails open, attendance never does). Ledger failures are logged
// and reported per detection but never suppress the annotations.
func (p *Processor) Process(ctx context.Context, frame []byte, at time.Time) ([]AnnotatedDetection, error) {
	if err := imaging.Validate(frame); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
	}

	scale := 1.0
	payload := frame
	if p.maxImageSize > 0 {
		resized, err := imaging.ResizeToFit(frame, p.maxImageSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidFrame, err)
		}
		payload = resized
		scale = imaging.ScaleFactor(frame, p.maxImageSize)
	}

	faces, err := p.provider.DetectFaces(ctx, payload)
	if err != nil {
		if errors.Is(err, embedding.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Warn("embedding server timed out, treating frame as empty")
			return []AnnotatedDetection{}, nil
		}
		return nil, fmt.Errorf("face detection: %w", err)
	}

	// One snapshot per frame: a concurrent gallery reload never mixes old
	// and new entries within one frame.
	snapshot := p.galleryStore.Snapshot()

	results := make([]AnnotatedDetection, 0, len(faces))
	for _, face := range faces {
		annotated := p.processFace(ctx, face, snapshot, at, scale)
		results = append(results, annotated)
	}
	return results, nil
}

func (p *Processor) processFace(
	ctx context.Context,
	face embedding.Detection,
	snapshot *gallery.Snapshot,
	at time.Time,
	scale float64,
) AnnotatedDetection {
	result := p.matcher.Match(face.Embedding, snapshot)

	annotated := AnnotatedDetection{
		Name:     result.Identity,
		Known:    result.Known,
		Distance: result.Distance,
		BBox:     scaleBBox(face.BBox, scale),
	}

	if !result.Known {
		return annotated
	}

	outcome, err := p.ledger.Record(ctx, result.Identity, at)
	if err != nil {
		p.logger.Error("attendance write failed",
			"identity", result.Identity, "error", err)
		annotated.AttendanceError = err.Error()
		return annotated
	}

	annotated.Attendance = outcome.Status
	return annotated
}

// scaleBBox maps a bounding box from the downscaled detection image back
// onto the original frame.
func scaleBBox(bbox []float64, scale float64) []float64 {
	if scale == 1 || len(bbox) == 0 {
		return bbox
	}
	scaled := make([]float64, len(bbox))
	for i, v := range bbox {
		scaled[i] = v * scale
	}
	return scaled
}
