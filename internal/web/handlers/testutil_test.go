package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/pipeline"
	"github.com/kozaktomas/face-attendance/internal/store/memory"
)

// fakeProvider returns scripted detections for every frame.
type fakeProvider struct {
	faces []embedding.Detection
	err   error
}

func (p *fakeProvider) DetectFaces(ctx context.Context, imageData []byte) ([]embedding.Detection, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.faces, nil
}

// quietLogger discards handler log output in tests.
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testGalleryStore builds a store holding a snapshot with the given entries.
func testGalleryStore(entries ...gallery.Entry) *gallery.Store {
	s := gallery.NewStore()
	s.Swap(gallery.NewSnapshot(entries, nil))
	return s
}

// testLedger wires a ledger over a fresh in-memory store.
func testLedger(t *testing.T) (*ledger.Ledger, *memory.Store) {
	t.Helper()
	mem := memory.New()
	t.Cleanup(func() { mem.Close() })
	return ledger.New(mem, time.UTC, time.Second, quietLogger()), mem
}

// testProcessor assembles a full pipeline for handler tests.
func testProcessor(t *testing.T, provider embedding.Provider, galleryStore *gallery.Store, l *ledger.Ledger) *pipeline.Processor {
	t.Helper()
	return pipeline.New(provider, galleryStore, match.New(match.MetricEuclidean, 0.6), l, 0, quietLogger())
}

// jpegFrame encodes a small valid JPEG frame.
func jpegFrame(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 16, 16)), nil); err != nil {
		t.Fatalf("failed to encode frame: %v", err)
	}
	return buf.Bytes()
}

// multipartFrame builds a multipart request body with the frame under "file".
func multipartFrame(t *testing.T, frame []byte) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "frame.jpg")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := fw.Write(frame); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	mw.Close()
	return &body, mw.FormDataContentType()
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}
