package pipeline

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"testing"
	"time"

	"github.com/kozaktomas/face-attendance/internal/embedding"
	"github.com/kozaktomas/face-attendance/internal/gallery"
	"github.com/kozaktomas/face-attendance/internal/ledger"
	"github.com/kozaktomas/face-attendance/internal/match"
	"github.com/kozaktomas/face-attendance/internal/store/memory"
)

// fakeProvider returns scripted detections.
type fakeProvider struct {
	faces []embedding.Detection
	err   error
	calls int
}

func (f *fakeProvider) DetectFaces(ctx context.Context, imageData []byte) ([]embedding.Detection, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.faces, nil
}

func testFrame(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatalf("failed to encode frame: %v", err)
	}
	return buf.Bytes()
}

func testStore(entries ...gallery.Entry) *gallery.Store {
	s := gallery.NewStore()
	s.Swap(gallery.NewSnapshot(entries, nil))
	return s
}

func newProcessor(provider embedding.Provider, galleryStore *gallery.Store, mem *memory.Store) *Processor {
	matcher := match.New(match.MetricEuclidean, 0.6)
	attendance := ledger.New(mem, time.UTC, 0, nil)
	return New(provider, galleryStore, matcher, attendance, 0, nil)
}

func TestProcess_KnownFaceRecordsAttendance(t *testing.T) {
	provider := &fakeProvider{faces: []embedding.Detection{
		{Embedding: []float32{0.1, 0, 0}, BBox: []float64{10, 10, 50, 60}},
	}}
	mem := memory.New()
	p := newProcessor(provider, testStore(
		gallery.Entry{Identity: "Alice", Embedding: []float32{0, 0, 0}},
	), mem)

	results, err := p.Process(context.Background(), testFrame(t), time.Now())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(results))
	}
	if results[0].Name != "Alice" || !results[0].Known {
		t.Errorf("expected Alice, got %+v", results[0])
	}
	if results[0].Attendance != ledger.StatusRecorded {
		t.Errorf("expected recorded, got %q", results[0].Attendance)
	}
	if mem.Count() != 1 {
		t.Errorf("expected one stored record, got %d", mem.Count())
	}
}

func TestProcess_SecondSightingIsAlreadyPresent(t *testing.T) {
	provider := &fakeProvider{faces: []embedding.Detection{
		{Embedding: []float32{0.1, 0, 0}, BBox: []float64{10, 10, 50, 60}},
	}}
	mem := memory.New()
	p := newProcessor(provider, testStore(
		gallery.Entry{Identity: "Alice", Embedding: []float32{0, 0, 0}},
	), mem)
	ctx := context.Background()
	at := time.Date(2026, 8, 29, 9, 0, 0, 0, time.UTC)

	if _, err := p.Process(ctx, testFrame(t), at); err != nil {
		t.Fatalf("first Process failed: %v", err)
	}
	results, err := p.Process(ctx, testFrame(t), at.Add(5*time.Minute))
	if err != nil {
		t.Fatalf("second Process failed: %v", err)
	}
	if results[0].Attendance != ledger.StatusAlreadyPresent {
		t.Errorf("expected already_present, got %q", results[0].Attendance)
	}
	if mem.Count() != 1 {
		t.Errorf("expected one stored record, got %d", mem.Count())
	}
}

func TestProcess_UnknownFaceNeverTouchesLedger(t *testing.T) {
	// Observed embedding at distance 0.9 from the only gallery entry.
	provider := &fakeProvider{faces: []embedding.Detection{
		{Embedding: []float32{0.9, 0, 0}, BBox: []float64{10, 10, 50, 60}},
	}}
	mem := memory.New()
	p := newProcessor(provider, testStore(
		gallery.Entry{Identity: "Alice", Embedding: []float32{0, 0, 0}},
	), mem)

	results, err := p.Process(context.Background(), testFrame(t), time.Now())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if results[0].Name != match.Unknown || results[0].Known {
		t.Errorf("expected Unknown, got %+v", results[0])
	}
	if results[0].Attendance != "" {
		t.Errorf("unknown face must carry no attendance outcome, got %q", results[0].Attendance)
	}
	if mem.Count() != 0 {
		t.Errorf("ledger must not be invoked for Unknown, got %d records", mem.Count())
	}
}

func TestProcess_NoFacesYieldsEmptyResult(t *testing.T) {
	provider := &fakeProvider{}
	p := newProcessor(provider, testStore(), memory.New())

	results, err := p.Process(context.Background(), testFrame(t), time.Now())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result, got %d detections", len(results))
	}
}

func TestProcess_ProviderTimeoutFailsOpen(t *testing.T) {
	provider := &fakeProvider{err: embedding.ErrTimeout}
	p := newProcessor(provider, testStore(), memory.New())

	results, err := p.Process(context.Background(), testFrame(t), time.Now())
	if err != nil {
		t.Fatalf("timeout must not be a hard failure: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty result on timeout, got %d", len(results))
	}
}

func TestProcess_ProviderHardErrorPropagates(t *testing.T) {
	provider := &fakeProvider{err: errors.New("connection refused")}
	p := newProcessor(provider, testStore(), memory.New())

	if _, err := p.Process(context.Background(), testFrame(t), time.Now()); err == nil {
		t.Fatal("expected error for non-timeout provider failure")
	}
}

func TestProcess_InvalidFrameRejected(t *testing.T) {
	provider := &fakeProvider{}
	p := newProcessor(provider, testStore(), memory.New())

	_, err := p.Process(context.Background(), []byte("not an image"), time.Now())
	if !errors.Is(err, ErrInvalidFrame) {
		t.Fatalf("expected ErrInvalidFrame, got %v", err)
	}
	if provider.calls != 0 {
		t.Error("invalid frame must not reach the provider")
	}
}

func TestProcess_LedgerFailureKeepsAnnotations(t *testing.T) {
	provider := &fakeProvider{faces: []embedding.Detection{
		{Embedding: []float32{0.1, 0, 0}, BBox: []float64{10, 10, 50, 60}},
	}}
	mem := memory.New()
	mem.GetError = errors.New("backend down")
	p := newProcessor(provider, testStore(
		gallery.Entry{Identity: "Alice", Embedding: []float32{0, 0, 0}},
	), mem)

	results, err := p.Process(context.Background(), testFrame(t), time.Now())
	if err != nil {
		t.Fatalf("ledger failure must not fail the frame: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(results))
	}
	if results[0].Name != "Alice" {
		t.Errorf("annotation lost: %+v", results[0])
	}
	if results[0].AttendanceError == "" {
		t.Error("persistence failure must be visible on the detection")
	}
	if results[0].Attendance != "" {
		t.Error("persistence failure must not masquerade as an attendance outcome")
	}
}

func TestProcess_MultipleFaces(t *testing.T) {
	provider := &fakeProvider{faces: []embedding.Detection{
		{Embedding: []float32{0.1, 0, 0}, BBox: []float64{0, 0, 10, 10}},
		{Embedding: []float32{0, 0.1, 0}, BBox: []float64{20, 0, 30, 10}},
		{Embedding: []float32{5, 5, 5}, BBox: []float64{40, 0, 50, 10}},
	}}
	mem := memory.New()
	p := newProcessor(provider, testStore(
		gallery.Entry{Identity: "Alice", Embedding: []float32{0, 0, 0}},
		gallery.Entry{Identity: "Bob", Embedding: []float32{0, 0.2, 0}},
	), mem)

	results, err := p.Process(context.Background(), testFrame(t), time.Now())
	if err != nil {
		t.Fatalf("Process failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 detections, got %d", len(results))
	}
	if results[0].Name != "Alice" || results[1].Name != "Bob" || results[2].Name != match.Unknown {
		t.Errorf("unexpected identities: %s, %s, %s", results[0].Name, results[1].Name, results[2].Name)
	}
	if mem.Count() != 2 {
		t.Errorf("expected 2 records, got %d", mem.Count())
	}
}

func TestProcess_GalleryReloadDoesNotAffectInFlightSnapshot(t *testing.T) {
	galleryStore := testStore(gallery.Entry{Identity: "Alice", Embedding: []float32{0, 0, 0}})
	snapshot := galleryStore.Snapshot()

	// Reload installs a replacement; the captured snapshot is untouched.
	galleryStore.Swap(gallery.NewSnapshot([]gallery.Entry{
		{Identity: "Bob", Embedding: []float32{0, 0, 0}},
	}, nil))

	if snapshot.Entries()[0].Identity != "Alice" {
		t.Error("captured snapshot observed entries from a newer snapshot")
	}
	if galleryStore.Snapshot().Entries()[0].Identity != "Bob" {
		t.Error("store did not publish the new snapshot")
	}
}
