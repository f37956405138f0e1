package match

import (
	"math"
	"testing"
)

func TestEuclideanDistance(t *testing.T) {
	if d := EuclideanDistance([]float32{0, 0}, []float32{3, 4}); math.Abs(d-5) > 1e-9 {
		t.Errorf("expected 5, got %v", d)
	}
	if d := EuclideanDistance([]float32{1, 2}, []float32{1, 2}); d != 0 {
		t.Errorf("expected 0 for identical vectors, got %v", d)
	}
	if d := EuclideanDistance([]float32{1}, []float32{1, 2}); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for mismatched lengths, got %v", d)
	}
	if d := EuclideanDistance(nil, nil); !math.IsInf(d, 1) {
		t.Errorf("expected +Inf for empty input, got %v", d)
	}
}

func TestCosineDistance(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0}); math.Abs(d) > 1e-9 {
		t.Errorf("expected 0 for identical vectors, got %v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{0, 1}); math.Abs(d-1) > 1e-9 {
		t.Errorf("expected 1 for orthogonal vectors, got %v", d)
	}
	if d := CosineDistance([]float32{1, 0}, []float32{-1, 0}); math.Abs(d-2) > 1e-9 {
		t.Errorf("expected 2 for opposite vectors, got %v", d)
	}
	if d := CosineDistance([]float32{0, 0}, []float32{1, 0}); d != 2.0 {
		t.Errorf("expected max distance for zero vector, got %v", d)
	}
	if d := CosineDistance([]float32{1}, []float32{1, 2}); d != 2.0 {
		t.Errorf("expected max distance for mismatched lengths, got %v", d)
	}
}

func TestForMetric(t *testing.T) {
	a, b := []float32{1, 0}, []float32{0, 1}
	if d := ForMetric(MetricCosine)(a, b); math.Abs(d-1) > 1e-9 {
		t.Errorf("cosine metric not selected, got %v", d)
	}
	if d := ForMetric(MetricEuclidean)(a, b); math.Abs(d-math.Sqrt2) > 1e-9 {
		t.Errorf("euclidean metric not selected, got %v", d)
	}
	// Unknown names fall back to euclidean.
	if d := ForMetric("manhattan")(a, b); math.Abs(d-math.Sqrt2) > 1e-9 {
		t.Errorf("unknown metric must fall back to euclidean, got %v", d)
	}
}
