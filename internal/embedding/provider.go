// Package embedding talks to the face embedding server. The server is an
// opaque capability: given an image it returns zero or more fixed-length
// face embeddings with their bounding boxes. The Provider interface keeps the
// rest of the system testable with a deterministic fake instead of a model.
package embedding

import "context"

// Detection is a single face found in an image.
type Detection struct {
	FaceIndex int       `json:"face_index"`
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
	BBox      []float64 `json:"bbox"` // [x1, y1, x2, y2] in pixel coordinates
	DetScore  float64   `json:"det_score"`
}

// Area returns the bounding box area in square pixels. Used to pick the
// dominant face in ambiguous reference images.
func (d Detection) Area() float64 {
	if len(d.BBox) != 4 {
		return 0
	}
	w := d.BBox[2] - d.BBox[0]
	h := d.BBox[3] - d.BBox[1]
	if w <= 0 || h <= 0 {
		return 0
	}
	return w * h
}

// Provider detects faces and computes their embeddings.
type Provider interface {
	DetectFaces(ctx context.Context, imageData []byte) ([]Detection, error)
}
