package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/kozaktomas/face-attendance/internal/gallery"
)

// GalleryCache persists reference embeddings keyed by image content hash so
// unchanged gallery photos are not re-sent to the embedding server on every
// reload.
type GalleryCache struct {
	pool *Pool
}

// NewGalleryCache creates a PostgreSQL gallery embedding cache.
func NewGalleryCache(pool *Pool) *GalleryCache {
	return &GalleryCache{pool: pool}
}

// Get returns the cached face for an image hash, or nil on a miss.
func (c *GalleryCache) Get(ctx context.Context, imageHash string) (*gallery.CachedFace, error) {
	var vec pgvector.Vector
	var face gallery.CachedFace

	err := c.pool.QueryRow(ctx,
		"SELECT embedding, bbox, dim FROM gallery_cache WHERE image_hash = $1",
		imageHash).
		Scan(&vec, pq.Array(&face.BBox), &face.Dim)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query gallery cache: %w", err)
	}

	face.Embedding = vec.Slice()
	return &face, nil
}

// Put stores a computed reference face. Re-putting the same hash overwrites,
// which keeps the cache current when an image file is replaced in place.
func (c *GalleryCache) Put(ctx context.Context, imageHash, identityName string, face gallery.CachedFace) error {
	_, err := c.pool.Exec(ctx,
		`INSERT INTO gallery_cache (image_hash, identity, embedding, bbox, dim)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (image_hash) DO UPDATE
		 SET identity = EXCLUDED.identity,
		     embedding = EXCLUDED.embedding,
		     bbox = EXCLUDED.bbox,
		     dim = EXCLUDED.dim`,
		imageHash, identityName, pgvector.NewVector(face.Embedding), pq.Array(face.BBox), face.Dim)
	if err != nil {
		return fmt.Errorf("store gallery cache entry: %w", err)
	}
	return nil
}
