// Package blob stores uploaded source files (KML, GeoJSON, shapefile
// archives, DXF) and issues expiring signed URLs for retrieval.
package blob

import (
	"context"
	"time"
)

// Store persists raw uploads keyed by path-like strings. Put returns
// the stored key so callers can record it alongside the parsed entity.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, key string) ([]byte, error)
	SignedURL(key string, ttl time.Duration) (string, error)
}
