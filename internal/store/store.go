// Package store persists boundaries, exclusion zones, contour lines,
// and the derived buildable area behind a backend-neutral repository
// interface. The geometry core never touches storage directly; this is
// the seam that keeps it pure.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/siteworks/siteworks-cli/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = eris.New("store: not found")

// Store defines the persistence interface for the siting pipeline.
//
// UpsertBuildableArea must be atomic on the boundary's unique key:
// concurrent recomputations for the same boundary serialize on the
// replace so the last writer's inputs determine the stored result.
type Store interface {
	// Boundaries
	CreateBoundary(ctx context.Context, b *model.Boundary) error
	GetBoundary(ctx context.Context, id string) (*model.Boundary, error)
	ListBoundaries(ctx context.Context, projectID string) ([]model.Boundary, error)
	// DeleteBoundary cascades to zones, contours, and the buildable area.
	DeleteBoundary(ctx context.Context, id string) error

	// Exclusion zones
	CreateZone(ctx context.Context, z *model.ExclusionZone) error
	GetZone(ctx context.Context, id string) (*model.ExclusionZone, error)
	ListZones(ctx context.Context, boundaryID string) ([]model.ExclusionZone, error)
	UpdateZone(ctx context.Context, z *model.ExclusionZone) error
	DeleteZone(ctx context.Context, id string) error

	// Buildable area (full replace, keyed by boundary)
	UpsertBuildableArea(ctx context.Context, ba *model.BuildableArea) error
	GetBuildableArea(ctx context.Context, boundaryID string) (*model.BuildableArea, error)

	// Contours
	CreateContours(ctx context.Context, contours []model.ContourLine) error
	ListContours(ctx context.Context, boundaryID string) ([]model.ContourLine, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Queue hands job payloads to the external DEM worker. The local
// SQLite-backed implementation is for development; production uses the
// cloud queue the worker consumes.
type Queue interface {
	Enqueue(ctx context.Context, payload []byte) (string, error)
}
