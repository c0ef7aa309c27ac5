package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/siteworks/siteworks-cli/internal/geometry"
	"github.com/siteworks/siteworks-cli/internal/model"
	"github.com/siteworks/siteworks-cli/internal/store"
)

// ComputeBuildable returns the buildable area for a boundary,
// computing and storing it on first request. With force set the stored
// result is ignored and fully replaced.
func (s *Service) ComputeBuildable(ctx context.Context, boundaryID string, force bool) (*model.BuildableResult, error) {
	if !force {
		stored, err := s.store.GetBuildableArea(ctx, boundaryID)
		if err == nil {
			return buildableResult(stored)
		}
		if !eris.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	boundary, err := s.store.GetBoundary(ctx, boundaryID)
	if err != nil {
		return nil, err
	}
	if err := s.recomputeBuildable(ctx, boundary); err != nil {
		return nil, err
	}
	stored, err := s.store.GetBuildableArea(ctx, boundaryID)
	if err != nil {
		return nil, err
	}
	return buildableResult(stored)
}

// recomputeBuildable recomputes from the boundary's current zone set
// and replaces the stored result through the atomic upsert.
func (s *Service) recomputeBuildable(ctx context.Context, boundary *model.Boundary) error {
	zones, err := s.store.ListZones(ctx, boundary.ID)
	if err != nil {
		return err
	}

	inputs := make([]geometry.ZoneInput, len(zones))
	for i, z := range zones {
		inputs[i] = geometry.ZoneInput{Polygon: z.Geometry, Buffered: z.BufferedGeometry}
	}

	stats, err := geometry.ComputeBuildable(boundary.Geometry, inputs)
	if err != nil {
		return err
	}

	ba := &model.BuildableArea{
		BoundaryID:          boundary.ID,
		Geometry:            stats.Geometry,
		AreaM2:              stats.AreaM2,
		AreaAcres:           geometry.Acres(stats.AreaM2),
		AreaHectares:        geometry.Hectares(stats.AreaM2),
		TotalPropertyAreaM2: stats.TotalPropertyAreaM2,
		ExcludedAreaM2:      stats.ExcludedAreaM2,
		BuildablePercent:    stats.BuildablePercent,
		ExclusionCount:      stats.ExclusionCount,
	}
	if err := s.store.UpsertBuildableArea(ctx, ba); err != nil {
		return err
	}
	zap.L().Info("buildable area recomputed",
		zap.String("boundary_id", boundary.ID),
		zap.Float64("buildable_percent", ba.BuildablePercent),
		zap.Int("exclusion_count", ba.ExclusionCount))
	return nil
}

func buildableResult(ba *model.BuildableArea) (*model.BuildableResult, error) {
	raw, err := marshalGeometry(ba.Geometry)
	if err != nil {
		return nil, err
	}
	return &model.BuildableResult{
		Geometry:            raw,
		AreaM2:              ba.AreaM2,
		AreaAcres:           ba.AreaAcres,
		AreaHectares:        ba.AreaHectares,
		TotalPropertyAreaM2: ba.TotalPropertyAreaM2,
		ExcludedAreaM2:      ba.ExcludedAreaM2,
		BuildablePercent:    ba.BuildablePercent,
		ExclusionCount:      ba.ExclusionCount,
	}, nil
}
