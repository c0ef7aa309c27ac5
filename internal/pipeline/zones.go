package pipeline

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/siteworks/siteworks-cli/internal/geometry"
	"github.com/siteworks/siteworks-cli/internal/model"
)

// CreateZone validates the zone polygon against the boundary, applies
// the type-default or requested buffer, persists the zone, and eagerly
// recomputes the buildable area.
func (s *Service) CreateZone(ctx context.Context, z *model.ExclusionZone, bufferM *float64) (*model.ZoneResult, []string, error) {
	boundary, err := s.store.GetBoundary(ctx, z.BoundaryID)
	if err != nil {
		return nil, nil, err
	}
	if !z.Type.Valid() {
		z.Type = model.InferZoneType(z.Name)
	}
	if err := geometry.Validate(z.Geometry); err != nil {
		return nil, nil, err
	}

	contained, err := geometry.CheckContainment(z.Geometry, boundary.Geometry, s.containmentOptions())
	if err != nil {
		return nil, nil, err
	}
	if err := contained.Err(); err != nil {
		return nil, nil, err
	}

	distance := z.Type.DefaultBufferM()
	if bufferM != nil {
		distance = *bufferM
	}

	warnings, err := s.applyBuffer(z, distance)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.CreateZone(ctx, z); err != nil {
		return nil, nil, err
	}
	zap.L().Info("exclusion zone created",
		zap.String("zone_id", z.ID),
		zap.String("boundary_id", z.BoundaryID),
		zap.String("type", string(z.Type)),
		zap.Float64("buffer_m", z.BufferDistanceM))

	if err := s.recomputeBuildable(ctx, boundary); err != nil {
		return nil, nil, err
	}

	result, err := zoneResult(z)
	return result, warnings, err
}

// UpdateZoneBuffer changes a zone's buffer distance, re-buffers, and
// recomputes the buildable area.
func (s *Service) UpdateZoneBuffer(ctx context.Context, zoneID string, bufferM float64) (*model.ZoneResult, []string, error) {
	z, err := s.store.GetZone(ctx, zoneID)
	if err != nil {
		return nil, nil, err
	}
	boundary, err := s.store.GetBoundary(ctx, z.BoundaryID)
	if err != nil {
		return nil, nil, err
	}

	warnings, err := s.applyBuffer(z, bufferM)
	if err != nil {
		return nil, nil, err
	}

	if err := s.store.UpdateZone(ctx, z); err != nil {
		return nil, nil, err
	}
	zap.L().Info("zone buffer updated",
		zap.String("zone_id", z.ID),
		zap.Float64("buffer_m", bufferM))

	if err := s.recomputeBuildable(ctx, boundary); err != nil {
		return nil, nil, err
	}

	result, err := zoneResult(z)
	return result, warnings, err
}

// DeleteZone removes a zone and recomputes the buildable area for its
// boundary.
func (s *Service) DeleteZone(ctx context.Context, zoneID string) error {
	z, err := s.store.GetZone(ctx, zoneID)
	if err != nil {
		return err
	}
	boundary, err := s.store.GetBoundary(ctx, z.BoundaryID)
	if err != nil {
		return err
	}
	if err := s.store.DeleteZone(ctx, zoneID); err != nil {
		return err
	}
	zap.L().Info("exclusion zone deleted", zap.String("zone_id", zoneID))
	return s.recomputeBuildable(ctx, boundary)
}

// applyBuffer validates the distance, buffers the zone polygon when
// the distance is positive, and refreshes the zone's area metrics from
// the effective geometry.
func (s *Service) applyBuffer(z *model.ExclusionZone, distanceM float64) ([]string, error) {
	if err := geometry.ValidateBufferDistance(distanceM, s.cfg.Geometry.MaxBufferM); err != nil {
		return nil, err
	}
	z.BufferDistanceM = distanceM
	z.BufferedGeometry = nil

	var warnings []string
	if distanceM > 0 {
		buffered, warns := geometry.Buffer(z.Geometry, distanceM, &geometry.BufferOptions{
			Steps: s.cfg.Geometry.BufferArcSteps,
		})
		z.BufferedGeometry = buffered
		warnings = warns
	}

	areaM2 := geometry.AreaM2(z.EffectiveGeometry())
	z.AreaM2 = areaM2
	z.AreaAcres = geometry.Acres(areaM2)
	return warnings, nil
}

func (s *Service) containmentOptions() *geometry.ContainmentOptions {
	return &geometry.ContainmentOptions{
		ToleranceM:            s.cfg.Geometry.ContainmentToleranceM,
		AllowOutsideTolerance: s.cfg.Geometry.AllowOutsideTolerance,
	}
}

func zoneResult(z *model.ExclusionZone) (*model.ZoneResult, error) {
	raw, err := marshalGeometry(z.Geometry)
	if err != nil {
		return nil, err
	}
	result := &model.ZoneResult{
		Geometry:        raw,
		BufferDistanceM: z.BufferDistanceM,
		AreaM2:          z.AreaM2,
		AreaAcres:       z.AreaAcres,
	}
	if z.BufferedGeometry != nil {
		buffered, err := marshalGeometry(z.BufferedGeometry)
		if err != nil {
			return nil, err
		}
		result.BufferedGeometry = json.RawMessage(buffered)
	}
	return result, nil
}
