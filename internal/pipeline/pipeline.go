// Package pipeline orchestrates the siting workflow: boundary import,
// exclusion zone management, buildable-area computation, contour
// import, and DEM job handoff. Geometry stays pure; persistence and
// blob storage are injected.
package pipeline

import (
	"context"
	"fmt"
	"path"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/siteworks/siteworks-cli/internal/blob"
	"github.com/siteworks/siteworks-cli/internal/config"
	"github.com/siteworks/siteworks-cli/internal/geometry"
	"github.com/siteworks/siteworks-cli/internal/model"
	"github.com/siteworks/siteworks-cli/internal/parser"
	"github.com/siteworks/siteworks-cli/internal/store"
)

// Service wires the workflow's dependencies together.
type Service struct {
	cfg   *config.Config
	store store.Store
	blob  blob.Store
	queue store.Queue
}

// New creates a Service with all dependencies.
func New(cfg *config.Config, st store.Store, bl blob.Store, q store.Queue) *Service {
	return &Service{cfg: cfg, store: st, blob: bl, queue: q}
}

// ImportBoundary sniffs the upload format, parses the first polygon
// feature, validates and measures it, archives the raw upload, and
// persists the boundary.
func (s *Service) ImportBoundary(ctx context.Context, projectID, filename string, data []byte) (*model.Boundary, *model.BoundaryParseResult, error) {
	format, err := parser.Detect(filename, data)
	if err != nil {
		return nil, nil, err
	}
	zap.L().Info("importing boundary",
		zap.String("project_id", projectID),
		zap.String("file", filename),
		zap.String("format", string(format)))

	polygon, attrs, err := parser.ParseBoundary(data, format)
	if err != nil {
		return nil, nil, err
	}
	if err := geometry.Validate(polygon); err != nil {
		return nil, nil, err
	}

	areaM2 := geometry.AreaM2(polygon)
	lat, lng := geometry.Centroid(polygon)

	b := &model.Boundary{
		ProjectID:    projectID,
		Name:         boundaryName(attrs, filename),
		SourceFile:   filename,
		Geometry:     polygon,
		AreaM2:       areaM2,
		AreaAcres:    geometry.Acres(areaM2),
		AreaHectares: geometry.Hectares(areaM2),
		PerimeterM:   geometry.PerimeterM(polygon),
		Centroid:     model.Centroid{Lat: lat, Lng: lng},
	}

	key := path.Join(projectID, filename)
	if _, err := s.blob.Put(ctx, key, data, contentTypeFor(format)); err != nil {
		return nil, nil, err
	}

	if err := s.store.CreateBoundary(ctx, b); err != nil {
		return nil, nil, err
	}
	zap.L().Info("boundary imported",
		zap.String("boundary_id", b.ID),
		zap.Float64("area_acres", b.AreaAcres))

	result, err := boundaryResult(b)
	if err != nil {
		return nil, nil, err
	}
	return b, result, nil
}

func boundaryResult(b *model.Boundary) (*model.BoundaryParseResult, error) {
	raw, err := marshalGeometry(b.Geometry)
	if err != nil {
		return nil, err
	}
	return &model.BoundaryParseResult{
		Geometry:     raw,
		AreaM2:       b.AreaM2,
		AreaAcres:    b.AreaAcres,
		AreaHectares: b.AreaHectares,
		PerimeterM:   b.PerimeterM,
		Centroid:     b.Centroid,
	}, nil
}

// boundaryName prefers a name attribute from the source file; falls
// back to the filename without extension.
func boundaryName(attrs map[string]any, filename string) string {
	for _, key := range []string{"name", "Name", "NAME"} {
		if v, ok := attrs[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	base := path.Base(filename)
	if ext := path.Ext(base); ext != "" {
		base = base[:len(base)-len(ext)]
	}
	if base == "" {
		return "boundary"
	}
	return base
}

func contentTypeFor(f parser.Format) string {
	switch f {
	case parser.FormatKML:
		return "application/vnd.google-earth.kml+xml"
	case parser.FormatGeoJSON:
		return "application/geo+json"
	case parser.FormatShapefile:
		return "application/zip"
	case parser.FormatDXF:
		return "image/vnd.dxf"
	}
	return "application/octet-stream"
}

func marshalGeometry(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, eris.New("pipeline: nil geometry")
	}
	raw, err := geojson.Marshal(g)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: encode geometry")
	}
	return raw, nil
}

func fileWarning(filename, msg string) string {
	return fmt.Sprintf("%s: %s", filename, msg)
}
