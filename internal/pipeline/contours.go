package pipeline

import (
	"context"
	"path"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/siteworks/siteworks-cli/internal/geometry"
	"github.com/siteworks/siteworks-cli/internal/model"
	"github.com/siteworks/siteworks-cli/internal/parser"
)

// ContourFile is one uploaded contour source.
type ContourFile struct {
	Name string
	Data []byte
}

// contourParseConcurrency bounds the errgroup when many files arrive
// in one import.
const contourParseConcurrency = 4

// ImportContours parses every file concurrently, clips the surviving
// lines to the boundary (buffered by the configured margin), persists
// them, and refreshes the boundary's terrain metadata. Per-file
// failures become warnings; the import fails only when no file yields
// a valid line.
func (s *Service) ImportContours(ctx context.Context, boundaryID string, files []ContourFile) (*model.ContourImportResult, *model.TerrainMetadata, error) {
	boundary, err := s.store.GetBoundary(ctx, boundaryID)
	if err != nil {
		return nil, nil, err
	}

	var (
		mu       sync.Mutex
		lines    []model.ContourLine
		warnings []string
		units    []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(contourParseConcurrency)
	for _, f := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batch, parseErr := s.parseContourFile(ctx, boundaryID, f)

			mu.Lock()
			defer mu.Unlock()
			if parseErr != nil {
				warnings = append(warnings, fileWarning(f.Name, parseErr.Error()))
				return nil
			}
			for _, w := range batch.Warnings {
				warnings = append(warnings, fileWarning(f.Name, w))
			}
			units = append(units, batch.SourceUnit)
			for _, line := range batch.Lines {
				lines = append(lines, model.ContourLine{
					BoundaryID: boundaryID,
					Geometry:   line.Geometry,
					ElevationM: line.ElevationM,
					SourceFile: f.Name,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		if len(warnings) > 0 {
			return nil, nil, eris.Errorf("pipeline: no valid contour lines in %d file(s): %s", len(files), warnings[0])
		}
		return nil, nil, eris.New("pipeline: no contour lines found")
	}

	clipped, clipWarnings := geometry.ClipContours(lines, boundary.Geometry, s.cfg.Geometry.ContourClipBufferM)
	warnings = append(warnings, clipWarnings...)
	if len(clipped) == 0 {
		return nil, nil, eris.New("pipeline: no contour lines intersect the boundary area")
	}

	if err := s.store.CreateContours(ctx, clipped); err != nil {
		return nil, nil, err
	}

	meta := &model.TerrainMetadata{BoundaryID: boundaryID}
	all, err := s.store.ListContours(ctx, boundaryID)
	if err != nil {
		return nil, nil, err
	}
	meta.Recompute(all)

	zap.L().Info("contours imported",
		zap.String("boundary_id", boundaryID),
		zap.Int("files", len(files)),
		zap.Int("parsed", len(lines)),
		zap.Int("kept", len(clipped)),
		zap.Int("warnings", len(warnings)))

	result, err := contourImportResult(clipped, units, warnings)
	if err != nil {
		return nil, nil, err
	}
	return result, meta, nil
}

// parseContourFile sniffs, parses, and archives one contour upload.
func (s *Service) parseContourFile(ctx context.Context, boundaryID string, f ContourFile) (*parser.ContourBatch, error) {
	format, err := parser.Detect(f.Name, f.Data)
	if err != nil {
		return nil, err
	}
	batch, err := parser.ParseContours(f.Data, format)
	if err != nil {
		return nil, err
	}
	key := path.Join(boundaryID, "contours", f.Name)
	if _, err := s.blob.Put(ctx, key, f.Data, contentTypeFor(format)); err != nil {
		return nil, err
	}
	return batch, nil
}

func contourImportResult(clipped []model.ContourLine, units, warnings []string) (*model.ContourImportResult, error) {
	result := &model.ContourImportResult{Warnings: warnings}

	stats := model.ElevationStats{Unit: "m"}
	for _, u := range units {
		if u == "ft" {
			// At least one source file was detected as feet and
			// normalized; report the original unit.
			stats.Unit = "ft"
		}
	}
	for i, c := range clipped {
		raw, err := marshalGeometry(c.Geometry)
		if err != nil {
			return nil, err
		}
		result.Contours = append(result.Contours, model.ContourResult{
			Geometry:   raw,
			ElevationM: c.ElevationM,
		})
		if i == 0 || c.ElevationM < stats.Min {
			stats.Min = c.ElevationM
		}
		if i == 0 || c.ElevationM > stats.Max {
			stats.Max = c.ElevationM
		}
		stats.Avg += c.ElevationM
	}
	stats.Avg /= float64(len(clipped))
	stats.Range = stats.Max - stats.Min
	result.ElevationStats = stats
	return result, nil
}
