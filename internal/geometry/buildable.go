package geometry

import (
	"fmt"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geos"
)

// ZoneInput pairs a zone's raw polygon with its buffered polygon, when
// one exists. The buffered geometry always wins during computation.
type ZoneInput struct {
	Polygon  *geom.Polygon
	Buffered *geom.Polygon
}

func (z ZoneInput) effective() *geom.Polygon {
	if z.Buffered != nil {
		return z.Buffered
	}
	return z.Polygon
}

// BuildableStats is the result of a buildable-area computation.
type BuildableStats struct {
	Geometry            geom.T // Polygon or MultiPolygon, possibly empty
	AreaM2              float64
	TotalPropertyAreaM2 float64
	ExcludedAreaM2      float64
	BuildablePercent    float64
	ExclusionCount      int
}

// ComputeBuildable unions every zone's effective polygon into a single
// exclusion region and subtracts it from the boundary. With no zones
// the boundary itself is buildable at 100%. A boundary fully covered by
// exclusions yields an explicit empty multi-part geometry with zero
// buildable area, not an error. The computation is a pure function of
// its inputs and is safe to invoke repeatedly and concurrently.
func ComputeBuildable(boundary *geom.Polygon, zones []ZoneInput) (*BuildableStats, error) {
	totalArea := AreaM2(boundary)

	if len(zones) == 0 {
		return &BuildableStats{
			Geometry:            boundary,
			AreaM2:              totalArea,
			TotalPropertyAreaM2: totalArea,
			ExcludedAreaM2:      0,
			BuildablePercent:    100,
			ExclusionCount:      0,
		}, nil
	}

	boundaryGeos, err := polygonToGeos(boundary)
	if err != nil {
		return nil, &ComputeError{Stage: "convert boundary", Cause: err}
	}
	defer boundaryGeos.Destroy()

	union, err := unionZones(zones)
	if err != nil {
		return nil, err
	}
	defer union.Destroy()

	remaining := boundaryGeos.Difference(union)
	if remaining == nil {
		return nil, &ComputeError{Stage: "difference"}
	}
	defer remaining.Destroy()

	result, err := polygonalFromGeos(remaining)
	if err != nil {
		return nil, &ComputeError{Stage: "read difference result", Cause: err}
	}

	buildableArea := AreaOfM2(result)
	excluded := totalArea - buildableArea
	if excluded < 0 {
		excluded = 0
	}
	percent := 0.0
	if totalArea > 0 {
		percent = 100 * buildableArea / totalArea
	}

	return &BuildableStats{
		Geometry:            result,
		AreaM2:              buildableArea,
		TotalPropertyAreaM2: totalArea,
		ExcludedAreaM2:      excluded,
		BuildablePercent:    percent,
		ExclusionCount:      len(zones),
	}, nil
}

// unionZones folds the zone polygons into one exclusion region by
// pairwise union. GEOS snap rounding keeps the fold order-insensitive
// within floating tolerance.
func unionZones(zones []ZoneInput) (*geos.Geom, error) {
	var union *geos.Geom
	for i, z := range zones {
		g, err := polygonToGeos(z.effective())
		if err != nil {
			if union != nil {
				union.Destroy()
			}
			return nil, &ComputeError{Stage: "convert zone", Cause: err}
		}
		if union == nil {
			union = g
			continue
		}
		next := union.Union(g)
		union.Destroy()
		g.Destroy()
		if next == nil {
			return nil, &ComputeError{Stage: fmt.Sprintf("union zone %d", i)}
		}
		union = next
	}
	return union, nil
}
