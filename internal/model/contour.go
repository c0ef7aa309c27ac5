package model

import (
	"time"

	geom "github.com/twpayne/go-geom"
)

// ContourLine is a single-elevation polyline imported for a boundary.
// Elevation is always stored in meters; source units are normalized at
// ingest time.
type ContourLine struct {
	ID         string           `json:"id"`
	BoundaryID string           `json:"boundary_id"`
	Geometry   *geom.LineString `json:"-"`
	ElevationM float64          `json:"elevation_m"`
	SourceFile string           `json:"source_file,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
}

// TerrainMetadata summarizes the contour collection for a boundary.
type TerrainMetadata struct {
	BoundaryID   string  `json:"boundary_id"`
	MinElevation float64 `json:"min_elevation"`
	MaxElevation float64 `json:"max_elevation"`
	AvgElevation float64 `json:"avg_elevation"`
	Range        float64 `json:"range"`
	ContourCount int     `json:"contour_count"`
	Unit         string  `json:"unit"`
}

// Recompute derives the metadata fields from a contour set.
func (m *TerrainMetadata) Recompute(contours []ContourLine) {
	m.ContourCount = len(contours)
	m.Unit = "m"
	if len(contours) == 0 {
		m.MinElevation, m.MaxElevation, m.AvgElevation, m.Range = 0, 0, 0, 0
		return
	}
	min := contours[0].ElevationM
	max := contours[0].ElevationM
	sum := 0.0
	for _, c := range contours {
		if c.ElevationM < min {
			min = c.ElevationM
		}
		if c.ElevationM > max {
			max = c.ElevationM
		}
		sum += c.ElevationM
	}
	m.MinElevation = min
	m.MaxElevation = max
	m.AvgElevation = sum / float64(len(contours))
	m.Range = max - min
}
