package model

import (
	"time"

	geom "github.com/twpayne/go-geom"
)

// Centroid is a geographic point in WGS84 degrees.
type Centroid struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Boundary represents a property's outer property-line polygon together
// with its derived metrics. A boundary is immutable after creation;
// re-uploading a source file creates a new Boundary and invalidates all
// dependent zones, contours, and the buildable area.
type Boundary struct {
	ID           string        `json:"id"`
	ProjectID    string        `json:"project_id"`
	Name         string        `json:"name"`
	SourceFile   string        `json:"source_file,omitempty"`
	Geometry     *geom.Polygon `json:"-"`
	AreaM2       float64       `json:"area_m2"`
	AreaAcres    float64       `json:"area_acres"`
	AreaHectares float64       `json:"area_hectares"`
	PerimeterM   float64       `json:"perimeter_m"`
	Centroid     Centroid      `json:"centroid"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// BuildableArea is the derived buildable region for a boundary: the
// boundary polygon minus the union of its (buffered) exclusion zones.
// At most one exists per boundary and it is always fully replaced on
// recomputation, never patched in place.
type BuildableArea struct {
	ID                  string    `json:"id"`
	BoundaryID          string    `json:"boundary_id"`
	Geometry            geom.T    `json:"-"` // Polygon or MultiPolygon, possibly empty
	AreaM2              float64   `json:"area_m2"`
	AreaAcres           float64   `json:"area_acres"`
	AreaHectares        float64   `json:"area_hectares"`
	TotalPropertyAreaM2 float64   `json:"total_property_area_m2"`
	ExcludedAreaM2      float64   `json:"excluded_area_m2"`
	BuildablePercent    float64   `json:"buildable_percent"`
	ExclusionCount      int       `json:"exclusion_count"`
	ComputedAt          time.Time `json:"computed_at"`
}
