package model

import "encoding/json"

// BoundaryParseResult is returned to callers after a boundary upload is
// parsed, validated, and measured.
type BoundaryParseResult struct {
	Geometry     json.RawMessage `json:"geometry"`
	AreaM2       float64         `json:"area_m2"`
	AreaAcres    float64         `json:"area_acres"`
	AreaHectares float64         `json:"area_hectares"`
	PerimeterM   float64         `json:"perimeter_m"`
	Centroid     Centroid        `json:"centroid"`
}

// ZoneResult is returned after an exclusion zone is created or its
// buffer distance is updated.
type ZoneResult struct {
	Geometry         json.RawMessage `json:"geometry"`
	BufferedGeometry json.RawMessage `json:"buffered_geometry,omitempty"`
	BufferDistanceM  float64         `json:"buffer_distance_m"`
	AreaM2           float64         `json:"area_m2"`
	AreaAcres        float64         `json:"area_acres"`
}

// BuildableResult is the full buildable-area computation output.
type BuildableResult struct {
	Geometry            json.RawMessage `json:"geometry"`
	AreaM2              float64         `json:"area_m2"`
	AreaAcres           float64         `json:"area_acres"`
	AreaHectares        float64         `json:"area_hectares"`
	TotalPropertyAreaM2 float64         `json:"total_property_area_m2"`
	ExcludedAreaM2      float64         `json:"excluded_area_m2"`
	BuildablePercent    float64         `json:"buildable_percent"`
	ExclusionCount      int             `json:"exclusion_count"`
}

// ContourResult describes one imported contour line.
type ContourResult struct {
	Geometry   json.RawMessage `json:"geometry"`
	ElevationM float64         `json:"elevation_m"`
}

// ElevationStats summarizes the elevation values of an imported batch.
type ElevationStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	Range float64 `json:"range"`
	Unit  string  `json:"unit"`
}

// ContourImportResult is returned after a contour file import.
type ContourImportResult struct {
	Contours       []ContourResult `json:"contours"`
	ElevationStats ElevationStats  `json:"elevation_stats"`
	Warnings       []string        `json:"warnings,omitempty"`
}
