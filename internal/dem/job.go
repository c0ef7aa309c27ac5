// Package dem builds job payloads for the external elevation-grid
// worker. The CLI only enqueues; interpolation itself runs out of
// process.
package dem

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
)

// Interpolation methods the worker supports.
const (
	MethodTIN     = "tin"
	MethodIDW     = "idw"
	MethodKriging = "kriging"
)

// Grid resolution limits in meters. Finer than 0.5 m explodes raster
// size; coarser than 10 m is useless for site grading.
const (
	MinResolutionM = 0.5
	MaxResolutionM = 10.0
)

// Bounds is the lat/lng envelope the worker rasterizes.
type Bounds struct {
	MinLat float64 `json:"minLat"`
	MaxLat float64 `json:"maxLat"`
	MinLng float64 `json:"minLng"`
	MaxLng float64 `json:"maxLng"`
}

// JobPayload is the wire format consumed by the DEM worker. Field
// names are fixed by the worker's contract.
type JobPayload struct {
	JobID               string  `json:"jobId"`
	ProjectID           string  `json:"projectId"`
	PropertyBoundaryID  string  `json:"propertyBoundaryId"`
	Resolution          float64 `json:"resolution"`
	InterpolationMethod string  `json:"interpolationMethod"`
	Bounds              Bounds  `json:"bounds"`
}

// ValidateMethod checks the interpolation method against the closed
// set the worker implements.
func ValidateMethod(method string) error {
	switch method {
	case MethodTIN, MethodIDW, MethodKriging:
		return nil
	}
	return eris.Errorf("dem: unknown interpolation method %q (want tin, idw, or kriging)", method)
}

// ValidateResolution checks the grid resolution in meters.
func ValidateResolution(resolutionM float64) error {
	if resolutionM < MinResolutionM || resolutionM > MaxResolutionM {
		return eris.Errorf("dem: resolution %.2f m out of range [%.1f, %.1f]",
			resolutionM, MinResolutionM, MaxResolutionM)
	}
	return nil
}

// BoundsFromPolygon derives the job envelope from a boundary polygon.
func BoundsFromPolygon(p *geom.Polygon) (Bounds, error) {
	if p == nil || len(p.FlatCoords()) == 0 {
		return Bounds{}, eris.New("dem: empty boundary geometry")
	}
	b := p.Bounds()
	return Bounds{
		MinLng: b.Min(0),
		MinLat: b.Min(1),
		MaxLng: b.Max(0),
		MaxLat: b.Max(1),
	}, nil
}

// NewJob validates inputs and assembles a payload with a fresh job id.
func NewJob(projectID, boundaryID string, boundary *geom.Polygon, resolutionM float64, method string) (*JobPayload, error) {
	if err := ValidateMethod(method); err != nil {
		return nil, err
	}
	if err := ValidateResolution(resolutionM); err != nil {
		return nil, err
	}
	bounds, err := BoundsFromPolygon(boundary)
	if err != nil {
		return nil, err
	}
	return &JobPayload{
		JobID:               uuid.New().String(),
		ProjectID:           projectID,
		PropertyBoundaryID:  boundaryID,
		Resolution:          resolutionM,
		InterpolationMethod: method,
		Bounds:              bounds,
	}, nil
}

// Marshal renders the payload for the queue.
func (p *JobPayload) Marshal() ([]byte, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, eris.Wrap(err, "dem: marshal job payload")
	}
	return b, nil
}
