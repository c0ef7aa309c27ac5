package geometry

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
)

// DefaultContainmentToleranceM absorbs GPS/survey noise when testing
// whether a zone lies inside its boundary.
const DefaultContainmentToleranceM = 1.0

// allowOutsideMaxPercent is the leniency ceiling for near-boundary
// zones when AllowOutsideTolerance is set. Distinct from the geometric
// tolerance buffer.
const allowOutsideMaxPercent = 1.0

// ContainmentOptions tunes the containment check.
type ContainmentOptions struct {
	ToleranceM            float64 // boundary buffer in meters; 0 means DefaultContainmentToleranceM
	AllowOutsideTolerance bool    // pass zones that are < 1% outside
}

// ContainmentResult reports whether a zone lies inside the boundary and
// quantifies any escaping area.
type ContainmentResult struct {
	Valid          bool    `json:"valid"`
	OutsidePercent float64 `json:"outside_percent"`
	OutsideAreaM2  float64 `json:"outside_area_m2"`
}

// Err converts an invalid result to a ContainmentError, or nil.
func (r *ContainmentResult) Err() error {
	if r.Valid {
		return nil
	}
	return &ContainmentError{OutsidePercent: r.OutsidePercent, OutsideAreaM2: r.OutsideAreaM2}
}

// CheckContainment tests that a zone polygon lies within the boundary
// buffered outward by the tolerance. If not contained, the difference
// of zone minus tolerant boundary quantifies the escaping area and its
// percentage of the zone's own area. A zone with no overlap at all is
// reported 100% outside. The check never mutates its inputs.
func CheckContainment(zone, boundary *geom.Polygon, opts *ContainmentOptions) (*ContainmentResult, error) {
	tolerance := DefaultContainmentToleranceM
	allow := false
	if opts != nil {
		if opts.ToleranceM > 0 {
			tolerance = opts.ToleranceM
		}
		allow = opts.AllowOutsideTolerance
	}

	tolerant, _ := Buffer(boundary, tolerance, nil)

	zoneGeos, err := polygonToGeos(zone)
	if err != nil {
		return nil, eris.Wrap(err, "containment: convert zone")
	}
	defer zoneGeos.Destroy()

	boundaryGeos, err := polygonToGeos(tolerant)
	if err != nil {
		return nil, eris.Wrap(err, "containment: convert boundary")
	}
	defer boundaryGeos.Destroy()

	if boundaryGeos.Covers(zoneGeos) {
		return &ContainmentResult{Valid: true}, nil
	}

	zoneArea := AreaM2(zone)

	if !boundaryGeos.Intersects(zoneGeos) {
		return &ContainmentResult{Valid: false, OutsidePercent: 100, OutsideAreaM2: zoneArea}, nil
	}

	escaped := zoneGeos.Difference(boundaryGeos)
	if escaped == nil {
		return nil, eris.New("containment: difference operation failed")
	}
	defer escaped.Destroy()

	outside, err := polygonalFromGeos(escaped)
	if err != nil {
		return nil, eris.Wrap(err, "containment: read difference result")
	}
	outsideArea := AreaOfM2(outside)

	percent := 0.0
	if zoneArea > 0 {
		percent = 100 * outsideArea / zoneArea
	}

	valid := allow && percent < allowOutsideMaxPercent
	return &ContainmentResult{Valid: valid, OutsidePercent: percent, OutsideAreaM2: outsideArea}, nil
}
