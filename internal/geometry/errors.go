// Package geometry implements the geospatial core: polygon validation,
// geodetic metrics, regulatory buffering, containment checks, buildable
// area boolean algebra, and contour clipping. All functions are pure
// with respect to their inputs; no package-level mutable state exists,
// so callers may invoke them concurrently across boundaries.
package geometry

import (
	"fmt"
	"strings"
)

// Point is a WGS84 coordinate used in violation reporting.
type Point struct {
	Lng float64 `json:"lng"`
	Lat float64 `json:"lat"`
}

// GeometryError reports one or more topological violations found by
// Validate. All checks run to completion so every violation is reported
// together rather than short-circuiting at the first failure.
type GeometryError struct {
	Violations         []string `json:"violations"`
	IntersectionPoints []Point  `json:"intersection_points"`
}

func (e *GeometryError) Error() string {
	return fmt.Sprintf("geometry invalid: %s", strings.Join(e.Violations, "; "))
}

// ContainmentError reports a zone escaping its boundary beyond the
// geometric tolerance, with the escaping area quantified so callers can
// display actionable feedback.
type ContainmentError struct {
	OutsidePercent float64 `json:"outside_percent"`
	OutsideAreaM2  float64 `json:"outside_area_m2"`
}

func (e *ContainmentError) Error() string {
	return fmt.Sprintf("zone extends %.2f%% (%.1f m2) outside the property boundary", e.OutsidePercent, e.OutsideAreaM2)
}

// BufferDistanceError reports a rejected buffer distance.
type BufferDistanceError struct {
	DistanceM float64 `json:"distance_m"`
	MaxM      float64 `json:"max_m"`
	Reason    string  `json:"reason"`
}

func (e *BufferDistanceError) Error() string {
	return fmt.Sprintf("invalid buffer distance %.1f m: %s", e.DistanceM, e.Reason)
}

// ComputeError reports a boolean-algebra failure during buildable-area
// computation that is not otherwise classified.
type ComputeError struct {
	Stage string
	Cause error
}

func (e *ComputeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("buildable area computation failed at %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("buildable area computation failed at %s", e.Stage)
}

func (e *ComputeError) Unwrap() error { return e.Cause }
