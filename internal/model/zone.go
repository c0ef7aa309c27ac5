package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
)

// ZoneType classifies an exclusion zone. It is a closed enumeration:
// every switch over it must be exhaustive so default-buffer lookup and
// keyword inference are total functions.
type ZoneType string

const (
	ZoneWetland       ZoneType = "wetland"
	ZoneProtectedArea ZoneType = "protected_area"
	ZoneEasement      ZoneType = "easement"
	ZoneBuffer        ZoneType = "buffer"
	ZoneSetback       ZoneType = "setback"
	ZoneCustom        ZoneType = "custom"
)

// ZoneTypes lists every valid zone classification.
var ZoneTypes = []ZoneType{
	ZoneWetland, ZoneProtectedArea, ZoneEasement, ZoneBuffer, ZoneSetback, ZoneCustom,
}

// Valid reports whether t is one of the known classifications.
func (t ZoneType) Valid() bool {
	switch t {
	case ZoneWetland, ZoneProtectedArea, ZoneEasement, ZoneBuffer, ZoneSetback, ZoneCustom:
		return true
	}
	return false
}

// DefaultBufferM returns the regulatory default buffer distance in
// meters for the classification. Buffer, setback, and custom zones have
// no implied setback; their buffer is explicit only.
func (t ZoneType) DefaultBufferM() float64 {
	switch t {
	case ZoneWetland:
		return 50
	case ZoneProtectedArea:
		return 100
	case ZoneEasement:
		return 5
	case ZoneBuffer, ZoneSetback, ZoneCustom:
		return 0
	}
	return 0
}

// ParseZoneType converts a string to a ZoneType, accepting a few common
// spellings (e.g. "protected-area").
func ParseZoneType(s string) (ZoneType, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.ReplaceAll(norm, "-", "_")
	norm = strings.ReplaceAll(norm, " ", "_")
	t := ZoneType(norm)
	if !t.Valid() {
		return "", eris.Errorf("model: unknown zone type %q", s)
	}
	return t, nil
}

// InferZoneType guesses a classification from a feature or layer name.
// It always returns a valid type; anything unrecognized is custom.
func InferZoneType(name string) ZoneType {
	n := strings.ToLower(name)
	switch {
	case strings.Contains(n, "wetland"), strings.Contains(n, "marsh"), strings.Contains(n, "swamp"):
		return ZoneWetland
	case strings.Contains(n, "protect"), strings.Contains(n, "conserv"), strings.Contains(n, "habitat"):
		return ZoneProtectedArea
	case strings.Contains(n, "easement"), strings.Contains(n, "right-of-way"), strings.Contains(n, "row"):
		return ZoneEasement
	case strings.Contains(n, "setback"):
		return ZoneSetback
	case strings.Contains(n, "buffer"):
		return ZoneBuffer
	}
	return ZoneCustom
}

// ExclusionZone is a sub-area of a boundary excluded from buildable
// land. BufferedGeometry is derived from Geometry and BufferDistanceM
// and is invalidated whenever the buffer distance changes.
type ExclusionZone struct {
	ID               string          `json:"id"`
	BoundaryID       string          `json:"boundary_id"`
	Name             string          `json:"name"`
	Type             ZoneType        `json:"type"`
	Geometry         *geom.Polygon   `json:"-"`
	BufferedGeometry *geom.Polygon   `json:"-"`
	BufferDistanceM  float64         `json:"buffer_distance_m"`
	Attributes       json.RawMessage `json:"attributes,omitempty"`
	AreaM2           float64         `json:"area_m2"`
	AreaAcres        float64         `json:"area_acres"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// EffectiveGeometry returns the buffered polygon when one exists, else
// the raw polygon. The raw geometry is never used once a buffer exists.
func (z *ExclusionZone) EffectiveGeometry() *geom.Polygon {
	if z.BufferedGeometry != nil {
		return z.BufferedGeometry
	}
	return z.Geometry
}
