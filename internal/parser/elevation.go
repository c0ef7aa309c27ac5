package parser

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	geom "github.com/twpayne/go-geom"
)

const (
	// MinElevationM and MaxElevationM bound plausible terrain
	// elevations, Dead-Sea-to-Everest with margin. Values outside are
	// rejected, never clamped.
	MinElevationM = -500.0
	MaxElevationM = 9000.0

	// feetDetectionRange is the batch min-to-max spread above which
	// elevation values are assumed to be feet. At most terrain sites a
	// meter-scale change stays under 300 while the same relief in feet
	// exceeds it. A heuristic, not format metadata.
	feetDetectionRange = 300.0

	feetToMeters = 0.3048
)

// ElevationErrorKind distinguishes the two contour-ingestion failures.
type ElevationErrorKind string

const (
	ElevationUnresolved ElevationErrorKind = "unresolved"
	ElevationInvalid    ElevationErrorKind = "invalid"
)

// ElevationError reports a contour feature whose elevation could not be
// resolved or falls outside the plausible range.
type ElevationError struct {
	Kind         ElevationErrorKind `json:"kind"`
	FeatureIndex int                `json:"feature_index"`
	Value        float64            `json:"value,omitempty"`
	Fields       []string           `json:"fields,omitempty"` // attribute names that were available
}

func (e *ElevationError) Error() string {
	switch e.Kind {
	case ElevationInvalid:
		return fmt.Sprintf("feature %d: elevation %.1f outside valid range [%g, %g] m", e.FeatureIndex, e.Value, MinElevationM, MaxElevationM)
	default:
		return fmt.Sprintf("feature %d: no elevation found in fields %v", e.FeatureIndex, e.Fields)
	}
}

// elevationCandidates is the fixed, ordered list of attribute names
// scanned for an elevation value. First match wins.
var elevationCandidates = []string{
	"elevation", "ELEVATION", "Elevation",
	"elev", "ELEV", "Elev",
	"z", "Z",
	"height", "HEIGHT", "Height",
	"level", "LEVEL", "Level",
	"contour", "CONTOUR", "Contour",
}

var layerNumberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)

// resolveElevation finds a feature's elevation value. Discovery order:
// the candidate attribute list, then the first vertex's third
// coordinate when nonzero, then a numeric substring extracted from the
// layer or group name.
func resolveElevation(f Feature) (float64, error) {
	for _, name := range elevationCandidates {
		if v, ok := f.Attributes[name]; ok {
			if val, ok := toFloat(v); ok {
				return val, nil
			}
		}
	}

	if z, ok := firstVertexZ(f.Geometry); ok && z != 0 {
		return z, nil
	}

	if f.Layer != "" {
		if m := layerNumberRe.FindString(f.Layer); m != "" {
			if val, err := strconv.ParseFloat(m, 64); err == nil {
				return val, nil
			}
		}
	}

	return 0, &ElevationError{Kind: ElevationUnresolved, FeatureIndex: f.Index, Fields: attrNames(f.Attributes)}
}

// validateElevation enforces the plausible elevation range in meters.
func validateElevation(meters float64, index int) error {
	if math.IsNaN(meters) || meters < MinElevationM || meters > MaxElevationM {
		return &ElevationError{Kind: ElevationInvalid, FeatureIndex: index, Value: meters}
	}
	return nil
}

// ContourBatch is the normalized result of a contour parse: line
// geometries with meter elevations, plus any per-feature warnings.
type ContourBatch struct {
	Lines      []ContourFeature
	Warnings   []string
	SourceUnit string // "m" or "ft", per the detection heuristic
}

// ContourFeature is one surviving contour line.
type ContourFeature struct {
	Geometry   *geom.LineString
	ElevationM float64
	Index      int
}

// resolveContourBatch resolves elevations for every parsed line
// feature, applies the feet-detection heuristic across the batch, and
// validates the normalized values. A batch with some valid and some
// invalid features succeeds with warnings; only a batch with zero valid
// features fails outright.
func resolveContourBatch(features []Feature, format Format) (*ContourBatch, error) {
	type raw struct {
		line  *geom.LineString
		value float64
		index int
	}

	var resolved []raw
	var warnings []string

	for _, f := range features {
		line, ok := f.Geometry.(*geom.LineString)
		if !ok || line.NumCoords() < 2 {
			warnings = append(warnings, fmt.Sprintf("feature %d: not a usable line geometry", f.Index))
			continue
		}
		if err := validateCoords(line, format, f.Index); err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		v, err := resolveElevation(f)
		if err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		resolved = append(resolved, raw{line: line, value: v, index: f.Index})
	}

	// Unit detection across the batch, before range validation, so
	// feet-denominated files are normalized rather than rejected.
	unit := "m"
	if len(resolved) > 0 {
		min, max := resolved[0].value, resolved[0].value
		for _, r := range resolved {
			min = math.Min(min, r.value)
			max = math.Max(max, r.value)
		}
		if max-min > feetDetectionRange {
			unit = "ft"
		}
	}

	batch := &ContourBatch{SourceUnit: unit}
	for _, r := range resolved {
		meters := r.value
		if unit == "ft" {
			meters = r.value * feetToMeters
		}
		if err := validateElevation(meters, r.index); err != nil {
			warnings = append(warnings, err.Error())
			continue
		}
		batch.Lines = append(batch.Lines, ContourFeature{Geometry: r.line, ElevationM: meters, Index: r.index})
	}
	batch.Warnings = warnings

	if len(batch.Lines) == 0 {
		if len(warnings) > 0 {
			return nil, formatErr(format, fmt.Sprintf("no valid contour features: %d feature(s) rejected", len(warnings)))
		}
		return nil, formatErr(format, "no line features found")
	}
	return batch, nil
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		f, err := strconv.ParseFloat(t, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func firstVertexZ(g geom.T) (float64, bool) {
	if g == nil || g.Layout().ZIndex() < 0 {
		return 0, false
	}
	coords := g.FlatCoords()
	zi := g.Layout().ZIndex()
	if len(coords) <= zi {
		return 0, false
	}
	return coords[zi], true
}

func attrNames(attrs map[string]any) []string {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
