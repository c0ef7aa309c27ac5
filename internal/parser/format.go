// Package parser normalizes heterogeneous geometry source formats
// (KML markup, GeoJSON feature collections, zipped shapefiles, DXF
// line-entity archives) into the internal polygon/polyline
// representation. Parsing is a pure transform over the input bytes;
// every failure is a structured error carrying the offending feature
// index and the fields that were available.
package parser

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
)

// Format identifies a supported geometry source format.
type Format string

const (
	FormatKML       Format = "kml"
	FormatGeoJSON   Format = "geojson"
	FormatShapefile Format = "shapefile"
	FormatDXF       Format = "dxf"
)

// FormatError reports unparseable source bytes or a wrong container.
type FormatError struct {
	Format       Format `json:"format,omitempty"`
	FeatureIndex int    `json:"feature_index"` // -1 when not feature-specific
	Reason       string `json:"reason"`
}

func (e *FormatError) Error() string {
	if e.FeatureIndex >= 0 {
		return fmt.Sprintf("%s parse error at feature %d: %s", e.Format, e.FeatureIndex, e.Reason)
	}
	if e.Format != "" {
		return fmt.Sprintf("%s parse error: %s", e.Format, e.Reason)
	}
	return "parse error: " + e.Reason
}

func formatErr(f Format, reason string) *FormatError {
	return &FormatError{Format: f, FeatureIndex: -1, Reason: reason}
}

func featureErr(f Format, index int, reason string) *FormatError {
	return &FormatError{Format: f, FeatureIndex: index, Reason: reason}
}

// Detect identifies the source format from the filename extension,
// falling back to content sniffing of magic bytes.
func Detect(filename string, data []byte) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".kml":
		return FormatKML, nil
	case ".geojson", ".json":
		return FormatGeoJSON, nil
	case ".zip", ".shp":
		return FormatShapefile, nil
	case ".dxf":
		return FormatDXF, nil
	}

	trimmed := bytes.TrimLeft(data, " \t\r\n\uFEFF")
	switch {
	case bytes.HasPrefix(data, []byte("PK\x03\x04")):
		return FormatShapefile, nil
	case bytes.HasPrefix(trimmed, []byte("<")):
		return FormatKML, nil
	case bytes.HasPrefix(trimmed, []byte("{")), bytes.HasPrefix(trimmed, []byte("[")):
		return FormatGeoJSON, nil
	case looksLikeDXF(trimmed):
		return FormatDXF, nil
	}
	return "", formatErr("", "unrecognized source format")
}

// looksLikeDXF checks for the group-code pair structure that opens
// every DXF file: a "0" code line followed by SECTION.
func looksLikeDXF(data []byte) bool {
	lines := bytes.SplitN(data, []byte("\n"), 4)
	if len(lines) < 2 {
		return false
	}
	first := string(bytes.TrimSpace(lines[0]))
	second := string(bytes.TrimSpace(lines[1]))
	return (first == "0" && second == "SECTION") || (first == "999")
}
