package parser

import (
	geom "github.com/twpayne/go-geom"
)

// Feature is one parsed geometry with its source attributes.
type Feature struct {
	Geometry   geom.T
	Attributes map[string]any
	Layer      string // DXF layer or KML folder/group name, when present
	Index      int
}

// ParseBoundary extracts the authoritative boundary polygon from raw
// source bytes. Only the first polygon found is used: a direct
// placemark/feature, the first within folder or document nesting, or
// the first member of a multi-geometry. Callers uploading multi-region
// boundaries get only the first region.
func ParseBoundary(data []byte, format Format) (*geom.Polygon, map[string]any, error) {
	switch format {
	case FormatKML:
		return parseKMLBoundary(data)
	case FormatGeoJSON:
		return parseGeoJSONBoundary(data)
	case FormatShapefile:
		return parseShapefileBoundary(data)
	case FormatDXF:
		return parseDXFBoundary(data)
	default:
		return nil, nil, formatErr(format, "unsupported boundary format")
	}
}

// ParseContours extracts every line-shaped feature from raw source
// bytes, resolves each feature's elevation, and normalizes units to
// meters. Per-feature failures are collected as warnings; an error is
// returned only when zero valid features result.
func ParseContours(data []byte, format Format) (*ContourBatch, error) {
	var features []Feature
	var err error
	switch format {
	case FormatKML:
		features, err = parseKMLLines(data)
	case FormatGeoJSON:
		features, err = parseGeoJSONLines(data)
	case FormatShapefile:
		features, err = parseShapefileLines(data)
	case FormatDXF:
		features, err = parseDXFLines(data)
	default:
		return nil, formatErr(format, "unsupported contour format")
	}
	if err != nil {
		return nil, err
	}
	return resolveContourBatch(features, format)
}

// validateCoords checks that every coordinate of a parsed geometry lies
// within WGS84 longitude/latitude bounds.
func validateCoords(g geom.T, format Format, index int) error {
	coords := g.FlatCoords()
	stride := g.Stride()
	for i := 0; i+1 < len(coords); i += stride {
		lng, lat := coords[i], coords[i+1]
		if lng < -180 || lng > 180 || lat < -90 || lat > 90 {
			return featureErr(format, index, "coordinates outside WGS84 range [-180,180]x[-90,90]")
		}
	}
	return nil
}
