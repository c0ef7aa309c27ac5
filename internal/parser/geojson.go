package parser

import (
	"encoding/json"

	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// decodeGeoJSON accepts a FeatureCollection, a single Feature, or a
// bare geometry and normalizes all three to a feature list.
func decodeGeoJSON(data []byte) ([]*geojson.Feature, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, formatErr(FormatGeoJSON, "unparseable JSON: "+err.Error())
	}

	switch probe.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, formatErr(FormatGeoJSON, "invalid feature collection: "+err.Error())
		}
		return fc.Features, nil
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, formatErr(FormatGeoJSON, "invalid feature: "+err.Error())
		}
		return []*geojson.Feature{&f}, nil
	case "":
		return nil, formatErr(FormatGeoJSON, "missing type member")
	default:
		var g geom.T
		if err := geojson.Unmarshal(data, &g); err != nil {
			return nil, formatErr(FormatGeoJSON, "invalid geometry: "+err.Error())
		}
		return []*geojson.Feature{{Geometry: g}}, nil
	}
}

// parseGeoJSONBoundary returns the first polygonal feature. A
// MultiPolygon resolves to its first polygon member.
func parseGeoJSONBoundary(data []byte) (*geom.Polygon, map[string]any, error) {
	features, err := decodeGeoJSON(data)
	if err != nil {
		return nil, nil, err
	}

	for i, f := range features {
		var poly *geom.Polygon
		switch g := f.Geometry.(type) {
		case *geom.Polygon:
			poly = g
		case *geom.MultiPolygon:
			if g.NumPolygons() > 0 {
				poly = g.Polygon(0)
			}
		}
		if poly == nil {
			continue
		}
		if err := validateCoords(poly, FormatGeoJSON, i); err != nil {
			return nil, nil, err
		}
		attrs := f.Properties
		if attrs == nil {
			attrs = make(map[string]any)
		}
		return poly, attrs, nil
	}
	return nil, nil, formatErr(FormatGeoJSON, "no polygon feature found")
}

// parseGeoJSONLines retains every line-shaped feature; MultiLineString
// members become individual features sharing their parent's properties.
func parseGeoJSONLines(data []byte) ([]Feature, error) {
	features, err := decodeGeoJSON(data)
	if err != nil {
		return nil, err
	}

	var out []Feature
	index := 0
	for _, f := range features {
		attrs := f.Properties
		if attrs == nil {
			attrs = make(map[string]any)
		}
		layer, _ := attrs["layer"].(string)
		if layer == "" {
			layer, _ = attrs["name"].(string)
		}

		switch g := f.Geometry.(type) {
		case *geom.LineString:
			out = append(out, Feature{Geometry: g, Attributes: attrs, Layer: layer, Index: index})
			index++
		case *geom.MultiLineString:
			for i := 0; i < g.NumLineStrings(); i++ {
				out = append(out, Feature{Geometry: g.LineString(i), Attributes: attrs, Layer: layer, Index: index})
				index++
			}
		}
	}
	return out, nil
}
