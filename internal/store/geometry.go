package store

import (
	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/ewkb"
	"github.com/twpayne/go-geom/encoding/geojson"
)

// wgs84SRID is the coordinate-reference assumption for all persisted
// geometry.
const wgs84SRID = 4326

// SQLite stores geometry as GeoJSON text; Postgres stores EWKB with
// SRID 4326 in PostGIS geometry columns.

func encodeGeoJSON(g geom.T) (string, error) {
	if g == nil {
		return "", eris.New("store: nil geometry")
	}
	b, err := geojson.Marshal(g)
	if err != nil {
		return "", eris.Wrap(err, "store: encode geometry")
	}
	return string(b), nil
}

func decodeGeoJSON(s string) (geom.T, error) {
	var g geom.T
	if err := geojson.Unmarshal([]byte(s), &g); err != nil {
		return nil, eris.Wrap(err, "store: decode geometry")
	}
	return g, nil
}

func decodeGeoJSONPolygon(s string) (*geom.Polygon, error) {
	g, err := decodeGeoJSON(s)
	if err != nil {
		return nil, err
	}
	p, ok := g.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("store: expected polygon, got %T", g)
	}
	return p, nil
}

func decodeGeoJSONLineString(s string) (*geom.LineString, error) {
	g, err := decodeGeoJSON(s)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("store: expected linestring, got %T", g)
	}
	return ls, nil
}

func encodeEWKB(g geom.T) ([]byte, error) {
	if g == nil {
		return nil, eris.New("store: nil geometry")
	}
	// ewkb.Marshal reads the SRID off the geometry itself.
	sg, err := geom.SetSRID(g, wgs84SRID)
	if err != nil {
		return nil, eris.Wrap(err, "store: set SRID")
	}
	b, err := ewkb.Marshal(sg, ewkb.NDR)
	if err != nil {
		return nil, eris.Wrap(err, "store: encode EWKB")
	}
	return b, nil
}

func decodeEWKB(b []byte) (geom.T, error) {
	g, err := ewkb.Unmarshal(b)
	if err != nil {
		return nil, eris.Wrap(err, "store: decode EWKB")
	}
	return g, nil
}

func decodeEWKBPolygon(b []byte) (*geom.Polygon, error) {
	g, err := decodeEWKB(b)
	if err != nil {
		return nil, err
	}
	p, ok := g.(*geom.Polygon)
	if !ok {
		return nil, eris.Errorf("store: expected polygon, got %T", g)
	}
	return p, nil
}

func decodeEWKBLineString(b []byte) (*geom.LineString, error) {
	g, err := decodeEWKB(b)
	if err != nil {
		return nil, err
	}
	ls, ok := g.(*geom.LineString)
	if !ok {
		return nil, eris.Errorf("store: expected linestring, got %T", g)
	}
	return ls, nil
}
