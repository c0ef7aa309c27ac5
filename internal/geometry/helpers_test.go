package geometry

import (
	"testing"

	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

// square builds a closed axis-aligned square ring polygon.
func square(t *testing.T, minLng, minLat, size float64) *geom.Polygon {
	t.Helper()
	return polygon(t, [][]geom.Coord{{
		{minLng, minLat},
		{minLng + size, minLat},
		{minLng + size, minLat + size},
		{minLng, minLat + size},
		{minLng, minLat},
	}})
}

func polygon(t *testing.T, rings [][]geom.Coord) *geom.Polygon {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords(rings)
	require.NoError(t, err)
	return p
}

func line(t *testing.T, coords []geom.Coord) *geom.LineString {
	t.Helper()
	ls := geom.NewLineString(geom.XY)
	_, err := ls.SetCoords(coords)
	require.NoError(t, err)
	return ls
}
