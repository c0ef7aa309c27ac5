package parser

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func zipArchive(t *testing.T, members map[string][]byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, data := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractShapefileZip(t *testing.T) {
	t.Parallel()

	archive := zipArchive(t, map[string][]byte{
		"parcels/boundary.shp": []byte("shp bytes"),
		"parcels/boundary.dbf": []byte("dbf bytes"),
		"parcels/boundary.prj": []byte("prj bytes"),
	})

	destDir := t.TempDir()
	shpPath, err := extractShapefileZip(archive, destDir)
	require.NoError(t, err)

	// Members land flat beside each other regardless of archive layout.
	assert.Equal(t, filepath.Join(destDir, "boundary.shp"), shpPath)
	for _, name := range []string{"boundary.shp", "boundary.dbf", "boundary.prj"} {
		_, err := os.Stat(filepath.Join(destDir, name))
		assert.NoError(t, err, name)
	}
}

func TestExtractShapefileZipSkipsDotfiles(t *testing.T) {
	t.Parallel()

	archive := zipArchive(t, map[string][]byte{
		".hidden":      []byte("dotfile"),
		"boundary.shp": []byte("shp bytes"),
	})

	destDir := t.TempDir()
	shpPath, err := extractShapefileZip(archive, destDir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(destDir, "boundary.shp"), shpPath)
	_, err = os.Stat(filepath.Join(destDir, ".hidden"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractShapefileZipErrors(t *testing.T) {
	t.Parallel()

	_, err := extractShapefileZip([]byte("not a zip"), t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a zip archive")

	archive := zipArchive(t, map[string][]byte{"readme.txt": []byte("no geometry here")})
	_, err = extractShapefileZip(archive, t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive contains no .shp member")
}

func TestParseShapefileNotAZip(t *testing.T) {
	t.Parallel()

	_, _, err := ParseBoundary([]byte("plain bytes"), FormatShapefile)
	require.Error(t, err)

	var fe *FormatError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, FormatShapefile, fe.Format)
}

func TestPolygonParts(t *testing.T) {
	t.Parallel()

	points := []shp.Point{
		// outer ring
		{X: -122.0, Y: 45.0}, {X: -121.9, Y: 45.0}, {X: -121.9, Y: 45.1}, {X: -122.0, Y: 45.1}, {X: -122.0, Y: 45.0},
		// hole
		{X: -121.97, Y: 45.03}, {X: -121.93, Y: 45.03}, {X: -121.93, Y: 45.07}, {X: -121.97, Y: 45.03},
	}
	rings := polygonParts(2, []int32{0, 5}, points)
	require.Len(t, rings, 2)
	assert.Len(t, rings[0], 5)
	assert.Len(t, rings[1], 4)
	assert.Equal(t, geom.Coord{-122.0, 45.0}, rings[0][0])
	assert.Equal(t, geom.Coord{-121.97, 45.03}, rings[1][0])
}

func TestPolygonPartsZeroPartsTreatedAsOne(t *testing.T) {
	t.Parallel()

	points := []shp.Point{
		{X: -122.0, Y: 45.0}, {X: -121.9, Y: 45.0}, {X: -121.9, Y: 45.1}, {X: -122.0, Y: 45.0},
	}
	rings := polygonParts(0, nil, points)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 4)
}

func TestPolygonPartsDropsDegenerateRings(t *testing.T) {
	t.Parallel()

	points := []shp.Point{
		{X: -122.0, Y: 45.0}, {X: -121.9, Y: 45.0}, {X: -121.9, Y: 45.1},
		// two-point fragment, unusable as a ring
		{X: 0, Y: 0}, {X: 1, Y: 1},
	}
	rings := polygonParts(2, []int32{0, 3}, points)
	require.Len(t, rings, 1)
	assert.Len(t, rings[0], 3)
}

func TestLineParts(t *testing.T) {
	t.Parallel()

	points := []shp.Point{
		{X: -122.0, Y: 45.0}, {X: -121.99, Y: 45.0},
		{X: -122.0, Y: 45.01}, {X: -121.99, Y: 45.01}, {X: -121.98, Y: 45.01},
	}
	runs := lineParts(2, []int32{0, 2}, points, nil)
	require.Len(t, runs, 2)
	assert.Len(t, runs[0], 2)
	assert.Len(t, runs[1], 3)
	assert.Len(t, runs[0][0], 2)
}

func TestLinePartsCarriesZValues(t *testing.T) {
	t.Parallel()

	points := []shp.Point{{X: -122.0, Y: 45.0}, {X: -121.99, Y: 45.0}}
	zs := []float64{105, 105}
	runs := lineParts(1, []int32{0}, points, zs)
	require.Len(t, runs, 1)
	require.Len(t, runs[0][0], 3)
	assert.Equal(t, 105.0, runs[0][0][2])
}
