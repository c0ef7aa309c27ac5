package parser

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func contourLine(t *testing.T, coords []geom.Coord) *geom.LineString {
	t.Helper()
	layout := geom.XY
	if len(coords) > 0 && len(coords[0]) == 3 {
		layout = geom.XYZ
	}
	return geom.NewLineString(layout).MustSetCoords(coords)
}

func flatLine(t *testing.T) *geom.LineString {
	t.Helper()
	return contourLine(t, []geom.Coord{{-122.0, 45.0}, {-122.0, 45.001}})
}

func TestResolveElevationAttributePriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		attrs map[string]any
		want  float64
	}{
		{"lowercase elevation wins over ELEV", map[string]any{"elevation": 120.0, "ELEV": 999.0}, 120},
		{"uppercase fallback", map[string]any{"ELEVATION": 85.0}, 85},
		{"string value parsed", map[string]any{"elev": "42.5"}, 42.5},
		{"integer value", map[string]any{"z": 7}, 7},
		{"contour alias", map[string]any{"CONTOUR": 310.0}, 310},
		{"height alias", map[string]any{"Height": 15.0}, 15},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := resolveElevation(Feature{Geometry: flatLine(t), Attributes: tt.attrs})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveElevationVertexZFallback(t *testing.T) {
	t.Parallel()

	line := contourLine(t, []geom.Coord{{-122.0, 45.0, 105}, {-122.0, 45.001, 105}})
	got, err := resolveElevation(Feature{Geometry: line, Attributes: map[string]any{}})
	require.NoError(t, err)
	assert.Equal(t, 105.0, got)
}

func TestResolveElevationZeroVertexZSkipped(t *testing.T) {
	t.Parallel()

	// A zero Z is indistinguishable from "no Z recorded"; the layer name
	// takes over.
	line := contourLine(t, []geom.Coord{{-122.0, 45.0, 0}, {-122.0, 45.001, 0}})
	got, err := resolveElevation(Feature{Geometry: line, Attributes: map[string]any{}, Layer: "CONTOUR_250"})
	require.NoError(t, err)
	assert.Equal(t, 250.0, got)
}

func TestResolveElevationLayerName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		layer string
		want  float64
	}{
		{"CONTOUR_105", 105},
		{"ELEV-25.5", -25.5},
		{"100ft", 100},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.layer, func(t *testing.T) {
			t.Parallel()
			got, err := resolveElevation(Feature{Geometry: flatLine(t), Layer: tt.layer})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolveElevationUnresolved(t *testing.T) {
	t.Parallel()

	_, err := resolveElevation(Feature{
		Geometry:   flatLine(t),
		Attributes: map[string]any{"owner": "county", "surveyed": "2019"},
		Layer:      "terrain",
		Index:      4,
	})
	require.Error(t, err)

	var ee *ElevationError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, ElevationUnresolved, ee.Kind)
	assert.Equal(t, 4, ee.FeatureIndex)
	assert.Equal(t, []string{"owner", "surveyed"}, ee.Fields)
}

func TestValidateElevationRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value   float64
		wantErr bool
	}{
		{250, false},
		{0, false},
		{-500, false},
		{9000, false},
		{-501, true},
		{9001, true},
		{10000, true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(fmt.Sprintf("%g", tt.value), func(t *testing.T) {
			t.Parallel()
			err := validateElevation(tt.value, 0)
			if tt.wantErr {
				var ee *ElevationError
				require.ErrorAs(t, err, &ee)
				assert.Equal(t, ElevationInvalid, ee.Kind)
				assert.Equal(t, tt.value, ee.Value)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func batchFeature(t *testing.T, index int, elevation float64) Feature {
	t.Helper()
	return Feature{
		Geometry:   flatLine(t),
		Attributes: map[string]any{"elevation": elevation},
		Index:      index,
	}
}

func TestResolveContourBatchFeetDetection(t *testing.T) {
	t.Parallel()

	// A 350-unit spread exceeds what meter-denominated terrain shows;
	// the whole batch converts.
	batch, err := resolveContourBatch([]Feature{
		batchFeature(t, 0, 0),
		batchFeature(t, 1, 350),
	}, FormatGeoJSON)
	require.NoError(t, err)

	assert.Equal(t, "ft", batch.SourceUnit)
	require.Len(t, batch.Lines, 2)
	assert.Equal(t, 0.0, batch.Lines[0].ElevationM)
	assert.InDelta(t, 106.68, batch.Lines[1].ElevationM, 1e-9)
}

func TestResolveContourBatchMetersKept(t *testing.T) {
	t.Parallel()

	batch, err := resolveContourBatch([]Feature{
		batchFeature(t, 0, 0),
		batchFeature(t, 1, 50),
	}, FormatGeoJSON)
	require.NoError(t, err)

	assert.Equal(t, "m", batch.SourceUnit)
	require.Len(t, batch.Lines, 2)
	assert.Equal(t, 50.0, batch.Lines[1].ElevationM)
}

func TestResolveContourBatchRejectsImplausibleElevation(t *testing.T) {
	t.Parallel()

	// A lone 10000 has zero spread, so no feet conversion rescues it.
	_, err := resolveContourBatch([]Feature{batchFeature(t, 0, 10000)}, FormatGeoJSON)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no valid contour features")
}

func TestResolveContourBatchPartialFailureWarns(t *testing.T) {
	t.Parallel()

	features := []Feature{
		batchFeature(t, 0, 100),
		{Geometry: flatLine(t), Attributes: map[string]any{}, Index: 1}, // no elevation anywhere
		batchFeature(t, 2, 110),
	}
	batch, err := resolveContourBatch(features, FormatGeoJSON)
	require.NoError(t, err)

	require.Len(t, batch.Lines, 2)
	require.Len(t, batch.Warnings, 1)
	assert.Contains(t, batch.Warnings[0], "feature 1")
	assert.Contains(t, batch.Warnings[0], "no elevation found")
}

func TestResolveContourBatchSkipsNonLineGeometry(t *testing.T) {
	t.Parallel()

	point := geom.NewPoint(geom.XY).MustSetCoords(geom.Coord{-122, 45})
	features := []Feature{
		{Geometry: point, Attributes: map[string]any{"elevation": 10.0}, Index: 0},
		batchFeature(t, 1, 10),
	}
	batch, err := resolveContourBatch(features, FormatGeoJSON)
	require.NoError(t, err)

	require.Len(t, batch.Lines, 1)
	require.Len(t, batch.Warnings, 1)
	assert.Contains(t, batch.Warnings[0], "not a usable line geometry")
}

func TestResolveContourBatchEmpty(t *testing.T) {
	t.Parallel()

	_, err := resolveContourBatch(nil, FormatDXF)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no line features found")
}

func TestResolveContourBatchRejectsOutOfRangeCoords(t *testing.T) {
	t.Parallel()

	bad := contourLine(t, []geom.Coord{{-200, 45}, {-200, 46}})
	features := []Feature{
		{Geometry: bad, Attributes: map[string]any{"elevation": 10.0}, Index: 0},
		batchFeature(t, 1, 10),
	}
	batch, err := resolveContourBatch(features, FormatGeoJSON)
	require.NoError(t, err)

	require.Len(t, batch.Lines, 1)
	assert.Equal(t, 1, batch.Lines[0].Index)
	require.Len(t, batch.Warnings, 1)
	assert.Contains(t, batch.Warnings[0], "WGS84")
}
