package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func TestValidateBufferDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		distanceM float64
		maxM      float64
		wantErr   string
	}{
		{"negative", -1, 500, "negative"},
		{"over ceiling", 1000, 500, "exceeds maximum"},
		{"valid", 50, 500, ""},
		{"zero", 0, 500, ""},
		{"at ceiling", 500, 500, ""},
		{"default ceiling applies", 600, 0, "exceeds maximum"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateBufferDistance(tt.distanceM, tt.maxM)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			var bufErr *BufferDistanceError
			require.ErrorAs(t, err, &bufErr)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, tt.distanceM, bufErr.DistanceM)
		})
	}
}

func TestBuffer_ZeroDistanceIdentity(t *testing.T) {
	t.Parallel()

	p := square(t, -122.0, 45.0, 0.01)
	out, warnings := Buffer(p, 0, nil)
	assert.Same(t, p, out)
	assert.Empty(t, warnings)

	out, _ = Buffer(p, -5, nil)
	assert.Same(t, p, out)
}

func TestBuffer_ExpandsArea(t *testing.T) {
	t.Parallel()

	p := square(t, -122.0, 45.0, 0.01)
	buffered, warnings := Buffer(p, 50, nil)
	require.NotNil(t, buffered)
	assert.Empty(t, warnings)
	assert.Greater(t, AreaM2(buffered), AreaM2(p))
}

func TestBuffer_MonotonicExpansion(t *testing.T) {
	t.Parallel()

	p := square(t, -122.0, 45.0, 0.01)
	small, _ := Buffer(p, 10, nil)
	large, _ := Buffer(p, 100, nil)
	assert.GreaterOrEqual(t, AreaM2(large), AreaM2(small))
}

// Default regulatory buffers: protected areas (100 m) must exceed
// wetlands (50 m) on the same base polygon.
func TestBuffer_DefaultDistancesOrdered(t *testing.T) {
	t.Parallel()

	p := square(t, -122.0, 45.0, 0.01)
	wetland, _ := Buffer(p, 50, nil)
	protected, _ := Buffer(p, 100, nil)

	assert.Greater(t, AreaM2(wetland), AreaM2(p))
	assert.Greater(t, AreaM2(protected), AreaM2(wetland))
}

func TestBuffer_NilPolygon(t *testing.T) {
	t.Parallel()

	out, warnings := Buffer(nil, 50, nil)
	assert.Nil(t, out)
	assert.Empty(t, warnings)
}

func TestSimplify_ReducesVertices(t *testing.T) {
	t.Parallel()

	p := square(t, -122.0, 45.0, 0.01)
	buffered, _ := Buffer(p, 50, &BufferOptions{Steps: 16})

	simplified := Simplify(buffered, 5)
	require.NotNil(t, simplified)
	assert.LessOrEqual(t, simplified.LinearRing(0).NumCoords(), buffered.LinearRing(0).NumCoords())
	assert.GreaterOrEqual(t, simplified.LinearRing(0).NumCoords(), 4)
}

func TestSimplify_KeepsRingsAboveMinimum(t *testing.T) {
	t.Parallel()

	p := square(t, -122.0, 45.0, 0.0001)
	// Aggressive tolerance would collapse the ring; original retained.
	simplified := Simplify(p, 1000)
	require.NotNil(t, simplified)
	assert.GreaterOrEqual(t, simplified.LinearRing(0).NumCoords(), 4)
}

func TestSimplify_RestoresCollapsedHoleInPlace(t *testing.T) {
	t.Parallel()

	ring := func(minLng, minLat, size float64) []geom.Coord {
		return []geom.Coord{
			{minLng, minLat},
			{minLng + size, minLat},
			{minLng + size, minLat + size},
			{minLng, minLat + size},
			{minLng, minLat},
		}
	}
	tiny := ring(-121.998, 45.002, 0.00001)
	large := ring(-121.995, 45.005, 0.002)
	p := polygon(t, [][]geom.Coord{ring(-122.0, 45.0, 0.01), tiny, large})

	// The 10 m tolerance collapses the tiny hole. It must come back with
	// its original coordinates while the hole after it stays where it was.
	simplified := Simplify(p, 10)
	require.NotNil(t, simplified)
	require.Equal(t, 3, simplified.NumLinearRings())
	assert.Equal(t, tiny, simplified.LinearRing(1).Coords())
	assert.InDelta(t, -121.995, simplified.LinearRing(2).Coord(0)[0], 0.0005)
	assert.InDelta(t, 45.005, simplified.LinearRing(2).Coord(0)[1], 0.0005)
}
