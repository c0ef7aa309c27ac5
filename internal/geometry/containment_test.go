package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"
)

func TestCheckContainment_ZoneInside(t *testing.T) {
	t.Parallel()

	boundary := square(t, -122.0, 45.0, 0.01)
	zone := square(t, -121.998, 45.002, 0.005)

	result, err := CheckContainment(zone, boundary, nil)
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.NoError(t, result.Err())
	assert.Zero(t, result.OutsidePercent)
}

func TestCheckContainment_ZoneFullyOutside(t *testing.T) {
	t.Parallel()

	boundary := square(t, -122.0, 45.0, 0.01)
	zone := square(t, -121.9, 45.0, 0.01)

	result, err := CheckContainment(zone, boundary, nil)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.InDelta(t, 100.0, result.OutsidePercent, 1e-9)
	assert.Greater(t, result.OutsideAreaM2, 0.0)

	var contErr *ContainmentError
	require.ErrorAs(t, result.Err(), &contErr)
	assert.InDelta(t, 100.0, contErr.OutsidePercent, 1e-9)
}

func TestCheckContainment_ZonePartlyOutside(t *testing.T) {
	t.Parallel()

	boundary := square(t, -122.0, 45.0, 0.01)
	// Half inside, half escaping east.
	zone := square(t, -121.9925, 45.002, 0.005)

	result, err := CheckContainment(zone, boundary, nil)
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Greater(t, result.OutsidePercent, 10.0)
	assert.Less(t, result.OutsidePercent, 90.0)
	assert.Greater(t, result.OutsideAreaM2, 0.0)
}

// The tolerance buffer absorbs survey noise: a zone nudged a fraction
// of a meter past the line still passes.
func TestCheckContainment_ToleranceAbsorbsSmallEscape(t *testing.T) {
	t.Parallel()

	boundary := square(t, -122.0, 45.0, 0.01)
	// Flush against the east edge, 0.3 m over.
	overhang := 0.3 / 111320.0
	zone := polygon(t, [][]geom.Coord{{
		{-121.995, 45.002},
		{-121.99 + overhang, 45.002},
		{-121.99 + overhang, 45.008},
		{-121.995, 45.008},
		{-121.995, 45.002},
	}})

	result, err := CheckContainment(zone, boundary, &ContainmentOptions{ToleranceM: 1})
	require.NoError(t, err)
	assert.True(t, result.Valid)
}

func TestCheckContainment_AllowOutsideTolerance(t *testing.T) {
	t.Parallel()

	boundary := square(t, -122.0, 45.0, 0.01)
	// ~5 m over the east edge on a ~550 m wide zone: well under 1%.
	overhang := 5.0 / 111320.0
	zone := polygon(t, [][]geom.Coord{{
		{-121.997, 45.002},
		{-121.99 + overhang, 45.002},
		{-121.99 + overhang, 45.008},
		{-121.997, 45.008},
		{-121.997, 45.002},
	}})

	strict, err := CheckContainment(zone, boundary, &ContainmentOptions{ToleranceM: 1})
	require.NoError(t, err)
	assert.False(t, strict.Valid)

	lenient, err := CheckContainment(zone, boundary, &ContainmentOptions{ToleranceM: 1, AllowOutsideTolerance: true})
	require.NoError(t, err)
	assert.True(t, lenient.Valid)
	assert.Less(t, lenient.OutsidePercent, 1.0)
}
