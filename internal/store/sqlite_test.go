package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	geom "github.com/twpayne/go-geom"

	"github.com/siteworks/siteworks-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func testSquare(t *testing.T) *geom.Polygon {
	t.Helper()
	p := geom.NewPolygon(geom.XY)
	_, err := p.SetCoords([][]geom.Coord{{
		{-122.0, 45.0}, {-121.99, 45.0}, {-121.99, 45.01}, {-122.0, 45.01}, {-122.0, 45.0},
	}})
	require.NoError(t, err)
	return p
}

func testBoundary(t *testing.T) *model.Boundary {
	t.Helper()
	return &model.Boundary{
		ProjectID:    "proj-1",
		Name:         "north parcel",
		SourceFile:   "parcel.kml",
		Geometry:     testSquare(t),
		AreaM2:       874123.5,
		AreaAcres:    216.0,
		AreaHectares: 87.4,
		PerimeterM:   3742.1,
		Centroid:     model.Centroid{Lat: 45.005, Lng: -121.995},
	}
}

// --- Boundaries ---

func TestSQLite_Boundary_CreateAndGet(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b))
	require.NotEmpty(t, b.ID)

	got, err := st.GetBoundary(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ProjectID, got.ProjectID)
	assert.Equal(t, b.Name, got.Name)
	assert.Equal(t, b.SourceFile, got.SourceFile)
	assert.InDelta(t, b.AreaM2, got.AreaM2, 1e-6)
	assert.InDelta(t, b.Centroid.Lat, got.Centroid.Lat, 1e-9)
	assert.Equal(t, b.Geometry.FlatCoords(), got.Geometry.FlatCoords())
}

func TestSQLite_Boundary_GetMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetBoundary(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Boundary_ListByProject(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b1 := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b1))
	b2 := testBoundary(t)
	b2.ProjectID = "proj-2"
	require.NoError(t, st.CreateBoundary(ctx, b2))

	all, err := st.ListBoundaries(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	only, err := st.ListBoundaries(ctx, "proj-2")
	require.NoError(t, err)
	require.Len(t, only, 1)
	assert.Equal(t, b2.ID, only[0].ID)
}

func TestSQLite_Boundary_DeleteCascades(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b))

	z := &model.ExclusionZone{
		BoundaryID: b.ID,
		Name:       "wetland A",
		Type:       model.ZoneWetland,
		Geometry:   testSquare(t),
	}
	require.NoError(t, st.CreateZone(ctx, z))
	require.NoError(t, st.UpsertBuildableArea(ctx, &model.BuildableArea{
		BoundaryID: b.ID,
		Geometry:   testSquare(t),
	}))

	require.NoError(t, st.DeleteBoundary(ctx, b.ID))

	_, err := st.GetBoundary(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.GetZone(ctx, z.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = st.GetBuildableArea(ctx, b.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Boundary_DeleteMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	err := st.DeleteBoundary(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Exclusion zones ---

func TestSQLite_Zone_RoundTrip(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b))

	z := &model.ExclusionZone{
		BoundaryID:       b.ID,
		Name:             "riparian setback",
		Type:             model.ZoneWetland,
		Geometry:         testSquare(t),
		BufferedGeometry: testSquare(t),
		BufferDistanceM:  50,
		Attributes:       json.RawMessage(`{"source":"nwi"}`),
		AreaM2:           1200,
		AreaAcres:        0.3,
	}
	require.NoError(t, st.CreateZone(ctx, z))

	got, err := st.GetZone(ctx, z.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ZoneWetland, got.Type)
	assert.Equal(t, 50.0, got.BufferDistanceM)
	assert.JSONEq(t, `{"source":"nwi"}`, string(got.Attributes))
	require.NotNil(t, got.BufferedGeometry)
	assert.Equal(t, z.Geometry.FlatCoords(), got.Geometry.FlatCoords())
}

func TestSQLite_Zone_NilBufferedGeometry(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b))

	z := &model.ExclusionZone{
		BoundaryID: b.ID,
		Name:       "raw easement",
		Type:       model.ZoneEasement,
		Geometry:   testSquare(t),
	}
	require.NoError(t, st.CreateZone(ctx, z))

	got, err := st.GetZone(ctx, z.ID)
	require.NoError(t, err)
	assert.Nil(t, got.BufferedGeometry)
	assert.Empty(t, got.Attributes)
}

func TestSQLite_Zone_Update(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b))

	z := &model.ExclusionZone{
		BoundaryID:      b.ID,
		Name:            "zone",
		Type:            model.ZoneCustom,
		Geometry:        testSquare(t),
		BufferDistanceM: 0,
	}
	require.NoError(t, st.CreateZone(ctx, z))

	z.BufferDistanceM = 25
	z.BufferedGeometry = testSquare(t)
	require.NoError(t, st.UpdateZone(ctx, z))

	got, err := st.GetZone(ctx, z.ID)
	require.NoError(t, err)
	assert.Equal(t, 25.0, got.BufferDistanceM)
	assert.NotNil(t, got.BufferedGeometry)
}

func TestSQLite_Zone_UpdateMissing(t *testing.T) {
	st := newTestSQLiteStore(t)

	z := &model.ExclusionZone{
		ID:       "nonexistent",
		Type:     model.ZoneCustom,
		Geometry: testSquare(t),
	}
	err := st.UpdateZone(context.Background(), z)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLite_Zone_ListForBoundary(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b))

	for _, name := range []string{"a", "b", "c"} {
		z := &model.ExclusionZone{
			BoundaryID: b.ID,
			Name:       name,
			Type:       model.ZoneSetback,
			Geometry:   testSquare(t),
		}
		require.NoError(t, st.CreateZone(ctx, z))
	}

	zones, err := st.ListZones(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, zones, 3)

	zones, err = st.ListZones(ctx, "other-boundary")
	require.NoError(t, err)
	assert.Empty(t, zones)
}

// --- Buildable area ---

func TestSQLite_BuildableArea_UpsertReplaces(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b))

	first := &model.BuildableArea{
		BoundaryID:       b.ID,
		Geometry:         testSquare(t),
		AreaM2:           1000,
		BuildablePercent: 80,
		ExclusionCount:   1,
		ComputedAt:       time.Now().UTC(),
	}
	require.NoError(t, st.UpsertBuildableArea(ctx, first))

	second := &model.BuildableArea{
		BoundaryID:       b.ID,
		Geometry:         testSquare(t),
		AreaM2:           600,
		BuildablePercent: 48,
		ExclusionCount:   3,
		ComputedAt:       time.Now().UTC(),
	}
	require.NoError(t, st.UpsertBuildableArea(ctx, second))

	got, err := st.GetBuildableArea(ctx, b.ID)
	require.NoError(t, err)
	assert.InDelta(t, 600, got.AreaM2, 1e-9)
	assert.Equal(t, 3, got.ExclusionCount)
	// The first writer's id survives the replace.
	assert.Equal(t, first.ID, got.ID)
}

func TestSQLite_BuildableArea_Missing(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.GetBuildableArea(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Contours ---

func TestSQLite_Contours_InsertAndListOrdered(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	b := testBoundary(t)
	require.NoError(t, st.CreateBoundary(ctx, b))

	line := func(elev float64) model.ContourLine {
		ls := geom.NewLineString(geom.XY)
		_, err := ls.SetCoords([]geom.Coord{{-122.0, 45.0}, {-121.99, 45.005}})
		require.NoError(t, err)
		return model.ContourLine{
			BoundaryID: b.ID,
			Geometry:   ls,
			ElevationM: elev,
			SourceFile: "contours.dxf",
		}
	}
	require.NoError(t, st.CreateContours(ctx, []model.ContourLine{line(120), line(100), line(110)}))

	got, err := st.ListContours(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, 100.0, got[0].ElevationM)
	assert.Equal(t, 110.0, got[1].ElevationM)
	assert.Equal(t, 120.0, got[2].ElevationM)
	assert.Equal(t, "contours.dxf", got[0].SourceFile)
}

func TestSQLite_Contours_EmptySlice(t *testing.T) {
	st := newTestSQLiteStore(t)

	require.NoError(t, st.CreateContours(context.Background(), nil))
}
