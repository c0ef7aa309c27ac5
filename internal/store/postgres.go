package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/siteworks/siteworks-cli/internal/db"
	"github.com/siteworks/siteworks-cli/internal/model"
	"github.com/siteworks/siteworks-cli/internal/resilience"
)

// PostgresStore implements Store using pgxpool over PostGIS. Geometry
// columns carry SRID 4326 and travel as EWKB.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("postgres", "ping")
	err = resilience.Do(ctx, retryCfg, func(ctx context.Context) error {
		return pool.Ping(ctx)
	})
	if err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool. Used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: func() {}}
}

const postgresMigration = `
CREATE EXTENSION IF NOT EXISTS postgis;

CREATE TABLE IF NOT EXISTS boundaries (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	project_id    TEXT NOT NULL,
	name          TEXT NOT NULL,
	source_file   TEXT,
	geometry      GEOMETRY(POLYGON, 4326) NOT NULL,
	area_m2       DOUBLE PRECISION NOT NULL,
	area_acres    DOUBLE PRECISION NOT NULL,
	area_hectares DOUBLE PRECISION NOT NULL,
	perimeter_m   DOUBLE PRECISION NOT NULL,
	centroid_lat  DOUBLE PRECISION NOT NULL,
	centroid_lng  DOUBLE PRECISION NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS exclusion_zones (
	id                TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	boundary_id       TEXT NOT NULL REFERENCES boundaries(id) ON DELETE CASCADE,
	name              TEXT NOT NULL,
	type              TEXT NOT NULL,
	geometry          GEOMETRY(POLYGON, 4326) NOT NULL,
	buffered_geometry GEOMETRY(POLYGON, 4326),
	buffer_distance_m DOUBLE PRECISION NOT NULL DEFAULT 0,
	attributes        JSONB,
	area_m2           DOUBLE PRECISION NOT NULL,
	area_acres        DOUBLE PRECISION NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at        TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS buildable_areas (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	boundary_id      TEXT NOT NULL UNIQUE REFERENCES boundaries(id) ON DELETE CASCADE,
	geometry         GEOMETRY(GEOMETRY, 4326) NOT NULL,
	area_m2          DOUBLE PRECISION NOT NULL,
	area_acres       DOUBLE PRECISION NOT NULL,
	area_hectares    DOUBLE PRECISION NOT NULL,
	total_area_m2    DOUBLE PRECISION NOT NULL,
	excluded_area_m2 DOUBLE PRECISION NOT NULL,
	buildable_pct    DOUBLE PRECISION NOT NULL,
	exclusion_count  INTEGER NOT NULL,
	computed_at      TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS contour_lines (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	boundary_id TEXT NOT NULL REFERENCES boundaries(id) ON DELETE CASCADE,
	geometry    GEOMETRY(LINESTRING, 4326) NOT NULL,
	elevation_m DOUBLE PRECISION NOT NULL,
	source_file TEXT,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_boundaries_project ON boundaries(project_id);
CREATE INDEX IF NOT EXISTS idx_boundaries_geom ON boundaries USING GIST (geometry);
CREATE INDEX IF NOT EXISTS idx_zones_boundary ON exclusion_zones(boundary_id);
CREATE INDEX IF NOT EXISTS idx_zones_geom ON exclusion_zones USING GIST (geometry);
CREATE INDEX IF NOT EXISTS idx_contours_boundary ON contour_lines(boundary_id);
CREATE INDEX IF NOT EXISTS idx_contours_elevation ON contour_lines(boundary_id, elevation_m);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.closeFn()
	return nil
}

func (s *PostgresStore) CreateBoundary(ctx context.Context, b *model.Boundary) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	wkb, err := encodeEWKB(b.Geometry)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO boundaries (id, project_id, name, source_file, geometry, area_m2, area_acres, area_hectares, perimeter_m, centroid_lat, centroid_lng, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, ST_GeomFromEWKB($5), $6, $7, $8, $9, $10, $11, $12, $13)`,
		b.ID, b.ProjectID, b.Name, b.SourceFile, wkb,
		b.AreaM2, b.AreaAcres, b.AreaHectares, b.PerimeterM,
		b.Centroid.Lat, b.Centroid.Lng, now, now,
	)
	return eris.Wrap(err, "postgres: insert boundary")
}

func (s *PostgresStore) GetBoundary(ctx context.Context, id string) (*model.Boundary, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, project_id, name, source_file, ST_AsEWKB(geometry), area_m2, area_acres, area_hectares, perimeter_m, centroid_lat, centroid_lng, created_at, updated_at
		 FROM boundaries WHERE id = $1`, id)
	return scanBoundaryPG(row)
}

func (s *PostgresStore) ListBoundaries(ctx context.Context, projectID string) ([]model.Boundary, error) {
	query := `SELECT id, project_id, name, source_file, ST_AsEWKB(geometry), area_m2, area_acres, area_hectares, perimeter_m, centroid_lat, centroid_lng, created_at, updated_at
		 FROM boundaries`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = $1`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list boundaries")
	}
	defer rows.Close()

	var boundaries []model.Boundary
	for rows.Next() {
		b, err := scanBoundaryPG(rows)
		if err != nil {
			return nil, err
		}
		boundaries = append(boundaries, *b)
	}
	return boundaries, eris.Wrap(rows.Err(), "postgres: list boundaries iterate")
}

func (s *PostgresStore) DeleteBoundary(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM boundaries WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete boundary %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "boundary %s", id)
	}
	return nil
}

func (s *PostgresStore) CreateZone(ctx context.Context, z *model.ExclusionZone) error {
	if z.ID == "" {
		z.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	z.CreatedAt, z.UpdatedAt = now, now

	wkb, bufWKB, err := encodeZoneEWKB(z)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO exclusion_zones (id, boundary_id, name, type, geometry, buffered_geometry, buffer_distance_m, attributes, area_m2, area_acres, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, ST_GeomFromEWKB($5), ST_GeomFromEWKB($6), $7, $8, $9, $10, $11, $12)`,
		z.ID, z.BoundaryID, z.Name, string(z.Type), wkb, bufWKB,
		z.BufferDistanceM, attributesOrNil(z.Attributes), z.AreaM2, z.AreaAcres, now, now,
	)
	return eris.Wrap(err, "postgres: insert zone")
}

func (s *PostgresStore) GetZone(ctx context.Context, id string) (*model.ExclusionZone, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, boundary_id, name, type, ST_AsEWKB(geometry), ST_AsEWKB(buffered_geometry), buffer_distance_m, attributes, area_m2, area_acres, created_at, updated_at
		 FROM exclusion_zones WHERE id = $1`, id)
	return scanZonePG(row)
}

func (s *PostgresStore) ListZones(ctx context.Context, boundaryID string) ([]model.ExclusionZone, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, boundary_id, name, type, ST_AsEWKB(geometry), ST_AsEWKB(buffered_geometry), buffer_distance_m, attributes, area_m2, area_acres, created_at, updated_at
		 FROM exclusion_zones WHERE boundary_id = $1 ORDER BY created_at`, boundaryID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list zones")
	}
	defer rows.Close()

	var zones []model.ExclusionZone
	for rows.Next() {
		z, err := scanZonePG(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, eris.Wrap(rows.Err(), "postgres: list zones iterate")
}

func (s *PostgresStore) UpdateZone(ctx context.Context, z *model.ExclusionZone) error {
	z.UpdatedAt = time.Now().UTC()

	wkb, bufWKB, err := encodeZoneEWKB(z)
	if err != nil {
		return err
	}

	tag, err := s.pool.Exec(ctx,
		`UPDATE exclusion_zones SET name = $1, type = $2, geometry = ST_GeomFromEWKB($3), buffered_geometry = ST_GeomFromEWKB($4), buffer_distance_m = $5, attributes = $6, area_m2 = $7, area_acres = $8, updated_at = $9
		 WHERE id = $10`,
		z.Name, string(z.Type), wkb, bufWKB, z.BufferDistanceM,
		attributesOrNil(z.Attributes), z.AreaM2, z.AreaAcres, z.UpdatedAt, z.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update zone %s", z.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "zone %s", z.ID)
	}
	return nil
}

func (s *PostgresStore) DeleteZone(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM exclusion_zones WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete zone %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "zone %s", id)
	}
	return nil
}

func (s *PostgresStore) UpsertBuildableArea(ctx context.Context, ba *model.BuildableArea) error {
	if ba.ID == "" {
		ba.ID = uuid.New().String()
	}
	if ba.ComputedAt.IsZero() {
		ba.ComputedAt = time.Now().UTC()
	}

	wkb, err := encodeEWKB(ba.Geometry)
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO buildable_areas (id, boundary_id, geometry, area_m2, area_acres, area_hectares, total_area_m2, excluded_area_m2, buildable_pct, exclusion_count, computed_at)
		 VALUES ($1, $2, ST_GeomFromEWKB($3), $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (boundary_id) DO UPDATE SET
			geometry = EXCLUDED.geometry,
			area_m2 = EXCLUDED.area_m2,
			area_acres = EXCLUDED.area_acres,
			area_hectares = EXCLUDED.area_hectares,
			total_area_m2 = EXCLUDED.total_area_m2,
			excluded_area_m2 = EXCLUDED.excluded_area_m2,
			buildable_pct = EXCLUDED.buildable_pct,
			exclusion_count = EXCLUDED.exclusion_count,
			computed_at = EXCLUDED.computed_at`,
		ba.ID, ba.BoundaryID, wkb, ba.AreaM2, ba.AreaAcres, ba.AreaHectares,
		ba.TotalPropertyAreaM2, ba.ExcludedAreaM2, ba.BuildablePercent,
		ba.ExclusionCount, ba.ComputedAt,
	)
	return eris.Wrap(err, "postgres: upsert buildable area")
}

func (s *PostgresStore) GetBuildableArea(ctx context.Context, boundaryID string) (*model.BuildableArea, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, boundary_id, ST_AsEWKB(geometry), area_m2, area_acres, area_hectares, total_area_m2, excluded_area_m2, buildable_pct, exclusion_count, computed_at
		 FROM buildable_areas WHERE boundary_id = $1`, boundaryID)

	var ba model.BuildableArea
	var wkb []byte
	err := row.Scan(&ba.ID, &ba.BoundaryID, &wkb, &ba.AreaM2, &ba.AreaAcres, &ba.AreaHectares,
		&ba.TotalPropertyAreaM2, &ba.ExcludedAreaM2, &ba.BuildablePercent, &ba.ExclusionCount, &ba.ComputedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get buildable area")
	}
	ba.Geometry, err = decodeEWKB(wkb)
	if err != nil {
		return nil, err
	}
	return &ba, nil
}

func (s *PostgresStore) CreateContours(ctx context.Context, contours []model.ContourLine) error {
	if len(contours) == 0 {
		return nil
	}
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return eris.Wrap(err, "postgres: begin contour insert")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()
	for i := range contours {
		c := &contours[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.CreatedAt = now
		wkb, err := encodeEWKB(c.Geometry)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO contour_lines (id, boundary_id, geometry, elevation_m, source_file, created_at) VALUES ($1, $2, ST_GeomFromEWKB($3), $4, $5, $6)`,
			c.ID, c.BoundaryID, wkb, c.ElevationM, c.SourceFile, now); err != nil {
			return eris.Wrap(err, "postgres: insert contour")
		}
	}
	return eris.Wrap(tx.Commit(ctx), "postgres: commit contour insert")
}

func (s *PostgresStore) ListContours(ctx context.Context, boundaryID string) ([]model.ContourLine, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, boundary_id, ST_AsEWKB(geometry), elevation_m, source_file, created_at
		 FROM contour_lines WHERE boundary_id = $1 ORDER BY elevation_m`, boundaryID)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list contours")
	}
	defer rows.Close()

	var contours []model.ContourLine
	for rows.Next() {
		var c model.ContourLine
		var wkb []byte
		var source sql.NullString
		if err := rows.Scan(&c.ID, &c.BoundaryID, &wkb, &c.ElevationM, &source, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan contour")
		}
		c.SourceFile = source.String
		c.Geometry, err = decodeEWKBLineString(wkb)
		if err != nil {
			return nil, err
		}
		contours = append(contours, c)
	}
	return contours, eris.Wrap(rows.Err(), "postgres: list contours iterate")
}

// helpers

func encodeZoneEWKB(z *model.ExclusionZone) (wkb, bufWKB []byte, err error) {
	wkb, err = encodeEWKB(z.Geometry)
	if err != nil {
		return nil, nil, err
	}
	if z.BufferedGeometry != nil {
		bufWKB, err = encodeEWKB(z.BufferedGeometry)
		if err != nil {
			return nil, nil, err
		}
	}
	return wkb, bufWKB, nil
}

func attributesOrNil(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

type pgScannable interface {
	Scan(dest ...any) error
}

func scanBoundaryPG(row pgScannable) (*model.Boundary, error) {
	var b model.Boundary
	var source sql.NullString
	var wkb []byte

	err := row.Scan(&b.ID, &b.ProjectID, &b.Name, &source, &wkb,
		&b.AreaM2, &b.AreaAcres, &b.AreaHectares, &b.PerimeterM,
		&b.Centroid.Lat, &b.Centroid.Lng, &b.CreatedAt, &b.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan boundary")
	}
	b.SourceFile = source.String
	b.Geometry, err = decodeEWKBPolygon(wkb)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanZonePG(row pgScannable) (*model.ExclusionZone, error) {
	var z model.ExclusionZone
	var zoneType string
	var wkb, bufWKB []byte
	var attrs []byte

	err := row.Scan(&z.ID, &z.BoundaryID, &z.Name, &zoneType, &wkb, &bufWKB,
		&z.BufferDistanceM, &attrs, &z.AreaM2, &z.AreaAcres, &z.CreatedAt, &z.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan zone")
	}
	z.Type = model.ZoneType(zoneType)
	if len(attrs) > 0 {
		z.Attributes = json.RawMessage(attrs)
	}
	z.Geometry, err = decodeEWKBPolygon(wkb)
	if err != nil {
		return nil, err
	}
	if len(bufWKB) > 0 {
		z.BufferedGeometry, err = decodeEWKBPolygon(bufWKB)
		if err != nil {
			return nil, err
		}
	}
	return &z, nil
}
