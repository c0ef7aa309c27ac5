package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/siteworks/siteworks-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite. Geometry is
// stored as GeoJSON text.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures
// WAL mode. Foreign keys are enabled so boundary deletion cascades.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS boundaries (
	id            TEXT PRIMARY KEY,
	project_id    TEXT NOT NULL,
	name          TEXT NOT NULL,
	source_file   TEXT,
	geometry      TEXT NOT NULL,
	area_m2       REAL NOT NULL,
	area_acres    REAL NOT NULL,
	area_hectares REAL NOT NULL,
	perimeter_m   REAL NOT NULL,
	centroid_lat  REAL NOT NULL,
	centroid_lng  REAL NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS exclusion_zones (
	id                TEXT PRIMARY KEY,
	boundary_id       TEXT NOT NULL REFERENCES boundaries(id) ON DELETE CASCADE,
	name              TEXT NOT NULL,
	type              TEXT NOT NULL,
	geometry          TEXT NOT NULL,
	buffered_geometry TEXT,
	buffer_distance_m REAL NOT NULL DEFAULT 0,
	attributes        TEXT,
	area_m2           REAL NOT NULL,
	area_acres        REAL NOT NULL,
	created_at        DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at        DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS buildable_areas (
	id               TEXT PRIMARY KEY,
	boundary_id      TEXT NOT NULL UNIQUE REFERENCES boundaries(id) ON DELETE CASCADE,
	geometry         TEXT NOT NULL,
	area_m2          REAL NOT NULL,
	area_acres       REAL NOT NULL,
	area_hectares    REAL NOT NULL,
	total_area_m2    REAL NOT NULL,
	excluded_area_m2 REAL NOT NULL,
	buildable_pct    REAL NOT NULL,
	exclusion_count  INTEGER NOT NULL,
	computed_at      DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS contour_lines (
	id          TEXT PRIMARY KEY,
	boundary_id TEXT NOT NULL REFERENCES boundaries(id) ON DELETE CASCADE,
	geometry    TEXT NOT NULL,
	elevation_m REAL NOT NULL,
	source_file TEXT,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS dem_jobs (
	id         TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	status     TEXT NOT NULL DEFAULT 'queued',
	created_at DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_boundaries_project ON boundaries(project_id);
CREATE INDEX IF NOT EXISTS idx_zones_boundary ON exclusion_zones(boundary_id);
CREATE INDEX IF NOT EXISTS idx_contours_boundary ON contour_lines(boundary_id);
CREATE INDEX IF NOT EXISTS idx_dem_jobs_status ON dem_jobs(status);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for the queue sharing this store's
// database file.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) CreateBoundary(ctx context.Context, b *model.Boundary) error {
	if b.ID == "" {
		b.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now

	geomJSON, err := encodeGeoJSON(b.Geometry)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO boundaries (id, project_id, name, source_file, geometry, area_m2, area_acres, area_hectares, perimeter_m, centroid_lat, centroid_lng, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ProjectID, b.Name, b.SourceFile, geomJSON,
		b.AreaM2, b.AreaAcres, b.AreaHectares, b.PerimeterM,
		b.Centroid.Lat, b.Centroid.Lng, now, now,
	)
	return eris.Wrap(err, "sqlite: insert boundary")
}

func (s *SQLiteStore) GetBoundary(ctx context.Context, id string) (*model.Boundary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, project_id, name, source_file, geometry, area_m2, area_acres, area_hectares, perimeter_m, centroid_lat, centroid_lng, created_at, updated_at
		 FROM boundaries WHERE id = ?`, id)
	return scanBoundary(row)
}

func (s *SQLiteStore) ListBoundaries(ctx context.Context, projectID string) ([]model.Boundary, error) {
	query := `SELECT id, project_id, name, source_file, geometry, area_m2, area_acres, area_hectares, perimeter_m, centroid_lat, centroid_lng, created_at, updated_at
		 FROM boundaries`
	var args []any
	if projectID != "" {
		query += ` WHERE project_id = ?`
		args = append(args, projectID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list boundaries")
	}
	defer rows.Close()

	var boundaries []model.Boundary
	for rows.Next() {
		b, err := scanBoundary(rows)
		if err != nil {
			return nil, err
		}
		boundaries = append(boundaries, *b)
	}
	return boundaries, eris.Wrap(rows.Err(), "sqlite: list boundaries iterate")
}

func (s *SQLiteStore) DeleteBoundary(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM boundaries WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete boundary %s", id)
	}
	return checkRowsAffected(res, "boundary", id)
}

func (s *SQLiteStore) CreateZone(ctx context.Context, z *model.ExclusionZone) error {
	if z.ID == "" {
		z.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	z.CreatedAt, z.UpdatedAt = now, now

	geomJSON, bufJSON, err := encodeZoneGeometry(z)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO exclusion_zones (id, boundary_id, name, type, geometry, buffered_geometry, buffer_distance_m, attributes, area_m2, area_acres, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		z.ID, z.BoundaryID, z.Name, string(z.Type), geomJSON, bufJSON,
		z.BufferDistanceM, nullableJSON(z.Attributes), z.AreaM2, z.AreaAcres, now, now,
	)
	return eris.Wrap(err, "sqlite: insert zone")
}

func (s *SQLiteStore) GetZone(ctx context.Context, id string) (*model.ExclusionZone, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, boundary_id, name, type, geometry, buffered_geometry, buffer_distance_m, attributes, area_m2, area_acres, created_at, updated_at
		 FROM exclusion_zones WHERE id = ?`, id)
	return scanZone(row)
}

func (s *SQLiteStore) ListZones(ctx context.Context, boundaryID string) ([]model.ExclusionZone, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, boundary_id, name, type, geometry, buffered_geometry, buffer_distance_m, attributes, area_m2, area_acres, created_at, updated_at
		 FROM exclusion_zones WHERE boundary_id = ? ORDER BY created_at`, boundaryID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list zones")
	}
	defer rows.Close()

	var zones []model.ExclusionZone
	for rows.Next() {
		z, err := scanZone(rows)
		if err != nil {
			return nil, err
		}
		zones = append(zones, *z)
	}
	return zones, eris.Wrap(rows.Err(), "sqlite: list zones iterate")
}

func (s *SQLiteStore) UpdateZone(ctx context.Context, z *model.ExclusionZone) error {
	z.UpdatedAt = time.Now().UTC()

	geomJSON, bufJSON, err := encodeZoneGeometry(z)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE exclusion_zones SET name = ?, type = ?, geometry = ?, buffered_geometry = ?, buffer_distance_m = ?, attributes = ?, area_m2 = ?, area_acres = ?, updated_at = ?
		 WHERE id = ?`,
		z.Name, string(z.Type), geomJSON, bufJSON, z.BufferDistanceM,
		nullableJSON(z.Attributes), z.AreaM2, z.AreaAcres, z.UpdatedAt, z.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update zone %s", z.ID)
	}
	return checkRowsAffected(res, "zone", z.ID)
}

func (s *SQLiteStore) DeleteZone(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM exclusion_zones WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete zone %s", id)
	}
	return checkRowsAffected(res, "zone", id)
}

// UpsertBuildableArea fully replaces the stored result for the
// boundary. The unique key on boundary_id is the concurrency
// correctness boundary for racing recomputations.
func (s *SQLiteStore) UpsertBuildableArea(ctx context.Context, ba *model.BuildableArea) error {
	if ba.ID == "" {
		ba.ID = uuid.New().String()
	}
	if ba.ComputedAt.IsZero() {
		ba.ComputedAt = time.Now().UTC()
	}

	geomJSON, err := encodeGeoJSON(ba.Geometry)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO buildable_areas (id, boundary_id, geometry, area_m2, area_acres, area_hectares, total_area_m2, excluded_area_m2, buildable_pct, exclusion_count, computed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(boundary_id) DO UPDATE SET
			geometry = excluded.geometry,
			area_m2 = excluded.area_m2,
			area_acres = excluded.area_acres,
			area_hectares = excluded.area_hectares,
			total_area_m2 = excluded.total_area_m2,
			excluded_area_m2 = excluded.excluded_area_m2,
			buildable_pct = excluded.buildable_pct,
			exclusion_count = excluded.exclusion_count,
			computed_at = excluded.computed_at`,
		ba.ID, ba.BoundaryID, geomJSON, ba.AreaM2, ba.AreaAcres, ba.AreaHectares,
		ba.TotalPropertyAreaM2, ba.ExcludedAreaM2, ba.BuildablePercent,
		ba.ExclusionCount, ba.ComputedAt,
	)
	return eris.Wrap(err, "sqlite: upsert buildable area")
}

func (s *SQLiteStore) GetBuildableArea(ctx context.Context, boundaryID string) (*model.BuildableArea, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, boundary_id, geometry, area_m2, area_acres, area_hectares, total_area_m2, excluded_area_m2, buildable_pct, exclusion_count, computed_at
		 FROM buildable_areas WHERE boundary_id = ?`, boundaryID)

	var ba model.BuildableArea
	var geomJSON string
	err := row.Scan(&ba.ID, &ba.BoundaryID, &geomJSON, &ba.AreaM2, &ba.AreaAcres, &ba.AreaHectares,
		&ba.TotalPropertyAreaM2, &ba.ExcludedAreaM2, &ba.BuildablePercent, &ba.ExclusionCount, &ba.ComputedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get buildable area")
	}
	ba.Geometry, err = decodeGeoJSON(geomJSON)
	if err != nil {
		return nil, err
	}
	return &ba, nil
}

func (s *SQLiteStore) CreateContours(ctx context.Context, contours []model.ContourLine) error {
	if len(contours) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin contour insert")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO contour_lines (id, boundary_id, geometry, elevation_m, source_file, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare contour insert")
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i := range contours {
		c := &contours[i]
		if c.ID == "" {
			c.ID = uuid.New().String()
		}
		c.CreatedAt = now
		geomJSON, err := encodeGeoJSON(c.Geometry)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, c.ID, c.BoundaryID, geomJSON, c.ElevationM, c.SourceFile, now); err != nil {
			return eris.Wrap(err, "sqlite: insert contour")
		}
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit contour insert")
}

func (s *SQLiteStore) ListContours(ctx context.Context, boundaryID string) ([]model.ContourLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, boundary_id, geometry, elevation_m, source_file, created_at
		 FROM contour_lines WHERE boundary_id = ? ORDER BY elevation_m`, boundaryID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list contours")
	}
	defer rows.Close()

	var contours []model.ContourLine
	for rows.Next() {
		var c model.ContourLine
		var geomJSON string
		var source sql.NullString
		if err := rows.Scan(&c.ID, &c.BoundaryID, &geomJSON, &c.ElevationM, &source, &c.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan contour")
		}
		c.SourceFile = source.String
		c.Geometry, err = decodeGeoJSONLineString(geomJSON)
		if err != nil {
			return nil, err
		}
		contours = append(contours, c)
	}
	return contours, eris.Wrap(rows.Err(), "sqlite: list contours iterate")
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

func encodeZoneGeometry(z *model.ExclusionZone) (geomJSON string, bufJSON sql.NullString, err error) {
	geomJSON, err = encodeGeoJSON(z.Geometry)
	if err != nil {
		return "", sql.NullString{}, err
	}
	if z.BufferedGeometry != nil {
		s, err := encodeGeoJSON(z.BufferedGeometry)
		if err != nil {
			return "", sql.NullString{}, err
		}
		bufJSON = sql.NullString{String: s, Valid: true}
	}
	return geomJSON, bufJSON, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}

type scannable interface {
	Scan(dest ...any) error
}

func scanBoundary(row scannable) (*model.Boundary, error) {
	var b model.Boundary
	var source sql.NullString
	var geomJSON string

	err := row.Scan(&b.ID, &b.ProjectID, &b.Name, &source, &geomJSON,
		&b.AreaM2, &b.AreaAcres, &b.AreaHectares, &b.PerimeterM,
		&b.Centroid.Lat, &b.Centroid.Lng, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan boundary")
	}
	b.SourceFile = source.String
	b.Geometry, err = decodeGeoJSONPolygon(geomJSON)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

func scanZone(row scannable) (*model.ExclusionZone, error) {
	var z model.ExclusionZone
	var zoneType string
	var geomJSON string
	var bufJSON, attrs sql.NullString

	err := row.Scan(&z.ID, &z.BoundaryID, &z.Name, &zoneType, &geomJSON, &bufJSON,
		&z.BufferDistanceM, &attrs, &z.AreaM2, &z.AreaAcres, &z.CreatedAt, &z.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan zone")
	}
	z.Type = model.ZoneType(zoneType)
	if attrs.Valid {
		z.Attributes = json.RawMessage(attrs.String)
	}
	z.Geometry, err = decodeGeoJSONPolygon(geomJSON)
	if err != nil {
		return nil, err
	}
	if bufJSON.Valid {
		z.BufferedGeometry, err = decodeGeoJSONPolygon(bufJSON.String)
		if err != nil {
			return nil, err
		}
	}
	return &z, nil
}
