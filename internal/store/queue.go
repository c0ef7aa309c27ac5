package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// SQLiteQueue is a development queue backed by the dem_jobs table. The
// external DEM worker polls it with Dequeue in local setups; deployed
// environments hand the payload to the cloud queue instead.
type SQLiteQueue struct {
	db *sql.DB
}

// NewSQLiteQueue wraps the store's database handle.
func NewSQLiteQueue(db *sql.DB) *SQLiteQueue {
	return &SQLiteQueue{db: db}
}

// QueuedJob is a claimed job awaiting processing.
type QueuedJob struct {
	ID      string
	Payload []byte
}

// Enqueue inserts the payload as a queued job and returns its id.
func (q *SQLiteQueue) Enqueue(ctx context.Context, payload []byte) (string, error) {
	id := uuid.New().String()
	now := time.Now().UTC()
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO dem_jobs (id, payload, status, created_at, updated_at) VALUES (?, ?, 'queued', ?, ?)`,
		id, string(payload), now, now,
	)
	if err != nil {
		return "", eris.Wrap(err, "queue: enqueue")
	}
	return id, nil
}

// Dequeue claims the oldest queued job and marks it running. Returns
// ErrNotFound when the queue is empty.
func (q *SQLiteQueue) Dequeue(ctx context.Context) (*QueuedJob, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "queue: begin dequeue")
	}
	defer tx.Rollback() //nolint:errcheck

	var job QueuedJob
	var payload string
	err = tx.QueryRowContext(ctx,
		`SELECT id, payload FROM dem_jobs WHERE status = 'queued' ORDER BY rowid LIMIT 1`,
	).Scan(&job.ID, &payload)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "queue: select queued job")
	}
	job.Payload = []byte(payload)

	if _, err := tx.ExecContext(ctx,
		`UPDATE dem_jobs SET status = 'running', updated_at = ? WHERE id = ?`,
		time.Now().UTC(), job.ID); err != nil {
		return nil, eris.Wrap(err, "queue: claim job")
	}
	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "queue: commit dequeue")
	}
	return &job, nil
}

// Ack marks a claimed job completed.
func (q *SQLiteQueue) Ack(ctx context.Context, id string) error {
	return q.setStatus(ctx, id, "completed")
}

// Fail marks a claimed job failed so it stays visible for inspection.
func (q *SQLiteQueue) Fail(ctx context.Context, id string) error {
	return q.setStatus(ctx, id, "failed")
}

func (q *SQLiteQueue) setStatus(ctx context.Context, id, status string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE dem_jobs SET status = ?, updated_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "queue: mark %s", status)
	}
	return checkRowsAffected(res, "job", id)
}
