package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteQueue_EnqueueDequeueAck(t *testing.T) {
	st := newTestSQLiteStore(t)
	q := NewSQLiteQueue(st.DB())
	ctx := context.Background()

	id1, err := q.Enqueue(ctx, []byte(`{"jobId":"a"}`))
	require.NoError(t, err)
	id2, err := q.Enqueue(ctx, []byte(`{"jobId":"b"}`))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	job, err := q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, id1, job.ID)
	assert.JSONEq(t, `{"jobId":"a"}`, string(job.Payload))

	require.NoError(t, q.Ack(ctx, job.ID))

	// A running or completed job is not handed out again.
	job, err = q.Dequeue(ctx)
	require.NoError(t, err)
	assert.Equal(t, id2, job.ID)
	require.NoError(t, q.Fail(ctx, job.ID))

	_, err = q.Dequeue(ctx)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSQLiteQueue_AckMissing(t *testing.T) {
	st := newTestSQLiteStore(t)
	q := NewSQLiteQueue(st.DB())

	err := q.Ack(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
}
