package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

func TestQueueEnqueueDequeue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	result := make(chan autoarchive.ScanJob, 1)
	errCh := make(chan error, 1)

	go func() {
		job, err := q.Dequeue(context.Background())
		if err != nil {
			errCh <- err
			return
		}
		result <- job
	}()

	require.NoError(t, q.Enqueue(context.Background(), autoarchive.ScanJob{ID: "scan-1", URL: "https://example.com/a"}))
	select {
	case err := <-errCh:
		t.Fatalf("Dequeue() error = %v", err)
	case got := <-result:
		assert.Equal(t, "scan-1", got.ID)
	case <-time.After(time.Second):
		t.Fatal("dequeue did not return job")
	}
}

func TestQueueCancelationErrors(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), autoarchive.ScanJob{ID: "fill"}))
	assert.Equal(t, 1, q.Len())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, q.Enqueue(ctx, autoarchive.ScanJob{ID: "overflow"}), context.Canceled)

	empty := NewQueue(1)
	_, err := empty.Dequeue(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

func TestQueueClose(t *testing.T) {
	t.Parallel()

	q := NewQueue(2)
	require.NoError(t, q.Enqueue(context.Background(), autoarchive.ScanJob{ID: "pending"}))
	q.Close()
	q.Close()

	require.ErrorIs(t, q.Enqueue(context.Background(), autoarchive.ScanJob{ID: "late"}), autoarchive.ErrQueueClosed)

	job, err := q.Dequeue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "pending", job.ID)

	_, err = q.Dequeue(context.Background())
	require.ErrorIs(t, err, autoarchive.ErrQueueClosed)
}

func TestQueueCloseUnblocksEnqueue(t *testing.T) {
	t.Parallel()

	q := NewQueue(1)
	require.NoError(t, q.Enqueue(context.Background(), autoarchive.ScanJob{ID: "fill"}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- q.Enqueue(context.Background(), autoarchive.ScanJob{ID: "blocked"})
	}()
	q.Close()

	select {
	case err := <-errCh:
		require.ErrorIs(t, err, autoarchive.ErrQueueClosed)
	case <-time.After(time.Second):
		t.Fatal("Close did not release a blocked Enqueue")
	}
	assert.Equal(t, 1, q.Len())
}
