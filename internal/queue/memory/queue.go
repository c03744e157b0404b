// Package memory provides a bounded in-process scan queue.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/metrics"
)

// Queue is a bounded FIFO of scan jobs. After Close, Enqueue fails with
// autoarchive.ErrQueueClosed while Dequeue keeps draining what is left.
type Queue struct {
	jobs      chan autoarchive.ScanJob
	done      chan struct{}
	closeOnce sync.Once
}

// NewQueue constructs a queue holding at most capacity pending jobs.
func NewQueue(capacity int) *Queue {
	return &Queue{
		jobs: make(chan autoarchive.ScanJob, capacity),
		done: make(chan struct{}),
	}
}

// Enqueue blocks until there is room for job, the queue closes, or ctx ends.
func (q *Queue) Enqueue(ctx context.Context, job autoarchive.ScanJob) error {
	if q.isClosed() {
		return autoarchive.ErrQueueClosed
	}
	select {
	case q.jobs <- job:
		metrics.SetQueueDepth(len(q.jobs))
		return nil
	case <-q.done:
		return autoarchive.ErrQueueClosed
	case <-ctx.Done():
		return fmt.Errorf("enqueue %s: %w", job.ID, ctx.Err())
	}
}

// Dequeue returns the next job. It reports ErrQueueClosed only once the
// queue is closed and empty.
func (q *Queue) Dequeue(ctx context.Context) (autoarchive.ScanJob, error) {
	select {
	case job := <-q.jobs:
		return q.took(job), nil
	case <-q.done:
		select {
		case job := <-q.jobs:
			return q.took(job), nil
		default:
			return autoarchive.ScanJob{}, autoarchive.ErrQueueClosed
		}
	case <-ctx.Done():
		return autoarchive.ScanJob{}, fmt.Errorf("dequeue: %w", ctx.Err())
	}
}

// Len reports the number of jobs waiting.
func (q *Queue) Len() int {
	return len(q.jobs)
}

// Close stops accepting jobs. It is safe to call more than once.
func (q *Queue) Close() {
	q.closeOnce.Do(func() { close(q.done) })
}

func (q *Queue) took(job autoarchive.ScanJob) autoarchive.ScanJob {
	metrics.SetQueueDepth(len(q.jobs))
	return job
}

func (q *Queue) isClosed() bool {
	select {
	case <-q.done:
		return true
	default:
		return false
	}
}
