// Package dispatcher accepts scan submissions and fans queued scans out to
// a pool of workers.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/JakeFAU/page-archiver/internal/archive"
	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/worker"
)

// Dispatcher fans out queue work to a pool of workers.
type Dispatcher struct {
	queue   autoarchive.Queue
	scans   autoarchive.ScanStore
	ids     autoarchive.IDGenerator
	clock   autoarchive.Clock
	workers []*worker.Worker
}

// New creates a Dispatcher.
func New(
	queue autoarchive.Queue,
	scans autoarchive.ScanStore,
	ids autoarchive.IDGenerator,
	clock autoarchive.Clock,
	workers []*worker.Worker,
) *Dispatcher {
	return &Dispatcher{
		queue:   queue,
		scans:   scans,
		ids:     ids,
		clock:   clock,
		workers: workers,
	}
}

// Run starts all workers and blocks until the context finishes.
func (d *Dispatcher) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, w := range d.workers {
		wg.Add(1)
		go func(wk *worker.Worker) {
			defer wg.Done()
			wk.Run(ctx)
		}(w)
	}
	<-ctx.Done()
	wg.Wait()
}

// Submit records a queued scan for rawURL and enqueues it.
func (d *Dispatcher) Submit(ctx context.Context, rawURL string) (autoarchive.ScanRecord, error) {
	target := archive.CleanURL(rawURL)
	if archive.IsInternalPage(target) {
		return autoarchive.ScanRecord{}, autoarchive.ErrInternalPage
	}
	if !archive.IsValidURL(target) {
		return autoarchive.ScanRecord{}, fmt.Errorf("%w: %q", autoarchive.ErrInvalidURL, rawURL)
	}
	id, err := d.ids.NewID()
	if err != nil {
		return autoarchive.ScanRecord{}, fmt.Errorf("generate scan id: %w", err)
	}
	record := autoarchive.ScanRecord{
		ID:        id,
		URL:       target,
		Status:    autoarchive.ScanStatusQueued,
		Submitted: d.clock.Now(),
	}
	if err := d.scans.CreateScan(ctx, record); err != nil {
		return autoarchive.ScanRecord{}, fmt.Errorf("create scan: %w", err)
	}
	job := autoarchive.ScanJob{ID: id, URL: target, Attempt: 1, Submitted: record.Submitted}
	if err := d.Enqueue(ctx, job); err != nil {
		record.Status = autoarchive.ScanStatusFailed
		record.ErrorText = err.Error()
		// The submit context may already be done; the record must still leave queued.
		if updateErr := d.scans.UpdateScan(context.WithoutCancel(ctx), record); updateErr != nil {
			return autoarchive.ScanRecord{}, errors.Join(err, fmt.Errorf("mark scan %s failed: %w", id, updateErr))
		}
		return autoarchive.ScanRecord{}, err
	}
	return record, nil
}

// Enqueue proxies to the underlying queue.
func (d *Dispatcher) Enqueue(ctx context.Context, job autoarchive.ScanJob) error {
	if err := d.queue.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("queue enqueue: %w", err)
	}
	return nil
}
