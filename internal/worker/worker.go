// Package worker runs the live auto-archive pipeline for queued scans:
// gate, fetch, evaluate, archive, record.
package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-archiver/internal/archive"
	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/decision"
	"github.com/JakeFAU/page-archiver/internal/gate"
	"github.com/JakeFAU/page-archiver/internal/metrics"
)

var tracer = otel.Tracer("github.com/JakeFAU/page-archiver/internal/worker")

// Config controls Worker behavior.
type Config struct {
	// MaxAttempts bounds fetch attempts per scan. Zero means one.
	MaxAttempts int
	// RetryBackoff is the delay before the second attempt; it doubles after.
	RetryBackoff time.Duration
	// FetchTimeout bounds a single fetch attempt.
	FetchTimeout time.Duration
}

// Deps are the collaborators a Worker needs. Headless, Detector, Policy,
// Limiter and Verdicts are optional.
type Deps struct {
	Queue    autoarchive.Queue
	Scans    autoarchive.ScanStore
	Settings autoarchive.SettingsStore
	Engine   *decision.Engine
	Archiver *archive.Archiver
	Verdicts autoarchive.VerdictRecorder
	Hasher   autoarchive.Hasher
	Clock    autoarchive.Clock
	Fetcher  autoarchive.Fetcher
	Headless autoarchive.Fetcher
	Detector autoarchive.HeadlessDetector
	Policy   autoarchive.Policy
	Limiter  autoarchive.RateLimiter
}

// Worker consumes scan jobs and executes the pipeline.
type Worker struct {
	Deps
	cfg    Config
	logger *zap.Logger
}

// New constructs a Worker.
func New(deps Deps, cfg Config, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if deps.Engine == nil {
		deps.Engine = decision.NewEngine(logger)
	}
	return &Worker{Deps: deps, cfg: cfg, logger: logger}
}

// Run blocks, consuming scan jobs until the context finishes or the queue
// is closed.
func (w *Worker) Run(ctx context.Context) {
	for {
		job, err := w.Queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			if errors.Is(err, autoarchive.ErrQueueClosed) {
				return
			}
			continue
		}
		w.logger.Debug("dequeued scan", zap.String("scan_id", job.ID), zap.String("url", job.URL))
		metrics.IncActiveWorkers()
		w.Process(ctx, job)
		metrics.DecActiveWorkers()
	}
}

// Process runs one scan to a terminal status and returns the final record.
func (w *Worker) Process(ctx context.Context, job autoarchive.ScanJob) autoarchive.ScanRecord {
	ctx, span := tracer.Start(ctx, "worker.scan", trace.WithAttributes(
		attribute.String("scan.id", job.ID),
		attribute.String("scan.url", job.URL),
	))
	defer span.End()

	record := w.startScan(ctx, job)
	log := w.logger.With(zap.String("scan_id", job.ID), zap.String("url", job.URL))

	settings, err := w.Settings.Snapshot(ctx)
	if err != nil {
		return w.finish(ctx, log, record, autoarchive.ScanStatusFailed, fmt.Errorf("settings snapshot: %w", err))
	}
	rules := settings.Compile()

	if !w.allowFetch(job.ID, job.URL) {
		log.Info("scan blocked by policy")
		record.ErrorText = "blocked by fetch policy"
		return w.finish(ctx, log, record, autoarchive.ScanStatusSkipped, nil)
	}
	if !gate.ShouldScanRules(job.URL, rules) {
		log.Debug("scan gate closed")
		return w.finish(ctx, log, record, autoarchive.ScanStatusSkipped, nil)
	}

	resp, err := w.fetchWithRetry(ctx, job)
	if err != nil {
		return w.finish(ctx, log, record, autoarchive.ScanStatusFailed, err)
	}
	if promoted, ok := w.maybePromote(ctx, job, resp); ok {
		resp = promoted
		log.Info("headless promotion applied")
	}
	record.UsedHeadless = resp.UsedHeadless
	if hash, err := w.Hasher.Hash([]byte(resp.Text)); err == nil {
		record.ContentHash = hash
	} else {
		log.Warn("hash page text failed", zap.Error(err))
	}

	verdict, err := w.Engine.EvaluateRules(job.URL, rules, resp.Text)
	if err != nil {
		return w.finish(ctx, log, record, autoarchive.ScanStatusFailed, err)
	}
	metrics.ObserveDecision(verdict.WouldArchive, decision.Basis(verdict))
	record.Verdict = &verdict
	w.recordVerdict(ctx, log, job.ID, verdict)

	if !verdict.WouldArchive {
		return w.finish(ctx, log, record, autoarchive.ScanStatusIgnored, nil)
	}

	req, err := w.Archiver.Archive(ctx, settings.ArchiveURL, job.URL, autoarchive.TriggerAuto, &verdict)
	if err != nil {
		metrics.ObserveArchiveRequest(string(autoarchive.TriggerAuto), "failed")
		return w.finish(ctx, log, record, autoarchive.ScanStatusFailed, fmt.Errorf("archive: %w", err))
	}
	metrics.ObserveArchiveRequest(string(autoarchive.TriggerAuto), "published")
	record.ArchiveRequestID = req.ID
	return w.finish(ctx, log, record, autoarchive.ScanStatusArchived, nil)
}

func (w *Worker) startScan(ctx context.Context, job autoarchive.ScanJob) autoarchive.ScanRecord {
	record, err := w.Scans.GetScan(ctx, job.ID)
	if err != nil {
		record = autoarchive.ScanRecord{ID: job.ID, URL: job.URL, Submitted: job.Submitted}
		if record.Submitted.IsZero() {
			record.Submitted = w.Clock.Now()
		}
		record.Status = autoarchive.ScanStatusRunning
		if err := w.Scans.CreateScan(ctx, record); err != nil {
			w.logger.Error("create scan record failed", zap.String("scan_id", job.ID), zap.Error(err))
		}
		return record
	}
	record.Status = autoarchive.ScanStatusRunning
	if err := w.Scans.UpdateScan(ctx, record); err != nil {
		w.logger.Error("update scan status failed", zap.String("scan_id", job.ID), zap.Error(err))
	}
	return record
}

func (w *Worker) finish(
	ctx context.Context,
	log *zap.Logger,
	record autoarchive.ScanRecord,
	status autoarchive.ScanStatus,
	cause error,
) autoarchive.ScanRecord {
	record.Status = status
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("scan.status", string(status)))
	if cause != nil {
		record.ErrorText = cause.Error()
		span.RecordError(cause)
		span.SetStatus(codes.Error, "scan failed")
		log.Warn("scan failed", zap.Error(cause))
	}
	finished := w.Clock.Now()
	record.Finished = &finished
	if err := w.Scans.UpdateScan(ctx, record); err != nil {
		log.Error("final scan status update failed", zap.Error(err))
	}
	metrics.ObserveScan(string(status))
	log.Info("scan finished", zap.String("status", string(status)))
	return record
}

func (w *Worker) allowFetch(scanID, url string) bool {
	if w.Policy == nil {
		return true
	}
	return w.Policy.AllowFetch(scanID, url)
}

func (w *Worker) allowHeadless(scanID, url string) bool {
	if w.Policy == nil {
		return true
	}
	return w.Policy.AllowHeadless(scanID, url)
}

func (w *Worker) fetchWithRetry(ctx context.Context, job autoarchive.ScanJob) (autoarchive.FetchResponse, error) {
	backoff := w.cfg.RetryBackoff
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return autoarchive.FetchResponse{}, fmt.Errorf("fetch retry canceled: %w", ctx.Err())
			case <-time.After(backoff):
			}
			backoff *= 2
		}
		resp, err := w.fetchOnce(ctx, w.Fetcher, job)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		w.logger.Warn("fetch attempt failed",
			zap.String("scan_id", job.ID),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
	}
	return autoarchive.FetchResponse{}, fmt.Errorf("fetch after %d attempts: %w", w.cfg.MaxAttempts, lastErr)
}

func (w *Worker) fetchOnce(ctx context.Context, fetcher autoarchive.Fetcher, job autoarchive.ScanJob) (autoarchive.FetchResponse, error) {
	if w.Limiter != nil {
		if err := w.Limiter.Wait(ctx, job.URL); err != nil {
			return autoarchive.FetchResponse{}, err
		}
	}
	fetchCtx, cancel := ctx, context.CancelFunc(func() {})
	if w.cfg.FetchTimeout > 0 {
		fetchCtx, cancel = context.WithTimeout(ctx, w.cfg.FetchTimeout)
	}
	defer cancel()

	resp, err := fetcher.Fetch(fetchCtx, autoarchive.FetchRequest{ScanID: job.ID, URL: job.URL})
	if err != nil {
		return autoarchive.FetchResponse{}, fmt.Errorf("fetch: %w", err)
	}
	return resp, nil
}

func (w *Worker) maybePromote(
	ctx context.Context,
	job autoarchive.ScanJob,
	resp autoarchive.FetchResponse,
) (autoarchive.FetchResponse, bool) {
	if w.Detector == nil || w.Headless == nil {
		return resp, false
	}
	if !w.allowHeadless(job.ID, job.URL) || !w.Detector.ShouldPromote(resp) {
		return resp, false
	}
	headlessResp, err := w.fetchOnce(ctx, w.Headless, job)
	if err != nil {
		w.logger.Warn("headless promotion failed", zap.String("scan_id", job.ID), zap.Error(err))
		return resp, false
	}
	headlessResp.UsedHeadless = true
	return headlessResp, true
}

func (w *Worker) recordVerdict(ctx context.Context, log *zap.Logger, scanID string, verdict autoarchive.Verdict) {
	if w.Verdicts == nil {
		return
	}
	if err := w.Verdicts.RecordVerdict(ctx, scanID, verdict, w.Clock.Now()); err != nil {
		log.Warn("record verdict failed", zap.Error(err))
	}
}
