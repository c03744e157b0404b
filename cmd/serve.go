package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-archiver/internal/api"
	"github.com/JakeFAU/page-archiver/internal/archive"
	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/clock/system"
	"github.com/JakeFAU/page-archiver/internal/config"
	"github.com/JakeFAU/page-archiver/internal/decision"
	"github.com/JakeFAU/page-archiver/internal/dispatcher"
	collyfetcher "github.com/JakeFAU/page-archiver/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/page-archiver/internal/fetcher/headless"
	"github.com/JakeFAU/page-archiver/internal/hash/sha256"
	"github.com/JakeFAU/page-archiver/internal/headless/detector"
	"github.com/JakeFAU/page-archiver/internal/id/uuid"
	"github.com/JakeFAU/page-archiver/internal/metrics"
	"github.com/JakeFAU/page-archiver/internal/policy/ratelimit"
	"github.com/JakeFAU/page-archiver/internal/policy/simple"
	pubmemory "github.com/JakeFAU/page-archiver/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/page-archiver/internal/publisher/pubsub"
	queuememory "github.com/JakeFAU/page-archiver/internal/queue/memory"
	"github.com/JakeFAU/page-archiver/internal/storage/memory"
	"github.com/JakeFAU/page-archiver/internal/storage/postgres"
	"github.com/JakeFAU/page-archiver/internal/telemetry"
	"github.com/JakeFAU/page-archiver/internal/worker"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Runs the HTTP API and the scan workers",
		Long: `Starts the HTTP API together with the scan worker pool. Scans submitted
to /v1/scans are gated, fetched, evaluated, and archived when indicators
match. The process drains and exits on SIGINT or SIGTERM.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	cfg, logger := e.cfg, e.logger
	metrics.Init()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Version:     cmd.Root().Version,
		ProjectID:   cfg.Telemetry.ProjectID,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	publisher, closePublisher, err := buildPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	defer closePublisher()

	verdicts, closeVerdicts, err := buildVerdictRecorder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeVerdicts()

	clock := system.New()
	idGen := uuid.New()
	settings := memory.NewSettingsStore(cfg.Scan)
	scans := memory.NewScanStore()
	queue := queuememory.NewQueue(cfg.Crawler.QueueDepth)
	engine := decision.NewEngine(logger.Named("engine"))
	archiver := archive.New(publisher, idGen, clock, archive.Config{Topic: cfg.Archive.Topic}, logger.Named("archiver"))
	fetcher := newStaticFetcher(cfg)
	headless, closeHeadless := buildHeadless(cfg, logger)
	defer closeHeadless()

	deps := worker.Deps{
		Queue:    queue,
		Scans:    scans,
		Settings: settings,
		Engine:   engine,
		Archiver: archiver,
		Verdicts: verdicts,
		Hasher:   sha256.New(),
		Clock:    clock,
		Fetcher:  fetcher,
		Headless: headless,
		Detector: detector.NewHeuristic(cfg.Headless.MinTextLength),
		Policy: simple.New(simple.Config{
			HeadlessEnabled: cfg.Headless.Enabled,
			DenyHosts:       cfg.Crawler.DenyHosts,
		}),
		Limiter: ratelimit.New(ratelimit.Config{
			DefaultRPS:   cfg.RateLimit.DefaultRPS,
			DefaultBurst: cfg.RateLimit.DefaultBurst,
			DomainRPS:    cfg.RateLimit.DomainRPS(),
		}),
	}
	workerCfg := worker.Config{
		MaxAttempts:  cfg.Crawler.MaxAttempts,
		RetryBackoff: cfg.RetryBackoff(),
		FetchTimeout: cfg.FetchTimeout(),
	}
	workers := make([]*worker.Worker, 0, cfg.Crawler.Concurrency)
	for i := 0; i < cfg.Crawler.Concurrency; i++ {
		workers = append(workers, worker.New(deps, workerCfg, logger.Named("worker").With(zap.Int("index", i))))
	}
	dispatch := dispatcher.New(queue, scans, idGen, clock, workers)

	apiServer := api.NewServer(api.Deps{
		Settings: settings,
		Scans:    scans,
		Submit:   dispatch,
		Archiver: archiver,
		Engine:   engine,
		Fetcher:  fetcher,
	}, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	dispatchDone := make(chan struct{})
	go func() {
		defer close(dispatchDone)
		logger.Info("dispatcher started", zap.Int("workers", len(workers)))
		dispatch.Run(ctx)
	}()

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	queue.Close()
	<-dispatchDone
	logger.Info("shutdown complete")
	return nil
}

func newStaticFetcher(cfg config.Config) *collyfetcher.Fetcher {
	return collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.Crawler.UserAgent,
		RespectRobots: cfg.Crawler.RespectRobots,
		Timeout:       cfg.FetchTimeout(),
		MaxBodySize:   cfg.Crawler.MaxBodyBytes,
	})
}

func buildPublisher(ctx context.Context, cfg config.Config) (autoarchive.Publisher, func(), error) {
	if cfg.Archive.Publisher != "pubsub" {
		return pubmemory.New(), func() {}, nil
	}
	publisher, err := pubsubpublisher.Dial(ctx, cfg.PubSub.ProjectID, cfg.PubSub.TopicName)
	if err != nil {
		return nil, nil, fmt.Errorf("init pubsub publisher: %w", err)
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			zap.L().Warn("pubsub close failed", zap.Error(err))
		}
	}, nil
}

func buildVerdictRecorder(
	ctx context.Context,
	cfg config.Config,
	logger *zap.Logger,
) (autoarchive.VerdictRecorder, func(), error) {
	if cfg.DB.DSN == "" {
		logger.Info("verdict history kept in memory")
		return memory.NewVerdictLog(), func() {}, nil
	}
	store, err := postgres.NewVerdictStore(ctx, postgres.Config{
		DSN:      cfg.DB.DSN,
		Table:    cfg.DB.Table,
		MaxConns: cfg.DB.MaxConns,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("init verdict store: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("ensure verdict schema: %w", err)
	}
	return store, store.Close, nil
}

func buildHeadless(cfg config.Config, logger *zap.Logger) (autoarchive.Fetcher, func()) {
	if !cfg.Headless.Enabled {
		return headlessfetcher.NewNoop(), func() {}
	}
	fetcher, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
		MaxParallel:       cfg.Headless.MaxParallel,
		UserAgent:         cfg.Crawler.UserAgent,
		NavigationTimeout: time.Duration(cfg.Headless.NavTimeoutSec) * time.Second,
		SettleDelay:       time.Duration(cfg.Headless.SettleMs) * time.Millisecond,
	})
	if err != nil {
		logger.Warn("headless fetcher init failed; static fetches only", zap.Error(err))
		return headlessfetcher.NewNoop(), func() {}
	}
	return fetcher, fetcher.Close
}
