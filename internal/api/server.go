package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/config"
	"github.com/JakeFAU/page-archiver/internal/decision"
	"github.com/JakeFAU/page-archiver/internal/metrics"
)

// ScanSubmitter records and enqueues live scans.
type ScanSubmitter interface {
	Submit(ctx context.Context, rawURL string) (autoarchive.ScanRecord, error)
}

// ArchiveSubmitter publishes archive requests.
type ArchiveSubmitter interface {
	Archive(
		ctx context.Context,
		base string,
		target string,
		trigger autoarchive.Trigger,
		verdict *autoarchive.Verdict,
	) (autoarchive.ArchiveRequest, error)
}

// ScanLister is implemented by scan stores that can enumerate their records.
type ScanLister interface {
	ListScans(ctx context.Context) []autoarchive.ScanRecord
}

// Deps groups the collaborators behind the HTTP handlers. Fetcher is
// optional; without it /v1/evaluate requires the page text in the request.
type Deps struct {
	Settings autoarchive.SettingsStore
	Scans    autoarchive.ScanStore
	Submit   ScanSubmitter
	Archiver ArchiveSubmitter
	Engine   *decision.Engine
	Fetcher  autoarchive.Fetcher
}

// Server wires HTTP handlers to the dispatcher and stores.
type Server struct {
	Deps
	router chi.Router
	cfg    config.Config
	logger *zap.Logger
}

const requestTimeout = 60 * time.Second

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps, cfg config.Config, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Engine == nil {
		deps.Engine = decision.NewEngine(logger.Named("engine"))
	}
	s := &Server{
		Deps:   deps,
		cfg:    cfg,
		logger: logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)
	r.Use(timeoutMiddleware(requestTimeout))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/v1", func(r chi.Router) {
		if cfg.Auth.Enabled {
			r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		}
		r.Route("/settings", func(r chi.Router) {
			r.Get("/", s.getSettings)
			r.Put("/", s.putSettings)
		})
		r.Route("/archive", func(r chi.Router) {
			r.Post("/", s.archive)
			r.Get("/versions", s.versionsURL)
			r.Get("/real", s.realURL)
		})
		r.Route("/scans", func(r chi.Router) {
			r.Post("/", s.submitScan)
			r.Get("/", s.listScans)
			r.Get("/{scan_id}", s.getScan)
		})
		r.Post("/evaluate", s.evaluate)
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, r *http.Request) {
	if _, err := s.Settings.Snapshot(r.Context()); err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "settings unavailable")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}
