package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/page-archiver/internal/archive"
	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/id/uuid"
	"github.com/JakeFAU/page-archiver/internal/metrics"
	"github.com/JakeFAU/page-archiver/internal/pattern"
)

type urlRequest struct {
	URL string `json:"url"`
}

type evaluateRequest struct {
	URL  string  `json:"url"`
	Text *string `json:"text"`
}

type patternWarning struct {
	Kind    string `json:"kind"`
	Pattern string `json:"pattern"`
	Error   string `json:"error"`
}

type settingsResponse struct {
	Settings autoarchive.Settings `json:"settings"`
	Warnings []patternWarning     `json:"warnings,omitempty"`
}

func (s *Server) getSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.Settings.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load settings")
		return
	}
	s.writeJSON(w, http.StatusOK, settingsResponse{Settings: settings})
}

func (s *Server) putSettings(w http.ResponseWriter, r *http.Request) {
	var settings autoarchive.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	settings.ArchiveURL = strings.TrimSpace(settings.ArchiveURL)
	if settings.ArchiveURL == "" {
		settings.ArchiveURL = archive.DefaultSubmitURL
	}
	if !archive.IsValidURL(settings.ArchiveURL) {
		s.writeError(w, http.StatusBadRequest, "archive_url must be an absolute URL")
		return
	}
	if err := s.Settings.Update(r.Context(), settings); err != nil {
		s.writeError(w, http.StatusInternalServerError, "save settings")
		return
	}

	rules := settings.Compile()
	warnings := append(
		invalidPatterns("indicator", rules.Indicators),
		invalidPatterns("path", rules.PathPatterns)...,
	)
	for _, warn := range warnings {
		s.logger.Debug("pattern falls back to literal matching",
			zap.String("kind", warn.Kind),
			zap.String("pattern", warn.Pattern),
			zap.String("error", warn.Error),
		)
	}
	s.writeJSON(w, http.StatusOK, settingsResponse{Settings: settings, Warnings: warnings})
}

func invalidPatterns(kind string, set pattern.Set) []patternWarning {
	var out []patternWarning
	for _, p := range set.Invalid() {
		metrics.ObserveInvalidPattern(kind)
		out = append(out, patternWarning{Kind: kind, Pattern: p.Raw, Error: p.Err.Error()})
	}
	return out
}

func (s *Server) archive(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	settings, err := s.Settings.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load settings")
		return
	}
	trigger := string(autoarchive.TriggerManual)
	request, err := s.Archiver.Archive(r.Context(), settings.ArchiveURL, req.URL, autoarchive.TriggerManual, nil)
	switch {
	case errors.Is(err, autoarchive.ErrInternalPage), errors.Is(err, autoarchive.ErrInvalidURL):
		metrics.ObserveArchiveRequest(trigger, "rejected")
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case err != nil:
		metrics.ObserveArchiveRequest(trigger, "failed")
		s.logger.Error("manual archive failed", zap.String("url", req.URL), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "archive request failed")
		return
	}
	metrics.ObserveArchiveRequest(trigger, "published")
	s.writeJSON(w, http.StatusAccepted, request)
}

func (s *Server) versionsURL(w http.ResponseWriter, r *http.Request) {
	target := strings.TrimSpace(r.URL.Query().Get("url"))
	if target == "" {
		s.writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	if archive.IsInternalPage(target) {
		s.writeError(w, http.StatusBadRequest, autoarchive.ErrInternalPage.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"versions_url": archive.VersionsURL(target)})
}

func (s *Server) realURL(w http.ResponseWriter, r *http.Request) {
	original, err := archive.RealURL(r.URL.Query().Get("url"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"url": original})
}

func (s *Server) submitScan(w http.ResponseWriter, r *http.Request) {
	var req urlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	record, err := s.Submit.Submit(r.Context(), req.URL)
	switch {
	case errors.Is(err, autoarchive.ErrInternalPage), errors.Is(err, autoarchive.ErrInvalidURL):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, autoarchive.ErrQueueClosed):
		s.writeError(w, http.StatusServiceUnavailable, "scan queue closed")
		return
	case err != nil:
		s.logger.Error("submit scan failed", zap.String("url", req.URL), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "submit scan failed")
		return
	}
	s.writeJSON(w, http.StatusAccepted, record)
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Canonical(chi.URLParam(r, "scan_id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid scan id")
		return
	}
	record, err := s.Scans.GetScan(r.Context(), id)
	if errors.Is(err, autoarchive.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, "scan not found")
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load scan")
		return
	}
	s.writeJSON(w, http.StatusOK, record)
}

func (s *Server) listScans(w http.ResponseWriter, r *http.Request) {
	lister, ok := s.Scans.(ScanLister)
	if !ok {
		s.writeError(w, http.StatusNotImplemented, "scan listing unsupported")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"scans": lister.ListScans(r.Context())})
}

// evaluate runs the decision engine against one page and reports the full
// verdict. The gate does not run first, so indicators overriding the scan
// conditions are visible here and nowhere else.
func (s *Server) evaluate(w http.ResponseWriter, r *http.Request) {
	var req evaluateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.URL) == "" {
		s.writeError(w, http.StatusBadRequest, "missing url")
		return
	}
	settings, err := s.Settings.Snapshot(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "load settings")
		return
	}
	if !settings.DebugMode {
		s.writeError(w, http.StatusForbidden, autoarchive.ErrDebugDisabled.Error())
		return
	}

	var text string
	switch {
	case req.Text != nil:
		text = *req.Text
	case s.Fetcher != nil:
		resp, err := s.Fetcher.Fetch(r.Context(), autoarchive.FetchRequest{URL: req.URL})
		if err != nil {
			s.logger.Warn("evaluate fetch failed", zap.String("url", req.URL), zap.Error(err))
			s.writeError(w, http.StatusBadGateway, "fetch page failed")
			return
		}
		text = resp.Text
	default:
		s.writeError(w, http.StatusBadRequest, "text required")
		return
	}

	verdict, err := s.Engine.Evaluate(req.URL, settings, text)
	if errors.Is(err, autoarchive.ErrMalformedURL) {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "evaluate")
		return
	}
	s.writeJSON(w, http.StatusOK, verdict)
}
