// Package metrics exposes Prometheus collectors for the archiver service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	decisionsTotal             *prometheus.CounterVec
	invalidPatternsTotal       *prometheus.CounterVec
	archiveRequestsTotal       *prometheus.CounterVec
	scansTotal                 *prometheus.CounterVec
	fetchesTotal               *prometheus.CounterVec
	fetchBytesTotal            *prometheus.CounterVec
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	activeWorkers              prometheus.Gauge
	queueDepth                 prometheus.Gauge
	rateLimitDelaysSeconds     *prometheus.HistogramVec

	once sync.Once
)

// Init registers the collectors. Safe to call more than once; the Observe
// helpers call it on first use.
func Init() {
	once.Do(func() {
		decisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_decisions_total",
				Help: "Scan decisions, labeled by outcome and the rule that produced it.",
			},
			[]string{"outcome", "basis"},
		)

		invalidPatternsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_invalid_patterns_total",
				Help: "Regex patterns that failed to compile and were matched literally.",
			},
			[]string{"kind"},
		)

		archiveRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_archive_requests_total",
				Help: "Archive requests, labeled by trigger and status.",
			},
			[]string{"trigger", "status"},
		)

		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_scans_total",
				Help: "Scan jobs finished, labeled by terminal status.",
			},
			[]string{"status"},
		)

		fetchesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_fetches_total",
				Help: "Page fetches, labeled by site, fetcher and status.",
			},
			[]string{"site", "fetcher", "status"},
		)

		fetchBytesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "archiver_fetch_bytes_total",
				Help: "Bytes fetched, labeled by site.",
			},
			[]string{"site"},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		activeWorkers = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "archiver_active_workers",
				Help: "Number of workers currently processing a scan.",
			},
		)

		queueDepth = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "archiver_queue_depth",
				Help: "Scan jobs waiting in the queue.",
			},
		)

		rateLimitDelaysSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "archiver_rate_limit_delays_seconds",
				Help:    "Histogram of rate limit wait durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"domain"},
		)
	})
}

// SanitizeSite extracts a lowercase hostname for use as a label value.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDecision counts one verdict. basis is homepage, indicators,
// override or none.
func ObserveDecision(wouldArchive bool, basis string) {
	Init()
	outcome := "skip"
	if wouldArchive {
		outcome = "archive"
	}
	decisionsTotal.WithLabelValues(outcome, basis).Inc()
}

// ObserveInvalidPattern counts a regex that fell back to literal matching.
func ObserveInvalidPattern(kind string) {
	Init()
	invalidPatternsTotal.WithLabelValues(kind).Inc()
}

// ObserveArchiveRequest counts an archive request attempt.
func ObserveArchiveRequest(trigger, status string) {
	Init()
	archiveRequestsTotal.WithLabelValues(trigger, status).Inc()
}

// ObserveScan counts a finished scan job.
func ObserveScan(status string) {
	Init()
	scansTotal.WithLabelValues(status).Inc()
}

// ObserveFetch counts a page fetch and the bytes it returned.
func ObserveFetch(site, fetcher, status string, bytesFetched int) {
	Init()
	sanitized := SanitizeSite(site)
	fetchesTotal.WithLabelValues(sanitized, fetcher, status).Inc()
	if bytesFetched > 0 {
		fetchBytesTotal.WithLabelValues(sanitized).Add(float64(bytesFetched))
	}
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// IncActiveWorkers increments the active workers gauge.
func IncActiveWorkers() {
	Init()
	activeWorkers.Inc()
}

// DecActiveWorkers decrements the active workers gauge.
func DecActiveWorkers() {
	Init()
	activeWorkers.Dec()
}

// SetQueueDepth reports the number of scan jobs waiting.
func SetQueueDepth(n int) {
	Init()
	queueDepth.Set(float64(n))
}

// ObserveRateLimitDelay records the duration of a rate limit wait.
func ObserveRateLimitDelay(domain string, duration time.Duration) {
	Init()
	rateLimitDelaysSeconds.WithLabelValues(domain).Observe(duration.Seconds())
}
