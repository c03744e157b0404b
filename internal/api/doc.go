// Package api hosts the HTTP server, middleware, and REST handlers for the
// archiver. Notable routes:
//   - GET /healthz / readyz for Kubernetes probes.
//   - GET /metrics for Prometheus scraping.
//   - GET|PUT /v1/settings for the scan options.
//   - POST /v1/archive plus GET /v1/archive/versions and /v1/archive/real
//     for manual archiving.
//   - POST /v1/scans and GET /v1/scans/{scan_id} for live auto-archive scans.
//   - POST /v1/evaluate for diagnostic verdicts while debug mode is on.
package api
