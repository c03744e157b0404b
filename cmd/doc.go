// Package cmd implements the page-archiver CLI.
//
// Architecture overview:
//   - HTTP API (serve): internal/api.Server exposes health, metrics, the scan
//     settings, manual archiving, live scan submission, and the diagnostic
//     evaluate endpoint.
//   - Dispatcher & queue: scans flow through a bounded in-memory queue sized by
//     crawler.queue_depth and fan out to crawler.concurrency workers. Context
//     cancellation stops workers on shutdown.
//   - Scan pipeline: each worker applies the fetch policy and the scan gate,
//     fetches the page with Colly (promoting to headless Chrome when the page
//     looks script-rendered), extracts the visible text, and asks the decision
//     engine for a verdict. Positive verdicts become archive requests published
//     to memory or Pub/Sub; every verdict is recorded in memory or Postgres.
//   - Plumbing: Viper reads config files and ARCHIVER_* env vars; zap provides
//     structured logging; Prometheus metrics are served at /metrics.
//
// The evaluate, submit-url, versions-url and real-url commands run the same
// components once from the command line without starting the server.
package cmd
