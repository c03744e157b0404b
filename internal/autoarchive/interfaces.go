package autoarchive

import (
	"context"
	"time"
)

// SettingsStore supplies point-in-time Settings snapshots.
type SettingsStore interface {
	Snapshot(ctx context.Context) (Settings, error)
	Update(ctx context.Context, settings Settings) error
}

// ScanStore persists live scan state.
type ScanStore interface {
	CreateScan(ctx context.Context, record ScanRecord) error
	UpdateScan(ctx context.Context, record ScanRecord) error
	GetScan(ctx context.Context, id string) (ScanRecord, error)
}

// VerdictRecorder keeps an audit trail of evaluated verdicts.
type VerdictRecorder interface {
	RecordVerdict(ctx context.Context, scanID string, verdict Verdict, evaluatedAt time.Time) error
}

// Publisher pushes archive requests to the archive service (or a broker
// in front of it).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// HeadlessDetector decides whether a rendered fetch is warranted.
type HeadlessDetector interface {
	ShouldPromote(probe FetchResponse) bool
}

// Queue provides enqueue/dequeue semantics for scan jobs.
type Queue interface {
	Enqueue(ctx context.Context, job ScanJob) error
	Dequeue(ctx context.Context) (ScanJob, error)
}

// Policy encapsulates admission control for fetches.
type Policy interface {
	AllowFetch(scanID string, url string) bool
	AllowHeadless(scanID string, url string) bool
}

// RateLimiter throttles fetches per domain.
type RateLimiter interface {
	Wait(ctx context.Context, url string) error
}

// Hasher computes digests of fetched content.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces scan and archive request IDs.
type IDGenerator interface {
	NewID() (string, error)
}
