package memory

import (
	"context"
	"sync"
	"time"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// VerdictEntry is one recorded evaluation.
type VerdictEntry struct {
	ScanID      string
	Verdict     autoarchive.Verdict
	EvaluatedAt time.Time
}

// VerdictLog implements autoarchive.VerdictRecorder in memory.
type VerdictLog struct {
	mu      sync.RWMutex
	entries []VerdictEntry
}

// NewVerdictLog constructs an empty VerdictLog.
func NewVerdictLog() *VerdictLog {
	return &VerdictLog{}
}

// RecordVerdict appends an entry.
func (l *VerdictLog) RecordVerdict(_ context.Context, scanID string, verdict autoarchive.Verdict, evaluatedAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, VerdictEntry{ScanID: scanID, Verdict: verdict, EvaluatedAt: evaluatedAt})
	return nil
}

// Entries returns a copy of the log in recording order.
func (l *VerdictLog) Entries() []VerdictEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]VerdictEntry, len(l.entries))
	copy(out, l.entries)
	return out
}
