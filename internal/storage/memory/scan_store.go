// Package memory holds in-process stores for scans, settings and verdicts.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// ScanStore implements autoarchive.ScanStore in memory.
type ScanStore struct {
	mu    sync.RWMutex
	scans map[string]autoarchive.ScanRecord
}

// NewScanStore constructs a ScanStore.
func NewScanStore() *ScanStore {
	return &ScanStore{scans: make(map[string]autoarchive.ScanRecord)}
}

// CreateScan stores a new scan record.
func (s *ScanStore) CreateScan(_ context.Context, record autoarchive.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.scans[record.ID]; exists {
		return fmt.Errorf("scan %q already exists", record.ID)
	}
	s.scans[record.ID] = cloneRecord(record)
	return nil
}

// UpdateScan replaces a scan record, stamping Finished on the first
// transition to a terminal status.
func (s *ScanStore) UpdateScan(_ context.Context, record autoarchive.ScanRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.scans[record.ID]
	if !ok {
		return fmt.Errorf("scan %q: %w", record.ID, autoarchive.ErrNotFound)
	}
	if record.Status.Terminal() && record.Finished == nil {
		if prev.Finished != nil {
			record.Finished = prev.Finished
		} else {
			now := time.Now().UTC()
			record.Finished = &now
		}
	}
	s.scans[record.ID] = cloneRecord(record)
	return nil
}

// GetScan fetches a scan by ID.
func (s *ScanStore) GetScan(_ context.Context, id string) (autoarchive.ScanRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.scans[id]
	if !ok {
		return autoarchive.ScanRecord{}, fmt.Errorf("scan %q: %w", id, autoarchive.ErrNotFound)
	}
	return cloneRecord(record), nil
}

// ListScans returns every scan, newest submission first.
func (s *ScanStore) ListScans(_ context.Context) []autoarchive.ScanRecord {
	s.mu.RLock()
	out := make([]autoarchive.ScanRecord, 0, len(s.scans))
	for _, record := range s.scans {
		out = append(out, cloneRecord(record))
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Submitted.After(out[j].Submitted) })
	return out
}

func cloneRecord(record autoarchive.ScanRecord) autoarchive.ScanRecord {
	if record.Finished != nil {
		finished := *record.Finished
		record.Finished = &finished
	}
	if record.Verdict != nil {
		verdict := *record.Verdict
		verdict.FoundIndicators = append([]string(nil), verdict.FoundIndicators...)
		record.Verdict = &verdict
	}
	return record
}
