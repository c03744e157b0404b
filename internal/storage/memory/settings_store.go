package memory

import (
	"context"
	"sync"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// SettingsStore implements autoarchive.SettingsStore over a single value.
// Snapshots are copies, so a concurrent Update never changes a decision in
// flight.
type SettingsStore struct {
	mu       sync.RWMutex
	settings autoarchive.Settings
}

// NewSettingsStore seeds the store with initial settings.
func NewSettingsStore(initial autoarchive.Settings) *SettingsStore {
	return &SettingsStore{settings: initial}
}

// Snapshot returns the current settings.
func (s *SettingsStore) Snapshot(context.Context) (autoarchive.Settings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings, nil
}

// Update replaces the stored settings.
func (s *SettingsStore) Update(_ context.Context, settings autoarchive.Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
	return nil
}
