// Package system provides the wall clock used to stamp scans and archive
// requests.
package system

import "time"

// Clock implements autoarchive.Clock using time.Now.
type Clock struct{}

// New creates a new Clock.
func New() *Clock {
	return &Clock{}
}

// Now returns the current time in UTC.
func (Clock) Now() time.Time {
	return time.Now().UTC()
}
