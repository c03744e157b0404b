package headless

import (
	"context"
	"errors"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// ErrDisabled is returned by Noop.
var ErrDisabled = errors.New("headless fetcher disabled")

// Noop stands in when headless rendering is disabled; every fetch fails
// with ErrDisabled.
type Noop struct{}

// NewNoop creates a new Noop fetcher.
func NewNoop() *Noop {
	return &Noop{}
}

// Fetch always returns ErrDisabled.
func (Noop) Fetch(_ context.Context, _ autoarchive.FetchRequest) (autoarchive.FetchResponse, error) {
	return autoarchive.FetchResponse{}, ErrDisabled
}
