package archive

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/publisher/memory"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type seqIDs struct{ n int }

func (s *seqIDs) NewID() (string, error) {
	s.n++
	return "req-" + string(rune('0'+s.n)), nil
}

type failingIDs struct{}

func (failingIDs) NewID() (string, error) { return "", errors.New("entropy exhausted") }

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("broker down")
}

func TestArchiverPublishesRequest(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	pub := memory.New()
	a := New(pub, &seqIDs{}, fixedClock{now: now}, Config{Topic: "archive-requests"}, nil)

	verdict := &autoarchive.Verdict{
		WouldArchive:    true,
		Reason:          "Found indicators: paywall",
		FoundIndicators: []string{"paywall"},
	}
	req, err := a.Archive(context.Background(), "", "example.com/story", autoarchive.TriggerAuto, verdict)
	require.NoError(t, err)

	assert.Equal(t, "req-1", req.ID)
	assert.Equal(t, "https://example.com/story", req.URL)
	assert.Equal(t, "https://archive.ph/submit/?url=https%3A%2F%2Fexample.com%2Fstory", req.SubmitURL)
	assert.Equal(t, autoarchive.TriggerAuto, req.Trigger)
	assert.Equal(t, []string{"paywall"}, req.Indicators)
	assert.Equal(t, verdict.Reason, req.Reason)
	assert.Equal(t, now, req.RequestedAt)

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "archive-requests", msgs[0].Topic)
	assert.Equal(t, req, msgs[0].Payload)
}

func TestArchiverManualWithoutVerdict(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	a := New(pub, &seqIDs{}, fixedClock{}, Config{}, nil)

	req, err := a.Archive(context.Background(), "https://archive.is/submit/", "https://example.com", autoarchive.TriggerManual, nil)
	require.NoError(t, err)
	assert.Equal(t, autoarchive.TriggerManual, req.Trigger)
	assert.Empty(t, req.Indicators)
	assert.Equal(t, "https://archive.is/submit/?url=https%3A%2F%2Fexample.com", req.SubmitURL)
}

func TestArchiverRejectsBadTargets(t *testing.T) {
	t.Parallel()

	pub := memory.New()
	a := New(pub, &seqIDs{}, fixedClock{}, Config{}, nil)

	_, err := a.Archive(context.Background(), "", "chrome://extensions", autoarchive.TriggerManual, nil)
	require.ErrorIs(t, err, autoarchive.ErrInternalPage)
	_, err = a.Archive(context.Background(), "", "not a url", autoarchive.TriggerManual, nil)
	require.ErrorIs(t, err, autoarchive.ErrInvalidURL)
	assert.Empty(t, pub.Messages())
}

func TestArchiverPropagatesFailures(t *testing.T) {
	t.Parallel()

	a := New(memory.New(), failingIDs{}, fixedClock{}, Config{}, nil)
	_, err := a.Archive(context.Background(), "", "https://example.com", autoarchive.TriggerManual, nil)
	require.ErrorContains(t, err, "generate archive request id")

	a = New(failingPublisher{}, &seqIDs{}, fixedClock{}, Config{}, nil)
	_, err = a.Archive(context.Background(), "", "https://example.com", autoarchive.TriggerManual, nil)
	require.ErrorContains(t, err, "publish archive request")
}
