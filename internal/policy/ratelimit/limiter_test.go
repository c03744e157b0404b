package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterWaitThrottlesPerDomain(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 10, DefaultBurst: 1})
	ctx := context.Background()

	require.NoError(t, l.Wait(ctx, "https://slow.example/a"))
	start := time.Now()
	require.NoError(t, l.Wait(ctx, "https://slow.example/b"))
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)

	start = time.Now()
	require.NoError(t, l.Wait(ctx, "https://other.example/"))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterUnlimitedByDefault(t *testing.T) {
	t.Parallel()

	l := New(Config{})
	start := time.Now()
	for range 20 {
		require.NoError(t, l.Wait(context.Background(), "https://example.com"))
	}
	assert.Less(t, time.Since(start), 50*time.Millisecond)
}

func TestLimiterDomainOverride(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.001, DomainRPS: map[string]float64{"Fast.Example": 0}})
	for range 5 {
		require.NoError(t, l.Wait(context.Background(), "https://fast.example/x"))
	}
}

func TestLimiterWaitCanceled(t *testing.T) {
	t.Parallel()

	l := New(Config{DefaultRPS: 0.001, DefaultBurst: 1})
	require.NoError(t, l.Wait(context.Background(), "https://example.com"))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, l.Wait(ctx, "https://example.com"))
}

func TestDomainOf(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "example.com", domainOf("https://Example.com:8443/path"))
	assert.Equal(t, "unknown", domainOf("not a url"))
	assert.Equal(t, "unknown", domainOf("http://%zz"))
}
