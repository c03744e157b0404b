package collyfetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

func TestCollectorFor(t *testing.T) {
	t.Parallel()

	f := New(Config{UserAgent: "archiver-agent", RespectRobots: true, Timeout: time.Second})
	collector := f.collectorFor(&visit{request: autoarchive.FetchRequest{URL: "https://example.com"}})
	assert.Equal(t, "archiver-agent", collector.UserAgent)
	assert.False(t, collector.IgnoreRobotsTxt)

	f = New(Config{})
	assert.Equal(t, defaultTimeout, f.cfg.Timeout)
	collector = f.collectorFor(&visit{})
	assert.True(t, collector.IgnoreRobotsTxt)
}

func TestVisitCallbacks(t *testing.T) {
	t.Parallel()

	v := &visit{
		request: autoarchive.FetchRequest{
			URL:     "https://example.com/story",
			Headers: http.Header{"X-Trace": {"yes"}},
		},
		start: time.Unix(0, 0),
	}
	hooks := &stubHooks{}
	v.bind(hooks)
	require.NotNil(t, hooks.onRequest)
	require.NotNil(t, hooks.onResponse)
	require.NotNil(t, hooks.onError)

	collyReq := &colly.Request{Headers: &http.Header{}}
	hooks.onRequest(collyReq)
	assert.Equal(t, "yes", collyReq.Headers.Get("X-Trace"))

	hooks.onResponse(&colly.Response{
		StatusCode: http.StatusOK,
		Body:       []byte("<html><body><p>Subscribe   now</p><script>x()</script></body></html>"),
		Headers:    &http.Header{"Content-Type": {"text/html; charset=utf-8"}},
		Request:    &colly.Request{URL: mustParseURL(t, "https://example.com/story")},
	})
	assert.Equal(t, http.StatusOK, v.resp.StatusCode)
	assert.Equal(t, "Subscribe   now", v.resp.Text)
	assert.Equal(t, "text/html; charset=utf-8", v.resp.Headers.Get("Content-Type"))
	assert.False(t, v.resp.UsedHeadless)

	hooks.onError(nil, errors.New("boom"))
	require.EqualError(t, v.err, "boom")
}

func TestVisibleTextPlain(t *testing.T) {
	t.Parallel()

	text, err := visibleText(http.Header{"Content-Type": {"text/plain"}}, []byte("<b>not html</b>"))
	require.NoError(t, err)
	assert.Equal(t, "<b>not html</b>", text)

	text, err = visibleText(http.Header{}, nil)
	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestFetchAgainstServer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "archiver-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte("<html><body><h1>Members only</h1></body></html>"))
	}))
	defer srv.Close()

	f := New(Config{UserAgent: "archiver-test", Timeout: 5 * time.Second})
	resp, err := f.Fetch(context.Background(), autoarchive.FetchRequest{URL: srv.URL + "/article"})
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Members only", resp.Text)
	assert.Equal(t, srv.URL+"/article", resp.URL)
}

func TestFetchCanceled(t *testing.T) {
	t.Parallel()

	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Config{}).Fetch(ctx, autoarchive.FetchRequest{URL: srv.URL})
	require.ErrorIs(t, err, context.Canceled)
}

func mustParseURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

type stubHooks struct {
	onRequest  colly.RequestCallback
	onResponse colly.ResponseCallback
	onError    colly.ErrorCallback
}

func (s *stubHooks) OnRequest(cb colly.RequestCallback) {
	s.onRequest = cb
}

func (s *stubHooks) OnResponse(cb colly.ResponseCallback) {
	s.onResponse = cb
}

func (s *stubHooks) OnError(cb colly.ErrorCallback) {
	s.onError = cb
}
