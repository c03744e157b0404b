// Package collyfetcher fetches pages for scanning with gocolly and extracts
// their visible text.
package collyfetcher

import (
	"bytes"
	"context"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
	"github.com/JakeFAU/page-archiver/internal/metrics"
	"github.com/JakeFAU/page-archiver/internal/pagetext"
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	MaxBodySize   int
}

const defaultTimeout = 15 * time.Second

// Fetcher implements autoarchive.Fetcher using a Colly collector.
type Fetcher struct {
	cfg  Config
	base *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. Each Fetch clones the base collector so concurrent
// scans never share callbacks.
func New(cfg Config) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	base := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	base.WithTransport(newHTTPTransport())
	if cfg.MaxBodySize > 0 {
		base.MaxBodySize = cfg.MaxBodySize
	}
	return &Fetcher{cfg: cfg, base: base}
}

// Fetch executes a single GET and fills Text with the page's visible text.
func (f *Fetcher) Fetch(ctx context.Context, request autoarchive.FetchRequest) (autoarchive.FetchResponse, error) {
	if err := ctx.Err(); err != nil {
		return autoarchive.FetchResponse{}, fmt.Errorf("fetch %s: %w", request.URL, err)
	}
	v := &visit{request: request, start: time.Now()}
	collector := f.collectorFor(v)

	resp, err := v.run(ctx, collector)
	if err != nil {
		metrics.ObserveFetch(request.URL, "colly", "error", 0)
		return autoarchive.FetchResponse{}, err
	}
	metrics.ObserveFetch(request.URL, "colly", "ok", len(resp.Body))
	return resp, nil
}

func (f *Fetcher) collectorFor(v *visit) *colly.Collector {
	collector := f.base.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = !f.cfg.RespectRobots
	collector.SetRequestTimeout(f.cfg.Timeout)
	v.bind(collector)
	return collector
}

// visit holds the outcome of one collector run. Colly runs callbacks on the
// goroutine calling Visit, so resp and err are only read after it returns.
type visit struct {
	request autoarchive.FetchRequest
	start   time.Time
	resp    autoarchive.FetchResponse
	err     error
}

func (v *visit) bind(hooks collectorHooks) {
	hooks.OnRequest(v.onRequest)
	hooks.OnResponse(v.onResponse)
	hooks.OnError(v.onError)
}

func (v *visit) onRequest(r *colly.Request) {
	for key, values := range v.request.Headers {
		for _, value := range values {
			r.Headers.Add(key, value)
		}
	}
}

func (v *visit) onResponse(r *colly.Response) {
	headers := http.Header{}
	if r.Headers != nil {
		headers = r.Headers.Clone()
	}
	text, err := visibleText(headers, r.Body)
	if err != nil {
		v.err = err
		return
	}
	v.resp = autoarchive.FetchResponse{
		URL:        r.Request.URL.String(),
		StatusCode: r.StatusCode,
		Headers:    headers,
		Body:       bytes.Clone(r.Body),
		Text:       text,
		Duration:   time.Since(v.start),
	}
}

func (v *visit) onError(_ *colly.Response, err error) {
	v.err = err
}

func (v *visit) run(ctx context.Context, collector *colly.Collector) (autoarchive.FetchResponse, error) {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(v.request.URL)
	}()

	select {
	case <-ctx.Done():
		return autoarchive.FetchResponse{}, fmt.Errorf("fetch %s: %w", v.request.URL, ctx.Err())
	case err := <-done:
		if err == nil {
			err = v.err
		}
		if err != nil {
			return autoarchive.FetchResponse{}, fmt.Errorf("fetch %s: %w", v.request.URL, err)
		}
		return v.resp, nil
	}
}

// visibleText returns body as-is for text/plain and the extracted visible
// text for everything else.
func visibleText(headers http.Header, body []byte) (string, error) {
	if len(body) == 0 {
		return "", nil
	}
	if mediaType, _, err := mime.ParseMediaType(headers.Get("Content-Type")); err == nil &&
		strings.HasPrefix(mediaType, "text/") && mediaType != "text/html" {
		return string(body), nil
	}
	page, err := pagetext.Extract(body)
	if err != nil {
		return "", fmt.Errorf("extract page text: %w", err)
	}
	return page.Text, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
