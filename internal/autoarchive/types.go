package autoarchive

import (
	"errors"
	"net/http"
	"time"

	"github.com/JakeFAU/page-archiver/internal/pattern"
)

// Sentinel errors surfaced by the engine and the archiver.
var (
	// ErrMalformedURL means the page address could not be parsed, so
	// homepage status (and therefore a verdict) cannot be determined.
	ErrMalformedURL = errors.New("malformed url")
	// ErrInvalidURL is returned when a URL cannot be submitted for archiving.
	ErrInvalidURL = errors.New("invalid url")
	// ErrInternalPage rejects browser-internal pages.
	ErrInternalPage = errors.New("cannot archive browser internal pages")
	// ErrNotArchiveURL is returned when a real URL is requested for a link
	// that does not point at a known archive service.
	ErrNotArchiveURL = errors.New("not an archive url")
	// ErrDebugDisabled guards the diagnostic entry points.
	ErrDebugDisabled = errors.New("debug mode is disabled")
	// ErrNotFound is returned by stores for unknown IDs.
	ErrNotFound = errors.New("not found")
	// ErrQueueClosed is returned by queues after shutdown.
	ErrQueueClosed = errors.New("queue closed")
)

// Settings is a point-in-time snapshot of the user-editable options.
type Settings struct {
	ArchiveURL       string `json:"archive_url" mapstructure:"archive_url"`
	GlobalScanning   bool   `json:"global_scanning" mapstructure:"global_scanning"`
	TextIndicators   string `json:"text_indicators" mapstructure:"text_indicators"`
	PagePathPatterns string `json:"page_path_patterns" mapstructure:"page_path_patterns"`
	DebugMode        bool   `json:"debug_mode" mapstructure:"debug_mode"`
}

// Rules is Settings with its pattern lists parsed.
type Rules struct {
	GlobalScanning bool
	Indicators     pattern.Set
	PathPatterns   pattern.Set
	DebugMode      bool
}

// Compile parses the indicator and path pattern lists once so repeated
// evaluations do not re-detect pattern kinds.
func (s Settings) Compile() Rules {
	return Rules{
		GlobalScanning: s.GlobalScanning,
		Indicators:     pattern.ParseSet(s.TextIndicators),
		PathPatterns:   pattern.ParseSet(s.PagePathPatterns),
		DebugMode:      s.DebugMode,
	}
}

// Verdict is the outcome of one decision-engine evaluation together with
// every sub-result that produced it.
type Verdict struct {
	URL                   string   `json:"url"`
	WouldArchive          bool     `json:"would_archive"`
	Reason                string   `json:"reason"`
	FoundIndicators       []string `json:"found_indicators"`
	NormalScanWouldOccur  bool     `json:"normal_scan_would_occur"`
	IsHomepage            bool     `json:"is_homepage"`
	GlobalScanningEnabled bool     `json:"global_scanning_enabled"`
	PathMatches           bool     `json:"path_matches"`
}

// Trigger records what caused an archive request.
type Trigger string

// Archive request triggers.
const (
	TriggerManual Trigger = "manual"
	TriggerAuto   Trigger = "auto"
)

// ArchiveRequest is the message handed to the archive service.
type ArchiveRequest struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	SubmitURL   string    `json:"submit_url"`
	Trigger     Trigger   `json:"trigger"`
	Indicators  []string  `json:"indicators,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	RequestedAt time.Time `json:"requested_at"`
}

// ScanStatus represents the lifecycle state of a live scan job.
type ScanStatus string

// Scan status values persisted in the scan store.
const (
	ScanStatusQueued   ScanStatus = "queued"
	ScanStatusRunning  ScanStatus = "running"
	ScanStatusSkipped  ScanStatus = "skipped"
	ScanStatusArchived ScanStatus = "archived"
	ScanStatusIgnored  ScanStatus = "ignored"
	ScanStatusFailed   ScanStatus = "failed"
)

// Terminal reports whether no further transitions are expected.
func (s ScanStatus) Terminal() bool {
	switch s {
	case ScanStatusSkipped, ScanStatusArchived, ScanStatusIgnored, ScanStatusFailed:
		return true
	default:
		return false
	}
}

// ScanJob is a live scan waiting in the queue.
type ScanJob struct {
	ID        string
	URL       string
	Attempt   int
	Submitted time.Time
}

// ScanRecord is the persisted state of a live scan.
type ScanRecord struct {
	ID               string     `json:"id"`
	URL              string     `json:"url"`
	Status           ScanStatus `json:"status"`
	Submitted        time.Time  `json:"submitted_at"`
	Finished         *time.Time `json:"finished_at,omitempty"`
	ErrorText        string     `json:"error_text,omitempty"`
	Verdict          *Verdict   `json:"verdict,omitempty"`
	ContentHash      string     `json:"content_hash,omitempty"`
	UsedHeadless     bool       `json:"used_headless"`
	ArchiveRequestID string     `json:"archive_request_id,omitempty"`
}

// FetchRequest captures everything needed to fetch a page.
type FetchRequest struct {
	ScanID  string
	URL     string
	Headers http.Header
}

// FetchResponse is the result returned by a Fetcher implementation. Text
// holds the page's visible text, the input to the indicator scan.
type FetchResponse struct {
	URL          string
	StatusCode   int
	Headers      http.Header
	Body         []byte
	Text         string
	Duration     time.Duration
	UsedHeadless bool
}
