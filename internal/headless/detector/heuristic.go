// Package detector decides when a statically fetched page must be re-read in
// a headless browser because its text is built by scripts.
package detector

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// Heuristic implements autoarchive.HeadlessDetector with rule-based checks.
type Heuristic struct {
	// MinTextLength is the visible-text length below which a script-heavy
	// page is considered unrendered.
	MinTextLength int
}

// NewHeuristic creates a new detector.
func NewHeuristic(minTextLength int) *Heuristic {
	if minTextLength == 0 {
		minTextLength = 200
	}
	return &Heuristic{MinTextLength: minTextLength}
}

// mountSelectors match the empty root elements client-side frameworks render into.
const mountSelectors = "#__next, #__nuxt, #root, #app, [data-reactroot], [ng-app]"

// ShouldPromote decides whether a headless fetch is required.
func (h *Heuristic) ShouldPromote(resp autoarchive.FetchResponse) bool {
	if resp.StatusCode != http.StatusOK || resp.UsedHeadless {
		return false
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return true
	}
	if emptyMountPoint(resp.Body) {
		return true
	}
	return len(strings.TrimSpace(resp.Text)) < h.MinTextLength && scriptDensityHigh(resp.Body)
}

func emptyMountPoint(body []byte) bool {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return false
	}
	empty := false
	doc.Find(mountSelectors).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) == "" {
			empty = true
			return false
		}
		return true
	})
	return empty
}

func scriptDensityHigh(body []byte) bool {
	lower := strings.ToLower(string(body))
	total := len(lower)
	if total == 0 {
		return false
	}

	const (
		openTag  = "<script"
		closeTag = "</script>"
	)
	scriptCoverage := 0
	searchPos := 0

	for {
		relativeStart := strings.Index(lower[searchPos:], openTag)
		if relativeStart == -1 {
			break
		}
		start := searchPos + relativeStart

		tagClose := strings.IndexByte(lower[start:], '>')
		if tagClose == -1 {
			// Unterminated tag: the rest is script.
			scriptCoverage += total - start
			break
		}
		contentStart := start + tagClose + 1

		relativeEnd := strings.Index(lower[contentStart:], closeTag)
		var nextSearch int
		if relativeEnd == -1 {
			nextSearch = total
		} else {
			nextSearch = contentStart + relativeEnd + len(closeTag)
		}

		scriptCoverage += nextSearch - start
		searchPos = nextSearch
	}

	return scriptCoverage*100/total >= 25
}
