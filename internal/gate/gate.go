// Package gate decides whether a page qualifies for an indicator scan.
//
// Homepages are never scanned: front pages carry headlines and teasers that
// would trip indicators for content that lives elsewhere. Otherwise a page
// is scanned when global scanning is on or its URL matches a path pattern.
package gate

import (
	"fmt"

	whatwg "github.com/nlnwa/whatwg-url/url"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// Assessment carries every gate sub-result for one URL.
type Assessment struct {
	IsHomepage            bool
	GlobalScanningEnabled bool
	PathMatches           bool
	// MatchedPattern is the first path pattern that matched, if any.
	MatchedPattern string
	// ParseErr is set when the URL could not be parsed. The URL is then
	// treated as not being a homepage.
	ParseErr error
}

// ShouldScan reports the gate outcome implied by the sub-results.
func (a Assessment) ShouldScan() bool {
	return !a.IsHomepage && (a.GlobalScanningEnabled || a.PathMatches)
}

// ShouldScan reports whether rawURL should be scanned under settings. The
// checks run in priority order and stop at the first decisive one.
func ShouldScan(rawURL string, settings autoarchive.Settings) bool {
	return ShouldScanRules(rawURL, settings.Compile())
}

// ShouldScanRules is ShouldScan for already compiled rules.
func ShouldScanRules(rawURL string, rules autoarchive.Rules) bool {
	if homepage, _ := isHomepage(rawURL); homepage {
		return false
	}
	if rules.GlobalScanning {
		return true
	}
	_, ok := rules.PathPatterns.First(rawURL, true)
	return ok
}

// Assess evaluates every sub-result, including path matching when global
// scanning already decides the outcome, so diagnostics can show all of them.
func Assess(rawURL string, rules autoarchive.Rules) Assessment {
	homepage, err := isHomepage(rawURL)
	a := Assessment{
		IsHomepage:            homepage,
		GlobalScanningEnabled: rules.GlobalScanning,
		ParseErr:              err,
	}
	if p, ok := rules.PathPatterns.First(rawURL, true); ok {
		a.PathMatches = true
		a.MatchedPattern = p.Raw
	}
	return a
}

// IsHomepage reports whether rawURL has an empty or "/" path once parsed
// the way a browser parses it, so dot segments such as "/./", "/%2e" and
// "/a/.." collapse first. Malformed URLs are not homepages.
func IsHomepage(rawURL string) bool {
	homepage, _ := isHomepage(rawURL)
	return homepage
}

func isHomepage(rawURL string) (bool, error) {
	u, err := whatwg.Parse(rawURL)
	if err != nil {
		return false, fmt.Errorf("parse url: %w", err)
	}
	if u.OpaquePath() {
		return false, nil
	}
	path := u.Pathname()
	return path == "" || path == "/", nil
}
