// Package archive builds archive-service URLs and hands archive requests to
// the configured publisher.
package archive

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/JakeFAU/page-archiver/internal/autoarchive"
)

// Service defaults.
const (
	DefaultSubmitURL = "https://archive.ph/submit/"
	versionsPrefix   = "https://web.archive.org/web/*/"
)

var (
	archiveHosts = []string{"archive.ph", "archive.is", "archive.today", "web.archive.org"}

	archiveTodayRe = regexp.MustCompile(`archive\.(ph|is|today)/[^/]+/(.+)`)
	waybackRe      = regexp.MustCompile(`web\.archive\.org/web/\d+/(.+)`)

	internalPrefixes = []string{"chrome://", "chrome-extension://", "moz-extension://"}
)

// CleanURL trims raw and, when it looks like a bare domain (has a dot and
// no spaces), prefixes https://.
func CleanURL(raw string) string {
	if raw == "" {
		return ""
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		if strings.Contains(raw, ".") && !strings.Contains(raw, " ") {
			raw = "https://" + raw
		}
	}
	return strings.TrimSpace(raw)
}

// IsValidURL reports whether raw is an absolute URL.
func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" {
		return false
	}
	return u.Host != "" || u.Opaque != ""
}

// IsInternalPage reports whether raw points at a browser-internal page.
func IsInternalPage(raw string) bool {
	for _, prefix := range internalPrefixes {
		if strings.HasPrefix(raw, prefix) {
			return true
		}
	}
	return false
}

// IsArchiveURL reports whether raw points at a known archive service.
func IsArchiveURL(raw string) bool {
	for _, host := range archiveHosts {
		if strings.Contains(raw, host) {
			return true
		}
	}
	return false
}

// ExtractRealURL returns the original address embedded in an archive link.
func ExtractRealURL(archiveURL string) (string, bool) {
	if m := archiveTodayRe.FindStringSubmatch(archiveURL); m != nil {
		return m[2], true
	}
	if m := waybackRe.FindStringSubmatch(archiveURL); m != nil {
		return m[1], true
	}
	return "", false
}

// RealURL is ExtractRealURL for callers that need an error to report.
func RealURL(archiveURL string) (string, error) {
	if !IsArchiveURL(archiveURL) {
		return "", autoarchive.ErrNotArchiveURL
	}
	original, ok := ExtractRealURL(archiveURL)
	if !ok {
		return "", fmt.Errorf("could not extract real url from %q", archiveURL)
	}
	return original, nil
}

// SubmitURL builds the archive-service submission address for target.
// An empty base uses DefaultSubmitURL.
func SubmitURL(base, target string) (string, error) {
	cleaned, err := prepareTarget(target)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(base) == "" {
		base = DefaultSubmitURL
	}
	return base + "?url=" + encodeURIComponent(cleaned), nil
}

// componentUnescaper undoes the QueryEscape choices that differ from the
// browser's encodeURIComponent: spaces become %20, and !'()* stay literal.
var componentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return componentUnescaper.Replace(url.QueryEscape(s))
}

// VersionsURL builds the Wayback Machine listing address for target.
func VersionsURL(target string) string {
	return versionsPrefix + CleanURL(target)
}

func prepareTarget(target string) (string, error) {
	cleaned := CleanURL(target)
	if IsInternalPage(cleaned) {
		return "", autoarchive.ErrInternalPage
	}
	if !IsValidURL(cleaned) {
		return "", fmt.Errorf("%w: %q", autoarchive.ErrInvalidURL, target)
	}
	return cleaned, nil
}
