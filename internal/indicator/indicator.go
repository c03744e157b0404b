// Package indicator scans page text for configured indicator patterns.
package indicator

import (
	"strings"

	"github.com/JakeFAU/page-archiver/internal/pattern"
	"github.com/JakeFAU/page-archiver/internal/textnorm"
)

// Scan parses a newline separated indicator list and returns the
// indicators found in pageText, in configuration order. A blank list
// returns an empty result without looking at the page.
func Scan(config string, pageText string) []string {
	if strings.TrimSpace(config) == "" {
		return []string{}
	}
	return ScanSet(pattern.ParseSet(config), pageText)
}

// ScanSet evaluates every pattern in set against pageText and returns the
// raw text of those that match. All patterns are evaluated; duplicates are
// kept.
func ScanSet(set pattern.Set, pageText string) []string {
	found := []string{}
	if len(set) == 0 {
		return found
	}
	subject := textnorm.Normalize(strings.ToLower(pageText))
	for _, p := range set {
		if p.Match(subject, true) {
			found = append(found, p.Raw)
		}
	}
	return found
}
