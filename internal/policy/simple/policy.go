// Package simple admits scan fetches: only public http(s) pages that are not
// themselves archive snapshots are fetched.
package simple

import (
	"net/url"
	"slices"
	"strings"

	"github.com/JakeFAU/page-archiver/internal/archive"
)

// Config controls Policy.
type Config struct {
	HeadlessEnabled bool
	// DenyHosts are hostnames (and their subdomains) never fetched. A
	// leading "*." or "." is accepted and means the same thing.
	DenyHosts []string
}

// Policy implements autoarchive.Policy.
type Policy struct {
	headless  bool
	denyHosts []string
}

// New creates a new Policy.
func New(cfg Config) *Policy {
	hosts := make([]string, 0, len(cfg.DenyHosts))
	for _, h := range cfg.DenyHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		h = strings.TrimPrefix(strings.TrimPrefix(h, "*"), ".")
		if h != "" && !slices.Contains(hosts, h) {
			hosts = append(hosts, h)
		}
	}
	return &Policy{headless: cfg.HeadlessEnabled, denyHosts: hosts}
}

// AllowFetch reports whether rawURL may be fetched for scanning.
func (p *Policy) AllowFetch(_ string, rawURL string) bool {
	if archive.IsInternalPage(rawURL) || archive.IsArchiveURL(rawURL) {
		return false
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	for _, denied := range p.denyHosts {
		if host == denied || strings.HasSuffix(host, "."+denied) {
			return false
		}
	}
	return true
}

// AllowHeadless reports whether a rendered re-fetch is permitted.
func (p *Policy) AllowHeadless(scanID string, rawURL string) bool {
	return p.headless && p.AllowFetch(scanID, rawURL)
}
