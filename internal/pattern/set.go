package pattern

import "strings"

// Set is an ordered list of patterns.
type Set []Pattern

// ParseSet splits a newline separated configuration string into patterns,
// dropping blank lines. Order is preserved.
func ParseSet(config string) Set {
	if strings.TrimSpace(config) == "" {
		return nil
	}
	lines := strings.Split(config, "\n")
	set := make(Set, 0, len(lines))
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		set = append(set, Parse(line))
	}
	return set
}

// First returns the first pattern matching subject, stopping there.
func (s Set) First(subject string, prepared bool) (Pattern, bool) {
	for _, p := range s {
		if p.Match(subject, prepared) {
			return p, true
		}
	}
	return Pattern{}, false
}

// Invalid returns the regex patterns that fell back to literal matching.
func (s Set) Invalid() []Pattern {
	var out []Pattern
	for _, p := range s {
		if p.Err != nil {
			out = append(out, p)
		}
	}
	return out
}

// Raw returns the configured text of every pattern.
func (s Set) Raw() []string {
	out := make([]string, 0, len(s))
	for _, p := range s {
		out = append(out, p.Raw)
	}
	return out
}
