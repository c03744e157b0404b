// Package pattern implements the dual literal/regex matching used for page
// indicators and URL path patterns.
//
// A pattern written between slashes ("/premium|exclusive/") is an
// ECMAScript regular expression compiled case-insensitively, so look-around
// and back-references work as they do in the browser. Anything else is a
// literal matched as a case-insensitive substring with whitespace
// collapsed. A regex whose body does not compile, or whose match runs past
// matchTimeout, falls back to literal matching of that body, so matching
// never fails.
package pattern

import (
	"fmt"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/JakeFAU/page-archiver/internal/textnorm"
)

const (
	regexOptions = regexp2.ECMAScript | regexp2.IgnoreCase
	matchTimeout = 250 * time.Millisecond
)

// Kind tags how a pattern was written.
type Kind int

// Pattern kinds.
const (
	Literal Kind = iota
	Regex
)

func (k Kind) String() string {
	if k == Regex {
		return "regex"
	}
	return "literal"
}

// Pattern is one parsed entry from a pattern list.
type Pattern struct {
	// Raw is the trimmed configuration text, delimiters included.
	Raw  string
	Kind Kind
	// Err is set when a regex body failed to compile; the pattern then
	// matches as a literal.
	Err error

	literal string
	re      *regexp2.Regexp
}

// Parse classifies and compiles raw. Surrounding whitespace is ignored.
func Parse(raw string) Pattern {
	raw = strings.TrimSpace(raw)
	p := Pattern{
		Raw:     raw,
		Kind:    Literal,
		literal: textnorm.Normalize(strings.ToLower(raw)),
	}
	if !isDelimited(raw) {
		return p
	}
	p.Kind = Regex
	body := raw[1 : len(raw)-1]
	// Any text containing the delimited form also contains the body.
	p.literal = textnorm.Normalize(strings.ToLower(body))
	re, err := regexp2.Compile(body, regexOptions)
	if err != nil {
		p.Err = fmt.Errorf("compile pattern %q: %w", raw, err)
		return p
	}
	re.MatchTimeout = matchTimeout
	p.re = re
	return p
}

func isDelimited(raw string) bool {
	return len(raw) >= 2 && strings.HasPrefix(raw, "/") && strings.HasSuffix(raw, "/")
}

// Fallback reports whether a regex pattern is being matched literally
// because its body did not compile.
func (p Pattern) Fallback() bool {
	return p.Kind == Regex && p.re == nil
}

// Match reports whether p occurs in subject. When prepared is true the
// subject is used without whitespace normalization, either because the
// caller already lower-cased and normalized it or because it must be
// matched raw (URLs). A regex that errors while matching is retried as a
// literal. An empty literal is contained in every subject and so matches.
func (p Pattern) Match(subject string, prepared bool) bool {
	if p.re != nil {
		if ok, err := p.re.MatchString(subject); err == nil {
			return ok
		}
	}
	if !prepared {
		subject = textnorm.Normalize(subject)
	}
	return strings.Contains(strings.ToLower(subject), p.literal)
}

func (p Pattern) String() string {
	return p.Raw
}
