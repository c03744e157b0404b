// Package textnorm collapses whitespace so text matching survives
// line-wrapping and indentation differences in page content.
package textnorm

import "strings"

// Normalize replaces every run of whitespace (spaces, tabs, newlines and
// other Unicode spaces) with a single space and trims both ends.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
