// Package moderation provides the courtesy masker applied to chat lines
// before they reach the partner. It is cosmetic: masked terms are replaced
// with asterisks of the same length and nothing is ever blocked.
package moderation

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// DefaultTerms is the built-in deny-list.
var DefaultTerms = []string{"spam", "scam", "hate"}

// Masker replaces deny-listed substrings case-insensitively. A Masker is
// immutable after construction and safe for concurrent use.
type Masker struct {
	patterns []*regexp.Regexp
}

// NewMasker creates a Masker for DefaultTerms.
func NewMasker() *Masker {
	return NewMaskerWithTerms(DefaultTerms)
}

// NewMaskerWithTerms creates a Masker for a custom term list. Blank terms are
// ignored. Terms are matched as plain substrings, not as patterns.
func NewMaskerWithTerms(terms []string) *Masker {
	m := &Masker{}
	for _, term := range terms {
		term = strings.TrimSpace(term)
		if term == "" {
			continue
		}
		m.patterns = append(m.patterns, regexp.MustCompile("(?i)"+regexp.QuoteMeta(term)))
	}
	return m
}

// Mask returns text with every deny-listed run replaced by '*' repeated to
// the run's length in characters, and whether anything was replaced. Terms
// are applied one after another in list order.
func (m *Masker) Mask(text string) (string, bool) {
	masked := false
	for _, re := range m.patterns {
		text = re.ReplaceAllStringFunc(text, func(match string) string {
			masked = true
			return strings.Repeat("*", utf8.RuneCountInString(match))
		})
	}
	return text, masked
}
