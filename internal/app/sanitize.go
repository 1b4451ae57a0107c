package app

import (
	"strings"
	"unicode"

	"github.com/microcosm-cc/bluemonday"
)

// strictPolicy removes every HTML tag and attribute.
var strictPolicy = bluemonday.StrictPolicy()

// plainEntities decodes the entities the policy emits for characters that
// cannot form markup. &lt; and &gt; stay encoded so an escaped tag in the
// input never comes back out as a live one.
var plainEntities = strings.NewReplacer(
	"&amp;", "&",
	"&#39;", "'",
	"&#34;", `"`,
	"&quot;", `"`,
	"&#13;", "\r",
)

// cleanText strips markup and control characters from free text before it
// is stored, so "A & B" round-trips unchanged while "&lt;b&gt;" stays text.
func cleanText(s string) string {
	s = plainEntities.Replace(strictPolicy.Sanitize(s))
	s = strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' {
			return r
		}
		return -1
	}, s)
	return strings.TrimSpace(s)
}

// cleanOptional is cleanText for optional header fields.
func cleanOptional(s *string) *string {
	if s == nil {
		return nil
	}
	c := cleanText(*s)
	return &c
}
