// Package sanitize cleans free text before it is stored or sent to an AI prompt.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

var (
	htmlTagRegex    = regexp.MustCompile(`<[^>]*>`)
	whitespaceRegex = regexp.MustCompile(`[ \t\r\f\v]+`)
	blankLinesRegex = regexp.MustCompile(`\n{3,}`)
)

var entityReplacer = strings.NewReplacer(
	"&lt;", "<",
	"&gt;", ">",
	"&amp;", "&",
	"&quot;", "\"",
	"&#39;", "'",
	"&nbsp;", " ",
)

// Text strips markup, decodes common entities and collapses runs of spaces.
// Line breaks are kept so merged notes stay readable.
func Text(s string) string {
	out := htmlTagRegex.ReplaceAllString(s, "")
	out = entityReplacer.Replace(out)
	// Entities may have hidden tags.
	out = htmlTagRegex.ReplaceAllString(out, "")
	out = whitespaceRegex.ReplaceAllString(out, " ")
	out = blankLinesRegex.ReplaceAllString(out, "\n\n")
	return strings.TrimSpace(out)
}

// Truncate shortens s to at most max runes, appending an ellipsis when cut.
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "…"
}
