// Package slug derives URL slugs from Vietnamese and English titles.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// QuestionTitleRunes is how much of a question title goes into its slug.
const QuestionTitleRunes = 50

var reNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Make lower-cases text, strips diacritics, maps đ to d and joins the
// remaining alphanumeric runs with single hyphens.
func Make(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))

	var b strings.Builder
	for _, r := range norm.NFD.String(text) {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		if r == 'đ' {
			r = 'd'
		}
		b.WriteRune(r)
	}

	s := reNonAlnum.ReplaceAllString(b.String(), "-")
	return strings.Trim(s, "-")
}

// WithID appends "-<id>" to the slug of text. When maxRunes is positive the
// text is cut to that many runes first. An empty base yields the id alone.
func WithID(text, id string, maxRunes int) string {
	if maxRunes > 0 {
		if rs := []rune(text); len(rs) > maxRunes {
			text = string(rs[:maxRunes])
		}
	}
	base := Make(text)
	if base == "" {
		return id
	}
	return base + "-" + id
}

// Question returns the slug of a question title with its id.
func Question(title, id string) string {
	return WithID(title, id, QuestionTitleRunes)
}
