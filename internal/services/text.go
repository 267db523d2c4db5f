package services

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// whitespaceRE collapses consecutive whitespace to a single space.
var whitespaceRE = regexp.MustCompile(`\s+`)

// blankLinesRE squeezes runs of blank lines down to one paragraph break.
var blankLinesRE = regexp.MustCompile(`\n{3,}`)

// normalizeLine trims, NFC-normalizes and collapses whitespace to single spaces.
func normalizeLine(s string) string {
	return whitespaceRE.ReplaceAllString(strings.TrimSpace(norm.NFC.String(s)), " ")
}

// normalizeLetter NFC-normalizes a letter body, drops control characters other
// than newlines and tabs, trims each line and keeps paragraph breaks.
func normalizeLetter(s string) string {
	s = norm.NFC.String(strings.ReplaceAll(s, "\r\n", "\n"))
	s = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s)
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(ln)
	}
	return strings.TrimSpace(blankLinesRE.ReplaceAllString(strings.Join(lines, "\n"), "\n\n"))
}

// creatureName normalizes a creature name and capitalizes each word, so
// "  sir   puddle " becomes "Sir Puddle".
func creatureName(s string, locale language.Tag) string {
	s = normalizeLine(s)
	if s == "" {
		return ""
	}
	if locale == language.Und {
		locale = language.English
	}
	return cases.Title(locale, cases.NoLower).String(s)
}

// tooLong reports whether s exceeds limit runes; a non-positive limit disables the check.
func tooLong(s string, limit int) bool {
	return limit > 0 && utf8.RuneCountInString(s) > limit
}

// optional returns a pointer to s, or nil when s is blank.
func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
