package normalize

import (
	"regexp"
	"strings"
	"unicode"
)

// Text normalizers used by the in-memory repository's keyword and
// autocomplete matchers (internal/repositories/facility) to keep
// incidental whitespace/casing/abbreviation differences in stored and
// queried text from defeating substring comparisons. Adapted from the
// teacher's pkg/normalizers registry (normalizers.Register/Apply),
// collapsed to the handful of functions this service actually needs rather
// than the full pluggable registry — the only callers are those two
// matchers, so the registry's indirection buys nothing here.

var multiSpace = regexp.MustCompile(`\s+`)

// Name lowercases, trims, and collapses whitespace in a facility name so
// trivial formatting differences don't defeat a keyword or autocomplete
// match.
func Name(s string) string {
	return collapseSpace(strings.ToLower(strings.TrimSpace(s)))
}

var addressAbbreviations = map[string]string{
	" street":    " st",
	" avenue":    " ave",
	" boulevard": " blvd",
	" drive":     " dr",
	" road":      " rd",
	" lane":      " ln",
	" court":     " ct",
	" circle":    " cir",
	" place":     " pl",
	" suite":     " ste",
	" north":     " n",
	" south":     " s",
	" east":      " e",
	" west":      " w",
}

// Address lowercases, abbreviates common street words, and collapses
// whitespace so "123 Main Street" and "123 main st" compare equal.
func Address(s string) string {
	s = " " + strings.ToLower(strings.TrimSpace(s)) + " "
	for full, abbr := range addressAbbreviations {
		s = strings.ReplaceAll(s, full, abbr)
	}
	return collapseSpace(strings.TrimSpace(s))
}

func collapseSpace(s string) string {
	return multiSpace.ReplaceAllString(s, " ")
}

// DigitsOnly keeps only digit runes, e.g. to reduce a postal code to its
// digits.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
