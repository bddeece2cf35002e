// Package normalize parses European-formatted amounts and Portuguese dates,
// and folds bill text for keyword matching.
//
// Every function here is pure and safe for concurrent use. Absence of a
// value is reported with ok == false, never with a zero sentinel.
package normalize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// StripDiacritics removes combining marks ("faturação" -> "faturacao").
func StripDiacritics(s string) string {
	// transform.Chain keeps state, so build one per call.
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// Fold lower-cases s and strips diacritics.
func Fold(s string) string {
	return strings.ToLower(StripDiacritics(s))
}

// CollapseSpace replaces every whitespace run with one space and trims.
func CollapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// AlphaNumeric keeps only ASCII letters and digits. Used for tax-ID matching
// where OCR may insert spaces or dots inside the number.
func AlphaNumeric(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsLatinLetter reports whether r is in [A-Za-zÀ-ÿ].
func IsLatinLetter(r rune) bool {
	return (r >= 'A' && r <= 'Z') || (r >= 'a' && r <= 'z') || (r >= 0xC0 && r <= 0xFF)
}
