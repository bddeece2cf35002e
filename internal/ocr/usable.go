package ocr

import (
	"unicode/utf8"

	"splitroom/internal/normalize"
)

const (
	// MinUsableChars is the minimum length after whitespace collapsing.
	MinUsableChars = 250
	// MinUsableLetters is the minimum count of [A-Za-zÀ-ÿ] letters.
	MinUsableLetters = 80
)

// IsUsable reports whether text looks like real bill content rather than
// an empty or mostly numeric extraction.
func IsUsable(text string) bool {
	t := normalize.CollapseSpace(text)
	if utf8.RuneCountInString(t) < MinUsableChars {
		return false
	}
	letters := 0
	for _, r := range t {
		if normalize.IsLatinLetter(r) {
			letters++
			if letters >= MinUsableLetters {
				return true
			}
		}
	}
	return false
}
