package heuristic

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
)

// Fold case folds s and replaces every run of characters that are not
// letters or digits with a single space, padding the result with spaces.
func Fold(s string) string {
	folded := cases.Fold().String(s)

	var b strings.Builder
	b.Grow(len(folded) + 2)
	b.WriteByte(' ')
	space := true
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

// ContainsPhrase reports whether phrase appears anywhere in folded, which
// must come from Fold. "vet" matches "vet clinic", "veterinary" and
// "velvet" alike; strip exclusions with Without first.
func ContainsPhrase(folded, phrase string) bool {
	p := strings.TrimSpace(Fold(phrase))
	if p == "" {
		return false
	}
	return strings.Contains(folded, p)
}

// Without blanks out every occurrence of phrases in folded.
func Without(folded string, phrases []string) string {
	for _, phrase := range phrases {
		if p := strings.TrimSpace(Fold(phrase)); p != "" {
			folded = strings.ReplaceAll(folded, p, " ")
		}
	}
	return folded
}
