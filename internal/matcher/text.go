package matcher

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const minWordLen = 4

// fold lowercases s and strips diacritics so "Café" matches "cafe".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

// containsFold reports whether needle occurs in haystack after folding.
// Both arguments must already be folded by the caller when hot.
func containsFold(haystack, needle string) bool {
	needle = strings.TrimSpace(needle)
	if needle == "" {
		return false
	}
	return strings.Contains(haystack, needle)
}

// phraseMatches reports whether a descriptive phrase appears in text, either
// whole or through any of its significant words.
func phraseMatches(text, phrase string) bool {
	phrase = fold(strings.TrimSpace(phrase))
	if phrase == "" {
		return false
	}
	if strings.Contains(text, phrase) {
		return true
	}
	for _, w := range strings.FieldsFunc(phrase, func(r rune) bool { return !unicode.IsLetter(r) }) {
		if len([]rune(w)) >= minWordLen && strings.Contains(text, w) {
			return true
		}
	}
	return false
}
