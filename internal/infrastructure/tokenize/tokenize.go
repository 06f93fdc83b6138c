package tokenize

import (
	"strings"
	"unicode"
)

// Words lowercases text and splits it into runs of letters and digits.
// Punctuation and whitespace separate tokens and are dropped.
type Words struct{}

func New() Words {
	return Words{}
}

func (Words) Tokenize(text string) []string {
	if text == "" {
		return []string{}
	}
	out := make([]string, 0, 24)
	var b strings.Builder
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}
