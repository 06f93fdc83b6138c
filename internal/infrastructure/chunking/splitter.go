package chunking

import "strings"

const DefaultMaxWords = 350

// Packer groups paragraphs into chunks of at most MaxWords words. A paragraph
// is never split, so a single paragraph longer than MaxWords becomes its own
// oversized chunk.
type Packer struct {
	MaxWords int
}

func NewPacker(maxWords int) *Packer {
	if maxWords <= 0 {
		maxWords = DefaultMaxWords
	}
	return &Packer{MaxWords: maxWords}
}

// Split breaks text on blank lines and greedily packs the paragraphs' words.
// Words inside a chunk are joined with single spaces.
func (p *Packer) Split(text string) []string {
	out := make([]string, 0)
	current := make([]string, 0, p.MaxWords)

	for _, para := range strings.Split(text, "\n\n") {
		words := strings.Fields(para)
		if len(words) == 0 {
			continue
		}
		if len(current) > 0 && len(current)+len(words) > p.MaxWords {
			out = append(out, strings.Join(current, " "))
			current = current[:0]
		}
		current = append(current, words...)
	}
	if len(current) > 0 {
		out = append(out, strings.Join(current, " "))
	}
	return out
}
