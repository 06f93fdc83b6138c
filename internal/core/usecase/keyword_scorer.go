package usecase

import (
	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
)

// KeywordScorer scores the semantic shortlist with the keyword index.
//
// The keyword index only knows how to score the whole corpus, so every query
// pays O(corpus) here and the result is then cut down to the candidates.
type KeywordScorer struct {
	index ports.KeywordIndex
}

func NewKeywordScorer(index ports.KeywordIndex) *KeywordScorer {
	return &KeywordScorer{index: index}
}

// Score returns one keyword score per candidate position. Positions the
// keyword index does not cover score 0.
func (s *KeywordScorer) Score(queryTokens []string, candidates []domain.Candidate) map[int]float64 {
	out := make(map[int]float64, len(candidates))
	if len(candidates) == 0 {
		return out
	}

	all := s.index.ScoreAll(queryTokens)
	for _, c := range candidates {
		if c.Position < 0 || c.Position >= len(all) {
			out[c.Position] = 0
			continue
		}
		out[c.Position] = all[c.Position]
	}
	return out
}
