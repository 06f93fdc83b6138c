package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
)

// CandidateRetriever turns a query vector into the semantic shortlist.
type CandidateRetriever struct {
	index ports.VectorIndex
}

func NewCandidateRetriever(index ports.VectorIndex) *CandidateRetriever {
	return &CandidateRetriever{index: index}
}

// Retrieve returns at most candidateK candidates ordered by descending cosine
// score. An empty index yields an empty slice, not an error.
func (r *CandidateRetriever) Retrieve(ctx context.Context, queryVector []float32, candidateK int) ([]domain.Candidate, error) {
	if candidateK < 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "retrieve candidates", fmt.Errorf("candidate_k must be >= 1, got %d", candidateK))
	}

	size, err := r.index.Size(ctx)
	if err != nil {
		return nil, fmt.Errorf("vector index size: %w", err)
	}
	if size == 0 {
		return []domain.Candidate{}, nil
	}
	if candidateK > size {
		candidateK = size
	}

	candidates, err := r.index.Search(ctx, queryVector, candidateK)
	if err != nil {
		return nil, fmt.Errorf("search vector index: %w", err)
	}
	if len(candidates) > candidateK {
		candidates = candidates[:candidateK]
	}
	return candidates, nil
}
