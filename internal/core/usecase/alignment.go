package usecase

import (
	"context"
	"fmt"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
)

const DefaultAlignmentSamples = 16

// VerifyAlignment checks that the vector and keyword indices enumerate the
// same corpus: equal sizes, equal chunk ids at sampled positions, and every
// sampled id present in the chunk store. It returns the corpus size.
func VerifyAlignment(
	ctx context.Context,
	vectors ports.VectorIndex,
	keywords ports.KeywordIndex,
	store ports.ChunkStore,
	samples int,
) (int, error) {
	vectorSize, err := vectors.Size(ctx)
	if err != nil {
		return 0, fmt.Errorf("vector index size: %w", err)
	}
	keywordSize := keywords.Size()
	if vectorSize != keywordSize {
		return 0, domain.WrapError(domain.ErrAlignmentViolation, "verify alignment",
			fmt.Errorf("vector index has %d entries, keyword index has %d", vectorSize, keywordSize))
	}
	if vectorSize == 0 {
		return 0, nil
	}

	for _, pos := range samplePositions(vectorSize, samples) {
		vectorID, err := vectors.ChunkIDAt(ctx, pos)
		if err != nil {
			return 0, fmt.Errorf("vector chunk id at %d: %w", pos, err)
		}
		keywordID, err := keywords.ChunkIDAt(pos)
		if err != nil {
			return 0, domain.WrapError(domain.ErrAlignmentViolation, "verify alignment", fmt.Errorf("keyword chunk id at %d: %w", pos, err))
		}
		if vectorID != keywordID {
			return 0, domain.WrapError(domain.ErrAlignmentViolation, "verify alignment",
				fmt.Errorf("position %d maps to chunk %d in vector index and %d in keyword index", pos, vectorID, keywordID))
		}
		if _, err := store.GetByID(ctx, vectorID); err != nil {
			if domain.IsKind(err, domain.ErrChunkNotFound) {
				return 0, domain.WrapError(domain.ErrAlignmentViolation, "verify alignment", err)
			}
			return 0, fmt.Errorf("chunk store lookup %d: %w", vectorID, err)
		}
	}
	return vectorSize, nil
}

// samplePositions spreads up to n probes over [0, size), always including the
// first and last position.
func samplePositions(size, n int) []int {
	if n <= 0 {
		n = DefaultAlignmentSamples
	}
	if n >= size {
		out := make([]int, size)
		for i := range out {
			out[i] = i
		}
		return out
	}
	if n == 1 {
		return []int{0}
	}

	out := make([]int, 0, n)
	last := -1
	for i := 0; i < n; i++ {
		pos := i * (size - 1) / (n - 1)
		if pos != last {
			out = append(out, pos)
			last = pos
		}
	}
	return out
}
