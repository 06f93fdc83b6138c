package flat

import (
	"context"
	"fmt"
	"sort"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

// Index is an exact inner-product index. With unit-normalized vectors the
// inner product is the cosine similarity.
type Index struct {
	model    string
	dim      int
	chunkIDs []int64
	vectors  [][]float32
}

func New(model string, chunkIDs []int64, vectors [][]float32) (*Index, error) {
	if len(chunkIDs) != len(vectors) {
		return nil, fmt.Errorf("flat index: %d chunk ids for %d vectors", len(chunkIDs), len(vectors))
	}
	dim := 0
	if len(vectors) > 0 {
		dim = len(vectors[0])
	}
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("flat index: vector %d has dimension %d, want %d", i, len(v), dim)
		}
	}
	return &Index{
		model:    model,
		dim:      dim,
		chunkIDs: chunkIDs,
		vectors:  vectors,
	}, nil
}

// Search scans every vector and returns the k best by descending inner
// product. Equal scores keep index order.
func (idx *Index) Search(ctx context.Context, queryVector []float32, k int) ([]domain.Candidate, error) {
	if len(idx.vectors) == 0 || k <= 0 {
		return []domain.Candidate{}, nil
	}
	if len(queryVector) != idx.dim {
		return nil, domain.WrapError(domain.ErrInvalidInput, "flat search",
			fmt.Errorf("query dimension %d, index dimension %d", len(queryVector), idx.dim))
	}

	out := make([]domain.Candidate, len(idx.vectors))
	for i, v := range idx.vectors {
		if i%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		out[i] = domain.Candidate{
			Position:    i,
			ChunkID:     idx.chunkIDs[i],
			CosineScore: float64(dot(queryVector, v)),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CosineScore > out[j].CosineScore
	})
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (idx *Index) Size(context.Context) (int, error) {
	return len(idx.chunkIDs), nil
}

func (idx *Index) ChunkIDAt(_ context.Context, position int) (int64, error) {
	if position < 0 || position >= len(idx.chunkIDs) {
		return 0, fmt.Errorf("flat index: position %d out of range [0,%d)", position, len(idx.chunkIDs))
	}
	return idx.chunkIDs[position], nil
}

func (idx *Index) Model() string { return idx.model }

func (idx *Index) Dimension() int { return idx.dim }

func dot(a, b []float32) float32 {
	var s float32
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}
