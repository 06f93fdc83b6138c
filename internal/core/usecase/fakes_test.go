package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

type embedderFake struct {
	query  string
	calls  int
	vector []float32
	err    error
}

func (f *embedderFake) Embed(_ context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{float32(len(texts[i])), 1}
	}
	return out, nil
}

func (f *embedderFake) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	f.query = text
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.vector != nil {
		return f.vector, nil
	}
	return []float32{1, 0}, nil
}

// vectorIndexFake returns its candidates in the stored order.
type vectorIndexFake struct {
	candidates []domain.Candidate
	lastK      int
	err        error
}

func (f *vectorIndexFake) Search(_ context.Context, _ []float32, k int) ([]domain.Candidate, error) {
	f.lastK = k
	if f.err != nil {
		return nil, f.err
	}
	if k > len(f.candidates) {
		k = len(f.candidates)
	}
	out := make([]domain.Candidate, k)
	copy(out, f.candidates[:k])
	return out, nil
}

func (f *vectorIndexFake) Size(context.Context) (int, error) { return len(f.candidates), nil }

func (f *vectorIndexFake) ChunkIDAt(_ context.Context, pos int) (int64, error) {
	for _, c := range f.candidates {
		if c.Position == pos {
			return c.ChunkID, nil
		}
	}
	return 0, fmt.Errorf("position %d out of range", pos)
}

type keywordIndexFake struct {
	scores []float64
	ids    []int64
	tokens []string
}

func (f *keywordIndexFake) ScoreAll(tokens []string) []float64 {
	f.tokens = tokens
	out := make([]float64, len(f.scores))
	if len(tokens) == 0 {
		return out
	}
	copy(out, f.scores)
	return out
}

func (f *keywordIndexFake) Size() int { return len(f.scores) }

func (f *keywordIndexFake) ChunkIDAt(pos int) (int64, error) {
	if pos < 0 || pos >= len(f.ids) {
		return 0, fmt.Errorf("position %d out of range", pos)
	}
	return f.ids[pos], nil
}

type tokenizerFake struct{}

func (tokenizerFake) Tokenize(text string) []string {
	return strings.Fields(strings.ToLower(text))
}

// emptyTokenizer models a query made only of punctuation.
type emptyTokenizer struct{}

func (emptyTokenizer) Tokenize(string) []string { return []string{} }

type chunkStoreFake struct {
	chunks map[int64]domain.Chunk
	// failAfter makes every lookup past the first n return err.
	failAfter int
	failErr   error
	lookups   int
}

func (f *chunkStoreFake) GetByID(_ context.Context, id int64) (*domain.Chunk, error) {
	f.lookups++
	if f.failErr != nil && f.lookups > f.failAfter {
		return nil, f.failErr
	}
	c, ok := f.chunks[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrChunkNotFound, "get chunk", fmt.Errorf("id=%d", id))
	}
	return &c, nil
}

func newChunkStoreFake(ids ...int64) *chunkStoreFake {
	store := &chunkStoreFake{chunks: make(map[int64]domain.Chunk, len(ids))}
	for _, id := range ids {
		store.chunks[id] = domain.Chunk{
			ID:    id,
			Title: fmt.Sprintf("title-%d", id),
			URL:   fmt.Sprintf("https://example.org/%d", id),
			Text:  fmt.Sprintf("passage %d text", id),
		}
	}
	return store
}

// scenarioEngine wires the three-chunk corpus: cosine [0.9 0.9 0.1] and
// keyword [1 0 5].
func scenarioEngine(opts EngineOptions) (*FusionEngine, *embedderFake, *keywordIndexFake) {
	embedder := &embedderFake{}
	vectors := &vectorIndexFake{candidates: []domain.Candidate{
		{Position: 0, ChunkID: 100, CosineScore: 0.9},
		{Position: 1, ChunkID: 101, CosineScore: 0.9},
		{Position: 2, ChunkID: 102, CosineScore: 0.1},
	}}
	keywords := &keywordIndexFake{scores: []float64{1.0, 0.0, 5.0}, ids: []int64{100, 101, 102}}
	store := newChunkStoreFake(100, 101, 102)
	return NewFusionEngine(embedder, vectors, keywords, tokenizerFake{}, store, opts), embedder, keywords
}
