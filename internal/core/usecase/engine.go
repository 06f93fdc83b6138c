package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"unicode/utf8"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
)

const defaultSnippetChars = 250

type EngineOptions struct {
	Threshold    float64
	GatePolicy   GatePolicy
	SnippetChars int
}

func DefaultEngineOptions() EngineOptions {
	return EngineOptions{
		Threshold:    DefaultAbstainThreshold,
		GatePolicy:   GateAll,
		SnippetChars: defaultSnippetChars,
	}
}

// FusionEngine answers a query from the immutable indices. It keeps no state
// between calls and is safe for concurrent use.
type FusionEngine struct {
	embedder  ports.Embedder
	retriever *CandidateRetriever
	scorer    *KeywordScorer
	tokenizer ports.Tokenizer
	store     ports.ChunkStore
	opts      EngineOptions
	logger    *slog.Logger
}

// Option configures a FusionEngine.
type Option func(*FusionEngine)

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *FusionEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func NewFusionEngine(
	embedder ports.Embedder,
	vectors ports.VectorIndex,
	keywords ports.KeywordIndex,
	tokenizer ports.Tokenizer,
	store ports.ChunkStore,
	opts EngineOptions,
	options ...Option,
) *FusionEngine {
	if opts.SnippetChars <= 0 {
		opts.SnippetChars = defaultSnippetChars
	}
	if opts.GatePolicy == "" {
		opts.GatePolicy = GateAll
	}

	e := &FusionEngine{
		embedder:  embedder,
		retriever: NewCandidateRetriever(vectors),
		scorer:    NewKeywordScorer(keywords),
		tokenizer: tokenizer,
		store:     store,
		opts:      opts,
		logger:    slog.Default(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// Hybrid re-ranks a cosine shortlist of candidateK by the fused score and
// returns the gated top topK.
//
// If ctx expires while chunks are being resolved, the results resolved so far
// are returned together with the context error.
func (e *FusionEngine) Hybrid(ctx context.Context, queryText string, topK, candidateK int, alpha float64) ([]domain.RankedResult, error) {
	if topK < 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "hybrid search", fmt.Errorf("top_k must be >= 1, got %d", topK))
	}
	if candidateK < topK {
		return nil, domain.WrapError(domain.ErrInvalidInput, "hybrid search", fmt.Errorf("candidate_k (%d) must be >= top_k (%d)", candidateK, topK))
	}
	if alpha < 0 || alpha > 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "hybrid search", fmt.Errorf("alpha must be in [0,1], got %v", alpha))
	}

	queryVector, err := e.encode(ctx, queryText)
	if err != nil {
		return nil, err
	}

	candidates, err := e.retriever.Retrieve(ctx, queryVector, candidateK)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return []domain.RankedResult{}, nil
	}

	keyword := e.scorer.Score(e.tokenizer.Tokenize(queryText), candidates)
	scored, err := fuseCandidates(candidates, keyword, alpha)
	if err != nil {
		return nil, err
	}
	if len(scored) > topK {
		scored = scored[:topK]
	}

	results := make([]domain.RankedResult, 0, len(scored))
	for _, sc := range scored {
		chunk, err := e.lookup(ctx, sc.ChunkID)
		if err != nil {
			return applyGate(results, e.opts.Threshold, e.opts.GatePolicy), err
		}
		results = append(results, domain.RankedResult{
			ChunkID:      chunk.ID,
			Title:        chunk.Title,
			URL:          chunk.URL,
			Snippet:      snippet(chunk.Text, e.opts.SnippetChars),
			FusedScore:   domain.Float64Ptr(sc.FusedScore),
			CosineScore:  domain.Float64Ptr(sc.CosineScore),
			KeywordScore: domain.Float64Ptr(sc.KeywordScore),
		})
	}

	e.logger.Debug("hybrid_ranked",
		"candidates", len(candidates),
		"returned", len(results),
		"alpha", alpha,
	)
	return applyGate(results, e.opts.Threshold, e.opts.GatePolicy), nil
}

// Semantic is the cosine-only baseline: top topK by vector similarity.
func (e *FusionEngine) Semantic(ctx context.Context, queryText string, topK int) ([]domain.RankedResult, error) {
	if topK < 1 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "semantic search", fmt.Errorf("top_k must be >= 1, got %d", topK))
	}

	queryVector, err := e.encode(ctx, queryText)
	if err != nil {
		return nil, err
	}

	candidates, err := e.retriever.Retrieve(ctx, queryVector, topK)
	if err != nil {
		return nil, err
	}

	results := make([]domain.RankedResult, 0, len(candidates))
	for _, c := range candidates {
		chunk, err := e.lookup(ctx, c.ChunkID)
		if err != nil {
			return applyGate(results, e.opts.Threshold, e.opts.GatePolicy), err
		}
		results = append(results, domain.RankedResult{
			ChunkID:     chunk.ID,
			Title:       chunk.Title,
			URL:         chunk.URL,
			Snippet:     snippet(chunk.Text, e.opts.SnippetChars),
			Score:       domain.Float64Ptr(c.CosineScore),
			CosineScore: domain.Float64Ptr(c.CosineScore),
		})
	}
	return applyGate(results, e.opts.Threshold, e.opts.GatePolicy), nil
}

func (e *FusionEngine) encode(ctx context.Context, queryText string) ([]float32, error) {
	vector, err := e.embedder.EmbedQuery(ctx, queryText)
	if err != nil {
		if isContextErr(err) || domain.IsKind(err, domain.ErrInvalidInput) {
			return nil, fmt.Errorf("embed query: %w", err)
		}
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, "embed query", err)
	}
	if len(vector) == 0 {
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, "embed query", errors.New("empty query vector"))
	}
	return vector, nil
}

func (e *FusionEngine) lookup(ctx context.Context, chunkID int64) (*domain.Chunk, error) {
	chunk, err := e.store.GetByID(ctx, chunkID)
	if err != nil {
		if isContextErr(err) || domain.IsKind(err, domain.ErrChunkNotFound) {
			return nil, fmt.Errorf("lookup chunk %d: %w", chunkID, err)
		}
		return nil, domain.WrapError(domain.ErrUpstreamUnavailable, fmt.Sprintf("lookup chunk %d", chunkID), err)
	}
	return chunk, nil
}

func isContextErr(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
}

func snippet(text string, maxChars int) *string {
	if maxChars <= 0 || utf8.RuneCountInString(text) <= maxChars {
		return &text
	}
	runes := []rune(text)
	out := string(runes[:maxChars]) + "..."
	return &out
}
