package usecase

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

func TestHybridRanksScenarioByFusedScore(t *testing.T) {
	engine, embedder, keywords := scenarioEngine(DefaultEngineOptions())

	results, err := engine.Hybrid(context.Background(), "Lockout Tagout", 3, 3, 0.6)
	if err != nil {
		t.Fatalf("Hybrid() error = %v", err)
	}
	if embedder.calls != 1 || embedder.query != "Lockout Tagout" {
		t.Fatalf("expected one query embedding, got calls=%d query=%q", embedder.calls, embedder.query)
	}
	if !reflect.DeepEqual(keywords.tokens, []string{"lockout", "tagout"}) {
		t.Fatalf("unexpected keyword tokens: %v", keywords.tokens)
	}

	wantIDs := []int64{100, 101, 102}
	wantFused := []float64{0.68, 0.6, 0.4}
	if len(results) != len(wantIDs) {
		t.Fatalf("expected %d results, got %d", len(wantIDs), len(results))
	}
	for i, r := range results {
		if r.ChunkID != wantIDs[i] {
			t.Fatalf("result %d: chunk %d, want %d", i, r.ChunkID, wantIDs[i])
		}
		if r.FusedScore == nil || !almostEqual(*r.FusedScore, wantFused[i]) {
			t.Fatalf("result %d: fused %v, want %v", i, r.FusedScore, wantFused[i])
		}
		if r.CosineScore == nil || r.KeywordScore == nil {
			t.Fatalf("result %d: expected cosine and keyword scores attached", i)
		}
		if r.Abstained {
			t.Fatalf("result %d unexpectedly abstained", i)
		}
	}
	if *results[2].KeywordScore != 5 {
		t.Fatalf("expected raw keyword score 5, got %v", *results[2].KeywordScore)
	}
}

func TestHybridTrimsToTopK(t *testing.T) {
	engine, _, _ := scenarioEngine(DefaultEngineOptions())

	results, err := engine.Hybrid(context.Background(), "q", 1, 3, 0.6)
	if err != nil {
		t.Fatalf("Hybrid() error = %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != 100 {
		t.Fatalf("expected only chunk 100, got %+v", results)
	}
}

func TestHybridIsDeterministic(t *testing.T) {
	engine, _, _ := scenarioEngine(DefaultEngineOptions())

	first, err := engine.Hybrid(context.Background(), "same query", 3, 3, 0.6)
	if err != nil {
		t.Fatalf("Hybrid() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		again, err := engine.Hybrid(context.Background(), "same query", 3, 3, 0.6)
		if err != nil {
			t.Fatalf("Hybrid() error = %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs:\nfirst=%+v\nagain=%+v", i, first, again)
		}
	}
}

func TestHybridSingleCandidateFusesToHalf(t *testing.T) {
	vectors := &vectorIndexFake{candidates: []domain.Candidate{{Position: 0, ChunkID: 7, CosineScore: 0.05}}}
	keywords := &keywordIndexFake{scores: []float64{0}, ids: []int64{7}}
	engine := NewFusionEngine(&embedderFake{}, vectors, keywords, tokenizerFake{}, newChunkStoreFake(7), DefaultEngineOptions())

	results, err := engine.Hybrid(context.Background(), "q", 1, 10, 0.6)
	if err != nil {
		t.Fatalf("Hybrid() error = %v", err)
	}
	if vectors.lastK != 1 {
		t.Fatalf("expected candidate_k clamped to corpus size, got %d", vectors.lastK)
	}
	if len(results) != 1 || *results[0].FusedScore != 0.5 || results[0].Abstained {
		t.Fatalf("expected a single non-abstained result at 0.5, got %+v", results)
	}
}

func TestSemanticLowScoreAbstains(t *testing.T) {
	vectors := &vectorIndexFake{candidates: []domain.Candidate{{Position: 0, ChunkID: 7, CosineScore: 0.05}}}
	keywords := &keywordIndexFake{scores: []float64{0}, ids: []int64{7}}
	engine := NewFusionEngine(&embedderFake{}, vectors, keywords, tokenizerFake{}, newChunkStoreFake(7), DefaultEngineOptions())

	results, err := engine.Semantic(context.Background(), "q", 1)
	if err != nil {
		t.Fatalf("Semantic() error = %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %d", len(results))
	}
	got := results[0]
	if !got.Abstained || got.Title != domain.AbstainTitle || got.Snippet != nil {
		t.Fatalf("expected abstention marker, got %+v", got)
	}
	if got.Score == nil || *got.Score != 0.05 {
		t.Fatalf("expected score 0.05 retained, got %v", got.Score)
	}
}

func TestSemanticReturnsCosineOrder(t *testing.T) {
	engine, _, keywords := scenarioEngine(DefaultEngineOptions())

	results, err := engine.Semantic(context.Background(), "q", 2)
	if err != nil {
		t.Fatalf("Semantic() error = %v", err)
	}
	if len(results) != 2 || results[0].ChunkID != 100 || results[1].ChunkID != 101 {
		t.Fatalf("unexpected order: %+v", results)
	}
	if results[0].FusedScore != nil || results[0].KeywordScore != nil {
		t.Fatalf("semantic results must not carry fused or keyword scores")
	}
	if keywords.tokens != nil {
		t.Fatalf("semantic mode must not consult the keyword index")
	}
}

func TestEmptyIndexReturnsEmptyResults(t *testing.T) {
	engine := NewFusionEngine(&embedderFake{}, &vectorIndexFake{}, &keywordIndexFake{}, tokenizerFake{}, newChunkStoreFake(), DefaultEngineOptions())

	hybrid, err := engine.Hybrid(context.Background(), "q", 3, 30, 0.6)
	if err != nil || hybrid == nil || len(hybrid) != 0 {
		t.Fatalf("expected empty hybrid results, got %v / %v", hybrid, err)
	}
	semantic, err := engine.Semantic(context.Background(), "q", 3)
	if err != nil || semantic == nil || len(semantic) != 0 {
		t.Fatalf("expected empty semantic results, got %v / %v", semantic, err)
	}
}

func TestHybridRejectsInvalidParameters(t *testing.T) {
	engine, embedder, _ := scenarioEngine(DefaultEngineOptions())

	cases := []struct {
		name       string
		topK       int
		candidateK int
		alpha      float64
	}{
		{"zero top_k", 0, 3, 0.6},
		{"candidate_k below top_k", 3, 2, 0.6},
		{"alpha below zero", 1, 3, -0.01},
		{"alpha above one", 1, 3, 1.01},
	}
	for _, tc := range cases {
		_, err := engine.Hybrid(context.Background(), "q", tc.topK, tc.candidateK, tc.alpha)
		if !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
	if embedder.calls != 0 {
		t.Fatalf("invalid parameters must fail before embedding, got %d calls", embedder.calls)
	}
}

func TestEmbedFailureIsUpstreamUnavailable(t *testing.T) {
	engine, embedder, _ := scenarioEngine(DefaultEngineOptions())
	embedder.err = errors.New("connection refused")

	_, err := engine.Hybrid(context.Background(), "q", 1, 3, 0.6)
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
	_, err = engine.Semantic(context.Background(), "q", 1)
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestEmptyQueryVectorIsUpstreamUnavailable(t *testing.T) {
	engine, embedder, _ := scenarioEngine(DefaultEngineOptions())
	embedder.vector = []float32{}

	_, err := engine.Semantic(context.Background(), "q", 1)
	if !domain.IsKind(err, domain.ErrUpstreamUnavailable) {
		t.Fatalf("expected ErrUpstreamUnavailable, got %v", err)
	}
}

func TestHybridDeadlineDuringLookupReturnsPrefix(t *testing.T) {
	embedder := &embedderFake{}
	vectors := &vectorIndexFake{candidates: []domain.Candidate{
		{Position: 0, ChunkID: 100, CosineScore: 0.9},
		{Position: 1, ChunkID: 101, CosineScore: 0.9},
		{Position: 2, ChunkID: 102, CosineScore: 0.1},
	}}
	keywords := &keywordIndexFake{scores: []float64{1, 0, 5}, ids: []int64{100, 101, 102}}
	store := newChunkStoreFake(100, 101, 102)
	store.failAfter = 1
	store.failErr = context.DeadlineExceeded
	engine := NewFusionEngine(embedder, vectors, keywords, tokenizerFake{}, store, DefaultEngineOptions())

	results, err := engine.Hybrid(context.Background(), "q", 3, 3, 0.6)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != 100 {
		t.Fatalf("expected resolved prefix [100], got %+v", results)
	}
}

func TestMissingChunkIsNotFound(t *testing.T) {
	vectors := &vectorIndexFake{candidates: []domain.Candidate{{Position: 0, ChunkID: 55, CosineScore: 0.8}}}
	keywords := &keywordIndexFake{scores: []float64{1}, ids: []int64{55}}
	engine := NewFusionEngine(&embedderFake{}, vectors, keywords, tokenizerFake{}, newChunkStoreFake(), DefaultEngineOptions())

	_, err := engine.Semantic(context.Background(), "q", 1)
	if !domain.IsKind(err, domain.ErrChunkNotFound) {
		t.Fatalf("expected ErrChunkNotFound, got %v", err)
	}
}

func TestSnippetTruncatesByRunes(t *testing.T) {
	if got := *snippet("short", 10); got != "short" {
		t.Fatalf("unexpected snippet %q", got)
	}
	if got := *snippet("Überprüfung", 4); got != "Über..." {
		t.Fatalf("unexpected snippet %q", got)
	}
}

func TestHybridEmptyQueryTokens(t *testing.T) {
	vectors := &vectorIndexFake{candidates: []domain.Candidate{
		{Position: 0, ChunkID: 100, CosineScore: 0.9},
		{Position: 1, ChunkID: 101, CosineScore: 0.5},
		{Position: 2, ChunkID: 102, CosineScore: 0.1},
	}}
	keywords := &keywordIndexFake{scores: []float64{3, 2, 1}, ids: []int64{100, 101, 102}}
	opts := DefaultEngineOptions()
	opts.Threshold = 0
	engine := NewFusionEngine(&embedderFake{}, vectors, keywords, emptyTokenizer{}, newChunkStoreFake(100, 101, 102), opts)

	const alpha = 0.6
	results, err := engine.Hybrid(context.Background(), "???", 3, 3, alpha)
	if err != nil {
		t.Fatalf("Hybrid() error = %v", err)
	}
	if len(keywords.tokens) != 0 {
		t.Fatalf("expected no query tokens, got %v", keywords.tokens)
	}

	wantIDs := []int64{100, 101, 102}
	cosN := []float64{1, 0.5, 0}
	if len(results) != len(wantIDs) {
		t.Fatalf("expected %d results, got %d", len(wantIDs), len(results))
	}
	for i, r := range results {
		if r.ChunkID != wantIDs[i] {
			t.Fatalf("result %d: chunk %d, want %d (cosine order)", i, r.ChunkID, wantIDs[i])
		}
		want := alpha*cosN[i] + (1-alpha)*0.5
		if r.FusedScore == nil || !almostEqual(*r.FusedScore, want) {
			t.Fatalf("result %d: fused %v, want %v", i, r.FusedScore, want)
		}
		if r.KeywordScore == nil || *r.KeywordScore != 0 {
			t.Fatalf("result %d: keyword score %v, want 0", i, r.KeywordScore)
		}
	}
}
