package bm25

import (
	"fmt"
	"math"
	"testing"
)

func corpus() ([]int64, [][]string) {
	return []int64{10, 11, 12, 13}, [][]string{
		{"lockout", "tagout", "energy", "control"},
		{"machine", "guarding", "point", "of", "operation"},
		{"lockout", "devices", "lockout", "procedures"},
		{"forklift", "training", "energy"},
	}
}

func TestScoreAllRanksTermFrequency(t *testing.T) {
	ids, docs := corpus()
	idx, err := New(ids, docs, DefaultParams())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	scores := idx.ScoreAll([]string{"lockout"})
	if len(scores) != 4 {
		t.Fatalf("expected 4 scores, got %d", len(scores))
	}
	if scores[1] != 0 || scores[3] != 0 {
		t.Fatalf("documents without the term must score 0, got %v", scores)
	}
	if scores[2] <= scores[0] {
		t.Fatalf("doc with two occurrences should outscore doc with one, got %v", scores)
	}
}

func TestScoreAllMatchesOkapiFormula(t *testing.T) {
	ids, docs := corpus()
	idx, _ := New(ids, docs, DefaultParams())

	// "forklift": df=1, N=4 => idf = ln(3.5) - ln(1.5); doc 3 has len 3, avg 4.
	idf := math.Log(3.5) - math.Log(1.5)
	want := idf * (1 * 2.5) / (1 + 1.5*(1-0.75+0.75*3.0/4.0))
	got := idx.ScoreAll([]string{"forklift"})[3]
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("score = %v, want %v", got, want)
	}
}

func TestNegativeIDFUsesEpsilonFloor(t *testing.T) {
	ids := []int64{1, 2, 3}
	docs := [][]string{{"safety", "a"}, {"safety", "b"}, {"safety", "c"}}
	idx, _ := New(ids, docs, DefaultParams())

	// "safety": df=3 => ln(0.5)-ln(3.5) < 0. a/b/c: df=1 => ln(2.5)-ln(1.5).
	raw := math.Log(0.5) - math.Log(3.5)
	rare := math.Log(2.5) - math.Log(1.5)
	floor := 0.25 * (raw + 3*rare) / 4

	got, ok := idx.IDF("safety")
	if !ok || math.Abs(got-floor) > 1e-12 {
		t.Fatalf("IDF(safety) = %v, want %v", got, floor)
	}
}

func TestUnknownAndRepeatedTokens(t *testing.T) {
	ids, docs := corpus()
	idx, _ := New(ids, docs, DefaultParams())

	if s := idx.ScoreAll([]string{"crane"}); s[0] != 0 || s[1] != 0 || s[2] != 0 || s[3] != 0 {
		t.Fatalf("unknown token must score 0, got %v", s)
	}
	once := idx.ScoreAll([]string{"training"})[3]
	twice := idx.ScoreAll([]string{"training", "training"})[3]
	if math.Abs(twice-2*once) > 1e-12 {
		t.Fatalf("repeated query token should count twice: %v vs %v", twice, once)
	}
}

func TestEmptyIndex(t *testing.T) {
	idx, err := New(nil, nil, DefaultParams())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if idx.Size() != 0 || len(idx.ScoreAll([]string{"x"})) != 0 {
		t.Fatalf("expected empty index")
	}
}

func TestChunkIDAt(t *testing.T) {
	ids, docs := corpus()
	idx, _ := New(ids, docs, DefaultParams())

	if id, err := idx.ChunkIDAt(2); err != nil || id != 12 {
		t.Fatalf("ChunkIDAt(2) = %d/%v", id, err)
	}
	if _, err := idx.ChunkIDAt(4); err == nil {
		t.Fatalf("expected out of range error")
	}
	if _, err := New([]int64{1}, nil, DefaultParams()); err == nil {
		t.Fatalf("expected length mismatch error")
	}
}

func TestEpsilonFloorIsStableAcrossBuilds(t *testing.T) {
	ids := make([]int64, 40)
	docs := make([][]string, 40)
	for i := range docs {
		ids[i] = int64(i + 1)
		docs[i] = []string{"common", "shared", fmt.Sprintf("rare%d", i), fmt.Sprintf("term%d", i%7)}
	}

	first, _ := New(ids, docs, DefaultParams())
	want, _ := first.IDF("common")
	for run := 0; run < 200; run++ {
		idx, _ := New(ids, docs, DefaultParams())
		got, _ := idx.IDF("common")
		if math.Float64bits(got) != math.Float64bits(want) {
			t.Fatalf("run %d: IDF(common) = %v (%x), want %v (%x)", run, got, math.Float64bits(got), want, math.Float64bits(want))
		}
	}
}

func TestScoreAllWithoutTokens(t *testing.T) {
	ids, docs := corpus()
	idx, _ := New(ids, docs, DefaultParams())

	scores := idx.ScoreAll(nil)
	if len(scores) != len(docs) {
		t.Fatalf("expected %d scores, got %d", len(docs), len(scores))
	}
	for i, s := range scores {
		if s != 0 {
			t.Fatalf("scores[%d] = %v, want 0", i, s)
		}
	}
}
