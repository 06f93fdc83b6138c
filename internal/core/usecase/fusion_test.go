package usecase

import (
	"math"
	"testing"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

const eps = 1e-9

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < eps
}

func TestNormalizeMinMaxMapsExtremesToUnitRange(t *testing.T) {
	raw := []float64{3.5, -1, 7, 2, 7, -1}
	got := NormalizeMinMax(raw)
	if len(got) != len(raw) {
		t.Fatalf("expected %d values, got %d", len(raw), len(got))
	}
	for i, v := range got {
		if v < 0 || v > 1 {
			t.Fatalf("value %d out of range: %v", i, v)
		}
	}
	if got[2] != 1 || got[4] != 1 {
		t.Fatalf("expected max inputs to map to 1, got %v", got)
	}
	if got[1] != 0 || got[5] != 0 {
		t.Fatalf("expected min inputs to map to 0, got %v", got)
	}
}

func TestNormalizeMinMaxDegenerateRangeIsHalf(t *testing.T) {
	for _, raw := range [][]float64{{0.05}, {0, 0, 0}, {4.2, 4.2}} {
		for i, v := range NormalizeMinMax(raw) {
			if v != 0.5 {
				t.Fatalf("input %v: value %d = %v, want 0.5", raw, i, v)
			}
		}
	}
}

func TestFuseScoresScenario(t *testing.T) {
	fused, err := FuseScores([]float64{0.9, 0.9, 0.1}, []float64{1.0, 0.0, 5.0}, 0.6)
	if err != nil {
		t.Fatalf("FuseScores() error = %v", err)
	}
	want := []float64{0.68, 0.6, 0.4}
	for i := range want {
		if !almostEqual(fused[i], want[i]) {
			t.Fatalf("fused[%d] = %v, want %v", i, fused[i], want[i])
		}
	}
}

func TestFuseScoresStaysInUnitRange(t *testing.T) {
	cos := []float64{0.91, 0.12, -0.3, 0.55, 0.55}
	kw := []float64{0, 12.5, 3.1, 0, 7}
	for _, alpha := range []float64{0, 0.1, 0.25, 0.5, 0.6, 0.9, 1} {
		fused, err := FuseScores(cos, kw, alpha)
		if err != nil {
			t.Fatalf("alpha=%v: FuseScores() error = %v", alpha, err)
		}
		for i, v := range fused {
			if v < 0 || v > 1 {
				t.Fatalf("alpha=%v: fused[%d] = %v out of range", alpha, i, v)
			}
		}
	}
}

func TestFuseScoresAlphaMonotonicity(t *testing.T) {
	// Candidate 0: cosine normalized 1, keyword normalized 0.
	cos := []float64{0.9, 0.1}
	kw := []float64{0, 4}

	prev := -1.0
	for _, alpha := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
		fused, err := FuseScores(cos, kw, alpha)
		if err != nil {
			t.Fatalf("FuseScores() error = %v", err)
		}
		if fused[0] <= prev {
			t.Fatalf("alpha=%v: fused[0]=%v did not increase over %v", alpha, fused[0], prev)
		}
		prev = fused[0]
	}

	prev = 2.0
	for _, alpha := range []float64{0, 0.2, 0.4, 0.6, 0.8, 1} {
		fused, _ := FuseScores(cos, kw, alpha)
		if fused[1] >= prev {
			t.Fatalf("alpha=%v: fused[1]=%v did not decrease below %v", alpha, fused[1], prev)
		}
		prev = fused[1]
	}
}

func TestFuseScoresRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name  string
		cos   []float64
		kw    []float64
		alpha float64
	}{
		{"alpha below zero", []float64{1}, []float64{1}, -0.1},
		{"alpha above one", []float64{1}, []float64{1}, 1.5},
		{"length mismatch", []float64{1, 2}, []float64{1}, 0.5},
		{"empty", nil, nil, 0.5},
	}
	for _, tc := range cases {
		if _, err := FuseScores(tc.cos, tc.kw, tc.alpha); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", tc.name, err)
		}
	}
}

func TestFuseCandidatesKeepsCandidateOrderOnTies(t *testing.T) {
	candidates := []domain.Candidate{
		{Position: 4, ChunkID: 40, CosineScore: 0.5},
		{Position: 2, ChunkID: 20, CosineScore: 0.5},
		{Position: 9, ChunkID: 90, CosineScore: 0.5},
	}
	keyword := map[int]float64{4: 1, 2: 1, 9: 1}

	scored, err := fuseCandidates(candidates, keyword, 0.6)
	if err != nil {
		t.Fatalf("fuseCandidates() error = %v", err)
	}
	for i, want := range []int64{40, 20, 90} {
		if scored[i].ChunkID != want {
			t.Fatalf("position %d: got chunk %d, want %d", i, scored[i].ChunkID, want)
		}
		if scored[i].FusedScore != 0.5 {
			t.Fatalf("expected degenerate fused score 0.5, got %v", scored[i].FusedScore)
		}
	}
}

func TestFuseCandidatesAttachesEveryScore(t *testing.T) {
	candidates := []domain.Candidate{
		{Position: 0, ChunkID: 1, CosineScore: 0.2},
		{Position: 1, ChunkID: 2, CosineScore: 0.8},
	}
	scored, err := fuseCandidates(candidates, map[int]float64{0: 3, 1: 1}, 0.5)
	if err != nil {
		t.Fatalf("fuseCandidates() error = %v", err)
	}
	if len(scored) != 2 {
		t.Fatalf("expected 2 scored candidates, got %d", len(scored))
	}
	for _, sc := range scored {
		if sc.ChunkID == 1 && sc.KeywordScore != 3 {
			t.Fatalf("chunk 1 keyword score = %v, want 3", sc.KeywordScore)
		}
		if sc.ChunkID == 2 && sc.KeywordScore != 1 {
			t.Fatalf("chunk 2 keyword score = %v, want 1", sc.KeywordScore)
		}
	}
}
