package domain

import "strings"

type Mode string

const (
	ModeSemantic Mode = "semantic"
	ModeHybrid   Mode = "hybrid"
)

// ParseMode accepts the legacy "baseline" name as an alias of semantic mode.
func ParseMode(raw string) (Mode, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "semantic", "baseline":
		return ModeSemantic, true
	case "hybrid":
		return ModeHybrid, true
	default:
		return "", false
	}
}

const AbstainTitle = "ABSTAIN"

const (
	AbstainLowConfidence    = "low_confidence"
	AbstainNoScore          = "no_score"
	AbstainDeadlineExceeded = "deadline_exceeded"
)

// Candidate is one hit of the vector index. Position is the zero-based slot
// shared by the vector and keyword indices.
type Candidate struct {
	Position    int     `json:"position"`
	ChunkID     int64   `json:"chunk_id"`
	CosineScore float64 `json:"cos_score"`
}

type ScoredCandidate struct {
	Candidate
	KeywordScore float64 `json:"bm25_score"`
	FusedScore   float64 `json:"final_score"`
}

// RankedResult is the per-query output unit. Score fields are optional
// because semantic and hybrid modes expose different ones.
type RankedResult struct {
	ChunkID       int64    `json:"chunk_id"`
	Title         string   `json:"title"`
	URL           string   `json:"url"`
	Snippet       *string  `json:"chunk"`
	Score         *float64 `json:"score"`
	FusedScore    *float64 `json:"final_score"`
	CosineScore   *float64 `json:"cos_score"`
	KeywordScore  *float64 `json:"bm25_score"`
	Abstained     bool     `json:"abstained"`
	AbstainReason string   `json:"abstain_reason,omitempty"`
}

type Query struct {
	Text       string   `json:"text"`
	TopK       int      `json:"top_k"`
	CandidateK int      `json:"candidate_k"`
	Alpha      *float64 `json:"alpha,omitempty"`
	Mode       Mode     `json:"mode"`
}

type Answer struct {
	Answer       *string        `json:"answer"`
	Contexts     []RankedResult `json:"contexts"`
	RerankerUsed bool           `json:"reranker_used"`
	Partial      bool           `json:"partial"`
}

// EvalRecord compares the gated top-1 passage of both modes for one question.
type EvalRecord struct {
	Question       string  `json:"question"`
	BaselineTitle  string  `json:"baseline_title"`
	BaselineAnswer *string `json:"baseline_answer"`
	HybridTitle    string  `json:"hybrid_title"`
	HybridAnswer   *string `json:"hybrid_answer"`
}

func Float64Ptr(v float64) *float64 { return &v }

func StringPtr(v string) *string { return &v }
