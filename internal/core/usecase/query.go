package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

type QueryDefaults struct {
	TopK        int
	CandidateK  int
	Alpha       float64
	Mode        domain.Mode
	AnswerChars int
	Timeout     time.Duration
}

func DefaultQueryDefaults() QueryDefaults {
	return QueryDefaults{
		TopK:        3,
		CandidateK:  30,
		Alpha:       DefaultAlpha,
		Mode:        domain.ModeSemantic,
		AnswerChars: 200,
	}
}

type QueryUseCase struct {
	engine   *FusionEngine
	defaults QueryDefaults
	logger   *slog.Logger
}

func NewQueryUseCase(engine *FusionEngine, defaults QueryDefaults, logger *slog.Logger) *QueryUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &QueryUseCase{
		engine:   engine,
		defaults: defaults,
		logger:   logger,
	}
}

// Ask runs one query in the requested mode and surfaces the top passage.
// When the query deadline expires the answer is marked partial instead of
// failing; client cancellation is returned as an error.
func (uc *QueryUseCase) Ask(ctx context.Context, query domain.Query) (*domain.Answer, error) {
	query, err := uc.withDefaults(query)
	if err != nil {
		return nil, err
	}

	if uc.defaults.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.defaults.Timeout)
		defer cancel()
	}

	start := time.Now()
	var results []domain.RankedResult
	switch query.Mode {
	case domain.ModeHybrid:
		results, err = uc.engine.Hybrid(ctx, query.Text, query.TopK, query.CandidateK, *query.Alpha)
	default:
		results, err = uc.engine.Semantic(ctx, query.Text, query.TopK)
	}

	partial := false
	if err != nil {
		if !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		partial = true
		if len(results) == 0 {
			results = []domain.RankedResult{abstain(domain.RankedResult{}, domain.AbstainDeadlineExceeded)}
		}
		uc.logger.Warn("qa_deadline_exceeded",
			"mode", string(query.Mode),
			"resolved", len(results),
			"error", err,
		)
	}
	if results == nil {
		results = []domain.RankedResult{}
	}

	answer := &domain.Answer{
		Answer:       buildAnswerText(results, uc.defaults.AnswerChars),
		Contexts:     results,
		RerankerUsed: query.Mode == domain.ModeHybrid,
		Partial:      partial,
	}

	uc.logger.Info("qa_answer",
		"mode", string(query.Mode),
		"top_k", query.TopK,
		"candidate_k", query.CandidateK,
		"contexts", len(results),
		"answered", answer.Answer != nil,
		"partial", partial,
		"duration_ms", float64(time.Since(start).Microseconds())/1000.0,
	)
	return answer, nil
}

func (uc *QueryUseCase) withDefaults(query domain.Query) (domain.Query, error) {
	query.Text = strings.TrimSpace(query.Text)
	if query.Text == "" {
		return query, domain.WrapError(domain.ErrInvalidInput, "ask", errors.New("question is required"))
	}

	if query.Mode == "" {
		query.Mode = uc.defaults.Mode
	}
	mode, ok := domain.ParseMode(string(query.Mode))
	if !ok {
		return query, domain.WrapError(domain.ErrInvalidInput, "ask", fmt.Errorf("unknown mode %q", query.Mode))
	}
	query.Mode = mode

	if query.TopK <= 0 {
		query.TopK = uc.defaults.TopK
	}
	if query.CandidateK <= 0 {
		query.CandidateK = max(uc.defaults.CandidateK, query.TopK)
	}
	if query.Alpha == nil {
		query.Alpha = domain.Float64Ptr(uc.defaults.Alpha)
	}
	return query, nil
}

// buildAnswerText quotes the top passage with its source, or returns nil when
// the top result abstained.
func buildAnswerText(results []domain.RankedResult, maxChars int) *string {
	if len(results) == 0 {
		return nil
	}
	top := results[0]
	if top.Abstained || top.Snippet == nil {
		return nil
	}

	text := *top.Snippet
	if maxChars > 0 && utf8.RuneCountInString(text) > maxChars {
		text = string([]rune(text)[:maxChars])
	}
	out := fmt.Sprintf("%s (Source: %s, %s)", text, top.Title, top.URL)
	return &out
}
