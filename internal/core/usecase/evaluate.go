package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

// Evaluator compares the gated top-1 passage of semantic and hybrid mode for
// a list of questions.
type Evaluator struct {
	engine     *FusionEngine
	candidateK int
	alpha      float64
	logger     *slog.Logger
}

func NewEvaluator(engine *FusionEngine, candidateK int, alpha float64, logger *slog.Logger) *Evaluator {
	if candidateK < 1 {
		candidateK = 30
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Evaluator{
		engine:     engine,
		candidateK: candidateK,
		alpha:      alpha,
		logger:     logger,
	}
}

func (e *Evaluator) Run(ctx context.Context, questions []string) ([]domain.EvalRecord, error) {
	out := make([]domain.EvalRecord, 0, len(questions))
	for i, q := range questions {
		baseline, err := e.engine.Semantic(ctx, q, 1)
		if err != nil {
			return out, fmt.Errorf("question %d semantic: %w", i, err)
		}
		hybrid, err := e.engine.Hybrid(ctx, q, 1, e.candidateK, e.alpha)
		if err != nil {
			return out, fmt.Errorf("question %d hybrid: %w", i, err)
		}

		record := domain.EvalRecord{Question: q}
		if record.BaselineTitle, record.BaselineAnswer, err = e.topPassage(ctx, baseline); err != nil {
			return out, fmt.Errorf("question %d semantic: %w", i, err)
		}
		if record.HybridTitle, record.HybridAnswer, err = e.topPassage(ctx, hybrid); err != nil {
			return out, fmt.Errorf("question %d hybrid: %w", i, err)
		}
		out = append(out, record)

		e.logger.Info("eval_question",
			"index", i,
			"baseline_title", record.BaselineTitle,
			"hybrid_title", record.HybridTitle,
		)
	}
	return out, nil
}

// topPassage records the full chunk text of the top result, not its snippet.
func (e *Evaluator) topPassage(ctx context.Context, results []domain.RankedResult) (string, *string, error) {
	if len(results) == 0 || results[0].Abstained {
		return domain.AbstainTitle, nil, nil
	}
	chunk, err := e.engine.lookup(ctx, results[0].ChunkID)
	if err != nil {
		return "", nil, err
	}
	return results[0].Title, &chunk.Text, nil
}
