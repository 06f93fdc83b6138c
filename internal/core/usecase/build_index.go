package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
)

type BuildOptions struct {
	Model     string
	BatchSize int
	Workers   int
}

// BuildIndexUseCase builds both index snapshots from a single ordered scan of
// the chunk store, so position i refers to the same chunk in each of them.
type BuildIndexUseCase struct {
	repo      ports.ChunkRepository
	embedder  ports.Embedder
	tokenizer ports.Tokenizer
	writer    ports.IndexSnapshotWriter
	publisher ports.VectorPublisher
	opts      BuildOptions
	logger    *slog.Logger
}

func NewBuildIndexUseCase(
	repo ports.ChunkRepository,
	embedder ports.Embedder,
	tokenizer ports.Tokenizer,
	writer ports.IndexSnapshotWriter,
	publisher ports.VectorPublisher,
	opts BuildOptions,
	logger *slog.Logger,
) *BuildIndexUseCase {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 32
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &BuildIndexUseCase{
		repo:      repo,
		embedder:  embedder,
		tokenizer: tokenizer,
		writer:    writer,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
	}
}

func (uc *BuildIndexUseCase) Build(ctx context.Context) (int, error) {
	chunks, err := uc.repo.ListChunks(ctx)
	if err != nil {
		return 0, fmt.Errorf("list chunks: %w", err)
	}

	ids := make([]int64, len(chunks))
	texts := make([]string, len(chunks))
	tokens := make([][]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		texts[i] = c.Text
		tokens[i] = uc.tokenizer.Tokenize(c.Text)
	}

	vectors, err := uc.embedAll(ctx, texts)
	if err != nil {
		return 0, err
	}
	for _, v := range vectors {
		domain.NormalizeL2(v)
	}

	if err := uc.writer.SaveVectorSnapshot(uc.opts.Model, ids, vectors); err != nil {
		return 0, fmt.Errorf("save vector snapshot: %w", err)
	}
	if err := uc.writer.SaveKeywordSnapshot(ids, tokens); err != nil {
		return 0, fmt.Errorf("save keyword snapshot: %w", err)
	}
	if uc.publisher != nil {
		if err := uc.publisher.UpsertVectors(ctx, ids, vectors); err != nil {
			return 0, fmt.Errorf("publish vectors: %w", err)
		}
	}

	uc.logger.Info("index_built",
		"chunks", len(chunks),
		"model", uc.opts.Model,
		"published", uc.publisher != nil,
	)
	return len(chunks), nil
}

// embedAll embeds texts in batches on a bounded pool and keeps input order.
func (uc *BuildIndexUseCase) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	pool, err := ants.NewPool(uc.opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("create embedding pool: %w", err)
	}
	defer pool.Release()

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	setErr := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}

	for start := 0; start < len(texts); start += uc.opts.BatchSize {
		end := min(start+uc.opts.BatchSize, len(texts))
		wg.Add(1)
		submitErr := pool.Submit(func() {
			defer wg.Done()
			if ctx.Err() != nil {
				setErr(ctx.Err())
				return
			}
			vectors, err := uc.embedder.Embed(ctx, texts[start:end])
			if err != nil {
				setErr(fmt.Errorf("embed batch [%d:%d]: %w", start, end, err))
				return
			}
			if len(vectors) != end-start {
				setErr(fmt.Errorf("embed batch [%d:%d]: got %d vectors", start, end, len(vectors)))
				return
			}
			copy(out[start:end], vectors)
		})
		if submitErr != nil {
			wg.Done()
			setErr(fmt.Errorf("submit embedding batch: %w", submitErr))
			break
		}
	}
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}
