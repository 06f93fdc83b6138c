package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
)

// IngestCorpusUseCase splits manifest sources into chunks and stores them.
// It runs offline, before the indices are built.
type IngestCorpusUseCase struct {
	repo      ports.ChunkRepository
	extractor ports.TextExtractor
	chunker   ports.Chunker
	logger    *slog.Logger
}

func NewIngestCorpusUseCase(
	repo ports.ChunkRepository,
	extractor ports.TextExtractor,
	chunker ports.Chunker,
	logger *slog.Logger,
) *IngestCorpusUseCase {
	if logger == nil {
		logger = slog.Default()
	}
	return &IngestCorpusUseCase{
		repo:      repo,
		extractor: extractor,
		chunker:   chunker,
		logger:    logger,
	}
}

func (uc *IngestCorpusUseCase) Ingest(ctx context.Context, sources []domain.Source) (int, error) {
	total := 0
	for i, src := range sources {
		if strings.TrimSpace(src.Path) == "" || strings.TrimSpace(src.Title) == "" {
			return total, domain.WrapError(domain.ErrInvalidInput, "ingest", fmt.Errorf("source %d needs title and path", i))
		}

		text, err := uc.extractor.Extract(ctx, src)
		if err != nil {
			return total, fmt.Errorf("extract %s: %w", src.Path, err)
		}

		pieces := uc.chunker.Split(text)
		if len(pieces) == 0 {
			uc.logger.Warn("source_empty", "title", src.Title, "path", src.Path)
			continue
		}

		chunks := make([]domain.Chunk, 0, len(pieces))
		for _, p := range pieces {
			chunks = append(chunks, domain.Chunk{
				Title: src.Title,
				URL:   src.URL,
				Text:  p,
			})
		}

		ids, err := uc.repo.InsertChunks(ctx, chunks)
		if err != nil {
			return total, fmt.Errorf("insert chunks for %s: %w", src.Path, err)
		}
		if len(ids) != len(chunks) {
			return total, errors.New("chunk store returned fewer ids than chunks inserted")
		}
		total += len(ids)

		uc.logger.Info("source_ingested",
			"title", src.Title,
			"path", src.Path,
			"chunks", len(ids),
		)
	}
	return total, nil
}
