package ports

import (
	"context"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

// QuestionAnswerer is the inbound contract for retrieval-based question answering.
type QuestionAnswerer interface {
	Ask(ctx context.Context, query domain.Query) (*domain.Answer, error)
}

// CorpusIngestor loads sources into the chunk store.
type CorpusIngestor interface {
	Ingest(ctx context.Context, sources []domain.Source) (int, error)
}

// IndexBuilder builds the offline vector and keyword index snapshots.
type IndexBuilder interface {
	Build(ctx context.Context) (int, error)
}
