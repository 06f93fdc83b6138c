package ports

import (
	"context"
	"io"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

// Embedder builds unit-normalized vectors for chunks and query text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the immutable nearest-neighbor index over chunk vectors.
// Search returns candidates ordered by descending inner product.
type VectorIndex interface {
	Search(ctx context.Context, queryVector []float32, k int) ([]domain.Candidate, error)
	Size(ctx context.Context) (int, error)
	ChunkIDAt(ctx context.Context, position int) (int64, error)
}

// KeywordIndex scores a tokenized query against every indexed document.
// Scores are aligned to the same positions as the VectorIndex.
type KeywordIndex interface {
	ScoreAll(tokens []string) []float64
	Size() int
	ChunkIDAt(position int) (int64, error)
}

// Tokenizer must be the same one used when the keyword index was built.
type Tokenizer interface {
	Tokenize(text string) []string
}

// ChunkStore resolves chunk metadata by id.
type ChunkStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Chunk, error)
}

// ChunkRepository is the writable chunk store used by offline ingestion and index builds.
type ChunkRepository interface {
	ChunkStore
	InsertChunks(ctx context.Context, chunks []domain.Chunk) ([]int64, error)
	ListChunks(ctx context.Context) ([]domain.Chunk, error)
	Count(ctx context.Context) (int, error)
}

// ObjectStorage opens corpus source files.
type ObjectStorage interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// TextExtractor extracts plain text from a corpus source.
type TextExtractor interface {
	Extract(ctx context.Context, src domain.Source) (string, error)
}

// Chunker splits text into passages.
type Chunker interface {
	Split(text string) []string
}

// VectorPublisher receives freshly built vectors, e.g. a remote vector database.
type VectorPublisher interface {
	UpsertVectors(ctx context.Context, chunkIDs []int64, vectors [][]float32) error
}

// IndexSnapshotWriter persists offline-built index snapshots. Both snapshots
// must come from the same ordered scan of the chunk store.
type IndexSnapshotWriter interface {
	SaveVectorSnapshot(model string, chunkIDs []int64, vectors [][]float32) error
	SaveKeywordSnapshot(chunkIDs []int64, tokens [][]string) error
}
