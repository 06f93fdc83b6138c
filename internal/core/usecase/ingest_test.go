package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

type chunkRepoFake struct {
	chunkStoreFake
	inserted  []domain.Chunk
	nextID    int64
	insertErr error
	listErr   error
}

func newChunkRepoFake() *chunkRepoFake {
	return &chunkRepoFake{chunkStoreFake: chunkStoreFake{chunks: map[int64]domain.Chunk{}}, nextID: 1}
}

func (f *chunkRepoFake) InsertChunks(_ context.Context, chunks []domain.Chunk) ([]int64, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	ids := make([]int64, 0, len(chunks))
	for _, c := range chunks {
		c.ID = f.nextID
		f.nextID++
		f.chunks[c.ID] = c
		f.inserted = append(f.inserted, c)
		ids = append(ids, c.ID)
	}
	return ids, nil
}

func (f *chunkRepoFake) ListChunks(context.Context) ([]domain.Chunk, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Chunk, len(f.inserted))
	copy(out, f.inserted)
	return out, nil
}

func (f *chunkRepoFake) Count(context.Context) (int, error) { return len(f.inserted), nil }

type extractorFake struct {
	texts map[string]string
	err   error
}

func (f *extractorFake) Extract(_ context.Context, src domain.Source) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.texts[src.Path], nil
}

// lineChunker emits one chunk per non-empty line.
type lineChunker struct{}

func (lineChunker) Split(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

func TestIngestStoresChunksPerSource(t *testing.T) {
	repo := newChunkRepoFake()
	extractor := &extractorFake{texts: map[string]string{
		"a.pdf":  "first\nsecond",
		"b.txt":  "third",
		"c.xlsx": "   ",
	}}
	uc := NewIngestCorpusUseCase(repo, extractor, lineChunker{}, nil)

	total, err := uc.Ingest(context.Background(), []domain.Source{
		{Title: "Guide A", URL: "https://example.org/a", Path: "a.pdf"},
		{Title: "Guide B", URL: "https://example.org/b", Path: "b.txt"},
		{Title: "Empty", Path: "c.xlsx"},
	})
	if err != nil {
		t.Fatalf("Ingest() error = %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 chunks, got %d", total)
	}
	if repo.inserted[0].Title != "Guide A" || repo.inserted[1].Text != "second" || repo.inserted[2].URL != "https://example.org/b" {
		t.Fatalf("unexpected chunks: %+v", repo.inserted)
	}
}

func TestIngestRejectsIncompleteSource(t *testing.T) {
	uc := NewIngestCorpusUseCase(newChunkRepoFake(), &extractorFake{}, lineChunker{}, nil)

	_, err := uc.Ingest(context.Background(), []domain.Source{{Title: "no path"}})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestIngestPropagatesFailures(t *testing.T) {
	extractErr := errors.New("corrupt pdf")
	uc := NewIngestCorpusUseCase(newChunkRepoFake(), &extractorFake{err: extractErr}, lineChunker{}, nil)
	if _, err := uc.Ingest(context.Background(), []domain.Source{{Title: "t", Path: "p.pdf"}}); !errors.Is(err, extractErr) {
		t.Fatalf("expected extract error, got %v", err)
	}

	repo := newChunkRepoFake()
	repo.insertErr = errors.New("db down")
	uc = NewIngestCorpusUseCase(repo, &extractorFake{texts: map[string]string{"p": "x"}}, lineChunker{}, nil)
	if _, err := uc.Ingest(context.Background(), []domain.Source{{Title: "t", Path: "p"}}); !errors.Is(err, repo.insertErr) {
		t.Fatalf("expected insert error, got %v", err)
	}
}
