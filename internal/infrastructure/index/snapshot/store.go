package snapshot

import (
	"fmt"
	"path/filepath"

	"github.com/kirillkom/hybrid-qa/internal/infrastructure/index/bm25"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/index/flat"
)

const (
	VectorFile  = "vectors.gob"
	KeywordFile = "keyword.gob"
)

type vectorSnapshot struct {
	Model     string
	Dimension int
	ChunkIDs  []int64
	Vectors   [][]float32
}

type keywordSnapshot struct {
	ChunkIDs []int64
	Docs     [][]string
}

// Store reads and writes the index snapshots under one directory.
type Store struct {
	dir string
}

func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) SaveVectorSnapshot(model string, chunkIDs []int64, vectors [][]float32) error {
	if len(chunkIDs) != len(vectors) {
		return fmt.Errorf("vector snapshot: %d chunk ids for %d vectors", len(chunkIDs), len(vectors))
	}
	snap := vectorSnapshot{Model: model, ChunkIDs: chunkIDs, Vectors: vectors}
	if len(vectors) > 0 {
		snap.Dimension = len(vectors[0])
	}
	return saveGob(filepath.Join(s.dir, VectorFile), snap)
}

func (s *Store) SaveKeywordSnapshot(chunkIDs []int64, docs [][]string) error {
	if len(chunkIDs) != len(docs) {
		return fmt.Errorf("keyword snapshot: %d chunk ids for %d documents", len(chunkIDs), len(docs))
	}
	return saveGob(filepath.Join(s.dir, KeywordFile), keywordSnapshot{ChunkIDs: chunkIDs, Docs: docs})
}

// LoadVectorIndex loads the flat vector index. An expectModel other than ""
// must match the model the snapshot was built with.
func (s *Store) LoadVectorIndex(expectModel string) (*flat.Index, error) {
	var snap vectorSnapshot
	if err := loadGob(filepath.Join(s.dir, VectorFile), &snap); err != nil {
		return nil, err
	}
	if expectModel != "" && snap.Model != "" && snap.Model != expectModel {
		return nil, fmt.Errorf("vector snapshot built with model %q, configured model is %q", snap.Model, expectModel)
	}
	return flat.New(snap.Model, snap.ChunkIDs, snap.Vectors)
}

// LoadKeywordIndex rebuilds the BM25 index from the tokenized documents.
func (s *Store) LoadKeywordIndex(params bm25.Params) (*bm25.Index, error) {
	var snap keywordSnapshot
	if err := loadGob(filepath.Join(s.dir, KeywordFile), &snap); err != nil {
		return nil, err
	}
	return bm25.New(snap.ChunkIDs, snap.Docs, params)
}

// LoadChunkIDs returns the vector snapshot's position to chunk id mapping.
func (s *Store) LoadChunkIDs() ([]int64, error) {
	var snap vectorSnapshot
	if err := loadGob(filepath.Join(s.dir, VectorFile), &snap); err != nil {
		return nil, err
	}
	return snap.ChunkIDs, nil
}
