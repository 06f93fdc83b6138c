package bm25

import (
	"fmt"
	"math"
)

const (
	DefaultK1      = 1.5
	DefaultB       = 0.75
	DefaultEpsilon = 0.25
)

type Params struct {
	K1      float64
	B       float64
	Epsilon float64
}

func DefaultParams() Params {
	return Params{K1: DefaultK1, B: DefaultB, Epsilon: DefaultEpsilon}
}

// Index is an Okapi BM25 index over tokenized documents. Position i holds the
// document of chunkIDs[i]. The index is read-only after construction.
type Index struct {
	params   Params
	chunkIDs []int64
	termFreq []map[string]int
	docLen   []float64
	avgLen   float64
	idf      map[string]float64
}

// New builds the index. Terms whose idf comes out negative (present in more
// than half the documents) get epsilon times the average idf instead.
func New(chunkIDs []int64, docs [][]string, params Params) (*Index, error) {
	if len(chunkIDs) != len(docs) {
		return nil, fmt.Errorf("bm25: %d chunk ids for %d documents", len(chunkIDs), len(docs))
	}

	idx := &Index{
		params:   params,
		chunkIDs: append([]int64(nil), chunkIDs...),
		termFreq: make([]map[string]int, len(docs)),
		docLen:   make([]float64, len(docs)),
		idf:      make(map[string]float64),
	}

	docFreq := make(map[string]int)
	// Terms in order of first occurrence; the idf sum runs in this order so the
	// floor is identical across builds.
	terms := make([]string, 0)
	total := 0
	for i, doc := range docs {
		tf := make(map[string]int, len(doc))
		for _, term := range doc {
			if _, counted := tf[term]; counted {
				continue
			}
			if docFreq[term] == 0 {
				terms = append(terms, term)
			}
			docFreq[term]++
			tf[term] = 0
		}
		for _, term := range doc {
			tf[term]++
		}
		idx.termFreq[i] = tf
		idx.docLen[i] = float64(len(doc))
		total += len(doc)
	}
	if len(docs) == 0 {
		return idx, nil
	}
	idx.avgLen = float64(total) / float64(len(docs))

	n := float64(len(docs))
	var idfSum float64
	negative := make([]string, 0)
	for _, term := range terms {
		df := docFreq[term]
		v := math.Log(n-float64(df)+0.5) - math.Log(float64(df)+0.5)
		idx.idf[term] = v
		idfSum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}
	floor := params.Epsilon * idfSum / float64(len(idx.idf))
	for _, term := range negative {
		idx.idf[term] = floor
	}
	return idx, nil
}

// ScoreAll returns one score per indexed document. Each query token counts as
// often as it occurs; unknown tokens add nothing.
func (idx *Index) ScoreAll(tokens []string) []float64 {
	scores := make([]float64, len(idx.termFreq))
	k1, b := idx.params.K1, idx.params.B
	for _, term := range tokens {
		idf, ok := idx.idf[term]
		if !ok {
			continue
		}
		for i, tf := range idx.termFreq {
			freq := float64(tf[term])
			if freq == 0 {
				continue
			}
			lenRatio := 0.0
			if idx.avgLen > 0 {
				lenRatio = idx.docLen[i] / idx.avgLen
			}
			scores[i] += idf * (freq * (k1 + 1)) / (freq + k1*(1-b+b*lenRatio))
		}
	}
	return scores
}

func (idx *Index) Size() int {
	return len(idx.chunkIDs)
}

func (idx *Index) ChunkIDAt(position int) (int64, error) {
	if position < 0 || position >= len(idx.chunkIDs) {
		return 0, fmt.Errorf("bm25: position %d out of range [0,%d)", position, len(idx.chunkIDs))
	}
	return idx.chunkIDs[position], nil
}

// IDF reports the smoothed idf of term.
func (idx *Index) IDF(term string) (float64, bool) {
	v, ok := idx.idf[term]
	return v, ok
}
