package qdrant

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/resilience"
)

// Search returns the k nearest points by inner product, best first. Equal
// scores are ordered by position.
func (c *Client) Search(ctx context.Context, queryVector []float32, k int) ([]domain.Candidate, error) {
	if k <= 0 {
		return []domain.Candidate{}, nil
	}
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        k,
		"with_payload": true,
	}

	var resp struct {
		Result []struct {
			Score   float64      `json:"score"`
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	if err := c.do(ctx, "search", http.MethodPost, c.collectionURL("/points/search"), reqBody, &resp); err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(resp.Result))
	for _, r := range resp.Result {
		out = append(out, domain.Candidate{
			Position:    r.Payload.Position,
			ChunkID:     r.Payload.ChunkID,
			CosineScore: r.Score,
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CosineScore != out[j].CosineScore {
			return out[i].CosineScore > out[j].CosineScore
		}
		return out[i].Position < out[j].Position
	})
	return out, nil
}

// Size counts the collection once and caches the result; the collection is
// only rewritten by UpsertVectors.
func (c *Client) Size(ctx context.Context) (int, error) {
	c.sizeMu.Lock()
	defer c.sizeMu.Unlock()
	if c.sizeKnown {
		return c.size, nil
	}

	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := c.do(ctx, "count", http.MethodPost, c.collectionURL("/points/count"), map[string]any{"exact": true}, &resp)
	if err != nil {
		var statusErr *resilience.HTTPStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			return 0, nil
		}
		return 0, err
	}
	c.size = resp.Result.Count
	c.sizeKnown = true
	return c.size, nil
}

func (c *Client) ChunkIDAt(ctx context.Context, position int) (int64, error) {
	if position < 0 {
		return 0, fmt.Errorf("qdrant: negative position %d", position)
	}
	var resp struct {
		Result struct {
			Payload pointPayload `json:"payload"`
		} `json:"result"`
	}
	if err := c.do(ctx, "get_point", http.MethodGet, c.collectionURL(fmt.Sprintf("/points/%d", position)), nil, &resp); err != nil {
		return 0, err
	}
	if resp.Result.Payload.Position != position {
		return 0, fmt.Errorf("qdrant: point %d carries position %d", position, resp.Result.Payload.Position)
	}
	return resp.Result.Payload.ChunkID, nil
}

// UpsertVectors replaces the collection with one point per position.
func (c *Client) UpsertVectors(ctx context.Context, chunkIDs []int64, vectors [][]float32) error {
	if len(chunkIDs) != len(vectors) {
		return fmt.Errorf("qdrant: %d chunk ids for %d vectors", len(chunkIDs), len(vectors))
	}
	if len(vectors) == 0 {
		return nil
	}
	if err := c.recreateCollection(ctx, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      int          `json:"id"`
		Vector  []float32    `json:"vector"`
		Payload pointPayload `json:"payload"`
	}
	for start := 0; start < len(vectors); start += upsertBatchSize {
		end := min(start+upsertBatchSize, len(vectors))
		points := make([]point, 0, end-start)
		for pos := start; pos < end; pos++ {
			points = append(points, point{
				ID:      pos,
				Vector:  vectors[pos],
				Payload: pointPayload{ChunkID: chunkIDs[pos], Position: pos},
			})
		}
		if err := c.do(ctx, "upsert", http.MethodPut, c.collectionURL("/points?wait=true"), map[string]any{"points": points}, nil); err != nil {
			return err
		}
	}

	c.sizeMu.Lock()
	c.size, c.sizeKnown = len(vectors), true
	c.sizeMu.Unlock()
	return nil
}

func (c *Client) recreateCollection(ctx context.Context, vectorSize int) error {
	err := c.do(ctx, "delete_collection", http.MethodDelete, c.collectionURL(""), nil, nil)
	var statusErr *resilience.HTTPStatusError
	if err != nil && !(errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound) {
		return err
	}

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Dot",
		},
	}
	return c.do(ctx, "create_collection", http.MethodPut, c.collectionURL(""), reqBody, nil)
}
