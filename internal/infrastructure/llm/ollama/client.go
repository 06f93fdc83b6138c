package ollama

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/resilience"
)

// Embedder encodes text with an Ollama embedding model. Vectors are returned
// unit-normalized so inner product equals cosine similarity.
type Embedder struct {
	baseURL    string
	model      string
	httpClient *http.Client
	executor   *resilience.Executor
}

type Option func(*Embedder)

func WithHTTPClient(client *http.Client) Option {
	return func(e *Embedder) {
		if client != nil {
			e.httpClient = client
		}
	}
}

func WithExecutor(executor *resilience.Executor) Option {
	return func(e *Embedder) {
		e.executor = executor
	}
}

func New(baseURL, model string, opts ...Option) *Embedder {
	e := &Embedder{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	request := map[string]any{
		"model": e.model,
		"input": texts,
	}
	vectors, err := resilience.Call(ctx, e.executor, "ollama.embed", func(ctx context.Context) ([][]float32, error) {
		var response struct {
			Embeddings [][]float32 `json:"embeddings"`
		}
		if err := e.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
			return nil, err
		}
		return response.Embeddings, nil
	}, resilience.ClassifyHTTP)
	if err != nil {
		return nil, resilience.WrapTemporary("ollama embed", err, resilience.ClassifyHTTP)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d vectors for %d inputs", len(vectors), len(texts))
	}
	for _, v := range vectors {
		domain.NormalizeL2(v)
	}
	return vectors, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed query", errors.New("empty text"))
	}
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}
