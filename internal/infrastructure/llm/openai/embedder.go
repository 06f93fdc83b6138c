package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/resilience"
)

// Embedder encodes text through any OpenAI-compatible embeddings endpoint.
type Embedder struct {
	client   *openai.Client
	model    string
	executor *resilience.Executor
}

func New(apiKey, baseURL, model string, executor *resilience.Executor) (*Embedder, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("OPENAI_API_KEY is required for the openai embed provider")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	return &Embedder{
		client:   openai.NewClientWithConfig(cfg),
		model:    model,
		executor: executor,
	}, nil
}

func (e *Embedder) Model() string { return e.model }

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	resp, err := resilience.Call(ctx, e.executor, "openai.embed", func(ctx context.Context) (openai.EmbeddingResponse, error) {
		return e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Model: openai.EmbeddingModel(e.model),
			Input: texts,
		})
	}, classify)
	if err != nil {
		return nil, resilience.WrapTemporary("openai embed", err, classify)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai embed: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(texts))
	for _, item := range resp.Data {
		if item.Index < 0 || item.Index >= len(out) {
			return nil, fmt.Errorf("openai embed: index %d out of range", item.Index)
		}
		v := make([]float32, len(item.Embedding))
		for i := range item.Embedding {
			v[i] = float32(item.Embedding[i])
		}
		out[item.Index] = domain.NormalizeL2(v)
	}
	return out, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "embed query", errors.New("empty text"))
	}
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors[0]) == 0 {
		return nil, errors.New("empty embedding result")
	}
	return vectors[0], nil
}

func classify(err error) resilience.ErrorClassification {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return statusClass(apiErr.HTTPStatusCode)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return statusClass(reqErr.HTTPStatusCode)
	}
	return resilience.ClassifyHTTP(err)
}

func statusClass(code int) resilience.ErrorClassification {
	if resilience.IsRetryableHTTPStatus(code) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{}
}
