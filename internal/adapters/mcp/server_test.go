package mcpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
)

type answererFake struct {
	answer *domain.Answer
	err    error
	got    domain.Query
}

func (f *answererFake) Ask(_ context.Context, query domain.Query) (*domain.Answer, error) {
	f.got = query
	if f.err != nil {
		return nil, f.err
	}
	return f.answer, nil
}

func callSearch(t *testing.T, fake *answererFake, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Name = searchToolName
	req.Params.Arguments = args

	result, err := searchHandler(fake, nil)(context.Background(), req)
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return result
}

func TestSearchCorpusReturnsContextsAsJSON(t *testing.T) {
	fake := &answererFake{answer: &domain.Answer{
		Contexts: []domain.RankedResult{{ChunkID: 3, Title: "Ladder safety", URL: "https://example.org/ladder"}},
	}}

	result := callSearch(t, fake, map[string]any{"query": "ladder angle", "top_k": float64(2), "mode": "hybrid"})
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result.Content)
	}
	if fake.got.Text != "ladder angle" || fake.got.TopK != 2 || fake.got.Mode != domain.ModeHybrid {
		t.Fatalf("unexpected query: %+v", fake.got)
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", result.Content[0])
	}
	var answer domain.Answer
	if err := json.Unmarshal([]byte(text.Text), &answer); err != nil {
		t.Fatalf("decode tool output: %v", err)
	}
	if len(answer.Contexts) != 1 || answer.Contexts[0].Title != "Ladder safety" {
		t.Fatalf("unexpected contexts: %+v", answer.Contexts)
	}
}

func TestSearchCorpusRequiresQuery(t *testing.T) {
	fake := &answererFake{answer: &domain.Answer{}}
	result := callSearch(t, fake, map[string]any{"top_k": float64(1)})
	if !result.IsError {
		t.Fatalf("expected tool error for missing query")
	}
}

func TestSearchCorpusReportsAnswererError(t *testing.T) {
	fake := &answererFake{err: domain.WrapError(domain.ErrUpstreamUnavailable, "embed query", errors.New("down"))}
	result := callSearch(t, fake, map[string]any{"query": "q"})
	if !result.IsError {
		t.Fatalf("expected tool error")
	}
}

func TestSearchToolSchema(t *testing.T) {
	tool := searchTool()
	if tool.Name != searchToolName {
		t.Fatalf("unexpected tool name %q", tool.Name)
	}
	if len(tool.InputSchema.Required) != 1 || tool.InputSchema.Required[0] != "query" {
		t.Fatalf("expected query to be the only required argument, got %v", tool.InputSchema.Required)
	}
	if NewServer(&answererFake{}, "test", nil) == nil {
		t.Fatalf("expected server")
	}
}
