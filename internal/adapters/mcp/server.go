package mcpadapter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
)

const searchToolName = "search_corpus"

// NewServer exposes the question answerer as an MCP tool server.
func NewServer(answerer ports.QuestionAnswerer, version string, logger *slog.Logger) *server.MCPServer {
	if logger == nil {
		logger = slog.Default()
	}
	s := server.NewMCPServer("hybrid-qa", version, server.WithToolCapabilities(false))
	s.AddTool(searchTool(), searchHandler(answerer, logger))
	return s
}

func searchTool() mcp.Tool {
	return mcp.NewTool(searchToolName,
		mcp.WithDescription("Search the document corpus and return ranked passages with their sources. "+
			"Low-confidence passages are returned as ABSTAIN."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Natural-language question."),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of passages to return."),
			mcp.Min(1),
		),
		mcp.WithString("mode",
			mcp.Description("Retrieval mode."),
			mcp.Enum(string(domain.ModeSemantic), string(domain.ModeHybrid)),
		),
	)
}

func searchHandler(answerer ports.QuestionAnswerer, logger *slog.Logger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		answer, err := answerer.Ask(ctx, domain.Query{
			Text: text,
			TopK: request.GetInt("top_k", 0),
			Mode: domain.Mode(request.GetString("mode", "")),
		})
		if err != nil {
			logger.Warn("mcp_search_failed", "error", err)
			return mcp.NewToolResultError(err.Error()), nil
		}

		payload, err := json.Marshal(answer)
		if err != nil {
			return nil, err
		}
		return mcp.NewToolResultText(string(payload)), nil
	}
}
