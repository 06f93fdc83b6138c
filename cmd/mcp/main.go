package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/mark3labs/mcp-go/server"

	mcpadapter "github.com/kirillkom/hybrid-qa/internal/adapters/mcp"
	"github.com/kirillkom/hybrid-qa/internal/bootstrap"
	"github.com/kirillkom/hybrid-qa/internal/config"
	"github.com/kirillkom/hybrid-qa/internal/observability/logging"
)

var version = "dev"

func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	// stdout carries the MCP protocol.
	logger := logging.New(os.Stderr, "qa-mcp", cfg.LogLevel)
	slog.SetDefault(logger)

	app, err := bootstrap.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("bootstrap_failed", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	if err := server.ServeStdio(mcpadapter.NewServer(app.QueryUC, version, logger)); err != nil {
		logger.Error("mcp_serve_failed", "error", err)
	}
}
