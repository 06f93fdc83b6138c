package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/kirillkom/hybrid-qa/internal/bootstrap"
	"github.com/kirillkom/hybrid-qa/internal/config"
	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/manifest"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/hybrid-qa/internal/observability/logging"
)

const (
	configKey = "config"
	loggerKey = "logger"
)

// setup loads the config once and logs to stderr so stdout stays JSON.
func setup(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if level := c.String("log-level"); level != "" {
		cfg.LogLevel = level
	}
	logger := logging.New(c.App.ErrWriter, "qactl", cfg.LogLevel)
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	c.App.Metadata[loggerKey] = logger
	return nil
}

func settings(c *cli.Context) (config.Config, *slog.Logger) {
	cfg, _ := c.App.Metadata[configKey].(config.Config)
	logger, _ := c.App.Metadata[loggerKey].(*slog.Logger)
	if logger == nil {
		logger = slog.Default()
	}
	return cfg, logger
}

func ingestCommand(c *cli.Context) error {
	cfg, logger := settings(c)

	sources, err := manifest.LoadSources(c.String("manifest"))
	if err != nil {
		return err
	}

	corpus, err := bootstrap.OpenCorpus(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer corpus.Close()
	if corpus.IngestUC == nil {
		return fmt.Errorf("corpus directory %q is not readable", cfg.CorpusDir)
	}

	stored, err := corpus.IngestUC.Ingest(c.Context, sources)
	if err != nil {
		return fmt.Errorf("ingest: %w", err)
	}
	return printJSON(c, map[string]int{"sources": len(sources), "chunks": stored})
}

func buildIndexCommand(c *cli.Context) error {
	cfg, logger := settings(c)

	corpus, err := bootstrap.OpenCorpus(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer corpus.Close()

	start := time.Now()
	n, err := corpus.BuildUC.Build(c.Context)
	if err != nil {
		return fmt.Errorf("build index: %w", err)
	}
	return printJSON(c, map[string]any{
		"chunks":      n,
		"model":       corpus.Embedder.Model(),
		"index_dir":   corpus.Snapshot.Dir(),
		"duration_ms": time.Since(start).Milliseconds(),
	})
}

func verifyCommand(c *cli.Context) error {
	cfg, logger := settings(c)

	app, err := bootstrap.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()
	return printJSON(c, map[string]any{"aligned": true, "chunks": app.Size})
}

func askCommand(c *cli.Context) error {
	cfg, logger := settings(c)

	req := nats.AskRequest{
		Question:   c.String("q"),
		TopK:       c.Int("k"),
		CandidateK: c.Int("candidate-k"),
		Mode:       c.String("mode"),
	}
	if c.IsSet("alpha") {
		req.Alpha = domain.Float64Ptr(c.Float64("alpha"))
	}

	var (
		answer *domain.Answer
		err    error
	)
	if c.Bool("nats") {
		answer, err = askOverNATS(c, cfg, logger, req)
	} else {
		answer, err = askLocally(c, cfg, logger, req)
	}
	if err != nil {
		return err
	}
	return printJSON(c, answer)
}

func askLocally(c *cli.Context, cfg config.Config, logger *slog.Logger, req nats.AskRequest) (*domain.Answer, error) {
	app, err := bootstrap.New(c.Context, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer app.Close()

	return app.QueryUC.Ask(c.Context, domain.Query{
		Text:       req.Question,
		TopK:       req.TopK,
		CandidateK: req.CandidateK,
		Alpha:      req.Alpha,
		Mode:       domain.Mode(req.Mode),
	})
}

func askOverNATS(c *cli.Context, cfg config.Config, logger *slog.Logger, req nats.AskRequest) (*domain.Answer, error) {
	retry := false
	conn, err := nats.Connect(cfg.NATSURL, nats.Options{Name: "qactl", RetryOnFailedConnect: &retry}, logger)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	executor := bootstrap.NewExecutor(cfg, logger)
	client := nats.NewClient(conn, cfg.NATSSubject, time.Duration(cfg.NATSRequestTimeoutMS)*time.Millisecond, executor)
	return client.Ask(c.Context, req)
}

func evalCommand(c *cli.Context) error {
	cfg, logger := settings(c)

	questions, err := manifest.LoadQuestions(c.String("questions"))
	if err != nil {
		return err
	}

	app, err := bootstrap.New(c.Context, cfg, logger)
	if err != nil {
		return err
	}
	defer app.Close()

	records, runErr := app.Evaluator.Run(c.Context, questions)
	if len(records) > 0 {
		if err := writeJSONFile(c.String("out"), records); err != nil {
			return errors.Join(runErr, err)
		}
	}
	if runErr != nil {
		return fmt.Errorf("eval stopped after %d of %d questions: %w", len(records), len(questions), runErr)
	}
	return printJSON(c, map[string]any{"questions": len(records), "out": c.String("out")})
}

func printJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	return nil
}
