package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/hybrid-qa/internal/config"
	"github.com/kirillkom/hybrid-qa/internal/core/domain"
	"github.com/kirillkom/hybrid-qa/internal/core/ports"
	"github.com/kirillkom/hybrid-qa/internal/core/usecase"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/chunking"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/extractor"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/index/bm25"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/index/snapshot"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/llm/openai"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/repository/badger"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/resilience"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/tokenize"
	"github.com/kirillkom/hybrid-qa/internal/infrastructure/vector/qdrant"
)

// modelEmbedder is an encoder that reports the model it was built for, so
// snapshots can be checked against the query-time encoder.
type modelEmbedder interface {
	ports.Embedder
	Model() string
}

// Corpus holds the writable side: chunk store, encoder and offline use cases.
type Corpus struct {
	Config   config.Config
	Logger   *slog.Logger
	Executor *resilience.Executor

	Repo     ports.ChunkRepository
	Embedder modelEmbedder
	Snapshot *snapshot.Store

	IngestUC *usecase.IngestCorpusUseCase
	BuildUC  *usecase.BuildIndexUseCase

	ping    func(context.Context) error
	closeFn []func()
}

// App is the serving side: the corpus plus loaded indices and the query path.
type App struct {
	*Corpus

	Vectors  ports.VectorIndex
	Keywords ports.KeywordIndex
	Size     int

	Engine    *usecase.FusionEngine
	QueryUC   *usecase.QueryUseCase
	Evaluator *usecase.Evaluator
}

func ResilienceConfig(cfg config.Config) resilience.Config {
	return resilience.Config{
		RetryMaxAttempts:    cfg.ResilienceRetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.ResilienceRetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.ResilienceRetryMaxBackoffMS) * time.Millisecond,
		BreakerEnabled:      cfg.ResilienceBreakerEnabled,
		BreakerMinRequests:  uint32(max(cfg.ResilienceBreakerMinRequests, 0)),
		BreakerFailureRatio: cfg.ResilienceBreakerFailureRatio,
		BreakerOpenTimeout:  time.Duration(cfg.ResilienceBreakerOpenTimeoutMS) * time.Millisecond,
	}
}

func NewExecutor(cfg config.Config, logger *slog.Logger) *resilience.Executor {
	return resilience.NewExecutor(ResilienceConfig(cfg), resilience.WithLogger(logger))
}

// OpenCorpus wires the chunk store, the encoder and the offline use cases.
func OpenCorpus(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Corpus, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Corpus{
		Config:   cfg,
		Logger:   logger,
		Executor: NewExecutor(cfg, logger),
		Snapshot: snapshot.NewStore(cfg.IndexDir),
	}

	if err := c.openStore(ctx); err != nil {
		c.Close()
		return nil, err
	}

	embedder, err := newEmbedder(cfg, c.Executor)
	if err != nil {
		c.Close()
		return nil, err
	}
	c.Embedder = embedder

	tokenizer := tokenize.New()
	var publisher ports.VectorPublisher
	if cfg.VectorIndex == "qdrant" {
		publisher = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.WithExecutor(c.Executor))
	}
	c.BuildUC = usecase.NewBuildIndexUseCase(c.Repo, embedder, tokenizer, c.Snapshot, publisher, usecase.BuildOptions{
		Model:     embedder.Model(),
		BatchSize: cfg.EmbedBatchSize,
		Workers:   cfg.EmbedWorkers,
	}, logger)

	// Source files are only needed by ingestion; a missing corpus directory
	// must not stop the query services.
	if storage, err := localfs.New(cfg.CorpusDir); err == nil {
		c.IngestUC = usecase.NewIngestCorpusUseCase(c.Repo, extractor.NewRegistry(storage), chunking.NewPacker(cfg.ChunkMaxWords), logger)
	} else {
		logger.Debug("corpus_dir_unavailable", "dir", cfg.CorpusDir, "error", err)
	}
	return c, nil
}

func (c *Corpus) openStore(ctx context.Context) error {
	switch c.Config.ChunkStore {
	case "badger":
		store, err := badger.Open(c.Config.BadgerPath, false, c.Logger)
		if err != nil {
			return fmt.Errorf("open badger chunk store: %w", err)
		}
		c.Repo = store
		c.closeFn = append(c.closeFn, func() { _ = store.Close() })
	default:
		db, err := postgres.OpenDB(c.Config.PostgresDSN)
		if err != nil {
			return fmt.Errorf("open postgres: %w", err)
		}
		c.closeFn = append(c.closeFn, func() { _ = db.Close() })
		repo := postgres.NewChunkRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
		c.Repo = repo
		c.ping = db.PingContext
	}
	return nil
}

func newEmbedder(cfg config.Config, executor *resilience.Executor) (modelEmbedder, error) {
	switch cfg.EmbedProvider {
	case "openai":
		embedder, err := openai.New(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIEmbedModel, executor)
		if err != nil {
			return nil, fmt.Errorf("init openai embedder: %w", err)
		}
		return embedder, nil
	default:
		return ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.WithExecutor(executor)), nil
	}
}

// Ready reports whether the chunk store is reachable.
func (c *Corpus) Ready(ctx context.Context) error {
	if c.ping == nil {
		return nil
	}
	if err := c.ping(ctx); err != nil {
		return fmt.Errorf("chunk store: %w", err)
	}
	return nil
}

func (c *Corpus) Close() {
	for i := len(c.closeFn) - 1; i >= 0; i-- {
		c.closeFn[i]()
	}
	c.closeFn = nil
}

// New wires the query path on top of the corpus. It loads both indices and
// refuses to start when they do not enumerate the same corpus.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	corpus, err := OpenCorpus(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app, err := newApp(ctx, corpus)
	if err != nil {
		corpus.Close()
		return nil, err
	}
	return app, nil
}

func newApp(ctx context.Context, corpus *Corpus) (*App, error) {
	cfg := corpus.Config

	keywords, err := corpus.Snapshot.LoadKeywordIndex(bm25.DefaultParams())
	if err != nil {
		return nil, fmt.Errorf("load keyword index: %w", err)
	}

	var vectors ports.VectorIndex
	switch cfg.VectorIndex {
	case "qdrant":
		vectors = qdrant.New(cfg.QdrantURL, cfg.QdrantCollection, qdrant.WithExecutor(corpus.Executor))
	default:
		flatIndex, err := corpus.Snapshot.LoadVectorIndex(corpus.Embedder.Model())
		if err != nil {
			return nil, fmt.Errorf("load vector index: %w", err)
		}
		vectors = flatIndex
	}

	size, err := usecase.VerifyAlignment(ctx, vectors, keywords, corpus.Repo, cfg.QAAlignmentSamples)
	if err != nil {
		return nil, err
	}
	corpus.Logger.Info("alignment_verified", "chunks", size, "vector_index", cfg.VectorIndex)

	return assemble(corpus, vectors, keywords, size)
}

func assemble(corpus *Corpus, vectors ports.VectorIndex, keywords ports.KeywordIndex, size int) (*App, error) {
	cfg := corpus.Config

	policy, err := usecase.ParseGatePolicy(cfg.QAGatePolicy)
	if err != nil {
		return nil, err
	}
	mode, ok := domain.ParseMode(cfg.QADefaultMode)
	if !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "bootstrap", fmt.Errorf("unknown default mode %q", cfg.QADefaultMode))
	}

	engine := usecase.NewFusionEngine(
		corpus.Embedder,
		vectors,
		keywords,
		tokenize.New(),
		corpus.Repo,
		usecase.EngineOptions{
			Threshold:    cfg.QAAbstainThreshold,
			GatePolicy:   policy,
			SnippetChars: cfg.QASnippetChars,
		},
		usecase.WithLogger(corpus.Logger),
	)
	queryUC := usecase.NewQueryUseCase(engine, usecase.QueryDefaults{
		TopK:        cfg.QATopK,
		CandidateK:  cfg.QACandidateK,
		Alpha:       cfg.QAAlpha,
		Mode:        mode,
		AnswerChars: cfg.QAAnswerChars,
		Timeout:     time.Duration(cfg.QAQueryTimeoutMS) * time.Millisecond,
	}, corpus.Logger)

	return &App{
		Corpus:    corpus,
		Vectors:   vectors,
		Keywords:  keywords,
		Size:      size,
		Engine:    engine,
		QueryUC:   queryUC,
		Evaluator: usecase.NewEvaluator(engine, cfg.QACandidateK, cfg.QAAlpha, corpus.Logger),
	}, nil
}
