package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillkom/knowledge-retrieval/internal/config"
	"github.com/kirillkom/knowledge-retrieval/internal/core/domain"
	"github.com/kirillkom/knowledge-retrieval/internal/core/ports"
	"github.com/kirillkom/knowledge-retrieval/internal/core/usecase"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/chunking"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/embedding"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/embedding/ollama"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/embedding/openai"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/extractor"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/queue/nats"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/resilience"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/knowledge-retrieval/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config   config.Config
	Provider ports.EmbeddingProvider
	Catalog  ports.ProviderCatalog
	Queue    ports.MessageQueue
	Repo     ports.DocumentRepository
	Chunks   ports.ChunkStore

	IngestUC *usecase.IngestDocumentUseCase
	EmbedUC  *usecase.EmbedDocumentUseCase
	SearchUC *usecase.SearchUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	registry := embedding.NewRegistry()
	if err := registry.Register(buildOllama(cfg, executor)); err != nil {
		return nil, fmt.Errorf("register ollama provider: %w", err)
	}
	if cfg.OpenAIAPIKey != "" {
		openaiProvider, err := buildOpenAI(cfg, executor)
		if err != nil {
			return nil, fmt.Errorf("build openai provider: %w", err)
		}
		if err := registry.Register(openaiProvider); err != nil {
			return nil, fmt.Errorf("register openai provider: %w", err)
		}
	}

	provider, err := registry.Get(cfg.EmbeddingProvider)
	if err != nil {
		return nil, fmt.Errorf("resolve embedding provider: %w", err)
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx, provider.Dimension()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	chunkStore := postgres.NewChunkStore(db)
	searchStore := postgres.NewSearchStore(db)

	var (
		vectorSearcher ports.VectorSearcher
		vectorIndexer  ports.VectorIndexer
	)
	switch cfg.VectorBackend {
	case "pgvector":
		vectorSearcher = searchStore
		vectorIndexer = postgres.NoopIndexer{}
	case "qdrant":
		client := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
		vectorSearcher = client
		vectorIndexer = client
	default:
		_ = db.Close()
		return nil, domain.WrapError(domain.ErrConfiguration, "bootstrap",
			fmt.Errorf("unknown vector backend %q", cfg.VectorBackend))
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	extractors := extractor.NewFactory(storage)
	chunker := chunking.NewSplitter()

	ingestUC := usecase.NewIngestDocumentUseCase(storage, repo, queue, extractors, logger)
	embedUC := usecase.NewEmbedDocumentUseCase(repo, chunker, provider, chunkStore, vectorIndexer,
		cfg.ChunkMaxTokens, cfg.ChunkOverlapTokens, logger)
	searchUC := usecase.NewSearchUseCase(provider, vectorSearcher, searchStore, usecase.SearchConfig{
		VectorTimeout:  time.Duration(cfg.SearchVectorTimeoutMS) * time.Millisecond,
		FTSTimeout:     time.Duration(cfg.SearchFTSTimeoutMS) * time.Millisecond,
		VectorWeight:   cfg.FusionVectorWeight,
		FTSWeight:      cfg.FusionFTSWeight,
		RRFK:           cfg.FusionRRFK,
		CandidateLimit: cfg.SearchCandidates,
	}, logger)

	return &App{
		Config:   cfg,
		Provider: provider,
		Catalog:  registry,
		Queue:    queue,
		Repo:     repo,
		Chunks:   chunkStore,

		IngestUC: ingestUC,
		EmbedUC:  embedUC,
		SearchUC: searchUC,

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func buildOllama(cfg config.Config, executor *resilience.Executor) *ollama.Provider {
	return ollama.New(cfg.OllamaURL, cfg.OllamaEmbedModel, ollama.Options{
		Dimension: cfg.OllamaEmbedDimension,
		RateLimit: rate.Limit(cfg.ProviderRateLimitRPS),
		Executor:  executor,
	})
}

func buildOpenAI(cfg config.Config, executor *resilience.Executor) (*openai.Provider, error) {
	provider, err := openai.New(cfg.OpenAIAPIKey, openai.Options{
		Model:     cfg.OpenAIEmbedModel,
		Dimension: cfg.OpenAIEmbedDimension,
		RateLimit: rate.Limit(cfg.ProviderRateLimitRPS),
		Executor:  executor,
	})
	if err != nil {
		return nil, err
	}
	return provider, nil
}
