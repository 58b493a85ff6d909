package di

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"retrieval-engine/internal/adapter/embedding"
	"retrieval-engine/internal/adapter/generate"
	"retrieval-engine/internal/adapter/graphstore"
	"retrieval-engine/internal/adapter/hydrate"
	"retrieval-engine/internal/adapter/lexical"
	"retrieval-engine/internal/adapter/rerank"
	"retrieval-engine/internal/adapter/vectorstore"
	"retrieval-engine/internal/infra"
	"retrieval-engine/internal/infra/config"
	"retrieval-engine/internal/infra/httpclient"
	"retrieval-engine/internal/usecase"
	"retrieval-engine/internal/usecase/retrieval"
)

const snippetCacheSize = 4096

// Container wires adapters, stores, and usecases for the server.
type Container struct {
	Pool           *pgxpool.Pool
	RetrievalStore *config.RetrievalStore

	SearchUsecase   usecase.SearchUsecase
	ContentsUsecase usecase.ContentsUsecase
	SimilarUsecase  usecase.SimilarUsecase
	AnswerUsecase   usecase.AnswerUsecase
}

// New builds the full dependency graph. Configuration problems are
// returned as errors; the caller treats them as fatal at startup.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Container, error) {
	retrievalStore, err := config.NewRetrievalStore(cfg.RetrievalConfigPath, log)
	if err != nil {
		return nil, fmt.Errorf("retrieval config: %w", err)
	}
	if err := retrievalStore.Watch(); err != nil {
		log.Warn("config_watch_unavailable", slog.String("error", err.Error()))
	}

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := infra.NewPostgresDB(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}

	embedClient := httpclient.NewPooledClient(time.Duration(cfg.EmbedTimeoutSeconds) * time.Second)
	lexicalClient := httpclient.NewPooledClient(time.Duration(cfg.LexicalTimeoutSeconds) * time.Second)
	rerankClient := httpclient.NewPooledClient(time.Duration(cfg.RerankTimeoutSeconds) * time.Second)
	generateClient := httpclient.NewPooledClient(time.Duration(cfg.GenerateTimeoutSeconds) * time.Second)

	embedder := embedding.NewOllamaEmbedder(cfg.OllamaURL, cfg.EmbeddingModel, embedClient)
	lexicalIndex := lexical.NewIndexerClient(cfg.LexicalIndexURL, lexicalClient)
	vectorIndex := vectorstore.NewPgVectorIndex(pool, cfg.EmbeddingVersion)
	graphStore := graphstore.NewPostgresGraphStore(pool)
	hydrator := hydrate.NewPostgresHydrator(pool)
	profileStore := hydrate.NewPostgresProfileStore(pool)
	stats := hydrate.NewPostgresWorkspaceStats(pool)

	snippetCache, err := retrieval.NewSnippetCache(snippetCacheSize)
	if err != nil {
		return nil, fmt.Errorf("snippet cache: %w", err)
	}
	rerankerModel := rerank.NewRerankerClient(cfg.RerankerURL, cfg.RerankerModel,
		time.Duration(cfg.RerankTimeoutSeconds)*time.Second, log, rerankClient)
	reranker := retrieval.NewReranker(rerankerModel, hydrator, snippetCache, log)

	searchUsecase := usecase.NewSearchUsecase(
		retrievalStore,
		lexicalIndex,
		vectorIndex,
		embedder,
		graphStore,
		profileStore,
		hydrator,
		stats,
		log,
		usecase.WithReranker(reranker),
	)
	contentsUsecase := usecase.NewContentsUsecase(hydrator, log)
	similarUsecase := usecase.NewSimilarUsecase(embedder, vectorIndex, 20, log)

	generator := generate.NewOllamaGenerator(cfg.GeneratorURL, cfg.GeneratorModel, generateClient)
	answerUsecase := usecase.NewAnswerUsecase(searchUsecase, hydrator, generator,
		cfg.AnswerMaxChunks, cfg.AnswerMaxTokens, log)

	return &Container{
		Pool:            pool,
		RetrievalStore:  retrievalStore,
		SearchUsecase:   searchUsecase,
		ContentsUsecase: contentsUsecase,
		SimilarUsecase:  similarUsecase,
		AnswerUsecase:   answerUsecase,
	}, nil
}

// Close releases held resources.
func (c *Container) Close() {
	if c.RetrievalStore != nil {
		_ = c.RetrievalStore.Close()
	}
	if c.Pool != nil {
		c.Pool.Close()
	}
}
