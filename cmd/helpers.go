package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/adjudicate"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/agent"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/claims"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/config"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/db"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/embeddings"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/invoice"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/llm"
	"github.com/nitdede/AIPoweredClaimUnderwriter/internal/vectordb"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w\nRun `claimai init` to create a config file", err)
	}
	return cfg, nil
}

// createLLMProviderFromConfig creates an LLM provider based on config
// settings, throttled when llm_rpm is set.
func createLLMProviderFromConfig(cfg *config.Config) (llm.Provider, error) {
	provider, err := llm.NewProvider(string(cfg.Provider), cfg.Model)
	if err != nil {
		return nil, err
	}
	if cfg.LLMRPM > 0 {
		provider = llm.NewThrottledProvider(provider, cfg.LLMRPM)
	}
	return provider, nil
}

// createEmbedderFromConfig creates an embeddings.Embedder based on config.
// The embedding provider falls back to the LLM provider when unset.
func createEmbedderFromConfig(cfg *config.Config) (embeddings.Embedder, error) {
	provider := cfg.EmbeddingProvider
	if provider == "" {
		provider = cfg.Provider
	}
	return embeddings.NewEmbedder(string(provider), cfg.EmbeddingModel, cfg.EmbeddingDimensions)
}

// runtime bundles everything a command needs to process claims. persist
// flushes the chromem store to disk when that backend is in use; it is a
// no-op for qdrant.
type runtime struct {
	cfg      *config.Config
	database *db.DB
	store    vectordb.VectorStore
	loop     *agent.Loop
	persist  func(ctx context.Context) error
}

func (r *runtime) Close() error {
	return r.database.Close()
}

// createVectorStore opens the configured vector backend. For chromem an
// existing on-disk snapshot under the data dir is loaded when present.
func createVectorStore(ctx context.Context, cfg *config.Config, embedder embeddings.Embedder) (vectordb.VectorStore, func(ctx context.Context) error, error) {
	switch cfg.VectorBackend {
	case config.BackendQdrant:
		store, err := vectordb.NewQdrantStore(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to qdrant: %w", err)
		}
		noop := func(context.Context) error { return nil }
		return store, noop, nil
	default:
		store, err := vectordb.NewChromemStore(embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("creating vector store: %w", err)
		}
		vectorDir := filepath.Join(cfg.DataDir, "vectordb")
		if err := store.Load(ctx, vectorDir); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not load vector store from %s: %v\n", vectorDir, err)
		}
		persist := func(ctx context.Context) error {
			return store.Persist(ctx, vectorDir)
		}
		return store, persist, nil
	}
}

// buildRuntime assembles the full claim processing stack from config.
func buildRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("creating data dir: %w", err)
	}

	provider, err := createLLMProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating LLM provider: %w", err)
	}
	embedder, err := createEmbedderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("creating embedder: %w", err)
	}
	store, persist, err := createVectorStore(ctx, cfg, embedder)
	if err != nil {
		return nil, err
	}

	database, err := db.Open(filepath.Join(cfg.DataDir, "claims.db"))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	retriever := adjudicate.NewRetriever(store, cfg.Retrieval.TopK,
		time.Duration(cfg.Retrieval.TimeoutS)*time.Second)
	engine := adjudicate.NewEngine(provider, cfg.Model, retriever)
	extractor := invoice.NewExtractor(provider, cfg.Model, cfg.MaxConcurrency)
	claimStore := claims.NewStore(database)

	dispatcher := agent.NewDispatcher(extractor, engine, claimStore,
		time.Duration(cfg.Agent.AdjudicateTimeoutS)*time.Second, cfg.MaxConcurrency)
	loop := agent.NewLoop(provider, cfg.Model, dispatcher, cfg.Agent.MaxIterations)

	return &runtime{
		cfg:      cfg,
		database: database,
		store:    store,
		loop:     loop,
		persist:  persist,
	}, nil
}
