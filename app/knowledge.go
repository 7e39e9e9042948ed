package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/upb/mindscreen/config"
	"github.com/upb/mindscreen/internal/rag"
	"github.com/upb/mindscreen/internal/risk"
	"go.uber.org/zap"
)

// Knowledge is the retrieval stack: embedder, index, query cache and retriever.
type Knowledge struct {
	Embedder  rag.Embedder
	Index     *rag.Index
	Cache     *rag.QueryCache
	Retriever *rag.Retriever

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewEmbedder builds the configured embedding provider
func NewEmbedder(cfg *config.Config, logger *zap.Logger) (rag.Embedder, error) {
	switch cfg.Embedding.Provider {
	case config.ProviderHash:
		logger.Info("using hash embedder", zap.Int("dimensions", cfg.Embedding.HashDimensions))
		return rag.NewHashEmbedder(cfg.Embedding.HashDimensions), nil
	case config.ProviderOllama:
		emb, err := rag.NewOllamaEmbedder(rag.OllamaConfig{
			BaseURL:           cfg.Embedding.OllamaHost,
			Model:             cfg.Embedding.Model,
			Timeout:           cfg.Embedding.Timeout,
			MaxRetries:        cfg.Embedding.MaxRetries,
			RetryBaseDelay:    cfg.Embedding.RetryBaseDelay,
			RequestsPerSecond: cfg.Embedding.RequestsPerSecond,
			Burst:             cfg.Embedding.Burst,
		}, logger)
		if err != nil {
			return nil, err
		}
		logger.Info("using ollama embedder",
			zap.String("host", cfg.Embedding.OllamaHost),
			zap.String("model", cfg.Embedding.Model))
		return emb, nil
	default:
		return nil, fmt.Errorf("unsupported embedding provider %q", cfg.Embedding.Provider)
	}
}

// LoadStore returns the configured knowledge file, or the built-in documents
func LoadStore(cfg *config.Config) (*rag.Store, error) {
	if cfg.Knowledge.Path == "" {
		return rag.DefaultStore(), nil
	}
	return rag.LoadDocumentsFile(cfg.Knowledge.Path)
}

// NewClassifier builds the heuristic classifier over the configured features
func NewClassifier(cfg *config.Config, logger *zap.Logger) (*risk.Classifier, error) {
	predictor, err := risk.NewHeuristicPredictor(cfg.Classifier.Features...)
	if err != nil {
		return nil, err
	}
	return risk.NewClassifier(predictor, logger), nil
}

// NewKnowledge loads the knowledge base and embeds it. When the embedding
// provider is unreachable the index is left unbuilt; searches report
// unavailable and retry the build at most once per rebuild retry interval
// until it succeeds. A broken knowledge file is fatal.
func NewKnowledge(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Knowledge, error) {
	embedder, err := NewEmbedder(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := LoadStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base: %w", err)
	}

	index := rag.NewIndex(embedder, logger).
		WithRebuildPolicy(cfg.Knowledge.RebuildTimeout, cfg.Knowledge.RebuildRetryInterval)
	if err := index.Rebuild(ctx, store); err != nil {
		if !errors.Is(err, rag.ErrEmbeddingFailed) {
			return nil, fmt.Errorf("failed to build knowledge index: %w", err)
		}
		logger.Warn("knowledge index not built, searches unavailable", zap.Error(err))
	}

	k := &Knowledge{
		Embedder:    embedder,
		Index:       index,
		Cache:       rag.NewQueryCache(cfg.Retrieval.CacheSize, cfg.Retrieval.CacheTTL),
		stopCleanup: make(chan struct{}),
	}
	k.Retriever = rag.NewRetriever(index, embedder, k.Cache, cfg.Retrieval.QueryTimeout, logger)

	if cfg.Retrieval.CacheCleanup > 0 {
		go k.Cache.StartCleanupWorker(cfg.Retrieval.CacheCleanup, k.stopCleanup)
	}

	return k, nil
}

// Close stops the cache cleanup worker
func (k *Knowledge) Close() {
	k.stopOnce.Do(func() { close(k.stopCleanup) })
}
