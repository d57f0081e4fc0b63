// Package bootstrap assembles components shared by the server and the ingest tool.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/config"
	"github.com/kailas-cloud/storydex/internal/db"
	dbRedis "github.com/kailas-cloud/storydex/internal/db/redis"
	"github.com/kailas-cloud/storydex/internal/domain"
	"github.com/kailas-cloud/storydex/internal/domain/search/confidence"
	"github.com/kailas-cloud/storydex/internal/metrics"
	"github.com/kailas-cloud/storydex/internal/repository/embcache"
	"github.com/kailas-cloud/storydex/internal/repository/vectorindex"
	"github.com/kailas-cloud/storydex/internal/retry"
	openaiTransport "github.com/kailas-cloud/storydex/internal/transport/openai"
	embeddinguc "github.com/kailas-cloud/storydex/internal/usecase/embedding"
	"github.com/kailas-cloud/storydex/internal/usecase/ingest"
	"github.com/kailas-cloud/storydex/internal/usecase/retrieval"
)

const provider = "openai"

// OpenStore connects to Redis and waits until it answers.
func OpenStore(ctx context.Context, cfg config.DatabaseConfig) (db.Store, error) {
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Addrs,
		Username: cfg.Username,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err != nil {
		return nil, fmt.Errorf("create store: %w", err)
	}
	if err := store.WaitForReady(ctx, time.Duration(cfg.ReadinessTimeout)*time.Second); err != nil {
		store.Close()
		return nil, fmt.Errorf("store not ready: %w", err)
	}
	return store, nil
}

// Policy builds a retry policy from a per-attempt timeout and a retry count.
func Policy(timeout time.Duration, maxRetries *int) retry.Policy {
	p := retry.DefaultPolicy()
	p.Timeout = timeout
	if maxRetries != nil {
		p.MaxRetries = *maxRetries
	}
	return p
}

// Embedder assembles the decorator chain: Instrumented -> Cached -> Instruction -> OpenAI.
// The cache key carries the instruction so query and document vectors never collide.
func Embedder(cfg config.EmbeddingConfig, instruction string, store db.KVStore, logger *zap.Logger) domain.Embedder {
	base := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		Model:      cfg.Model,
		Dimensions: cfg.Dimensions,
		Provider:   provider,
		Policy:     Policy(cfg.Timeout(), cfg.MaxRetries),
		Logger:     logger,
	})

	var embedder domain.Embedder = base
	if instruction != "" {
		embedder = domain.NewPrefixEmbedder(embedder, instruction)
	}
	if store != nil && cfg.CacheEnabled != nil && *cfg.CacheEnabled {
		embedder = embcache.New(embedder, store, cfg.Model+"|"+instruction, metrics.EmbeddingCacheTotal, logger)
	}
	return embeddinguc.NewInstrumentedEmbedder(embedder, provider, cfg.Model, 0, logger)
}

// Generator builds the chat-completion client.
func Generator(cfg config.GeneratorConfig, logger *zap.Logger) *openaiTransport.Generator {
	return openaiTransport.NewGenerator(&openaiTransport.GeneratorConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Policy:      Policy(cfg.Timeout(), cfg.MaxRetries),
		Logger:      logger,
	})
}

// VectorIndex builds the index adapter.
func VectorIndex(cfg config.IndexConfig, store db.Store, logger *zap.Logger) *vectorindex.Index {
	return vectorindex.New(store, Policy(cfg.Timeout(), cfg.MaxRetries), logger)
}

// RetrievalConfig maps the retrieval section onto the pipeline's tuning.
func RetrievalConfig(cfg config.RetrievalConfig) retrieval.Config {
	rc := retrieval.DefaultConfig()
	rc.Thresholds = confidence.Thresholds{Low: cfg.ConfidenceLow, High: cfg.ConfidenceHigh}
	if cfg.SimilarityWeight != nil {
		rc.Weights.Similarity = *cfg.SimilarityWeight
	}
	if cfg.KeywordWeight != nil {
		rc.Weights.Keyword = *cfg.KeywordWeight
	}
	rc.MaxPerClient = cfg.MaxPerClient
	rc.LowOverlapThreshold = cfg.LowOverlapThreshold
	return rc
}

// IngestConfig maps the index and embedding sections onto an ingest run.
func IngestConfig(cfg config.Config) ingest.Config {
	return ingest.Config{
		Namespace:   cfg.Index.Namespace,
		Dimensions:  cfg.Embedding.Dimensions,
		HNSW:        vectorindex.HNSW{M: cfg.Index.HNSWM, EFConstruct: cfg.Index.HNSWEFConstruct},
		BatchSize:   cfg.Index.BatchSize,
		Concurrency: cfg.Index.Concurrency,
	}
}
