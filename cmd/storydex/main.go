package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/bootstrap"
	"github.com/kailas-cloud/storydex/internal/config"
	"github.com/kailas-cloud/storydex/internal/corpus"
	logpkg "github.com/kailas-cloud/storydex/internal/logger"
	"github.com/kailas-cloud/storydex/internal/metrics"
	"github.com/kailas-cloud/storydex/internal/offdomain"
	"github.com/kailas-cloud/storydex/internal/repository/memo"
	chiTransport "github.com/kailas-cloud/storydex/internal/transport/chi"
	answeruc "github.com/kailas-cloud/storydex/internal/usecase/answer"
	healthuc "github.com/kailas-cloud/storydex/internal/usecase/health"
	"github.com/kailas-cloud/storydex/internal/usecase/retrieval"
	"github.com/kailas-cloud/storydex/internal/version"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic("failed to load .env: " + err.Error())
	}

	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting storydex API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("namespace", cfg.Index.Namespace),
	)

	metrics.Register()

	// The corpus is the source of truth; without it nothing can be cited.
	stories, err := corpus.Load(cfg.Corpus.Path, logger)
	if err != nil {
		logger.Fatal("Failed to load corpus", zap.Error(err))
	}

	ctx := context.Background()
	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer store.Close()
	logger.Info("Connected to database")

	var audit *offdomain.AuditLog
	if cfg.OffDomain.AuditPath != "" {
		audit = offdomain.NewAuditLog(cfg.OffDomain.AuditPath, logger)
	}
	rules := offdomain.NewFilter(cfg.OffDomain.RulesPath, audit, logger)
	rules.EnsureLoaded()

	queryEmbedder := bootstrap.Embedder(cfg.Embedding, cfg.Embedding.QueryInstruction, store, logger)
	index := bootstrap.VectorIndex(cfg.Index, store, logger)

	retrievalSvc, err := retrieval.New(queryEmbedder, index, stories, rules, bootstrap.RetrievalConfig(cfg.Retrieval), logger)
	if err != nil {
		logger.Fatal("Invalid retrieval configuration", zap.Error(err))
	}

	answerSvc := answeruc.New(
		retrievalSvc,
		bootstrap.Generator(cfg.Generator, logger),
		memo.New(store, cfg.Memo.TTL()),
		stories,
		answeruc.Config{DefaultSuggestions: cfg.Generator.DefaultSuggestions},
		logger,
	)
	healthSvc := healthuc.New(store, healthChecker(queryEmbedder), stories, logger)

	server := chiTransport.NewServer(answerSvc, retrievalSvc, stories, healthSvc, chiTransport.Defaults{
		Namespace: cfg.Index.Namespace,
		TopK:      cfg.Index.TopK,
		Limit:     cfg.Retrieval.ResultLimit,
	}, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      chiTransport.NewRouter(server, cfg.Auth.APIKeys, logger),
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr), zap.Int("stories", stories.Len()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// healthChecker returns the embedder as a health probe when it supports one.
func healthChecker(e any) healthuc.EmbeddingChecker {
	if hc, ok := e.(healthuc.EmbeddingChecker); ok {
		return hc
	}
	return nil
}
