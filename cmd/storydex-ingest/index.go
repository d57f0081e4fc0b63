package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/bootstrap"
	"github.com/kailas-cloud/storydex/internal/corpus"
	logpkg "github.com/kailas-cloud/storydex/internal/logger"
	"github.com/kailas-cloud/storydex/internal/metrics"
	"github.com/kailas-cloud/storydex/internal/usecase/ingest"
)

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Embed the corpus and upsert it into the vector index",
	Long:  "Creates the namespace index when missing, embeds every story in batches and writes them as hashes. Stories that fail are reported and skipped.",
	RunE:  runIndex,
}

var (
	indexCorpus      string
	indexPrune       bool
	indexBatchSize   int
	indexConcurrency int
)

func init() {
	indexCmd.Flags().StringVarP(&indexCorpus, "corpus", "c", "", "Path to the story file (defaults to corpus.path)")
	indexCmd.Flags().BoolVar(&indexPrune, "prune", false, "Remove indexed stories that are no longer in the corpus")
	indexCmd.Flags().IntVar(&indexBatchSize, "batch-size", 0, "Stories per embedding request (defaults to index.batch_size)")
	indexCmd.Flags().IntVar(&indexConcurrency, "concurrency", 0, "Batches in flight (defaults to index.concurrency)")

	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, _ []string) error {
	cfg, env, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	metrics.Register()

	path := cfg.Corpus.Path
	if indexCorpus != "" {
		path = indexCorpus
	}
	stories, err := corpus.Load(path, logger)
	if err != nil {
		return fmt.Errorf("failed to load corpus: %w", err)
	}

	ctx := cmd.Context()
	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	icfg := bootstrap.IngestConfig(cfg)
	icfg.Prune = indexPrune
	if indexBatchSize > 0 {
		icfg.BatchSize = indexBatchSize
	}
	if indexConcurrency > 0 {
		icfg.Concurrency = indexConcurrency
	}

	docEmbedder := bootstrap.Embedder(cfg.Embedding, cfg.Embedding.DocumentInstruction, store, logger)
	svc := ingest.New(docEmbedder, bootstrap.VectorIndex(cfg.Index, store, logger), icfg, logger)

	rep, err := svc.Index(ctx, stories.All())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "indexed %d of %d stories into namespace %q\n", rep.Indexed, stories.Len(), icfg.Namespace)
	if rep.Created {
		fmt.Fprintln(out, "created index")
	}
	for _, id := range rep.Pruned {
		fmt.Fprintf(out, "pruned %s\n", id)
	}
	for _, f := range rep.Failures {
		fmt.Fprintf(out, "failed %s: %v\n", f.ID, f.Err)
		logger.Warn("Story not indexed", zap.String("id", f.ID), zap.Error(f.Err))
	}
	if len(rep.Failures) > 0 {
		return fmt.Errorf("%d stories failed to index", len(rep.Failures))
	}
	return nil
}
