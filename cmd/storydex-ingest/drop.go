package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/storydex/internal/bootstrap"
	"github.com/kailas-cloud/storydex/internal/db"
	logpkg "github.com/kailas-cloud/storydex/internal/logger"
	"github.com/kailas-cloud/storydex/internal/repository/vectorindex"
)

var dropCmd = &cobra.Command{
	Use:   "drop",
	Short: "Drop the namespace index and its story hashes",
	RunE:  runDrop,
}

func init() {
	rootCmd.AddCommand(dropCmd)
}

func runDrop(cmd *cobra.Command, _ []string) error {
	cfg, env, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	store, err := bootstrap.OpenStore(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer store.Close()

	err = bootstrap.VectorIndex(cfg.Index, store, logger).Drop(ctx, cfg.Index.Namespace)
	if errors.Is(err, db.ErrIndexNotFound) {
		fmt.Fprintf(cmd.OutOrStdout(), "no index in namespace %q\n", cfg.Index.Namespace)
		return nil
	}
	if err != nil {
		return err
	}
	logger.Info("Index dropped", zap.String("namespace", cfg.Index.Namespace))
	fmt.Fprintf(cmd.OutOrStdout(), "dropped index %s\n", vectorindex.IndexName(cfg.Index.Namespace))
	return nil
}
