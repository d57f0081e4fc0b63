// Package main provides the storydex-ingest CLI that loads the curated corpus into the vector index.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/storydex/internal/config"
)

var rootCmd = &cobra.Command{
	Use:           "storydex-ingest",
	Short:         "Manage the storydex vector index",
	Long:          "storydex-ingest embeds curated portfolio stories and writes them to the Redis vector index, or drops that index.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	flagEnv       string
	flagNamespace string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagEnv, "env", "", "Configuration environment (defaults to $ENV or local)")
	rootCmd.PersistentFlags().StringVarP(&flagNamespace, "namespace", "n", "", "Index namespace (defaults to index.namespace)")
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads configuration and applies command-line overrides.
func loadConfig() (config.Config, string, error) {
	env := flagEnv
	if env == "" {
		env = config.GetEnv()
	}
	cfg, err := config.Load(env)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("failed to load config: %w", err)
	}
	if flagNamespace != "" {
		cfg.Index.Namespace = flagNamespace
	}
	return cfg, env, nil
}
