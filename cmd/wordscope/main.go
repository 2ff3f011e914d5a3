// Command wordscope loads a word-embedding file, builds an approximate
// nearest-neighbour index over it and answers similarity and analogy
// queries from the command line or over Arrow Flight.
package main

import (
	"fmt"
	"os"

	"github.com/23skdu/wordscope/internal/logging"
	"github.com/spf13/cobra"
)

var version = "0.1.0-dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "wordscope",
		Short: "Word embedding similarity and analogy queries",
		Long: `wordscope indexes a GloVe-style embedding file and answers
nearest-neighbour queries: similar words, raw vectors, analogies
(king - man + woman) and 3D neighbourhood projections.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("json", false, "Output as JSON")
	rootCmd.PersistentFlags().String("embeddings", "", "Embedding file (overrides WORDSCOPE_EMBEDDINGS_PATH)")
	rootCmd.PersistentFlags().Int("limit", 0, "Keep only the first N valid lines (overrides WORDSCOPE_VOCAB_LIMIT)")
	rootCmd.PersistentFlags().String("env-file", ".env", "Optional dotenv file read before the environment")
	rootCmd.PersistentFlags().String("log-level", "", "Log level (overrides WORDSCOPE_LOG_LEVEL)")

	rootCmd.AddCommand(
		newVersionCmd(),
		newVectorCmd(),
		newSimilarCmd(),
		newAnalogyCmd(),
		newProjectCmd(),
		newServeCmd(),
	)
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return printResult(cmd, map[string]string{"version": version}, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "wordscope version %s\n", version)
			})
		},
	}
}

// loadConfig merges the environment with command-line overrides.
func loadConfig(cmd *cobra.Command) (Config, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	cfg, err := LoadConfig(envFile)
	if err != nil {
		return Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("embeddings") {
		cfg.EmbeddingsPath, _ = flags.GetString("embeddings")
	}
	if flags.Changed("limit") {
		cfg.VocabLimit, _ = flags.GetInt("limit")
	}
	if flags.Changed("log-level") {
		cfg.LogLevel, _ = flags.GetString("log-level")
	}
	return cfg, ValidateConfig(&cfg)
}

// setup loads the configuration and bootstraps the engine.
func setup(cmd *cobra.Command) (*App, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	logger, err := logging.NewLogger(logging.Config{
		Format: cfg.LogFormat,
		Level:  cfg.LogLevel,
		Output: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, err
	}
	return Bootstrap(cmd.Context(), cfg, logger)
}
