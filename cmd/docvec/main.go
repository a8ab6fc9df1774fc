// Package main implements the docvec CLI: it turns a documentation tree into
// an embedded chunk artifact and searches or serves that artifact.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/docvec/internal/config"
	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/logging"
	"github.com/dshills/docvec/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

var (
	configPath string
	logLevel   string
	logFormat  string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docvec",
	Short: "Chunk, embed and search HTML documentation",
	Long: `docvec splits a tree of HTML documentation pages into heading-scoped
chunks, embeds every chunk, stores them in a vector index and writes the
index as a gzip-compressed artifact that can be searched or served over MCP.

Configuration comes from an optional YAML file (--config), DOCVEC_*
environment variables and a .env file in the working directory.`,
	Version:      version,
	SilenceUsage: true,
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "path to a YAML config file")
	pf.StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", "", "log format (console, json)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(embedCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads the configuration and builds the logger. Log flags win
// over the file and the environment.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// queryEmbedder returns the embedder that turns search queries into vectors
// comparable to the stored ones. With the store strategy that is the store's
// own embedder. It returns nil when the remote provider has no credential;
// hybrid search then degrades to keyword search.
func queryEmbedder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (embedder.Embedder, error) {
	ec := cfg.EmbedderConfig()

	storeEmb, err := embedder.StoreEmbedder(ec)
	if err != nil {
		return nil, err
	}
	if storeEmb != nil {
		return storeEmb, nil
	}

	if err := embedder.CheckCredential(ec); err != nil {
		logger.Warn("query embedding disabled", zap.Error(err))
		return nil, nil
	}
	return embedder.New(ctx, ec)
}

func closeEmbedder(emb embedder.Embedder) {
	if emb != nil {
		_ = emb.Close()
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "docvec\n")
	_, _ = fmt.Fprintf(out, "Version: %s\n", version)
	_, _ = fmt.Fprintf(out, "Build Time: %s\n", buildTime)
	_, _ = fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
	_, _ = fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
	_, _ = fmt.Fprintf(out, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
}
