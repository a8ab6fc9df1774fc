package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/docvec/internal/chunker"
	"github.com/dshills/docvec/internal/config"
	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/indexer"
	"github.com/dshills/docvec/internal/searcher"
	"github.com/dshills/docvec/internal/storage"
)

var skipValidation bool

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Build the embedded chunk artifact from the documentation tree",
	Long: `Parse every document under docs.root matching docs.pattern, split it into
heading-scoped chunks, embed each chunk and write the vector index to
output.dir/output.filename as gzip-compressed JSON.

The artifact is then read back, restored and checked against the configured
validation probes. A run that fails before the artifact is written leaves
any previous artifact untouched.

Examples:
  # Use defaults and OPENAI_API_KEY
  docvec generate

  # Offline run with deterministic local vectors
  DOCVEC_EMBEDDING_PROVIDER=local docvec generate

  # Use a config file
  docvec generate --config docvec.yaml`,
	Args: cobra.NoArgs,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().BoolVar(&skipValidation, "skip-validation", false, "do not run validation probes")
}

// generateSummary describes a finished generate run
type generateSummary struct {
	Stats        *indexer.Statistics
	ArtifactPath string
	Documents    int
	Probes       int
	Duration     time.Duration
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	summary, err := generate(cmd.Context(), cfg, logger, !skipValidation)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Pages:     %d\n", summary.Stats.Pages)
	_, _ = fmt.Fprintf(out, "Chunks:    %d\n", summary.Stats.Chunks)
	_, _ = fmt.Fprintf(out, "Inserted:  %d\n", summary.Stats.Inserted)
	_, _ = fmt.Fprintf(out, "Skipped:   %d\n", summary.Stats.Duplicates+len(summary.Stats.SkippedFiles))
	_, _ = fmt.Fprintf(out, "Documents: %d\n", summary.Documents)
	_, _ = fmt.Fprintf(out, "Artifact:  %s\n", summary.ArtifactPath)
	if summary.Probes > 0 {
		_, _ = fmt.Fprintf(out, "Probes:    %d passed\n", summary.Probes)
	}
	return nil
}

// generate runs the whole pipeline: index into an in-memory store, persist
// it to the artifact, then restore the artifact and run the probes.
func generate(ctx context.Context, cfg *config.Config, logger *zap.Logger, validate bool) (*generateSummary, error) {
	start := time.Now()

	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}

	ec := cfg.EmbedderConfig()
	emb, err := embedder.New(ctx, ec)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	defer closeEmbedder(emb)

	storeEmb, err := embedder.StoreEmbedder(ec)
	if err != nil {
		return nil, fmt.Errorf("failed to create store embedder: %w", err)
	}
	defer closeEmbedder(storeEmb)

	storeOpts := []storage.Option{storage.WithLogger(logger)}
	if storeEmb != nil {
		storeOpts = append(storeOpts, storage.WithEmbedder(storeEmb))
	}
	store, err := storage.Open(ctx, storage.MemoryPath, storeOpts...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	idx := indexer.New(emb,
		indexer.WithLogger(logger),
		indexer.WithChunker(chunker.New(cfg.ChunkerConfig())))

	stats, err := idx.Run(ctx, store, cfg.Source(), cfg.IndexerOptions())
	if err != nil {
		return nil, err
	}

	snap, err := store.Persist(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to persist store: %w", err)
	}
	path := cfg.ArtifactPath()
	if err := storage.WriteArtifact(path, snap); err != nil {
		return nil, err
	}
	logger.Info("artifact written",
		zap.String("path", path),
		zap.Int("documents", len(snap.Data.Documents)))

	summary := &generateSummary{
		Stats:        stats,
		ArtifactPath: path,
		Documents:    len(snap.Data.Documents),
	}

	if validate && len(cfg.Validation.Probes) > 0 {
		queryEmb := storeEmb
		if queryEmb == nil {
			queryEmb = emb
		}
		if err := validateArtifact(ctx, path, queryEmb, cfg.Validation.Probes, logger); err != nil {
			return nil, err
		}
		summary.Probes = len(cfg.Validation.Probes)
	}

	summary.Duration = time.Since(start)
	logger.Info("generate complete",
		zap.Int("pages", stats.Pages),
		zap.Int("chunks", stats.Chunks),
		zap.Int("inserted", stats.Inserted),
		zap.Int("skipped", stats.Duplicates+len(stats.SkippedFiles)),
		zap.Int("documents", summary.Documents),
		zap.Int("probes", summary.Probes),
		zap.Duration("duration", summary.Duration))
	return summary, nil
}

// validateArtifact reads the artifact back from disk so the probes exercise
// exactly what was written
func validateArtifact(ctx context.Context, path string, emb embedder.Embedder, probes []searcher.Probe, logger *zap.Logger) error {
	snap, err := storage.ReadArtifact(path)
	if err != nil {
		return err
	}
	restored, err := storage.Restore(ctx, storage.FormatJSON, snap, storage.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to restore artifact: %w", err)
	}
	defer func() { _ = restored.Close() }()

	srch := searcher.NewSearcher(restored, emb, searcher.WithLogger(logger))
	return srch.Validate(ctx, probes)
}
