package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/docvec/internal/chunker"
	"github.com/dshills/docvec/internal/config"
	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/indexer"
	"github.com/dshills/docvec/internal/mcp"
	"github.com/dshills/docvec/internal/searcher"
	"github.com/dshills/docvec/internal/storage"
)

var serveLive bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve documentation search over MCP (stdio)",
	Long: `Start a Model Context Protocol server on stdin/stdout exposing the
search_docs and get_status tools.

By default the server restores the artifact written by generate and is
read-only. With --live it indexes docs.root at startup and also exposes
index_docs. Logs go to stderr; stdout is reserved for the protocol.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveLive, "live", false, "index docs.root at startup and enable index_docs")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	var srv *mcp.Server
	var cleanup func()
	if serveLive {
		srv, cleanup, err = newLiveServer(ctx, cfg, logger)
	} else {
		srv, cleanup, err = newArtifactServer(ctx, cfg, logger)
	}
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("docvec MCP server starting",
		zap.String("version", version),
		zap.Bool("live", serveLive),
		zap.String("build_mode", storage.BuildMode))
	return srv.Serve(ctx)
}

// newArtifactServer serves a read-only store restored from the artifact
func newArtifactServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*mcp.Server, func(), error) {
	store, err := openArtifact(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	emb, err := queryEmbedder(ctx, cfg, logger)
	if err != nil {
		_ = store.Close()
		return nil, nil, err
	}

	srv, err := mcp.NewServer(mcp.Config{
		Store:    store,
		Searcher: searcher.NewSearcher(store, emb, searcher.WithLogger(logger)),
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		closeEmbedder(emb)
		return nil, nil, err
	}
	return srv, func() { closeEmbedder(emb) }, nil
}

// newLiveServer indexes docs.root into a fresh in-memory store and serves it
// with index_docs enabled
func newLiveServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*mcp.Server, func(), error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, nil, err
	}

	ec := cfg.EmbedderConfig()
	emb, err := embedder.New(ctx, ec)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	storeEmb, err := embedder.StoreEmbedder(ec)
	if err != nil {
		closeEmbedder(emb)
		return nil, nil, fmt.Errorf("failed to create store embedder: %w", err)
	}
	cleanup := func() {
		closeEmbedder(emb)
		closeEmbedder(storeEmb)
	}

	storeOpts := []storage.Option{storage.WithLogger(logger)}
	queryEmb := emb
	if storeEmb != nil {
		storeOpts = append(storeOpts, storage.WithEmbedder(storeEmb))
		queryEmb = storeEmb
	}
	store, err := storage.Open(ctx, storage.MemoryPath, storeOpts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	idx := indexer.New(emb,
		indexer.WithLogger(logger),
		indexer.WithChunker(chunker.New(cfg.ChunkerConfig())))
	if _, err := idx.Run(ctx, store, cfg.Source(), cfg.IndexerOptions()); err != nil {
		_ = store.Close()
		cleanup()
		return nil, nil, err
	}

	srv, err := mcp.NewServer(mcp.Config{
		Store:    store,
		Indexer:  idx,
		Searcher: searcher.NewSearcher(store, queryEmb, searcher.WithLogger(logger)),
		Source:   cfg.Source(),
		Options:  cfg.IndexerOptions(),
		Logger:   logger,
	})
	if err != nil {
		_ = store.Close()
		cleanup()
		return nil, nil, err
	}
	return srv, cleanup, nil
}
