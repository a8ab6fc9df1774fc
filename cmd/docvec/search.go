package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dshills/docvec/internal/config"
	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/searcher"
	"github.com/dshills/docvec/internal/storage"
)

var (
	searchLimit     int
	searchMode      string
	searchTolerance float64
	searchJSON      bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the generated artifact",
	Long: `Restore the artifact written by generate and print the best matching chunks.

Examples:
  # Hybrid search (vector + keyword)
  docvec search "how do I draw a triangle"

  # Keyword search needs no embedding credential
  docvec search --mode keyword "export svg"

  # Machine readable output
  docvec search --json --limit 3 "layers panel"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	f := searchCmd.Flags()
	f.IntVarP(&searchLimit, "limit", "n", searcher.DefaultLimit, "maximum number of results (1-100)")
	f.StringVarP(&searchMode, "mode", "m", string(searcher.SearchModeHybrid), "search mode: hybrid, vector or keyword")
	f.Float64Var(&searchTolerance, "tolerance", 0, "minimum cosine similarity of vector hits (0-1)")
	f.BoolVar(&searchJSON, "json", false, "print results as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	resp, err := searchArtifact(cmd.Context(), cfg, logger, searcher.SearchRequest{
		Query:     strings.Join(args, " "),
		Limit:     searchLimit,
		Mode:      searcher.SearchMode(searchMode),
		Tolerance: searchTolerance,
	})
	if err != nil {
		return err
	}

	if searchJSON {
		return writeResultsJSON(cmd.OutOrStdout(), resp)
	}
	writeResults(cmd.OutOrStdout(), resp)
	return nil
}

// openArtifact restores the configured artifact into an in-memory store
func openArtifact(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*storage.SQLiteStore, error) {
	path := cfg.ArtifactPath()
	snap, err := storage.ReadArtifact(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact %s (run generate first): %w", path, err)
	}
	store, err := storage.Restore(ctx, storage.FormatJSON, snap, storage.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to restore artifact: %w", err)
	}
	logger.Debug("artifact restored", zap.String("path", path), zap.Int("documents", len(snap.Data.Documents)))
	return store, nil
}

func searchArtifact(ctx context.Context, cfg *config.Config, logger *zap.Logger, req searcher.SearchRequest) (*searcher.SearchResponse, error) {
	store, err := openArtifact(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	defer func() { _ = store.Close() }()

	var emb embedder.Embedder
	if req.Mode != searcher.SearchModeKeyword {
		if emb, err = queryEmbedder(ctx, cfg, logger); err != nil {
			return nil, err
		}
		defer closeEmbedder(emb)
	}

	return searcher.NewSearcher(store, emb, searcher.WithLogger(logger)).Search(ctx, req)
}

func writeResults(w io.Writer, resp *searcher.SearchResponse) {
	if len(resp.Results) == 0 {
		_, _ = fmt.Fprintln(w, "No results.")
		return
	}
	for _, r := range resp.Results {
		c := r.Chunk
		_, _ = fmt.Fprintf(w, "%2d. [%.4f] %s\n", r.Rank, r.RelevanceScore, strings.Join(c.Breadcrumbs, " > "))
		if c.URL != "" {
			_, _ = fmt.Fprintf(w, "    %s\n", c.URL)
		}
		_, _ = fmt.Fprintf(w, "    %s\n", c.SourcePath)
		if c.Summary != "" {
			_, _ = fmt.Fprintf(w, "    %s\n", c.Summary)
		}
	}
	_, _ = fmt.Fprintf(w, "\n%d results (%s, %s)\n", resp.TotalResults, resp.SearchMode, resp.Duration.Round(time.Microsecond))
}

type jsonResult struct {
	Rank        int      `json:"rank"`
	Score       float64  `json:"score"`
	ID          string   `json:"id"`
	URL         string   `json:"url"`
	SourcePath  string   `json:"sourcePath"`
	Breadcrumbs []string `json:"breadcrumbs"`
	Summary     string   `json:"summary"`
}

func writeResultsJSON(w io.Writer, resp *searcher.SearchResponse) error {
	results := make([]jsonResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		results = append(results, jsonResult{
			Rank:        r.Rank,
			Score:       r.RelevanceScore,
			ID:          r.Chunk.ID,
			URL:         r.Chunk.URL,
			SourcePath:  r.Chunk.SourcePath,
			Breadcrumbs: r.Chunk.Breadcrumbs,
			Summary:     r.Chunk.Summary,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(results)
}
