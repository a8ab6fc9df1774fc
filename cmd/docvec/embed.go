package main

import (
	"context"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/docvec/internal/config"
	"github.com/dshills/docvec/internal/embedder"
)

var embedPreview int

var embedCmd = &cobra.Command{
	Use:   "embed <text>",
	Short: "Embed a piece of text with the configured provider",
	Long: `Embed text with the configured embedding strategy and print the vector
metadata. Useful to check credentials and dimensions before a generate run.

Examples:
  docvec embed "rectangle tool"
  DOCVEC_EMBEDDING_PROVIDER=gemini docvec embed --preview 8 "color palette"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runEmbed,
}

func init() {
	embedCmd.Flags().IntVar(&embedPreview, "preview", 5, "number of vector components to print")
}

func runEmbed(cmd *cobra.Command, args []string) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	emb, err := embedText(cmd.Context(), cfg, strings.Join(args, " "))
	if err != nil {
		return err
	}
	writeEmbedding(cmd.OutOrStdout(), emb, embedPreview)
	return nil
}

func embedText(ctx context.Context, cfg *config.Config, text string) (*embedder.Embedding, error) {
	if err := cfg.RequireCredential(); err != nil {
		return nil, err
	}
	e, err := embedder.New(ctx, cfg.EmbedderConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	defer closeEmbedder(e)

	return e.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
}

func writeEmbedding(w io.Writer, emb *embedder.Embedding, preview int) {
	var norm float64
	for _, v := range emb.Vector {
		norm += float64(v) * float64(v)
	}

	_, _ = fmt.Fprintf(w, "Provider:  %s\n", emb.Provider)
	_, _ = fmt.Fprintf(w, "Model:     %s\n", emb.Model)
	_, _ = fmt.Fprintf(w, "Dimension: %d\n", emb.Dimension)
	_, _ = fmt.Fprintf(w, "Norm:      %.4f\n", math.Sqrt(norm))
	if emb.Hash != "" {
		_, _ = fmt.Fprintf(w, "Hash:      %s\n", emb.Hash)
	}

	n := min(preview, len(emb.Vector))
	if n > 0 {
		parts := make([]string, n)
		for i := range n {
			parts[i] = fmt.Sprintf("%.4f", emb.Vector[i])
		}
		_, _ = fmt.Fprintf(w, "Vector:    [%s", strings.Join(parts, ", "))
		if n < len(emb.Vector) {
			_, _ = fmt.Fprint(w, ", ...")
		}
		_, _ = fmt.Fprintln(w, "]")
	}
}
