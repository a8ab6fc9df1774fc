package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dshills/docvec/internal/chunker"
	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/parser"
	"github.com/dshills/docvec/internal/storage"
	"github.com/dshills/docvec/internal/textutil"
	"github.com/dshills/docvec/pkg/types"
)

const (
	// DefaultPattern selects the documents of a source tree
	DefaultPattern = "**/*.html"

	// DefaultConcurrency caps in-flight embedding calls
	DefaultConcurrency = 2
)

// Page-id collision policies
const (
	CollisionSuffix = "suffix"
	CollisionError  = "error"
)

// Source locates the documents of one run
type Source struct {
	Root    string
	Pattern string

	// Include restricts the run to these first-level directories. Empty means all.
	Include []string
}

// Options is the per-run configuration copied onto pages and chunks
type Options struct {
	BaseURL         string
	Lang            string
	Version         string
	Concurrency     int
	PageIDCollision string
	SkipUnreadable  bool
}

// Result holds the pages and chunks of a run in file, section, part order
type Result struct {
	Pages   []*types.Page
	Chunks  []*types.Chunk
	Skipped []string

	// Deferred is set when embedding was left to the store
	Deferred bool
}

// Statistics contains statistics about the indexing operation
type Statistics struct {
	RunID        string
	Pages        int
	Chunks       int
	Inserted     int
	Duplicates   int
	SkippedFiles []string
	Documents    int
	Duration     time.Duration
}

// Indexer coordinates the pipeline: parse -> chunk -> embed -> store
type Indexer struct {
	parser   *parser.Parser
	chunker  *chunker.Chunker
	embedder embedder.Embedder
	logger   *zap.Logger
}

// Option configures an Indexer
type Option func(*Indexer)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) {
		if l != nil {
			idx.logger = l
		}
	}
}

// WithChunker replaces the default chunker
func WithChunker(c *chunker.Chunker) Option {
	return func(idx *Indexer) {
		if c != nil {
			idx.chunker = c
		}
	}
}

// WithParser replaces the default parser
func WithParser(p *parser.Parser) Option {
	return func(idx *Indexer) {
		if p != nil {
			idx.parser = p
		}
	}
}

// New creates a new Indexer instance
func New(emb embedder.Embedder, opts ...Option) *Indexer {
	idx := &Indexer{
		parser:   parser.New(),
		chunker:  chunker.New(chunker.DefaultConfig()),
		embedder: emb,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// GenerateChunks turns every matching document under src into pages and
// embedded chunks. Any parse or embedding error aborts the run.
func (idx *Indexer) GenerateChunks(ctx context.Context, src Source, opts Options) (*Result, error) {
	if idx.embedder == nil {
		return nil, fmt.Errorf("%w: no embedder configured", types.ErrConfiguration)
	}
	files, err := discoverFiles(src)
	if err != nil {
		return nil, err
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	idx.logger.Info("generating chunks",
		zap.String("root", src.Root),
		zap.Int("files", len(files)),
		zap.Int("concurrency", concurrency))

	result := &Result{}
	pageIDs := make(map[string]string)
	var deferred atomic.Bool

	for i, rel := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		parsed, err := idx.parser.ParseFile(filepath.Join(src.Root, filepath.FromSlash(rel)), rel)
		if err != nil {
			if opts.SkipUnreadable && errors.Is(err, types.ErrSourceRead) {
				idx.logger.Warn("skipping unreadable document", zap.String("path", rel), zap.Error(err))
				result.Skipped = append(result.Skipped, rel)
				continue
			}
			return nil, err
		}
		for _, pe := range parsed.Errors {
			idx.logger.Warn("parse problem", zap.String("path", pe.File), zap.String("message", pe.Message))
		}

		page := parser.BuildPage(parsed, parser.PageOptions{
			BaseURL: opts.BaseURL,
			Lang:    opts.Lang,
			Version: opts.Version,
		})
		if err := resolvePageID(page, pageIDs, opts.PageIDCollision); err != nil {
			return nil, err
		}

		chunks := idx.chunker.ChunkPage(page, parsed)
		for _, ch := range chunks {
			ch.VectorDim = idx.embedder.Dimension()
		}
		if err := idx.embedChunks(ctx, chunks, concurrency, &deferred); err != nil {
			return nil, fmt.Errorf("embed %s: %w", rel, err)
		}

		page.SectionCount = len(chunks)
		result.Pages = append(result.Pages, page)
		result.Chunks = append(result.Chunks, chunks...)

		idx.logger.Debug("document processed",
			zap.String("progress", fmt.Sprintf("%d/%d", i+1, len(files))),
			zap.String("path", rel),
			zap.String("title", page.Title),
			zap.Int("chunks", len(chunks)))
	}

	result.Deferred = deferred.Load()
	return result, nil
}

// embedChunks embeds chunks concurrently. Each result is written to its own
// chunk so order never depends on completion order.
func (idx *Indexer) embedChunks(ctx context.Context, chunks []*types.Chunk, limit int, deferred *atomic.Bool) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, ch := range chunks {
		g.Go(func() error {
			emb, err := idx.embedder.GenerateEmbedding(gctx, embedder.EmbeddingRequest{Text: ch.SearchableText})
			if errors.Is(err, types.ErrEmbeddingUnavailable) {
				deferred.Store(true)
				return nil
			}
			if err != nil {
				if errors.Is(err, types.ErrEmbeddingFailure) {
					return fmt.Errorf("chunk %s: %w", ch.ID, err)
				}
				return fmt.Errorf("chunk %s: %w: %w", ch.ID, types.ErrEmbeddingFailure, err)
			}
			ch.Embedding = emb.Vector
			return nil
		})
	}
	return g.Wait()
}

// IndexChunks inserts chunks one at a time in order. Chunks already in the
// store are skipped.
func (idx *Indexer) IndexChunks(ctx context.Context, store storage.Store, chunks []*types.Chunk) (inserted, duplicates int, err error) {
	for _, ch := range chunks {
		if err := ctx.Err(); err != nil {
			return inserted, duplicates, err
		}
		rec, err := storage.FromChunk(ch)
		if err != nil {
			return inserted, duplicates, fmt.Errorf("chunk %s: %w", ch.ID, err)
		}
		if err := store.Insert(ctx, rec); err != nil {
			if errors.Is(err, types.ErrDuplicateKey) {
				idx.logger.Debug("chunk already indexed", zap.String("id", ch.ID))
				duplicates++
				continue
			}
			return inserted, duplicates, fmt.Errorf("insert %s: %w", ch.ID, err)
		}
		inserted++
	}
	return inserted, duplicates, nil
}

// Run generates chunks from src and indexes them into store
func (idx *Indexer) Run(ctx context.Context, store storage.Store, src Source, opts Options) (*Statistics, error) {
	start := time.Now()
	stats := &Statistics{RunID: uuid.NewString()}

	result, err := idx.GenerateChunks(ctx, src, opts)
	if err != nil {
		return nil, err
	}
	stats.Pages = len(result.Pages)
	stats.Chunks = len(result.Chunks)
	stats.SkippedFiles = result.Skipped

	if err := store.Initialize(ctx, storage.DefaultSchema(idx.embedder.Dimension())); err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	stats.Inserted, stats.Duplicates, err = idx.IndexChunks(ctx, store, result.Chunks)
	if err != nil {
		return nil, err
	}

	if stats.Documents, err = store.Count(ctx); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	stats.Duration = time.Since(start)

	if rr, ok := store.(storage.RunRecorder); ok {
		run := &storage.IndexRun{
			ID:         stats.RunID,
			Source:     src.Root,
			Pages:      stats.Pages,
			Chunks:     stats.Chunks,
			Inserted:   stats.Inserted,
			Skipped:    stats.Duplicates,
			StartedAt:  start,
			FinishedAt: start.Add(stats.Duration),
		}
		if err := rr.RecordRun(ctx, run); err != nil {
			idx.logger.Warn("failed to record index run", zap.Error(err))
		}
	}

	avg := 0.0
	if stats.Pages > 0 {
		avg = float64(stats.Chunks) / float64(stats.Pages)
	}
	idx.logger.Info("indexing complete",
		zap.String("run_id", stats.RunID),
		zap.Int("pages", stats.Pages),
		zap.Int("chunks", stats.Chunks),
		zap.Float64("avg_chunks_per_page", avg),
		zap.Int("inserted", stats.Inserted),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("skipped_files", len(stats.SkippedFiles)),
		zap.Bool("deferred_embedding", result.Deferred),
		zap.Duration("duration", stats.Duration))

	return stats, nil
}

// discoverFiles returns the slash-separated paths under src.Root matching
// the pattern, sorted
func discoverFiles(src Source) ([]string, error) {
	if src.Root == "" {
		return nil, fmt.Errorf("%w: docs root not set", types.ErrConfiguration)
	}
	info, err := os.Stat(src.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: docs root %s: %v", types.ErrConfiguration, src.Root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: docs root %s is not a directory", types.ErrConfiguration, src.Root)
	}

	pattern := src.Pattern
	if pattern == "" {
		pattern = DefaultPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("%w: invalid pattern %q", types.ErrConfiguration, pattern)
	}

	matches, err := doublestar.Glob(os.DirFS(src.Root), pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: glob %s: %v", types.ErrSourceRead, pattern, err)
	}

	files := matches[:0]
	for _, m := range matches {
		if allowed(m, src.Include) {
			files = append(files, m)
		}
	}
	sort.Strings(files)
	return files, nil
}

func allowed(rel string, include []string) bool {
	if len(include) == 0 {
		return true
	}
	first, _, _ := strings.Cut(rel, "/")
	for _, dir := range include {
		if strings.Trim(dir, "/") == first {
			return true
		}
	}
	return false
}

// resolvePageID applies the collision policy when a page id was already
// taken by another document of the run
func resolvePageID(page *types.Page, seen map[string]string, policy string) error {
	other, taken := seen[page.ID]
	if !taken {
		seen[page.ID] = page.Path
		return nil
	}

	if policy == CollisionError {
		return fmt.Errorf("%w: page id %q of %s already used by %s",
			types.ErrConfiguration, page.ID, page.Path, other)
	}

	base := page.ID + "-" + textutil.Slugify(strings.TrimSuffix(page.Path, path.Ext(page.Path)))
	id := base
	for n := 2; ; n++ {
		if _, dup := seen[id]; !dup {
			break
		}
		id = base + "-" + strconv.Itoa(n)
	}
	page.ID = id
	seen[id] = page.Path
	return nil
}
