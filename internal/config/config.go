package config

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap/zapcore"

	"github.com/dshills/docvec/internal/chunker"
	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/indexer"
	"github.com/dshills/docvec/internal/searcher"
	"github.com/dshills/docvec/pkg/types"
)

// Config is the complete docvec configuration
type Config struct {
	Docs       DocsConfig       `koanf:"docs"`
	Output     OutputConfig     `koanf:"output"`
	Embedding  EmbeddingConfig  `koanf:"embedding"`
	Chunking   ChunkingConfig   `koanf:"chunking"`
	Pipeline   PipelineConfig   `koanf:"pipeline"`
	Site       SiteConfig       `koanf:"site"`
	Validation ValidationConfig `koanf:"validation"`
	Log        LogConfig        `koanf:"log"`
}

// DocsConfig locates the source documents
type DocsConfig struct {
	Root    string   `koanf:"root"`
	Pattern string   `koanf:"pattern"`
	Include []string `koanf:"include"`
}

// OutputConfig locates the compressed artifact
type OutputConfig struct {
	Dir      string `koanf:"dir"`
	Filename string `koanf:"filename"`
}

// EmbeddingConfig selects the embedding strategy
type EmbeddingConfig struct {
	Provider  string  `koanf:"provider"`
	Model     string  `koanf:"model"`
	APIKey    string  `koanf:"api_key"`
	Dimension int     `koanf:"dimension"`
	Endpoint  string  `koanf:"endpoint"`
	CacheSize int     `koanf:"cache_size"`
	RateLimit float64 `koanf:"rate_limit"`
}

// ChunkingConfig sizes chunks in estimated tokens. A negative
// OverlapTokens disables overlap.
type ChunkingConfig struct {
	MaxTokens     int `koanf:"max_tokens"`
	OverlapTokens int `koanf:"overlap_tokens"`
	SummaryChars  int `koanf:"summary_chars"`
}

// PipelineConfig controls a generation run
type PipelineConfig struct {
	Concurrency     int    `koanf:"concurrency"`
	PageIDCollision string `koanf:"page_id_collision"`
	SkipUnreadable  bool   `koanf:"skip_unreadable"`
}

// SiteConfig is copied onto every page and chunk
type SiteConfig struct {
	BaseURL string `koanf:"base_url"`
	Lang    string `koanf:"lang"`
	Version string `koanf:"version"`
}

// ValidationConfig lists the probes run after generation. ProbesJSON holds
// a JSON array of {query, expectedPath}, handy from the environment.
type ValidationConfig struct {
	Probes     []searcher.Probe `koanf:"probes"`
	ProbesJSON string           `koanf:"probes_json"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Defaults
const (
	DefaultDocsRoot       = "./test-docs"
	DefaultOutputDir      = "./public"
	DefaultOutputFilename = "designRagToolContents.zip"
	DefaultProvider       = embedder.ProviderOpenAI
	DefaultBaseURL        = "https://example.com/user-guide/"
	DefaultLang           = "en"
	DefaultVersion        = "local"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
)

// Default returns the configuration used when nothing is set
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// applyDefaults sets default values for missing configuration fields
func applyDefaults(cfg *Config) {
	if cfg.Docs.Root == "" {
		cfg.Docs.Root = DefaultDocsRoot
	}
	if cfg.Docs.Pattern == "" {
		cfg.Docs.Pattern = indexer.DefaultPattern
	}

	if cfg.Output.Dir == "" {
		cfg.Output.Dir = DefaultOutputDir
	}
	if cfg.Output.Filename == "" {
		cfg.Output.Filename = DefaultOutputFilename
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = DefaultProvider
	}
	cfg.Embedding.Provider = strings.ToLower(cfg.Embedding.Provider)
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = embedder.DefaultCacheSize
	}

	if cfg.Chunking.MaxTokens == 0 {
		cfg.Chunking.MaxTokens = chunker.DefaultMaxTokens
	}
	if cfg.Chunking.OverlapTokens == 0 {
		cfg.Chunking.OverlapTokens = chunker.DefaultOverlapTokens
	}
	if cfg.Chunking.SummaryChars == 0 {
		cfg.Chunking.SummaryChars = chunker.DefaultSummaryChars
	}

	if cfg.Pipeline.Concurrency == 0 {
		cfg.Pipeline.Concurrency = indexer.DefaultConcurrency
	}
	if cfg.Pipeline.PageIDCollision == "" {
		cfg.Pipeline.PageIDCollision = indexer.CollisionSuffix
	}

	if cfg.Site.BaseURL == "" {
		cfg.Site.BaseURL = DefaultBaseURL
	}
	if cfg.Site.Lang == "" {
		cfg.Site.Lang = DefaultLang
	}
	if cfg.Site.Version == "" {
		cfg.Site.Version = DefaultVersion
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

// Validate checks the configuration. Every failure wraps types.ErrConfiguration.
func (c *Config) Validate() error {
	if c.Docs.Root == "" {
		return fmt.Errorf("%w: docs.root is required", types.ErrConfiguration)
	}
	if !doublestar.ValidatePattern(c.Docs.Pattern) {
		return fmt.Errorf("%w: invalid docs.pattern %q", types.ErrConfiguration, c.Docs.Pattern)
	}
	if c.Output.Filename == "" {
		return fmt.Errorf("%w: output.filename is required", types.ErrConfiguration)
	}

	switch c.Embedding.Provider {
	case embedder.ProviderOpenAI, embedder.ProviderJina, embedder.ProviderGemini,
		embedder.ProviderLocal, embedder.ProviderStore:
	default:
		return fmt.Errorf("%w: unknown embedding.provider %q", types.ErrConfiguration, c.Embedding.Provider)
	}
	if c.Embedding.Dimension < 0 {
		return fmt.Errorf("%w: embedding.dimension must not be negative", types.ErrConfiguration)
	}
	if c.Embedding.RateLimit < 0 {
		return fmt.Errorf("%w: embedding.rate_limit must not be negative", types.ErrConfiguration)
	}

	if c.Chunking.MaxTokens <= 0 {
		return fmt.Errorf("%w: chunking.max_tokens must be positive", types.ErrConfiguration)
	}
	if c.Chunking.OverlapTokens >= c.Chunking.MaxTokens {
		return fmt.Errorf("%w: chunking.overlap_tokens must be below max_tokens", types.ErrConfiguration)
	}

	if c.Pipeline.Concurrency <= 0 {
		return fmt.Errorf("%w: pipeline.concurrency must be positive", types.ErrConfiguration)
	}
	switch c.Pipeline.PageIDCollision {
	case indexer.CollisionSuffix, indexer.CollisionError:
	default:
		return fmt.Errorf("%w: pipeline.page_id_collision must be %q or %q",
			types.ErrConfiguration, indexer.CollisionSuffix, indexer.CollisionError)
	}

	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: log.level: %v", types.ErrConfiguration, err)
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("%w: log.format must be json or console", types.ErrConfiguration)
	}

	for i, p := range c.Validation.Probes {
		if p.Query == "" || p.ExpectedPath == "" {
			return fmt.Errorf("%w: validation probe %d needs query and expectedPath", types.ErrConfiguration, i)
		}
	}
	return nil
}

// RequireCredential fails when the embedding strategy calls a remote
// provider and no API key was configured
func (c *Config) RequireCredential() error {
	return embedder.CheckCredential(c.EmbedderConfig())
}

// resolveProbes appends the probes of ProbesJSON to Probes
func (c *Config) resolveProbes() error {
	if strings.TrimSpace(c.Validation.ProbesJSON) == "" {
		return nil
	}
	var probes []searcher.Probe
	if err := json.Unmarshal([]byte(c.Validation.ProbesJSON), &probes); err != nil {
		return fmt.Errorf("%w: validation.probes_json: %v", types.ErrConfiguration, err)
	}
	c.Validation.Probes = append(c.Validation.Probes, probes...)
	return nil
}

// ArtifactPath is the output directory joined with the artifact filename
func (c *Config) ArtifactPath() string {
	return filepath.Join(c.Output.Dir, c.Output.Filename)
}

// EmbedderConfig maps the embedding section onto the embedder factory
func (c *Config) EmbedderConfig() embedder.Config {
	return embedder.Config{
		Provider:  c.Embedding.Provider,
		APIKey:    c.Embedding.APIKey,
		Model:     c.Embedding.Model,
		Dimension: c.Embedding.Dimension,
		Endpoint:  c.Embedding.Endpoint,
		CacheSize: c.Embedding.CacheSize,
		RateLimit: c.Embedding.RateLimit,
	}
}

// ChunkerConfig maps the chunking section onto the chunker
func (c *Config) ChunkerConfig() chunker.Config {
	cfg := chunker.DefaultConfig()
	cfg.MaxTokens = c.Chunking.MaxTokens
	cfg.OverlapTokens = c.Chunking.OverlapTokens
	cfg.SummaryChars = c.Chunking.SummaryChars
	return cfg
}

// Source returns where the indexer finds documents
func (c *Config) Source() indexer.Source {
	return indexer.Source{
		Root:    c.Docs.Root,
		Pattern: c.Docs.Pattern,
		Include: c.Docs.Include,
	}
}

// IndexerOptions returns the per-run indexer options
func (c *Config) IndexerOptions() indexer.Options {
	return indexer.Options{
		BaseURL:         c.Site.BaseURL,
		Lang:            c.Site.Lang,
		Version:         c.Site.Version,
		Concurrency:     c.Pipeline.Concurrency,
		PageIDCollision: c.Pipeline.PageIDCollision,
		SkipUnreadable:  c.Pipeline.SkipUnreadable,
	}
}
