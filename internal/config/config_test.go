package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/searcher"
	"github.com/dshills/docvec/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "docvec.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// clearEnv unsets variables that would leak into Load from the host
func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, EnvPrefix) {
			t.Setenv(key, "")
			require.NoError(t, os.Unsetenv(key))
		}
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, "./test-docs", cfg.Docs.Root)
	assert.Equal(t, "**/*.html", cfg.Docs.Pattern)
	assert.Equal(t, filepath.Join("public", "designRagToolContents.zip"), filepath.Clean(cfg.ArtifactPath()))
	assert.Equal(t, embedder.ProviderOpenAI, cfg.Embedding.Provider)
	assert.Equal(t, 360, cfg.Chunking.MaxTokens)
	assert.Equal(t, 60, cfg.Chunking.OverlapTokens)
	assert.Equal(t, 2, cfg.Pipeline.Concurrency)
	assert.Equal(t, "suffix", cfg.Pipeline.PageIDCollision)
	assert.False(t, cfg.Pipeline.SkipUnreadable)
	assert.Equal(t, "https://example.com/user-guide/", cfg.Site.BaseURL)
	assert.Equal(t, "en", cfg.Site.Lang)
	assert.Equal(t, "local", cfg.Site.Version)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_DefaultsOnly(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_File(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
docs:
  root: ./docs
  pattern: "components/**/*.html"
  include: [components]
output:
  dir: ./dist
  filename: index.json.gz
embedding:
  provider: Local
  dimension: 64
chunking:
  max_tokens: 200
  overlap_tokens: 20
pipeline:
  concurrency: 4
  page_id_collision: error
  skip_unreadable: true
site:
  base_url: https://docs.example.org/
  lang: fr
  version: "2.1"
validation:
  probes:
    - query: how to draw a triangle
      expectedPath: components/shapes.html
log:
  level: debug
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./docs", cfg.Docs.Root)
	assert.Equal(t, "components/**/*.html", cfg.Docs.Pattern)
	assert.Equal(t, []string{"components"}, cfg.Docs.Include)
	assert.Equal(t, filepath.Join("dist", "index.json.gz"), filepath.Clean(cfg.ArtifactPath()))
	assert.Equal(t, embedder.ProviderLocal, cfg.Embedding.Provider)
	assert.Equal(t, 64, cfg.Embedding.Dimension)
	assert.Equal(t, 200, cfg.Chunking.MaxTokens)
	assert.Equal(t, 20, cfg.Chunking.OverlapTokens)
	assert.Equal(t, 4, cfg.Pipeline.Concurrency)
	assert.Equal(t, "error", cfg.Pipeline.PageIDCollision)
	assert.True(t, cfg.Pipeline.SkipUnreadable)
	assert.Equal(t, "fr", cfg.Site.Lang)
	assert.Equal(t, "2.1", cfg.Site.Version)
	assert.Equal(t, []searcher.Probe{{Query: "how to draw a triangle", ExpectedPath: "components/shapes.html"}}, cfg.Validation.Probes)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := writeConfig(t, `
docs:
  root: ./from-file
embedding:
  provider: local
`)
	t.Setenv("DOCVEC_DOCS_ROOT", "./from-env")
	t.Setenv("DOCVEC_DOCS_INCLUDE", "components, guides ,")
	t.Setenv("DOCVEC_EMBEDDING_API_KEY", "sk-test")
	t.Setenv("DOCVEC_PIPELINE_PAGE_ID_COLLISION", "error")
	t.Setenv("DOCVEC_PIPELINE_SKIP_UNREADABLE", "true")
	t.Setenv("DOCVEC_CHUNKING_MAX_TOKENS", "500")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "./from-env", cfg.Docs.Root)
	assert.Equal(t, []string{"components", "guides"}, cfg.Docs.Include)
	assert.Equal(t, "sk-test", cfg.Embedding.APIKey)
	assert.Equal(t, "error", cfg.Pipeline.PageIDCollision)
	assert.True(t, cfg.Pipeline.SkipUnreadable)
	assert.Equal(t, 500, cfg.Chunking.MaxTokens)
	assert.Equal(t, embedder.ProviderLocal, cfg.Embedding.Provider)
}

func TestLoad_ProbesJSON(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOCVEC_VALIDATION_PROBES_JSON", `[{"query":"export svg","expectedPath":"export.html"}]`)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []searcher.Probe{{Query: "export svg", ExpectedPath: "export.html"}}, cfg.Validation.Probes)

	t.Setenv("DOCVEC_VALIDATION_PROBES_JSON", `[{"query":`)
	_, err = Load("")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)
}

func TestLoad_Errors(t *testing.T) {
	clearEnv(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, types.ErrConfiguration)
	})

	t.Run("directory", func(t *testing.T) {
		_, err := Load(t.TempDir())
		assert.ErrorIs(t, err, types.ErrConfiguration)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := Load(writeConfig(t, "docs: [unterminated"))
		assert.ErrorIs(t, err, types.ErrConfiguration)
	})

	t.Run("invalid value", func(t *testing.T) {
		_, err := Load(writeConfig(t, "pipeline:\n  page_id_collision: rename\n"))
		assert.ErrorIs(t, err, types.ErrConfiguration)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty root", func(c *Config) { c.Docs.Root = "" }},
		{"bad pattern", func(c *Config) { c.Docs.Pattern = "[" }},
		{"empty filename", func(c *Config) { c.Output.Filename = "" }},
		{"unknown provider", func(c *Config) { c.Embedding.Provider = "word2vec" }},
		{"negative dimension", func(c *Config) { c.Embedding.Dimension = -1 }},
		{"negative rate limit", func(c *Config) { c.Embedding.RateLimit = -2 }},
		{"zero max tokens", func(c *Config) { c.Chunking.MaxTokens = 0 }},
		{"overlap not below max", func(c *Config) { c.Chunking.OverlapTokens = c.Chunking.MaxTokens }},
		{"zero concurrency", func(c *Config) { c.Pipeline.Concurrency = 0 }},
		{"unknown collision policy", func(c *Config) { c.Pipeline.PageIDCollision = "merge" }},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }},
		{"incomplete probe", func(c *Config) {
			c.Validation.Probes = []searcher.Probe{{Query: "x"}}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrConfiguration)
		})
	}

	t.Run("negative overlap disables overlap", func(t *testing.T) {
		cfg := Default()
		cfg.Chunking.OverlapTokens = -1
		assert.NoError(t, cfg.Validate())
	})
}

func TestRequireCredential(t *testing.T) {
	t.Setenv(embedder.EnvOpenAIAPIKey, "")

	cfg := Default()
	err := cfg.RequireCredential()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrConfiguration)

	cfg.Embedding.APIKey = "sk-test"
	assert.NoError(t, cfg.RequireCredential())

	cfg.Embedding.APIKey = ""
	t.Setenv(embedder.EnvOpenAIAPIKey, "sk-env")
	assert.NoError(t, cfg.RequireCredential())

	for _, p := range []string{embedder.ProviderLocal, embedder.ProviderStore} {
		cfg := Default()
		cfg.Embedding.Provider = p
		assert.NoError(t, cfg.RequireCredential(), p)
	}
}

func TestMappings(t *testing.T) {
	cfg := Default()
	cfg.Embedding.Provider = embedder.ProviderJina
	cfg.Embedding.Model = "jina-embeddings-v3"
	cfg.Embedding.Dimension = 1024
	cfg.Chunking.MaxTokens = 300
	cfg.Chunking.OverlapTokens = 30
	cfg.Docs.Include = []string{"components"}
	cfg.Pipeline.SkipUnreadable = true

	ec := cfg.EmbedderConfig()
	assert.Equal(t, embedder.ProviderJina, ec.Provider)
	assert.Equal(t, "jina-embeddings-v3", ec.Model)
	assert.Equal(t, 1024, ec.Dimension)
	assert.Equal(t, embedder.DefaultCacheSize, ec.CacheSize)

	cc := cfg.ChunkerConfig()
	assert.Equal(t, 300, cc.MaxTokens)
	assert.Equal(t, 30, cc.OverlapTokens)
	assert.NotNil(t, cc.Estimator)

	src := cfg.Source()
	assert.Equal(t, cfg.Docs.Root, src.Root)
	assert.Equal(t, []string{"components"}, src.Include)

	opts := cfg.IndexerOptions()
	assert.Equal(t, cfg.Site.BaseURL, opts.BaseURL)
	assert.Equal(t, 2, opts.Concurrency)
	assert.True(t, opts.SkipUnreadable)
}

func TestEnvKeyValue(t *testing.T) {
	tests := []struct {
		key, value string
		wantKey    string
		wantValue  interface{}
	}{
		{"DOCVEC_DOCS_ROOT", "./d", "docs.root", "./d"},
		{"DOCVEC_EMBEDDING_API_KEY", "k", "embedding.api_key", "k"},
		{"DOCVEC_PIPELINE_PAGE_ID_COLLISION", "error", "pipeline.page_id_collision", "error"},
		{"DOCVEC_DOCS_INCLUDE", "a,b", "docs.include", []string{"a", "b"}},
		{"DOCVEC_VERBOSE", "1", "verbose", "1"},
	}
	for _, tt := range tests {
		k, v := envKeyValue(tt.key, tt.value)
		assert.Equal(t, tt.wantKey, k)
		assert.Equal(t, tt.wantValue, v)
	}
}
