package embedder

import (
	"context"
	"fmt"
	"os"
	"strings"
)

// Config holds embedder configuration
type Config struct {
	Provider  string // openai, jina, gemini, local or store
	APIKey    string
	Model     string
	Dimension int
	Endpoint  string
	CacheSize int
	RateLimit float64 // requests per second, 0 for unlimited
}

// RequiresCredential reports whether the strategy calls a remote provider
func RequiresCredential(provider string) bool {
	switch strings.ToLower(provider) {
	case ProviderOpenAI, ProviderJina, ProviderGemini:
		return true
	default:
		return false
	}
}

// CredentialEnv returns the fallback environment variable of a provider
func CredentialEnv(provider string) string {
	switch strings.ToLower(provider) {
	case ProviderOpenAI:
		return EnvOpenAIAPIKey
	case ProviderJina:
		return EnvJinaAPIKey
	case ProviderGemini:
		return EnvGeminiAPIKey
	default:
		return ""
	}
}

// CheckCredential fails with ErrNoProviderEnabled when the strategy needs a
// key and neither cfg nor the environment supplies one.
func CheckCredential(cfg Config) error {
	if !RequiresCredential(cfg.Provider) || cfg.APIKey != "" {
		return nil
	}
	env := CredentialEnv(cfg.Provider)
	if os.Getenv(env) == "" {
		return fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, env)
	}
	return nil
}

// New creates an embedder with explicit configuration
func New(ctx context.Context, cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	opts := []ProviderOption{
		WithModel(cfg.Model),
		WithDimension(cfg.Dimension),
		WithEndpoint(cfg.Endpoint),
		WithRateLimit(cfg.RateLimit),
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOpenAI:
		return NewOpenAIProvider(cfg.APIKey, cache, opts...)
	case ProviderJina:
		return NewJinaProvider(cfg.APIKey, cache, opts...)
	case ProviderGemini:
		return NewGeminiProvider(ctx, cfg.APIKey, cache, opts...)
	case ProviderLocal:
		return NewLocalProvider(cache, opts...)
	case ProviderStore:
		return NewDeferredProvider(opts...), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedModel, cfg.Provider)
	}
}

// StoreEmbedder returns the embedder the vector store uses for records that
// arrive without a vector, or nil when every record is embedded upstream.
func StoreEmbedder(cfg Config) (Embedder, error) {
	if !strings.EqualFold(cfg.Provider, ProviderStore) {
		return nil, nil
	}
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}
	return NewLocalProvider(cache, WithDimension(cfg.Dimension))
}
