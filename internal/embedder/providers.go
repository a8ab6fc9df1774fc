package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"time"

	"golang.org/x/time/rate"
)

// Provider configuration
const (
	ProviderOpenAI = "openai"
	ProviderJina   = "jina"
	ProviderGemini = "gemini"
	ProviderLocal  = "local"
	ProviderStore  = "store"

	// Credential environment variables consulted when no key is configured
	EnvOpenAIAPIKey = "OPENAI_API_KEY"
	EnvJinaAPIKey   = "JINA_API_KEY"
	EnvGeminiAPIKey = "GEMINI_API_KEY"

	// Default models
	DefaultOpenAIModel = "text-embedding-ada-002"
	DefaultJinaModel   = "jina-embeddings-v3"
	DefaultGeminiModel = "text-embedding-004"
	DefaultLocalModel  = "local-hash-v1"

	// Endpoints
	OpenAIEndpoint = "https://api.openai.com/v1/embeddings"
	JinaEndpoint   = "https://api.jina.ai/v1/embeddings"

	// Dimensions
	OpenAIDimension = 1536
	JinaDimension   = 1024
	GeminiDimension = 768
	LocalDimension  = 384

	// Batch limits
	MaxBatchSize = 100

	DefaultCacheSize = 10000

	// Retry configuration
	MaxRetries        = 3
	InitialBackoffMs  = 100
	MaxBackoffMs      = 5000
	BackoffMultiplier = 2.0

	httpTimeout = 30 * time.Second
)

// ProviderOption customises a provider
type ProviderOption func(*providerOptions)

type providerOptions struct {
	model      string
	dimension  int
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
}

// WithModel overrides the provider's default model
func WithModel(model string) ProviderOption {
	return func(o *providerOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithDimension overrides the expected vector length
func WithDimension(dim int) ProviderOption {
	return func(o *providerOptions) {
		if dim > 0 {
			o.dimension = dim
		}
	}
}

// WithEndpoint points an HTTP provider at a different URL
func WithEndpoint(endpoint string) ProviderOption {
	return func(o *providerOptions) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(c *http.Client) ProviderOption {
	return func(o *providerOptions) {
		if c != nil {
			o.httpClient = c
		}
	}
}

// WithRateLimit caps outbound calls per second. Zero disables the limit.
func WithRateLimit(perSecond float64) ProviderOption {
	return func(o *providerOptions) {
		if perSecond > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

// WithRetry replaces the retry policy
func WithRetry(cfg RetryConfig) ProviderOption {
	return func(o *providerOptions) {
		o.retry = cfg
	}
}

func buildOptions(model string, dim int, endpoint string, opts []ProviderOption) providerOptions {
	o := providerOptions{
		model:     model,
		dimension: dim,
		endpoint:  endpoint,
		retry:     DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: httpTimeout}
	}
	return o
}

// HTTPProvider implements Embedder against an OpenAI-compatible embeddings
// endpoint: POST {"input": [...], "model": "..."} answered with data[].embedding.
type HTTPProvider struct {
	name       string
	apiKey     string
	model      string
	dimension  int
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	retry      RetryConfig
	cache      *Cache
}

// NewOpenAIProvider creates an OpenAI embedder. An empty apiKey falls back
// to OPENAI_API_KEY.
func NewOpenAIProvider(apiKey string, cache *Cache, opts ...ProviderOption) (*HTTPProvider, error) {
	return newHTTPProvider(ProviderOpenAI, apiKey, EnvOpenAIAPIKey, cache,
		buildOptions(DefaultOpenAIModel, OpenAIDimension, OpenAIEndpoint, opts))
}

// NewJinaProvider creates a Jina AI embedder. An empty apiKey falls back to
// JINA_API_KEY.
func NewJinaProvider(apiKey string, cache *Cache, opts ...ProviderOption) (*HTTPProvider, error) {
	return newHTTPProvider(ProviderJina, apiKey, EnvJinaAPIKey, cache,
		buildOptions(DefaultJinaModel, JinaDimension, JinaEndpoint, opts))
}

func newHTTPProvider(name, apiKey, envKey string, cache *Cache, o providerOptions) (*HTTPProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(envKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, envKey)
	}

	return &HTTPProvider{
		name:       name,
		apiKey:     apiKey,
		model:      o.model,
		dimension:  o.dimension,
		endpoint:   o.endpoint,
		httpClient: o.httpClient,
		limiter:    o.limiter,
		retry:      o.retry,
		cache:      cache,
	}, nil
}

func (p *HTTPProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if IsBlank(req.Text) {
		return ZeroEmbedding(p), nil
	}

	resp, err := p.GenerateBatch(ctx, BatchEmbeddingRequest{
		Texts: []string{req.Text},
		Model: req.Model,
	})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

// GenerateBatch serves blank texts and cache hits locally and sends the
// rest in one request.
func (p *HTTPProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	embeddings := make([]*Embedding, len(req.Texts))
	var pending []int
	var inputs []string
	for i, text := range req.Texts {
		if IsBlank(text) {
			embeddings[i] = ZeroEmbedding(p)
			continue
		}
		input := PrepareText(text)
		if p.cache != nil {
			if emb, ok := p.cache.Get(ComputeHash(model, input)); ok {
				embeddings[i] = emb
				continue
			}
		}
		pending = append(pending, i)
		inputs = append(inputs, input)
	}

	if len(inputs) > 0 {
		vectors, err := retryWithBackoff(ctx, p.retry, func() ([][]float32, error) {
			return p.callAPI(ctx, inputs, model)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrProviderFailed, p.name, err)
		}

		for j, idx := range pending {
			emb := &Embedding{
				Vector:    vectors[j],
				Dimension: len(vectors[j]),
				Provider:  p.name,
				Model:     model,
				Hash:      ComputeHash(model, inputs[j]),
			}
			if p.cache != nil {
				p.cache.Set(emb.Hash, emb)
			}
			embeddings[idx] = emb
		}
	}

	return &BatchEmbeddingResponse{
		Embeddings: embeddings,
		Provider:   p.name,
		Model:      model,
	}, nil
}

func (p *HTTPProvider) callAPI(ctx context.Context, texts []string, model string) ([][]float32, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	body, err := json.Marshal(map[string]interface{}{
		"input": texts,
		"model": model,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &statusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(bodyBytes))}
	}

	var apiResp struct {
		Data []struct {
			Embedding []float32 `json:"embedding"`
			Index     *int      `json:"index"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(apiResp.Data) != len(texts) {
		return nil, fmt.Errorf("malformed response: %d embeddings for %d inputs", len(apiResp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, d := range apiResp.Data {
		// responses without an index are in input order
		idx := i
		if d.Index != nil {
			idx = *d.Index
		}
		if idx < 0 || idx >= len(texts) {
			return nil, fmt.Errorf("malformed response: index %d out of range for %d inputs", idx, len(texts))
		}
		if vectors[idx] != nil {
			return nil, fmt.Errorf("malformed response: index %d returned twice", idx)
		}
		if len(d.Embedding) != p.dimension {
			return nil, fmt.Errorf("malformed response: dimension %d, want %d", len(d.Embedding), p.dimension)
		}
		vectors[idx] = d.Embedding
	}
	return vectors, nil
}

func (p *HTTPProvider) Dimension() int {
	return p.dimension
}

func (p *HTTPProvider) Provider() string {
	return p.name
}

func (p *HTTPProvider) Model() string {
	return p.model
}

func (p *HTTPProvider) Close() error {
	p.httpClient.CloseIdleConnections()
	return nil
}

// NormalizeVector normalizes a vector to unit length (for cosine similarity)
func NormalizeVector(v []float32) []float32 {
	var sum float64
	for _, val := range v {
		sum += float64(val * val)
	}

	if sum == 0 {
		return v
	}

	norm := float32(math.Sqrt(sum))
	result := make([]float32, len(v))
	for i, val := range v {
		result[i] = val / norm
	}

	return result
}
