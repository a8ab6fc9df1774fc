package embedder

import (
	"context"
	"fmt"
	"os"

	"github.com/google/generative-ai-go/genai"
	"golang.org/x/time/rate"
	"google.golang.org/api/option"
)

// GeminiProvider implements Embedder with the Google Generative AI SDK
type GeminiProvider struct {
	client    *genai.Client
	model     string
	dimension int
	limiter   *rate.Limiter
	retry     RetryConfig
	cache     *Cache
}

// NewGeminiProvider creates a Gemini embedder. An empty apiKey falls back
// to GEMINI_API_KEY.
func NewGeminiProvider(ctx context.Context, apiKey string, cache *Cache, opts ...ProviderOption) (*GeminiProvider, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvGeminiAPIKey)
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoProviderEnabled, EnvGeminiAPIKey)
	}

	o := buildOptions(DefaultGeminiModel, GeminiDimension, "", opts)
	clientOpts := []option.ClientOption{option.WithAPIKey(apiKey)}
	if o.endpoint != "" {
		clientOpts = append(clientOpts, option.WithEndpoint(o.endpoint))
	}

	client, err := genai.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: gemini client: %v", ErrProviderFailed, err)
	}

	return &GeminiProvider{
		client:    client,
		model:     o.model,
		dimension: o.dimension,
		limiter:   o.limiter,
		retry:     o.retry,
		cache:     cache,
	}, nil
}

func (g *GeminiProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	if IsBlank(req.Text) {
		return ZeroEmbedding(g), nil
	}
	resp, err := g.GenerateBatch(ctx, BatchEmbeddingRequest{Texts: []string{req.Text}, Model: req.Model})
	if err != nil {
		return nil, err
	}
	return resp.Embeddings[0], nil
}

// GenerateBatch sends every non-blank, uncached text in one BatchEmbedContents call
func (g *GeminiProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	model := req.Model
	if model == "" {
		model = g.model
	}

	embeddings := make([]*Embedding, len(req.Texts))
	var pending []int
	var inputs []string
	for i, text := range req.Texts {
		if IsBlank(text) {
			embeddings[i] = ZeroEmbedding(g)
			continue
		}
		input := PrepareText(text)
		if g.cache != nil {
			if emb, ok := g.cache.Get(ComputeHash(model, input)); ok {
				embeddings[i] = emb
				continue
			}
		}
		pending = append(pending, i)
		inputs = append(inputs, input)
	}

	if len(inputs) > 0 {
		vectors, err := retryWithBackoff(ctx, g.retry, func() ([][]float32, error) {
			return g.embed(ctx, model, inputs)
		})
		if err != nil {
			return nil, fmt.Errorf("%w: gemini: %v", ErrProviderFailed, err)
		}
		for j, idx := range pending {
			emb := &Embedding{
				Vector:    vectors[j],
				Dimension: len(vectors[j]),
				Provider:  ProviderGemini,
				Model:     model,
				Hash:      ComputeHash(model, inputs[j]),
			}
			if g.cache != nil {
				g.cache.Set(emb.Hash, emb)
			}
			embeddings[idx] = emb
		}
	}

	return &BatchEmbeddingResponse{Embeddings: embeddings, Provider: ProviderGemini, Model: model}, nil
}

func (g *GeminiProvider) embed(ctx context.Context, model string, texts []string) ([][]float32, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	em := g.client.EmbeddingModel(model)
	batch := em.NewBatch()
	for _, t := range texts {
		batch.AddContent(genai.Text(t))
	}

	resp, err := em.BatchEmbedContents(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("batch embed: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("malformed response: %d embeddings for %d inputs", len(resp.Embeddings), len(texts))
	}

	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e == nil || len(e.Values) != g.dimension {
			return nil, fmt.Errorf("malformed response: embedding %d has wrong dimension", i)
		}
		out[i] = e.Values
	}
	return out, nil
}

func (g *GeminiProvider) Dimension() int {
	return g.dimension
}

func (g *GeminiProvider) Provider() string {
	return ProviderGemini
}

func (g *GeminiProvider) Model() string {
	return g.model
}

func (g *GeminiProvider) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}
