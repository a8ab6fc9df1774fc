package embedder

import "context"

// DeferredProvider is the "store" strategy: it never produces vectors and
// leaves embedding to the vector store at insert time. It still reports the
// dimension so the store schema can be built.
type DeferredProvider struct {
	model     string
	dimension int
}

// NewDeferredProvider creates the store strategy embedder
func NewDeferredProvider(opts ...ProviderOption) *DeferredProvider {
	o := buildOptions(DefaultLocalModel, LocalDimension, "", opts)
	return &DeferredProvider{model: o.model, dimension: o.dimension}
}

func (d *DeferredProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return nil, ErrEmbeddingUnavailable
}

func (d *DeferredProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	return nil, ErrEmbeddingUnavailable
}

func (d *DeferredProvider) Dimension() int {
	return d.dimension
}

func (d *DeferredProvider) Provider() string {
	return ProviderStore
}

func (d *DeferredProvider) Model() string {
	return d.model
}

func (d *DeferredProvider) Close() error {
	return nil
}
