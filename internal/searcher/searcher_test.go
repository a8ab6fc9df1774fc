package searcher

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/storage"
	"github.com/dshills/docvec/pkg/types"
)

// topics are the axes of the mock embedding space
var topics = []string{"shape", "color", "export", "layer"}

// mockEmbedder counts topic words so texts about one topic share an axis
type mockEmbedder struct {
	generateFunc func(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error)
	calls        int
}

func (m *mockEmbedder) GenerateEmbedding(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
	m.calls++
	if m.generateFunc != nil {
		return m.generateFunc(ctx, req)
	}
	return &embedder.Embedding{
		Vector:    topicVector(req.Text),
		Dimension: len(topics),
		Provider:  "mock",
		Model:     "mock-model",
	}, nil
}

func (m *mockEmbedder) GenerateBatch(ctx context.Context, req embedder.BatchEmbeddingRequest) (*embedder.BatchEmbeddingResponse, error) {
	resp := &embedder.BatchEmbeddingResponse{Provider: "mock", Model: "mock-model"}
	for _, text := range req.Texts {
		emb, err := m.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: text})
		if err != nil {
			return nil, err
		}
		resp.Embeddings = append(resp.Embeddings, emb)
	}
	return resp, nil
}

func (m *mockEmbedder) Dimension() int   { return len(topics) }
func (m *mockEmbedder) Provider() string { return "mock" }
func (m *mockEmbedder) Model() string    { return "mock-model" }
func (m *mockEmbedder) Close() error     { return nil }

func topicVector(text string) []float32 {
	vector := make([]float32, len(topics))
	lower := strings.ToLower(text)
	for i, topic := range topics {
		vector[i] = float32(strings.Count(lower, topic))
	}
	return vector
}

type testDoc struct {
	id, path, text string
}

var testDocs = []testDoc{
	{"shapes#draw", "shapes.html", "Draw a shape on the canvas. Every shape has a fill."},
	{"colors#palette", "colors.html", "Pick a color from the palette. A color can be saved."},
	{"export#files", "export.html", "Export your design. Export formats include PNG and SVG."},
	{"layers#order", "layers.html", "Each layer sits above the previous layer."},
}

// setupTestSearcher creates a searcher over an in-memory store holding testDocs
func setupTestSearcher(t *testing.T) (*Searcher, *storage.SQLiteStore, *mockEmbedder) {
	t.Helper()
	ctx := context.Background()

	store, err := storage.Open(ctx, storage.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.Initialize(ctx, storage.DefaultSchema(len(topics))))

	emb := &mockEmbedder{}
	for _, d := range testDocs {
		pageID, sectionID, _ := strings.Cut(d.id, "#")
		rec := &storage.Record{
			ID:             d.id,
			PageID:         pageID,
			SourcePath:     d.path,
			SectionLevel:   2,
			SectionID:      sectionID,
			Heading:        sectionID,
			Text:           d.text,
			SearchableText: d.text,
			Embedding:      topicVector(d.text),
			VectorDim:      len(topics),
		}
		require.NoError(t, store.Insert(ctx, rec))
	}

	return NewSearcher(store, emb), store, emb
}

func TestNewSearcher(t *testing.T) {
	s := NewSearcher(nil, &mockEmbedder{})
	assert.NotNil(t, s.cache)
	assert.NotNil(t, s.logger)

	s = NewSearcher(nil, nil, WithCacheSize(5))
	assert.NotNil(t, s.cache)
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		req     SearchRequest
		want    SearchRequest
		wantErr bool
	}{
		{
			name: "defaults",
			req:  SearchRequest{Query: "shape"},
			want: SearchRequest{Query: "shape", Limit: DefaultLimit, Mode: SearchModeHybrid, CacheTTL: DefaultCacheTTL},
		},
		{
			name: "limit capped",
			req:  SearchRequest{Query: "shape", Limit: 500, Mode: SearchModeVector},
			want: SearchRequest{Query: "shape", Limit: MaxLimit, Mode: SearchModeVector, CacheTTL: DefaultCacheTTL},
		},
		{
			name: "explicit values kept",
			req:  SearchRequest{Query: "shape", Limit: 3, Mode: SearchModeKeyword, Tolerance: 0.5, CacheTTL: time.Minute},
			want: SearchRequest{Query: "shape", Limit: 3, Mode: SearchModeKeyword, Tolerance: 0.5, CacheTTL: time.Minute},
		},
		{name: "empty query", req: SearchRequest{}, wantErr: true},
		{name: "blank query", req: SearchRequest{Query: "  \t"}, wantErr: true},
		{name: "tolerance above one", req: SearchRequest{Query: "x", Tolerance: 1.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			err := validateRequest(&req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, req)
		})
	}
}

func TestSearchModeVector(t *testing.T) {
	s, _, emb := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "how do I color things", Mode: SearchModeVector})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)

	top := resp.Results[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "colors#palette", top.Chunk.ID)
	assert.InDelta(t, 1.0, top.RelevanceScore, 1e-6)
	assert.Equal(t, SearchModeVector, resp.SearchMode)
	assert.Equal(t, 1, emb.calls)

	for i, r := range resp.Results {
		assert.Equal(t, i+1, r.Rank)
		assert.NoError(t, r.Validate())
	}
}

func TestSearchModeVector_Tolerance(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "layer", Mode: SearchModeVector, Tolerance: 0.9})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "layers.html", resp.Results[0].Chunk.SourcePath)
}

func TestSearchModeKeyword(t *testing.T) {
	s, _, emb := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "palette", Mode: SearchModeKeyword})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "colors#palette", resp.Results[0].Chunk.ID)
	assert.Greater(t, resp.Results[0].RelevanceScore, 0.0)
	assert.Zero(t, emb.calls, "keyword search must not embed the query")
}

func TestSearchModeHybrid(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "export formats", Mode: SearchModeHybrid})
	require.NoError(t, err)
	require.NotEmpty(t, resp.Results)
	assert.Equal(t, "export#files", resp.Results[0].Chunk.ID)
	assert.Equal(t, SearchModeHybrid, resp.SearchMode)
}

func TestSearchHybrid_FallsBackWithoutVector(t *testing.T) {
	s, _, emb := setupTestSearcher(t)
	emb.generateFunc = func(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
		return nil, embedder.ErrEmbeddingUnavailable
	}

	resp, err := s.Search(context.Background(), SearchRequest{Query: "palette", Mode: SearchModeHybrid})
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "colors#palette", resp.Results[0].Chunk.ID)

	_, err = s.Search(context.Background(), SearchRequest{Query: "palette", Mode: SearchModeVector})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrEmbeddingUnavailable)
}

func TestSearchWithEmbedderError(t *testing.T) {
	s, _, emb := setupTestSearcher(t)
	emb.generateFunc = func(ctx context.Context, req embedder.EmbeddingRequest) (*embedder.Embedding, error) {
		return nil, errors.New("provider down")
	}

	_, err := s.Search(context.Background(), SearchRequest{Query: "shape", Mode: SearchModeHybrid})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "provider down")
}

func TestSearchWithUnsupportedMode(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	_, err := s.Search(context.Background(), SearchRequest{Query: "shape", Mode: "fuzzy"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported search mode")
}

func TestSearchLimitRespected(t *testing.T) {
	s, _, _ := setupTestSearcher(t)

	resp, err := s.Search(context.Background(), SearchRequest{Query: "shape color export layer", Mode: SearchModeVector, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)
	assert.Equal(t, 2, resp.TotalResults)
}

func TestSearchWithCache(t *testing.T) {
	s, _, emb := setupTestSearcher(t)
	ctx := context.Background()
	req := SearchRequest{Query: "shape", Mode: SearchModeVector, UseCache: true}

	first, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, first.CacheHit)

	second, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.True(t, second.CacheHit)
	assert.Equal(t, 1, emb.calls)
	assert.Equal(t, first.Results[0].Chunk.ID, second.Results[0].Chunk.ID)

	// mutating a returned response must not leak into the cache
	second.Results[0].Chunk.ID = "tampered"
	third, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first.Results[0].Chunk.ID, third.Results[0].Chunk.ID)

	s.InvalidateCache()
	fourth, err := s.Search(ctx, req)
	require.NoError(t, err)
	assert.False(t, fourth.CacheHit)
	assert.Equal(t, 2, emb.calls)
}

func TestCheckCache_Expired(t *testing.T) {
	s := NewSearcher(nil, nil)
	req := SearchRequest{Query: "shape", Mode: SearchModeVector, CacheTTL: -time.Second}
	s.storeInCache(req, &SearchResponse{TotalResults: 1})

	assert.Nil(t, s.checkCache(req))
	assert.Zero(t, s.cache.Len())
}

func TestComputeQueryHash(t *testing.T) {
	base := SearchRequest{Query: "shape", Mode: SearchModeVector, Limit: 5}
	assert.Equal(t, computeQueryHash(base), computeQueryHash(base))

	variants := []SearchRequest{
		{Query: "shapes", Mode: SearchModeVector, Limit: 5},
		{Query: "shape", Mode: SearchModeKeyword, Limit: 5},
		{Query: "shape", Mode: SearchModeVector, Limit: 6},
		{Query: "shape", Mode: SearchModeVector, Limit: 5, Tolerance: 0.8},
	}
	for _, v := range variants {
		assert.NotEqual(t, computeQueryHash(base), computeQueryHash(v), "%+v", v)
	}
}

func TestCopySearchResponse(t *testing.T) {
	src := &SearchResponse{
		Results: []types.SearchResult{{
			Rank: 1,
			Chunk: &types.Chunk{
				ID:           "a#b",
				Breadcrumbs:  []string{"A", "B"},
				IsDefinition: types.BoolPtr(true),
			},
		}},
		TotalResults: 1,
	}

	dst := copySearchResponse(src)
	dst.Results[0].Chunk.Breadcrumbs[0] = "changed"
	*dst.Results[0].Chunk.IsDefinition = false

	assert.Equal(t, "A", src.Results[0].Chunk.Breadcrumbs[0])
	assert.True(t, *src.Results[0].Chunk.IsDefinition)
	assert.Nil(t, copySearchResponse(nil))
}

func TestValidate(t *testing.T) {
	s, _, _ := setupTestSearcher(t)
	ctx := context.Background()

	t.Run("all probes pass", func(t *testing.T) {
		err := s.Validate(ctx, []Probe{
			{Query: "shape", ExpectedPath: "shapes.html"},
			{Query: "export", ExpectedPath: "export.html"},
		})
		assert.NoError(t, err)
	})

	t.Run("no probes", func(t *testing.T) {
		assert.NoError(t, s.Validate(ctx, nil))
	})

	t.Run("failures are aggregated", func(t *testing.T) {
		err := s.Validate(ctx, []Probe{
			{Query: "shape", ExpectedPath: "colors.html"},
			{Query: "layer", ExpectedPath: "layers.html"},
			{Query: "export", ExpectedPath: "missing.html"},
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrValidationFailure)

		var verr *types.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, 3, verr.Total)
		require.Len(t, verr.Failures, 2)
		assert.Equal(t, "colors.html", verr.Failures[0].ExpectedPath)
		assert.Equal(t, []string{"shapes.html"}, verr.Failures[0].GotPaths)
		assert.Equal(t, "missing.html", verr.Failures[1].ExpectedPath)
	})

	t.Run("search errors are reported per probe", func(t *testing.T) {
		err := s.Validate(ctx, []Probe{{Query: "   ", ExpectedPath: "shapes.html"}})
		var verr *types.ValidationError
		require.ErrorAs(t, err, &verr)
		require.Len(t, verr.Failures, 1)
		assert.ErrorIs(t, verr.Failures[0].Err, ErrEmptyQuery)
	})
}

func TestValidate_AfterRestore(t *testing.T) {
	s, store, emb := setupTestSearcher(t)
	ctx := context.Background()

	snap, err := store.Persist(ctx)
	require.NoError(t, err)
	restored, err := storage.Restore(ctx, storage.FormatJSON, snap)
	require.NoError(t, err)
	t.Cleanup(func() { _ = restored.Close() })

	probes := []Probe{{Query: "color", ExpectedPath: "colors.html"}}
	require.NoError(t, s.Validate(ctx, probes))
	assert.NoError(t, NewSearcher(restored, emb).Validate(ctx, probes))
}
