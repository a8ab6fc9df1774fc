package searcher

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/internal/storage"
	"github.com/dshills/docvec/pkg/types"
)

// SearchMode defines how search is performed
type SearchMode string

const (
	SearchModeHybrid  SearchMode = "hybrid"  // Vector + BM25 with RRF
	SearchModeVector  SearchMode = "vector"  // Vector similarity only
	SearchModeKeyword SearchMode = "keyword" // BM25 text search only
)

const (
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultCacheSize = 1000
	DefaultCacheTTL  = time.Hour

	// ProbeLimit and ProbeTolerance are the search settings of validation probes
	ProbeLimit     = 5
	ProbeTolerance = 0.8
)

// ErrEmptyQuery is returned for blank queries
var ErrEmptyQuery = errors.New("query cannot be empty")

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	Query     string
	Limit     int
	Mode      SearchMode
	Tolerance float64 // minimum cosine similarity of vector hits, 0 disables
	UseCache  bool
	CacheTTL  time.Duration
}

// SearchResponse contains search results and metadata
type SearchResponse struct {
	Results      []types.SearchResult
	TotalResults int
	SearchMode   SearchMode
	Duration     time.Duration
	CacheHit     bool
}

// Probe is a known query and the source document it must surface
type Probe struct {
	Query        string `json:"query" yaml:"query" koanf:"query"`
	ExpectedPath string `json:"expectedPath" yaml:"expectedPath" koanf:"expectedPath"`
}

// cacheEntry represents a cached search response with expiration time
type cacheEntry struct {
	response  *SearchResponse
	expiresAt time.Time
}

// Searcher runs queries against a vector store
type Searcher struct {
	store    storage.Store
	embedder embedder.Embedder
	logger   *zap.Logger
	cache    *lru.Cache[[32]byte, *cacheEntry]
	cacheMu  sync.RWMutex
}

// Option configures a Searcher
type Option func(*Searcher)

// WithLogger sets the logger
func WithLogger(l *zap.Logger) Option {
	return func(s *Searcher) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithCacheSize replaces the default query cache capacity
func WithCacheSize(size int) Option {
	return func(s *Searcher) {
		if size <= 0 {
			return
		}
		if c, err := lru.New[[32]byte, *cacheEntry](size); err == nil {
			s.cache = c
		}
	}
}

// NewSearcher creates a Searcher. emb embeds queries and must produce
// vectors comparable to the stored ones.
func NewSearcher(store storage.Store, emb embedder.Embedder, opts ...Option) *Searcher {
	cache, err := lru.New[[32]byte, *cacheEntry](DefaultCacheSize)
	if err != nil {
		panic(fmt.Sprintf("failed to create LRU cache: %v", err))
	}
	s := &Searcher{
		store:    store,
		embedder: emb,
		logger:   zap.NewNop(),
		cache:    cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search performs a search based on the request parameters
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	start := time.Now()

	if s.store == nil {
		return nil, errors.New("store not initialized")
	}
	if err := validateRequest(&req); err != nil {
		return nil, fmt.Errorf("invalid search request: %w", err)
	}

	if req.UseCache {
		if cached := s.checkCache(req); cached != nil {
			cached.CacheHit = true
			cached.Duration = time.Since(start)
			return cached, nil
		}
	}

	q, err := s.buildQuery(ctx, req)
	if err != nil {
		return nil, err
	}

	hits, err := s.store.Search(ctx, q)
	if err != nil {
		return nil, err
	}

	results := make([]types.SearchResult, 0, len(hits))
	for _, hit := range hits {
		chunk, err := hit.Document.ToChunk()
		if err != nil {
			s.logger.Warn("skipping unreadable hit", zap.String("id", hit.ID), zap.Error(err))
			continue
		}
		results = append(results, types.SearchResult{
			Rank:           len(results) + 1,
			RelevanceScore: hit.Score,
			Chunk:          chunk,
		})
	}

	resp := &SearchResponse{
		Results:      results,
		TotalResults: len(results),
		SearchMode:   req.Mode,
		Duration:     time.Since(start),
	}

	if req.UseCache && len(results) > 0 {
		s.storeInCache(req, resp)
	}
	return resp, nil
}

// buildQuery turns a request into a store query. Hybrid search degrades to
// keyword search when no query vector can be produced.
func (s *Searcher) buildQuery(ctx context.Context, req SearchRequest) (storage.Query, error) {
	q := storage.Query{Limit: req.Limit, Tolerance: req.Tolerance}

	switch req.Mode {
	case SearchModeKeyword:
		q.Term = req.Query
		return q, nil
	case SearchModeVector, SearchModeHybrid:
	default:
		return q, fmt.Errorf("unsupported search mode: %s", req.Mode)
	}

	vector, err := s.embedQuery(ctx, req.Query)
	if err != nil {
		if req.Mode == SearchModeHybrid && errors.Is(err, types.ErrEmbeddingUnavailable) {
			s.logger.Debug("no query vector, falling back to keyword search", zap.Error(err))
			q.Term = req.Query
			return q, nil
		}
		return q, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	q.Vector = vector
	if req.Mode == SearchModeHybrid {
		q.Term = req.Query
	}
	return q, nil
}

func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("%w: no query embedder", types.ErrEmbeddingUnavailable)
	}
	emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: query})
	if err != nil {
		return nil, err
	}
	return emb.Vector, nil
}

// Validate runs every probe as a vector search and reports the probes whose
// expected document is missing from the top hits. All probes run even when
// some fail.
func (s *Searcher) Validate(ctx context.Context, probes []Probe) error {
	if len(probes) == 0 {
		return nil
	}

	verr := &types.ValidationError{Total: len(probes)}
	for _, p := range probes {
		resp, err := s.Search(ctx, SearchRequest{
			Query:     p.Query,
			Limit:     ProbeLimit,
			Mode:      SearchModeVector,
			Tolerance: ProbeTolerance,
		})
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			verr.Failures = append(verr.Failures, types.ProbeFailure{
				Query:        p.Query,
				ExpectedPath: p.ExpectedPath,
				Err:          err,
			})
			continue
		}

		got := make([]string, 0, len(resp.Results))
		for _, r := range resp.Results {
			got = append(got, r.Chunk.SourcePath)
		}
		if slices.Contains(got, p.ExpectedPath) {
			s.logger.Debug("probe passed", zap.String("query", p.Query), zap.String("path", p.ExpectedPath))
			continue
		}

		s.logger.Warn("probe missed",
			zap.String("query", p.Query),
			zap.String("expected", p.ExpectedPath),
			zap.Strings("got", got))
		verr.Failures = append(verr.Failures, types.ProbeFailure{
			Query:        p.Query,
			ExpectedPath: p.ExpectedPath,
			GotPaths:     got,
		})
	}

	if len(verr.Failures) > 0 {
		return verr
	}
	return nil
}

// validateRequest ensures search request is valid
func validateRequest(req *SearchRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return ErrEmptyQuery
	}
	if req.Limit <= 0 {
		req.Limit = DefaultLimit
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	if req.Mode == "" {
		req.Mode = SearchModeHybrid
	}
	if req.Tolerance < 0 || req.Tolerance > 1 {
		return fmt.Errorf("tolerance %v outside [0, 1]", req.Tolerance)
	}
	if req.CacheTTL == 0 {
		req.CacheTTL = DefaultCacheTTL
	}
	return nil
}

// checkCache returns a copy of a live cached response, or nil
func (s *Searcher) checkCache(req SearchRequest) *SearchResponse {
	hash := computeQueryHash(req)
	now := time.Now()

	s.cacheMu.RLock()
	entry, found := s.cache.Get(hash)
	if !found {
		s.cacheMu.RUnlock()
		return nil
	}
	if now.After(entry.expiresAt) {
		s.cacheMu.RUnlock()

		s.cacheMu.Lock()
		s.cache.Remove(hash)
		s.cacheMu.Unlock()
		return nil
	}
	response := copySearchResponse(entry.response)
	s.cacheMu.RUnlock()

	return response
}

// storeInCache saves a copy of response
func (s *Searcher) storeInCache(req SearchRequest, response *SearchResponse) {
	entry := &cacheEntry{
		response:  copySearchResponse(response),
		expiresAt: time.Now().Add(req.CacheTTL),
	}

	s.cacheMu.Lock()
	s.cache.Add(computeQueryHash(req), entry)
	s.cacheMu.Unlock()
}

// InvalidateCache drops every cached response. Call it after the store changes.
func (s *Searcher) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache.Purge()
	s.cacheMu.Unlock()
}

// copySearchResponse creates a deep copy of a SearchResponse
func copySearchResponse(src *SearchResponse) *SearchResponse {
	if src == nil {
		return nil
	}

	dst := *src
	dst.Results = make([]types.SearchResult, len(src.Results))
	for i, r := range src.Results {
		dst.Results[i] = r
		if r.Chunk != nil {
			dst.Results[i].Chunk = copyChunk(r.Chunk)
		}
	}
	return &dst
}

func copyChunk(c *types.Chunk) *types.Chunk {
	cp := *c
	cp.Breadcrumbs = slices.Clone(c.Breadcrumbs)
	cp.CodeLangs = slices.Clone(c.CodeLangs)
	cp.Embedding = slices.Clone(c.Embedding)
	cp.Links = slices.Clone(c.Links)
	cp.Images = slices.Clone(c.Images)
	if c.IsDefinition != nil {
		cp.IsDefinition = types.BoolPtr(*c.IsDefinition)
	}
	return &cp
}

// computeQueryHash computes a unique hash for a search request
func computeQueryHash(req SearchRequest) [32]byte {
	var data strings.Builder
	data.WriteString(req.Query)
	data.WriteString("|")
	data.WriteString(string(req.Mode))
	data.WriteString("|")
	data.WriteString(strconv.Itoa(req.Limit))
	data.WriteString("|")
	data.WriteString(strconv.FormatFloat(req.Tolerance, 'f', -1, 64))

	return sha256.Sum256([]byte(data.String()))
}
