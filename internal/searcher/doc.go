// Package searcher answers queries against a docvec vector store.
//
// Three modes are supported:
//   - Hybrid (default): vector similarity and BM25 rankings fused with
//     Reciprocal Rank Fusion, k = 60
//   - Vector: cosine similarity only
//   - Keyword: BM25 full-text search only, no embedding call
//
// # Basic Usage
//
//	s := searcher.NewSearcher(store, emb)
//
//	resp, err := s.Search(ctx, searcher.SearchRequest{
//	    Query: "how do I group layers",
//	    Limit: 10,
//	    Mode:  searcher.SearchModeHybrid,
//	})
//
//	for _, r := range resp.Results {
//	    fmt.Printf("[%d] %s (%.3f)\n", r.Rank, r.Chunk.URL, r.RelevanceScore)
//	}
//
// The embedder must be the one the stored vectors came from. When it cannot
// produce a vector (types.ErrEmbeddingUnavailable) hybrid search falls back
// to keyword search and vector search fails.
//
// Limit defaults to 10 and is capped at 100. Tolerance, when set, drops
// vector hits below that cosine similarity.
//
// # Caching
//
// Requests with UseCache set are answered from an LRU cache keyed by query,
// mode, limit and tolerance. Entries expire after CacheTTL (one hour by
// default). Callers get copies, so mutating a response never changes the
// cache. Call InvalidateCache after the store changes.
//
// # Validation Probes
//
// Validate runs known queries against a freshly built or restored store:
//
//	err := s.Validate(ctx, []searcher.Probe{
//	    {Query: "export to SVG", ExpectedPath: "export/formats.html"},
//	})
//
// Each probe is a vector search with limit 5 and tolerance 0.8 and passes
// when any hit comes from ExpectedPath. Every probe runs; misses are
// collected into one *types.ValidationError.
package searcher
