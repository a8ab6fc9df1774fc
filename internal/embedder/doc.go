// Package embedder turns chunk text into vectors.
//
// Five strategies are available:
//
//   - openai: OpenAI embeddings endpoint (1536 dimensions by default)
//   - jina: Jina AI embeddings endpoint (1024)
//   - gemini: Google Generative AI text-embedding-004 (768)
//   - local: deterministic hashed bag-of-words vectors, no network
//   - store: no vectors here; the vector store embeds at insert time
//
// Remote strategies take their key from Config.APIKey or, when empty, from
// OPENAI_API_KEY, JINA_API_KEY or GEMINI_API_KEY.
//
// # Basic Usage
//
//	emb, err := embedder.New(ctx, embedder.Config{
//	    Provider:  "openai",
//	    Dimension: 1536,
//	    CacheSize: embedder.DefaultCacheSize,
//	})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	result, err := emb.GenerateEmbedding(ctx, embedder.EmbeddingRequest{
//	    Text: chunk.SearchableText,
//	})
//
// Blank text never reaches a provider: it yields a zero vector of the
// configured dimension.
//
// # Caching
//
// Providers share an LRU cache keyed by ComputeHash(model, text). Entries
// are copied on the way in and out so callers may mutate returned vectors.
//
// # Error Handling
//
// Transient failures (network errors, HTTP 429 and 5xx) are retried with
// exponential backoff. Other client errors fail immediately. Every provider
// failure wraps types.ErrEmbeddingFailure:
//
//	if errors.Is(err, types.ErrEmbeddingFailure) {
//	    // abort the run
//	}
//
// The store strategy returns types.ErrEmbeddingUnavailable, which the
// indexer treats as "leave the embedding empty".
package embedder
