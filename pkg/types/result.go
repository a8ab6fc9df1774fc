package types

// SearchResult represents a single ranked hit returned to callers
type SearchResult struct {
	Rank           int     // Position in result set (1-based)
	RelevanceScore float64 // cosine similarity, normalized BM25 or RRF depending on mode

	Chunk *Chunk
}

// Validate checks if the search result is valid
func (sr *SearchResult) Validate() error {
	if sr.Rank < 1 {
		return ErrInvalidRank
	}
	if sr.Chunk == nil || sr.Chunk.ID == "" {
		return ErrInvalidChunkID
	}
	if sr.Chunk.Text == "" && sr.Chunk.SearchableText == "" {
		return ErrEmptyContent
	}
	return nil
}
