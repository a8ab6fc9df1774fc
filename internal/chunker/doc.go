// Package chunker turns parsed documentation sections into chunk records
// ready for embedding.
//
// # Basic Usage
//
//	c := chunker.New(chunker.DefaultConfig())
//	chunks := c.ChunkPage(page, parseResult)
//
// # Chunk Sizing
//
// A section whose searchable text (breadcrumbs, heading, summary and text)
// fits the token budget becomes one chunk with id "{pageId}#{sectionId}".
// Larger sections are split on sentence boundaries into parts of at most
// MaxTokens estimated tokens, ids "{pageId}#{sectionId}__{n}" and headings
// suffixed with "(part n)". A sentence larger than the whole budget is
// emitted alone rather than cut.
//
// Every part after the first starts with the trailing sentences of the
// previous part, up to OverlapTokens, so a match near a split boundary
// keeps its context.
//
// Token counts come from the configured textutil.TokenEstimator.
package chunker
