// Package types provides shared type definitions for docvec.
//
// Page is one source document. Chunk is the smallest retrievable unit of
// embedded text and always belongs to one page and one heading section:
//
//	chunk := &types.Chunk{
//	    ID:           "shapes#triangle",
//	    PageID:       "shapes",
//	    Breadcrumbs:  []string{"Shapes", "Polygons", "Triangle"},
//	    SectionLevel: 3,
//	}
//
// Chunk ids are "{pageId}#{sectionId}" for sections that fit the token
// budget and "{pageId}#{sectionId}__{n}" (1-based) for the parts of a split
// section.
//
// # Errors
//
// The run-level taxonomy (ErrConfiguration, ErrSourceRead, ErrEmbeddingFailure,
// ErrEmbeddingUnavailable, ErrDuplicateKey, ErrValidationFailure) is shared by
// every package. Errors are wrapped with %w:
//
//	if errors.Is(err, types.ErrDuplicateKey) {
//	    // already indexed, skip
//	}
//
// ValidationError aggregates failed search probes and unwraps to
// ErrValidationFailure.
package types
