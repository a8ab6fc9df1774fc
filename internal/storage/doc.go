// Package storage is the vector store for chunk records.
//
// Records live in SQLite: one row per chunk in the chunks table, with the
// embedding as a little-endian float32 blob and array-valued fields
// (breadcrumbs, code languages, links, images) as JSON strings. An FTS5
// table over heading, summary and searchable text is kept in sync by
// triggers.
//
// # Basic Usage
//
//	store, err := storage.Open(ctx, storage.MemoryPath)
//	if err != nil {
//	    return err
//	}
//	defer store.Close()
//
//	if err := store.Initialize(ctx, storage.DefaultSchema(1536)); err != nil {
//	    return err
//	}
//
//	rec, _ := storage.FromChunk(chunk)
//	if err := store.Insert(ctx, rec); errors.Is(err, types.ErrDuplicateKey) {
//	    // already indexed, skip
//	}
//
// # Search
//
// A Query with only a vector ranks by cosine similarity, optionally cut at
// Tolerance. A query with only a term uses BM25. With both, the two lists are
// fused with Reciprocal Rank Fusion (k = 60).
//
// # Snapshots and Artifacts
//
// Persist returns the schema and every record in insertion order. The
// artifact is that snapshot as gzip-compressed JSON:
//
//	{"schema": {...}, "data": {"documents": [...]}}
//
// Restore rebuilds an in-memory store from a snapshot that answers the same
// searches with the same results:
//
//	snap, _ := storage.ReadArtifact("public/designRagToolContents.zip")
//	store, err := storage.Restore(ctx, storage.FormatJSON, snap)
//
// # Build Modes
//
// The default build uses modernc.org/sqlite (pure Go) and scores vectors in
// Go. Building with -tags sqlite_vec switches to github.com/mattn/go-sqlite3
// and computes cosine distance in SQL through the sqlite-vec extension.
package storage
