// Package indexer drives the documentation pipeline: it turns a tree of
// HTML documents into pages and embedded chunks and feeds the chunks to a
// vector store.
//
// # Basic Usage
//
//	idx := indexer.New(emb, indexer.WithLogger(logger))
//
//	stats, err := idx.Run(ctx, store, indexer.Source{
//	    Root:    "./docs",
//	    Pattern: "**/*.html",
//	}, indexer.Options{
//	    BaseURL: "https://example.com/user-guide/",
//	    Lang:    "en",
//	    Version: "local",
//	})
//
// # Pipeline
//
//  1. Discovery: files under Root matching Pattern (doublestar syntax),
//     sorted, optionally restricted to the first-level directories in Include
//  2. Parse: front-matter, headings and sections of each file
//  3. Chunk: one chunk per section, or token-budgeted parts for long ones
//  4. Embed: the searchable text of every chunk, at most Concurrency calls
//     in flight
//  5. Store: sequential inserts; ids already present are skipped
//
// Files are processed one at a time. Within a file the embedding calls run
// concurrently but every result is written to its own chunk, so chunks are
// always ordered by file, section and part.
//
// # Errors
//
// A missing root, a bad pattern or a page id collision under the "error"
// policy fail with types.ErrConfiguration before anything is embedded. A
// read failure (types.ErrSourceRead) or an embedding failure
// (types.ErrEmbeddingFailure) aborts the run unless Options.SkipUnreadable
// is set, which skips unreadable files and lists them in Statistics.
//
// An embedder that returns types.ErrEmbeddingUnavailable leaves chunks
// without vectors; the store embeds them on insert.
//
// # Concurrent Runs
//
// IndexLock lets a long-lived process refuse a second run while one is in
// progress:
//
//	if !lock.TryAcquire() {
//	    return errors.New("indexing already in progress")
//	}
//	defer lock.Release()
package indexer
