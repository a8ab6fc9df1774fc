// Package textutil holds the pure text helpers shared by the parser and the
// chunker: whitespace normalization, heuristic sentence splitting, token
// estimation and slugs.
//
// Token counts come from a TokenEstimator so a real tokenizer can replace
// the ceil(len/4) heuristic without touching the chunk budget logic.
package textutil
