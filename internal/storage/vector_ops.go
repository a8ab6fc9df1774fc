package storage

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"
)

const (
	// DefaultSearchLimit is used when a query sets no limit
	DefaultSearchLimit = 10

	// RRFConstant is k in the Reciprocal Rank Fusion score 1/(k + rank)
	RRFConstant = 60.0
)

// scored is a record (by rowid) with its relevance score
type scored struct {
	seq   int64
	score float64
}

// searchVector ranks embedded records by cosine similarity to vector.
// Distances are computed in SQL only when the sqlite-vec functions are
// registered on the connection.
func searchVector(ctx context.Context, db *sql.DB, vecSQL bool, vector []float32, limit int, tolerance float64) ([]scored, error) {
	if vecSQL {
		return searchVectorOptimized(ctx, db, vector, limit, tolerance)
	}
	return searchVectorFallback(ctx, db, vector, limit, tolerance)
}

// vectorFunctionsLoaded reports whether the build links the sqlite-vec
// extension and the connection actually exposes its functions.
func vectorFunctionsLoaded(ctx context.Context, db *sql.DB) bool {
	if !VectorExtensionAvailable {
		return false
	}
	var v string
	return db.QueryRowContext(ctx, "SELECT vec_version()").Scan(&v) == nil
}

// searchVectorOptimized computes distances in SQL with the sqlite-vec extension
func searchVectorOptimized(ctx context.Context, db *sql.DB, vector []float32, limit int, tolerance float64) ([]scored, error) {
	blob := serializeVector(vector)

	// vec_distance_cosine is a distance; 1 - distance is the similarity
	query := `
		SELECT seq, 1.0 - vec_distance_cosine(embedding, ?) AS similarity
		FROM chunks
		WHERE embedding IS NOT NULL
	`
	args := []interface{}{blob}
	if tolerance > 0 {
		query += " AND (1.0 - vec_distance_cosine(embedding, ?)) >= ?"
		args = append(args, blob, tolerance)
	}
	query += " ORDER BY similarity DESC, seq LIMIT ?"
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]scored, 0, limit)
	for rows.Next() {
		var r scored
		if err := rows.Scan(&r.seq, &r.score); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// searchVectorFallback scores every embedded record in Go
func searchVectorFallback(ctx context.Context, db *sql.DB, vector []float32, limit int, tolerance float64) ([]scored, error) {
	rows, err := db.QueryContext(ctx, "SELECT seq, embedding FROM chunks WHERE embedding IS NOT NULL")
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	candidates := make([]scored, 0, 256)
	for rows.Next() {
		var seq int64
		var blob []byte
		if err := rows.Scan(&seq, &blob); err != nil {
			return nil, err
		}

		stored := deserializeVector(blob)
		if len(stored) != len(vector) {
			continue
		}
		similarity := cosineSimilarity(vector, stored)
		if tolerance > 0 && similarity < tolerance {
			continue
		}
		candidates = append(candidates, scored{seq: seq, score: similarity})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sortScored(candidates)
	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return candidates, nil
}

// searchText performs BM25 full-text search using FTS5
func searchText(ctx context.Context, db *sql.DB, term string, limit int) ([]scored, error) {
	match := sanitizeFTSQuery(term)
	if match == "" {
		return nil, nil
	}

	// bm25() is negative, lower is better
	rows, err := db.QueryContext(ctx, `
		SELECT c.seq, bm25(chunks_fts) AS score
		FROM chunks_fts
		INNER JOIN chunks c ON c.seq = chunks_fts.rowid
		WHERE chunks_fts MATCH ?
		ORDER BY score, c.seq
		LIMIT ?
	`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]scored, 0, limit)
	for rows.Next() {
		var r scored
		var bm25 float64
		if err := rows.Scan(&r.seq, &bm25); err != nil {
			return nil, err
		}
		r.score = normalizeBM25(bm25)
		results = append(results, r)
	}
	return results, rows.Err()
}

// normalizeBM25 maps an FTS5 bm25 value onto [0, 1), higher is better
func normalizeBM25(bm25 float64) float64 {
	x := math.Abs(bm25)
	return x / (1 + x)
}

// applyRRF fuses rankings: score(d) = sum over lists of 1/(k + rank(d))
func applyRRF(k float64, lists ...[]scored) []scored {
	scores := make(map[int64]float64)
	for _, list := range lists {
		for rank, r := range list {
			scores[r.seq] += 1.0 / (k + float64(rank+1))
		}
	}

	fused := make([]scored, 0, len(scores))
	for seq, score := range scores {
		fused = append(fused, scored{seq: seq, score: score})
	}
	sortScored(fused)
	return fused
}

// sortScored orders by score descending, then insertion order
func sortScored(s []scored) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].score != s[j].score {
			return s[i].score > s[j].score
		}
		return s[i].seq < s[j].seq
	})
}

// sanitizeFTSQuery turns free text into an FTS5 query of quoted words joined
// by OR, so user input can never reach the FTS5 query syntax.
func sanitizeFTSQuery(term string) string {
	words := strings.FieldsFunc(term, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(words) == 0 {
		return ""
	}
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = `"` + w + `"`
	}
	return strings.Join(quoted, " OR ")
}

// serializeVector converts a float32 slice to a byte blob (little-endian)
func serializeVector(vector []float32) []byte {
	blob := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(blob[i*4:], math.Float32bits(v))
	}
	return blob
}

// deserializeVector converts a byte blob back to a float32 slice
func deserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4:]))
	}
	return vector
}

// cosineSimilarity computes the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// CosineSimilarity is exported for callers that rank vectors outside the store
func CosineSimilarity(a, b []float32) float64 {
	return cosineSimilarity(a, b)
}
