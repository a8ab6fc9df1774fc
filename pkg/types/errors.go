package types

import (
	"errors"
	"fmt"
	"strings"
)

// Run-level error taxonomy. Wrap with %w and classify with errors.Is.
var (
	// ErrConfiguration: a required credential or source path is missing. Fatal before processing.
	ErrConfiguration = errors.New("configuration error")
	// ErrSourceRead: a document could not be read or parsed.
	ErrSourceRead = errors.New("source read error")
	// ErrEmbeddingFailure: the embedding provider call failed.
	ErrEmbeddingFailure = errors.New("embedding failure")
	// ErrEmbeddingUnavailable: the active strategy defers embedding to the store.
	ErrEmbeddingUnavailable = errors.New("embedding unavailable")
	// ErrDuplicateKey: the store already holds a record with this id. Callers skip.
	ErrDuplicateKey = errors.New("duplicate key")
	// ErrValidationFailure: one or more search probes missed their expected document.
	ErrValidationFailure = errors.New("validation failure")
)

// Record validation errors
var (
	ErrInvalidChunkID    = errors.New("invalid chunk ID")
	ErrEmptyContent      = errors.New("content cannot be empty")
	ErrDimensionMismatch = errors.New("embedding dimension does not match vector dimension")
	ErrInvalidRank       = errors.New("rank must be >= 1")
)

// ProbeFailure describes one validation probe that missed
type ProbeFailure struct {
	Query        string
	ExpectedPath string
	GotPaths     []string
	Err          error
}

// ValidationError aggregates every failed probe of a run
type ValidationError struct {
	Total    int
	Failures []ProbeFailure
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d search probes failed", len(e.Failures), e.Total)
	for _, f := range e.Failures {
		if f.Err != nil {
			fmt.Fprintf(&b, "; %q: %v", f.Query, f.Err)
			continue
		}
		fmt.Fprintf(&b, "; %q: expected %s, got [%s]", f.Query, f.ExpectedPath, strings.Join(f.GotPaths, ", "))
	}
	return b.String()
}

// Unwrap lets errors.Is match ErrValidationFailure
func (e *ValidationError) Unwrap() error {
	return ErrValidationFailure
}
