package storage

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Format names a snapshot encoding accepted by Restore
type Format string

// FormatJSON is the only snapshot format: {"schema": ..., "data": ...}
const FormatJSON Format = "json"

// Snapshot is the serializable state of a store
type Snapshot struct {
	Schema Schema       `json:"schema"`
	Data   SnapshotData `json:"data"`
}

// SnapshotData holds the records in insertion order
type SnapshotData struct {
	Documents []*Record `json:"documents"`
}

// Persist captures the schema and every record in insertion order
func (s *SQLiteStore) Persist(ctx context.Context) (*Snapshot, error) {
	schema := s.Schema()
	if schema == nil {
		return nil, ErrNotInitialized
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+recordColumns+" FROM chunks c ORDER BY c.seq")
	if err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	docs := make([]*Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		docs = append(docs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &Snapshot{Schema: *schema, Data: SnapshotData{Documents: docs}}, nil
}

// Restore builds an in-memory store holding the snapshot's schema and
// records. Records are not re-embedded.
func Restore(ctx context.Context, format Format, snap *Snapshot, opts ...Option) (*SQLiteStore, error) {
	if format != FormatJSON {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if snap == nil {
		return nil, fmt.Errorf("%w: nil snapshot", ErrUnsupportedFormat)
	}

	s, err := Open(ctx, MemoryPath, opts...)
	if err != nil {
		return nil, err
	}
	// Snapshot records keep their vectors as they are, even when empty
	emb := s.embedder
	s.embedder = nil

	if err := s.Initialize(ctx, snap.Schema); err != nil {
		_ = s.Close()
		return nil, err
	}
	for _, rec := range snap.Data.Documents {
		if err := s.Insert(ctx, rec); err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("restore %s: %w", rec.ID, err)
		}
	}

	s.embedder = emb

	s.logger.Debug("store restored", zap.Int("documents", len(snap.Data.Documents)))
	return s, nil
}
