package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dshills/docvec/internal/embedder"
	"github.com/dshills/docvec/pkg/types"
)

// MemoryPath opens a private in-memory database
const MemoryPath = ":memory:"

// Option configures a SQLiteStore
type Option func(*SQLiteStore)

// WithEmbedder makes the store embed records that arrive without a vector
func WithEmbedder(e embedder.Embedder) Option {
	return func(s *SQLiteStore) {
		s.embedder = e
	}
}

// WithLogger sets the store logger
func WithLogger(l *zap.Logger) Option {
	return func(s *SQLiteStore) {
		if l != nil {
			s.logger = l
		}
	}
}

// SQLiteStore implements Store on SQLite with an FTS5 index
type SQLiteStore struct {
	db       *sql.DB
	embedder embedder.Embedder
	logger   *zap.Logger
	vecSQL   bool

	mu     sync.RWMutex
	schema *Schema
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// One connection: a single writer, and ":memory:" stays one database
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if dbPath != MemoryPath {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	return db, nil
}

// Open opens (or creates) a store at dbPath and applies migrations. A store
// that was initialized before picks its schema back up.
func Open(ctx context.Context, dbPath string, opts ...Option) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	s := &SQLiteStore{db: db, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}

	s.vecSQL = vectorFunctionsLoaded(ctx, db)
	if VectorExtensionAvailable && !s.vecSQL {
		s.logger.Warn("sqlite-vec functions not registered, using in-process cosine search")
	}

	schema, err := s.loadSchema(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.schema = schema

	return s, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Initialize declares the record schema. Re-initializing with a different
// vector dimension is refused.
func (s *SQLiteStore) Initialize(ctx context.Context, schema Schema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schema != nil && s.schema.VectorDimension != schema.VectorDimension {
		return fmt.Errorf("%w: store holds %d-dimensional vectors, got %d",
			ErrSchemaMismatch, s.schema.VectorDimension, schema.VectorDimension)
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("encode schema: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO store_meta (key, value) VALUES ('schema', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, string(raw))
	if err != nil {
		return fmt.Errorf("failed to save schema: %w", err)
	}

	s.schema = &schema
	s.logger.Debug("store initialized", zap.Int("dimension", schema.VectorDimension))
	return nil
}

func (s *SQLiteStore) loadSchema(ctx context.Context) (*Schema, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM store_meta WHERE key = 'schema'").Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}
	var schema Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return &schema, nil
}

// Schema returns the declared schema, nil before Initialize
func (s *SQLiteStore) Schema() *Schema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.schema == nil {
		return nil
	}
	cp := *s.schema
	return &cp
}

// Insert adds rec. A record without an embedding is embedded here when the
// store has an embedder, otherwise it is stored without a vector.
func (s *SQLiteStore) Insert(ctx context.Context, rec *Record) error {
	schema := s.Schema()
	if schema == nil {
		return ErrNotInitialized
	}
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("%w: record has no id", ErrSchemaMismatch)
	}

	vector := rec.Embedding
	if vector == nil && s.embedder != nil {
		emb, err := s.embedder.GenerateEmbedding(ctx, embedder.EmbeddingRequest{Text: rec.SearchableText})
		if err != nil {
			return fmt.Errorf("embed %s: %w", rec.ID, err)
		}
		vector = emb.Vector
		rec.Embedding = vector
	}
	if vector != nil && len(vector) != schema.VectorDimension {
		return fmt.Errorf("%w: %s has %d-dimensional embedding, schema wants %d",
			ErrSchemaMismatch, rec.ID, len(vector), schema.VectorDimension)
	}

	var blob []byte
	if vector != nil {
		blob = serializeVector(vector)
	}

	query := `
		INSERT INTO chunks (
			id, page_id, url, source_path, lang, version, breadcrumbs,
			section_level, section_id, heading, has_code, code_langs, text, summary,
			is_definition, tokens, embedding, vector_dim, searchable_text, links, images
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`
	result, err := s.db.ExecContext(ctx, query,
		rec.ID, rec.PageID, rec.URL, rec.SourcePath, rec.Lang, rec.Version, orEmptyList(rec.Breadcrumbs),
		rec.SectionLevel, rec.SectionID, rec.Heading, rec.HasCode, orEmptyList(rec.CodeLangs), rec.Text, rec.Summary,
		nullBool(rec.IsDefinition), rec.Tokens, blob, rec.VectorDim, rec.SearchableText,
		orEmptyList(rec.Links), orEmptyList(rec.Images))
	if err != nil {
		return fmt.Errorf("failed to insert %s: %w", rec.ID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", types.ErrDuplicateKey, rec.ID)
	}
	return nil
}

// recordColumns is the column list scanned by scanRecord
const recordColumns = `
	c.id, c.page_id, c.url, c.source_path, c.lang, c.version, c.breadcrumbs,
	c.section_level, c.section_id, c.heading, c.has_code, c.code_langs, c.text, c.summary,
	c.is_definition, c.tokens, c.embedding, c.vector_dim, c.searchable_text, c.links, c.images`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner, extra ...any) (*Record, error) {
	var rec Record
	var url, source, lang, version, sectionID, heading, text, summary sql.NullString
	var isDef sql.NullBool
	var tokens, dim sql.NullInt64
	var blob []byte

	dest := []any{
		&rec.ID, &rec.PageID, &url, &source, &lang, &version, &rec.Breadcrumbs,
		&rec.SectionLevel, &sectionID, &heading, &rec.HasCode, &rec.CodeLangs, &text, &summary,
		&isDef, &tokens, &blob, &dim, &rec.SearchableText, &rec.Links, &rec.Images,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}

	rec.URL, rec.SourcePath, rec.Lang, rec.Version = url.String, source.String, lang.String, version.String
	rec.SectionID, rec.Heading, rec.Text, rec.Summary = sectionID.String, heading.String, text.String, summary.String
	rec.Tokens, rec.VectorDim = int(tokens.Int64), int(dim.Int64)
	if isDef.Valid {
		v := isDef.Bool
		rec.IsDefinition = &v
	}
	if len(blob) > 0 {
		rec.Embedding = deserializeVector(blob)
	}
	return &rec, nil
}

// Get returns the record with the given id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Record, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM chunks c WHERE c.id = ?", id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Count returns the number of stored records
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// Search ranks records for q
func (s *SQLiteStore) Search(ctx context.Context, q Query) ([]Hit, error) {
	if s.Schema() == nil {
		return nil, ErrNotInitialized
	}
	if q.Limit <= 0 {
		q.Limit = DefaultSearchLimit
	}

	var ranked []scored
	var err error
	switch {
	case q.Vector != nil && q.Term != "":
		ranked, err = s.searchHybrid(ctx, q)
	case q.Vector != nil:
		ranked, err = searchVector(ctx, s.db, s.vecSQL, q.Vector, q.Limit, q.Tolerance)
	case q.Term != "":
		ranked, err = searchText(ctx, s.db, q.Term, q.Limit)
	default:
		return nil, errors.New("query needs a vector or a term")
	}
	if err != nil {
		return nil, err
	}

	return s.loadHits(ctx, ranked)
}

func (s *SQLiteStore) searchHybrid(ctx context.Context, q Query) ([]scored, error) {
	vectorHits, err := searchVector(ctx, s.db, s.vecSQL, q.Vector, q.Limit*2, q.Tolerance)
	if err != nil {
		return nil, err
	}
	textHits, err := searchText(ctx, s.db, q.Term, q.Limit*2)
	if err != nil {
		return nil, err
	}
	fused := applyRRF(RRFConstant, vectorHits, textHits)
	if len(fused) > q.Limit {
		fused = fused[:q.Limit]
	}
	return fused, nil
}

func (s *SQLiteStore) loadHits(ctx context.Context, ranked []scored) ([]Hit, error) {
	hits := make([]Hit, 0, len(ranked))
	for _, r := range ranked {
		row := s.db.QueryRowContext(ctx, "SELECT "+recordColumns+" FROM chunks c WHERE c.seq = ?", r.seq)
		rec, err := scanRecord(row)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load hit: %w", err)
		}
		hits = append(hits, Hit{ID: rec.ID, Score: r.score, Document: rec})
	}
	return hits, nil
}

// RecordRun appends an index run to the history
func (s *SQLiteStore) RecordRun(ctx context.Context, run *IndexRun) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO index_runs (id, source, pages, chunks, inserted, skipped, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, run.ID, run.Source, run.Pages, run.Chunks, run.Inserted, run.Skipped,
		run.StartedAt.UTC().Format(time.RFC3339Nano), run.FinishedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// LastRun returns the most recently finished index run, or nil
func (s *SQLiteStore) LastRun(ctx context.Context) (*IndexRun, error) {
	var run IndexRun
	var started, finished string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, source, pages, chunks, inserted, skipped, started_at, finished_at
		FROM index_runs ORDER BY finished_at DESC LIMIT 1
	`).Scan(&run.ID, &run.Source, &run.Pages, &run.Chunks, &run.Inserted, &run.Skipped, &started, &finished)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	run.StartedAt, _ = time.Parse(time.RFC3339Nano, started)
	run.FinishedAt, _ = time.Parse(time.RFC3339Nano, finished)
	return &run, nil
}

// Status reports store statistics and health
func (s *SQLiteStore) Status(ctx context.Context) (*Status, error) {
	status := &Status{}

	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks").Scan(&status.Documents); err != nil {
		return nil, err
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM chunks WHERE embedding IS NOT NULL").Scan(&status.Embedded); err != nil {
		return nil, err
	}

	var pageCount, pageSize int
	if err := s.db.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = s.db.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	run, err := s.LastRun(ctx)
	if err != nil {
		return nil, err
	}
	status.LastRun = run

	schema := s.Schema()
	if schema != nil {
		status.VectorDimension = schema.VectorDimension
	}
	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		Initialized:         schema != nil,
		EmbeddingsAvailable: status.Embedded > 0,
	}
	return status, nil
}

func nullBool(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}

func orEmptyList(s string) string {
	if s == "" {
		return "[]"
	}
	return s
}
