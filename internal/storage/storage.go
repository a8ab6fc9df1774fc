package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dshills/docvec/pkg/types"
)

var (
	// ErrNotFound is returned when a requested record doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrNotInitialized is returned when records arrive before a schema
	ErrNotInitialized = errors.New("store not initialized")
	// ErrSchemaMismatch is returned when a record does not fit the schema
	ErrSchemaMismatch = errors.New("record does not match schema")
	// ErrUnsupportedFormat is returned by Restore for unknown snapshot formats
	ErrUnsupportedFormat = errors.New("unsupported snapshot format")
)

// Store is the vector store gateway: chunk records in, ranked hits out
type Store interface {
	// Initialize declares the schema. It must be called before Insert.
	Initialize(ctx context.Context, schema Schema) error

	// Insert adds one record. An existing id fails with types.ErrDuplicateKey.
	Insert(ctx context.Context, rec *Record) error

	// Search ranks records by vector similarity, full-text relevance, or both
	Search(ctx context.Context, q Query) ([]Hit, error)

	// Count returns the number of stored records
	Count(ctx context.Context) (int, error)

	// Persist captures schema and records as a serializable snapshot
	Persist(ctx context.Context) (*Snapshot, error)

	Close() error
}

// RunRecorder is implemented by stores that keep a history of index runs
type RunRecorder interface {
	RecordRun(ctx context.Context, run *IndexRun) error
}

// FieldType is a scalar or vector field type of the schema
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
)

// VectorField returns the field type of an embedding with dim components
func VectorField(dim int) FieldType {
	return FieldType(fmt.Sprintf("vector[%d]", dim))
}

// Schema describes the fields of every record. Array-valued chunk fields are
// declared as strings because they are stored JSON-encoded.
type Schema struct {
	Fields          map[string]FieldType `json:"fields"`
	VectorDimension int                  `json:"vectorDimension"`
}

// DefaultSchema returns the chunk schema for embeddings of length dim
func DefaultSchema(dim int) Schema {
	return Schema{
		Fields: map[string]FieldType{
			"id":             FieldString,
			"pageId":         FieldString,
			"url":            FieldString,
			"sourcePath":     FieldString,
			"lang":           FieldString,
			"version":        FieldString,
			"breadcrumbs":    FieldString,
			"sectionLevel":   FieldNumber,
			"sectionId":      FieldString,
			"heading":        FieldString,
			"hasCode":        FieldBoolean,
			"codeLangs":      FieldString,
			"text":           FieldString,
			"summary":        FieldString,
			"isDefinition":   FieldBoolean,
			"tokens":         FieldNumber,
			"embedding":      VectorField(dim),
			"vectorDim":      FieldNumber,
			"searchableText": FieldString,
			"links":          FieldString,
			"images":         FieldString,
		},
		VectorDimension: dim,
	}
}

// Validate checks that the schema can hold chunk records
func (s Schema) Validate() error {
	if s.VectorDimension <= 0 {
		return fmt.Errorf("%w: vector dimension must be positive", types.ErrConfiguration)
	}
	for _, name := range []string{"id", "searchableText", "embedding"} {
		if _, ok := s.Fields[name]; !ok {
			return fmt.Errorf("%w: schema lacks field %q", types.ErrConfiguration, name)
		}
	}
	if s.Fields["embedding"] != VectorField(s.VectorDimension) {
		return fmt.Errorf("%w: embedding field %q does not match dimension %d",
			types.ErrConfiguration, s.Fields["embedding"], s.VectorDimension)
	}
	return nil
}

// Record is a chunk flattened for the store
type Record struct {
	ID             string    `json:"id"`
	PageID         string    `json:"pageId"`
	URL            string    `json:"url"`
	SourcePath     string    `json:"sourcePath"`
	Lang           string    `json:"lang"`
	Version        string    `json:"version"`
	Breadcrumbs    string    `json:"breadcrumbs"`
	SectionLevel   int       `json:"sectionLevel"`
	SectionID      string    `json:"sectionId"`
	Heading        string    `json:"heading"`
	HasCode        bool      `json:"hasCode"`
	CodeLangs      string    `json:"codeLangs"`
	Text           string    `json:"text"`
	Summary        string    `json:"summary"`
	IsDefinition   *bool     `json:"isDefinition,omitempty"`
	Tokens         int       `json:"tokens"`
	Embedding      []float32 `json:"embedding,omitempty"`
	VectorDim      int       `json:"vectorDim"`
	SearchableText string    `json:"searchableText"`
	Links          string    `json:"links"`
	Images         string    `json:"images"`
}

// FromChunk flattens a chunk, JSON-encoding its array fields
func FromChunk(c *types.Chunk) (*Record, error) {
	breadcrumbs, err := encodeList(c.Breadcrumbs)
	if err != nil {
		return nil, fmt.Errorf("encode breadcrumbs: %w", err)
	}
	codeLangs, err := encodeList(c.CodeLangs)
	if err != nil {
		return nil, fmt.Errorf("encode code langs: %w", err)
	}
	links, err := encodeList(c.Links)
	if err != nil {
		return nil, fmt.Errorf("encode links: %w", err)
	}
	images, err := encodeList(c.Images)
	if err != nil {
		return nil, fmt.Errorf("encode images: %w", err)
	}

	return &Record{
		ID:             c.ID,
		PageID:         c.PageID,
		URL:            c.URL,
		SourcePath:     c.SourcePath,
		Lang:           c.Lang,
		Version:        c.Version,
		Breadcrumbs:    breadcrumbs,
		SectionLevel:   c.SectionLevel,
		SectionID:      c.SectionID,
		Heading:        c.Heading,
		HasCode:        c.HasCode,
		CodeLangs:      codeLangs,
		Text:           c.Text,
		Summary:        c.Summary,
		IsDefinition:   c.IsDefinition,
		Tokens:         c.Tokens,
		Embedding:      c.Embedding,
		VectorDim:      c.VectorDim,
		SearchableText: c.SearchableText,
		Links:          links,
		Images:         images,
	}, nil
}

// ToChunk restores the chunk a record was built from
func (r *Record) ToChunk() (*types.Chunk, error) {
	c := &types.Chunk{
		ID:             r.ID,
		PageID:         r.PageID,
		URL:            r.URL,
		SourcePath:     r.SourcePath,
		Lang:           r.Lang,
		Version:        r.Version,
		SectionLevel:   r.SectionLevel,
		SectionID:      r.SectionID,
		Heading:        r.Heading,
		HasCode:        r.HasCode,
		Text:           r.Text,
		Summary:        r.Summary,
		IsDefinition:   r.IsDefinition,
		Tokens:         r.Tokens,
		Embedding:      r.Embedding,
		VectorDim:      r.VectorDim,
		SearchableText: r.SearchableText,
	}
	if err := decodeList(r.Breadcrumbs, &c.Breadcrumbs); err != nil {
		return nil, fmt.Errorf("decode breadcrumbs of %s: %w", r.ID, err)
	}
	if err := decodeList(r.CodeLangs, &c.CodeLangs); err != nil {
		return nil, fmt.Errorf("decode code langs of %s: %w", r.ID, err)
	}
	if err := decodeList(r.Links, &c.Links); err != nil {
		return nil, fmt.Errorf("decode links of %s: %w", r.ID, err)
	}
	if err := decodeList(r.Images, &c.Images); err != nil {
		return nil, fmt.Errorf("decode images of %s: %w", r.ID, err)
	}
	return c, nil
}

func encodeList[T any](v []T) (string, error) {
	if v == nil {
		v = []T{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeList[T any](s string, dst *[]T) error {
	if s == "" {
		*dst = []T{}
		return nil
	}
	return json.Unmarshal([]byte(s), dst)
}

// Query selects records. With only Vector set the search is by cosine
// similarity, with only Term it is full-text, with both the two rankings are
// fused.
type Query struct {
	Vector []float32
	Term   string
	Limit  int

	// Tolerance is the minimum cosine similarity of a vector hit. 0 disables it.
	Tolerance float64
}

// Hit is one ranked search result
type Hit struct {
	ID       string
	Score    float64
	Document *Record
}

// IndexRun records the outcome of one indexing run
type IndexRun struct {
	ID         string
	Source     string
	Pages      int
	Chunks     int
	Inserted   int
	Skipped    int
	StartedAt  time.Time
	FinishedAt time.Time
}

// Status contains statistics about the store
type Status struct {
	Documents       int
	Embedded        int
	VectorDimension int
	IndexSizeMB     float64
	LastRun         *IndexRun
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	Initialized         bool
	EmbeddingsAvailable bool
}
