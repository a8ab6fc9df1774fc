package types

import (
	"errors"
	"strings"
)

// Link is an anchor extracted from a section's markup
type Link struct {
	Text string `json:"text"`
	Href string `json:"href"`
}

// Image is an image reference extracted from a section's markup
type Image struct {
	Alt string `json:"alt"`
	Src string `json:"src"`
}

// Chunk is the smallest retrievable unit of embedded text. It always belongs to
// exactly one Page and one heading section.
type Chunk struct {
	// Identification
	ID     string `json:"id"`
	PageID string `json:"pageId"`

	// Location
	URL        string `json:"url"`
	SourcePath string `json:"sourcePath"`
	Lang       string `json:"lang"`
	Version    string `json:"version"`

	// Hierarchy
	Breadcrumbs  []string `json:"breadcrumbs"`
	SectionLevel int      `json:"sectionLevel"`
	SectionID    string   `json:"sectionId"`
	Heading      string   `json:"heading"`

	// Content
	HasCode   bool     `json:"hasCode"`
	CodeLangs []string `json:"codeLangs"`
	Text      string   `json:"text"`
	Summary   string   `json:"summary"`

	// IsDefinition is nil unless the heading looks like a definition.
	IsDefinition *bool `json:"isDefinition,omitempty"`

	// Embedding input and output
	Tokens         int       `json:"tokens"`
	Embedding      []float32 `json:"embedding"`
	VectorDim      int       `json:"vectorDim"`
	SearchableText string    `json:"searchableText"`

	Links  []Link  `json:"links"`
	Images []Image `json:"images"`
}

// Validate checks the fields the vector store depends on
func (c *Chunk) Validate() error {
	if c.ID == "" {
		return ErrInvalidChunkID
	}
	if c.PageID == "" || !strings.HasPrefix(c.ID, c.PageID+"#") {
		return errors.New("chunk id must be prefixed by its page id")
	}
	if c.SectionLevel < 1 || c.SectionLevel > 3 {
		return errors.New("section level must be between 1 and 3")
	}
	if c.SearchableText == "" {
		return ErrEmptyContent
	}
	if c.Embedding != nil && c.VectorDim > 0 && len(c.Embedding) != c.VectorDim {
		return ErrDimensionMismatch
	}
	return nil
}

// IsPart reports whether the chunk was produced by splitting an oversized section
func (c *Chunk) IsPart() bool {
	return strings.Contains(c.ID, "__")
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}
