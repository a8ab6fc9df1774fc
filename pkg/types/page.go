package types

// PageKind classifies a page by where it lives in the documentation tree
type PageKind string

const (
	KindGuide     PageKind = "guide"
	KindReference PageKind = "reference"
	KindTutorial  PageKind = "tutorial"
	KindRelease   PageKind = "release"
)

// Page is one source document
type Page struct {
	ID             string   `json:"id"`
	Path           string   `json:"path"`
	URL            string   `json:"url"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Lang           string   `json:"lang"`
	Version        string   `json:"version"`
	Headings       []string `json:"headings"`
	Kind           PageKind `json:"kind"`
	SectionCount   int      `json:"sectionCount"`
	SearchableText string   `json:"searchableText"`

	UpdatedAt string   `json:"updatedAt,omitempty"`
	Keywords  []string `json:"keywords,omitempty"`
}

// IsValid returns true if the kind is one of the known page kinds
func (k PageKind) IsValid() bool {
	switch k {
	case KindGuide, KindReference, KindTutorial, KindRelease:
		return true
	default:
		return false
	}
}
