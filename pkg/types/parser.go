package types

// FrontMatter is the metadata block at the top of a source document
type FrontMatter struct {
	Title       string   `yaml:"title"`
	Desc        string   `yaml:"desc"`
	Description string   `yaml:"description"`
	URL         string   `yaml:"url"`
	UpdatedAt   string   `yaml:"updatedAt"`
	Keywords    []string `yaml:"keywords"`
}

// Heading is an h1-h3 element in document order
type Heading struct {
	Level int
	ID    string
	Text  string
}

// Section is the content run following one heading
type Section struct {
	Heading   Heading
	H2Heading string // nearest ancestor h2, empty if none
	Text      string
	Links     []Link
	Images    []Image
	CodeLangs []string
}

// ParseResult represents the output of parsing one documentation file
type ParseResult struct {
	Path        string
	FrontMatter FrontMatter
	Headings    []Heading
	Sections    []Section

	// Errors encountered during parsing that did not abort it
	Errors []ParseError
}

// ParseError represents a recoverable problem found while parsing
type ParseError struct {
	File    string
	Message string
}

// Error implements the error interface
func (pe *ParseError) Error() string {
	return pe.File + ": " + pe.Message
}

// HasErrors returns true if any parsing errors occurred
func (pr *ParseResult) HasErrors() bool {
	return len(pr.Errors) > 0
}

// AddError adds a parsing error to the result
func (pr *ParseResult) AddError(file, msg string) {
	pr.Errors = append(pr.Errors, ParseError{File: file, Message: msg})
}

// FirstH1 returns the text of the first level-1 heading, or ""
func (pr *ParseResult) FirstH1() string {
	for _, h := range pr.Headings {
		if h.Level == 1 && h.Text != "" {
			return h.Text
		}
	}
	return ""
}

// SubHeadings returns the h2 and h3 texts in document order
func (pr *ParseResult) SubHeadings() []string {
	var out []string
	for _, h := range pr.Headings {
		if (h.Level == 2 || h.Level == 3) && h.Text != "" {
			out = append(out, h.Text)
		}
	}
	return out
}
