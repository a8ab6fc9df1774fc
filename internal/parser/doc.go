// Package parser extracts the structure of HTML documentation pages.
//
// A page may start with a YAML front-matter block delimited by "---" lines.
// The body is parsed with goquery, boilerplate regions (navigation, headers,
// footers, scripts, tables of contents, breadcrumbs) are removed, and every
// h1-h3 heading becomes a section holding the sibling nodes up to the next
// heading of the same or a shallower level.
//
// # Basic Usage
//
//	p := parser.New()
//	result, err := p.ParseFile("/docs/guide/shapes.html", "guide/shapes.html")
//	if err != nil {
//	    return err
//	}
//
//	page := parser.BuildPage(result, parser.PageOptions{BaseURL: "https://example.com/docs/"})
//	for _, sec := range result.Sections {
//	    fmt.Println(sec.Heading.Level, sec.Heading.ID, len(sec.Text))
//	}
//
// # Text Conversion
//
// Section text is produced by a visitor over three node kinds: text nodes
// contribute their trimmed text, pre elements are emitted verbatim between
// ``` fences and other elements are descended into (or read whole when
// they have no element children). Parts are joined with newlines and
// whitespace-normalized.
//
// Sections whose text is empty are dropped. Duplicate section ids within a
// page get "-1", "-2" suffixes.
//
// # Errors
//
// Unreadable files and malformed front-matter wrap types.ErrSourceRead.
// A page without headings parses successfully and records a ParseError.
package parser
