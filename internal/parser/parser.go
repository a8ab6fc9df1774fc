package parser

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"gopkg.in/yaml.v3"

	"github.com/dshills/docvec/internal/textutil"
	"github.com/dshills/docvec/pkg/types"
)

// DefaultBoilerplate lists the regions removed before sections are collected
const DefaultBoilerplate = "nav, header, footer, script, style, aside.toc, .toc, .breadcrumb"

const frontMatterDelim = "---"

// Parser extracts front-matter, headings and sections from HTML documents
type Parser struct {
	boilerplate string
}

// Option configures a Parser
type Option func(*Parser)

// WithBoilerplate overrides the selector of regions stripped before extraction
func WithBoilerplate(selector string) Option {
	return func(p *Parser) {
		p.boilerplate = selector
	}
}

// New creates a new Parser instance
func New(opts ...Option) *Parser {
	p := &Parser{boilerplate: DefaultBoilerplate}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ParseFile reads filePath and parses it. relPath is recorded on the result
// and used for error messages.
func (p *Parser) ParseFile(filePath, relPath string) (*types.ParseResult, error) {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", types.ErrSourceRead, relPath, err)
	}
	return p.Parse(relPath, content)
}

// Parse extracts the structure of one document
func (p *Parser) Parse(relPath string, content []byte) (*types.ParseResult, error) {
	result := &types.ParseResult{Path: relPath}

	front, body, err := splitFrontMatter(content)
	if err != nil {
		return nil, fmt.Errorf("%w: front-matter of %s: %v", types.ErrSourceRead, relPath, err)
	}
	result.FrontMatter = front

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: parse %s: %v", types.ErrSourceRead, relPath, err)
	}
	if p.boilerplate != "" {
		doc.Find(p.boilerplate).Remove()
	}

	e := &extraction{doc: doc}
	e.collectHeadings()
	result.Headings = e.headingList()
	result.Sections = e.buildSections(result)

	return result, nil
}

// splitFrontMatter separates a leading YAML block delimited by "---" lines
// from the body. Documents without one are returned unchanged.
func splitFrontMatter(raw []byte) (types.FrontMatter, []byte, error) {
	var front types.FrontMatter

	s := strings.TrimPrefix(string(raw), "\ufeff")
	first, rest, ok := strings.Cut(s, "\n")
	if !ok || strings.TrimRight(first, " \t\r") != frontMatterDelim {
		return front, raw, nil
	}

	offset := 0
	for offset <= len(rest) {
		line, _, _ := strings.Cut(rest[offset:], "\n")
		if strings.TrimRight(line, " \t\r") == frontMatterDelim {
			block := rest[:offset]
			body := ""
			if end := offset + len(line) + 1; end < len(rest) {
				body = rest[end:]
			}
			if err := decodeFrontMatter([]byte(block), &front); err != nil {
				return front, nil, err
			}
			return front, []byte(body), nil
		}
		if offset+len(line) >= len(rest) {
			break
		}
		offset += len(line) + 1
	}

	// unterminated block: treat everything as body
	return front, raw, nil
}

// decodeFrontMatter is lenient about scalar types: titles may be numbers and
// keywords may be a comma separated string.
func decodeFrontMatter(block []byte, front *types.FrontMatter) error {
	var raw map[string]any
	if err := yaml.Unmarshal(block, &raw); err != nil {
		return err
	}

	front.Title = scalarString(raw["title"])
	front.Desc = scalarString(raw["desc"])
	front.Description = scalarString(raw["description"])
	front.URL = scalarString(raw["url"])
	front.UpdatedAt = scalarString(raw["updatedAt"])

	switch kw := raw["keywords"].(type) {
	case []any:
		for _, k := range kw {
			if s := scalarString(k); s != "" {
				front.Keywords = append(front.Keywords, s)
			}
		}
	case string:
		for _, k := range strings.Split(kw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				front.Keywords = append(front.Keywords, k)
			}
		}
	}
	return nil
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case time.Time:
		if t.Hour() == 0 && t.Minute() == 0 && t.Second() == 0 {
			return t.Format(time.DateOnly)
		}
		return t.Format(time.RFC3339)
	case map[string]any, []any:
		return ""
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

// nodeText concatenates the text nodes below n
func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func headingText(n *html.Node) string {
	return textutil.CollapseSpaces(nodeText(n))
}
