package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/dshills/docvec/internal/textutil"
	"github.com/dshills/docvec/pkg/types"
)

var languageClass = regexp.MustCompile(`(?i)language-([a-z0-9+#]+)`)

// headingNode is a heading plus the element it came from
type headingNode struct {
	types.Heading
	node *html.Node
}

// extraction holds the state of one document walk
type extraction struct {
	doc      *goquery.Document
	headings []headingNode
}

// collectHeadings records h1-h3 in document order. Section ids come from the
// id attribute or a slug of the text and are made unique within the page.
func (e *extraction) collectHeadings() {
	seen := make(map[string]int)
	e.doc.Find("h1, h2, h3").Each(func(_ int, s *goquery.Selection) {
		n := s.Get(0)
		level, _ := strconv.Atoi(strings.TrimPrefix(n.Data, "h"))
		text := headingText(n)

		id := strings.TrimSpace(s.AttrOr("id", ""))
		if id == "" {
			id = textutil.Slugify(text)
		}
		if id == "" {
			id = "section"
		}
		if count, dup := seen[id]; dup {
			// an explicit id may already hold the next suffix
			base := id
			for n := count; ; n++ {
				cand := base + "-" + strconv.Itoa(n)
				if _, taken := seen[cand]; !taken {
					seen[base] = n + 1
					id = cand
					break
				}
			}
		}
		seen[id]++

		e.headings = append(e.headings, headingNode{
			Heading: types.Heading{Level: level, ID: id, Text: text},
			node:    n,
		})
	})
}

func (e *extraction) headingList() []types.Heading {
	out := make([]types.Heading, len(e.headings))
	for i, h := range e.headings {
		out[i] = h.Heading
	}
	return out
}

// buildSections turns each heading into a section. Sections whose content
// yields no text are dropped.
func (e *extraction) buildSections(result *types.ParseResult) []types.Section {
	sections := make([]types.Section, 0, len(e.headings))

	for i, h := range e.headings {
		nodes := e.contentRun(i)
		text := htmlToText(nodes)
		if text == "" {
			continue
		}

		langs := e.codeLangs(nodes)
		sections = append(sections, types.Section{
			Heading:   h.Heading,
			H2Heading: e.ancestorH2(i),
			Text:      text,
			Links:     e.links(nodes),
			Images:    e.images(nodes),
			CodeLangs: langs,
		})
	}

	if len(e.headings) == 0 {
		result.AddError(result.Path, "no h1-h3 headings found")
	}
	return sections
}

// contentRun returns the siblings after heading i up to the next heading of
// the same or a shallower level.
func (e *extraction) contentRun(i int) []*html.Node {
	h := e.headings[i]
	var stop *html.Node
	for _, next := range e.headings[i+1:] {
		if next.Level <= h.Level {
			stop = next.node
			break
		}
	}

	var nodes []*html.Node
	for n := h.node.NextSibling; n != nil && n != stop; n = n.NextSibling {
		nodes = append(nodes, n)
	}
	return nodes
}

// ancestorH2 is the heading itself for h2 sections and the closest preceding
// h2 for h3 sections, stopping at an h1.
func (e *extraction) ancestorH2(i int) string {
	switch e.headings[i].Level {
	case 2:
		return e.headings[i].Text
	case 3:
		for j := i - 1; j >= 0; j-- {
			switch e.headings[j].Level {
			case 2:
				return e.headings[j].Text
			case 1:
				return ""
			}
		}
	}
	return ""
}

// matchAll returns the nodes of the run, and their descendants, matching
// selector in document order.
func (e *extraction) matchAll(nodes []*html.Node, selector string) []*goquery.Selection {
	var out []*goquery.Selection
	for _, n := range nodes {
		if n.Type != html.ElementNode {
			continue
		}
		s := e.doc.FindNodes(n)
		if s.Is(selector) {
			out = append(out, s)
		}
		s.Find(selector).Each(func(_ int, m *goquery.Selection) {
			out = append(out, m)
		})
	}
	return out
}

func (e *extraction) links(nodes []*html.Node) []types.Link {
	var links []types.Link
	for _, a := range e.matchAll(nodes, "a[href]") {
		l := types.Link{
			Text: textutil.CollapseSpaces(a.Text()),
			Href: strings.TrimSpace(a.AttrOr("href", "")),
		}
		if l.Text != "" || l.Href != "" {
			links = append(links, l)
		}
	}
	return links
}

func (e *extraction) images(nodes []*html.Node) []types.Image {
	var images []types.Image
	for _, img := range e.matchAll(nodes, "img") {
		src := strings.TrimSpace(img.AttrOr("src", ""))
		if src == "" {
			continue
		}
		images = append(images, types.Image{Alt: img.AttrOr("alt", ""), Src: src})
	}
	return images
}

// codeLangs reads language-<lang> classes of code elements inside pre blocks
func (e *extraction) codeLangs(nodes []*html.Node) []string {
	var langs []string
	seen := make(map[string]bool)
	for _, code := range e.matchAll(nodes, "pre code") {
		m := languageClass.FindStringSubmatch(code.AttrOr("class", ""))
		if m == nil {
			continue
		}
		lang := strings.ToLower(m[1])
		if !seen[lang] {
			seen[lang] = true
			langs = append(langs, lang)
		}
	}
	return langs
}
