package parser

import (
	"strings"
	"unicode"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/dshills/docvec/internal/textutil"
)

const codeFence = "```"

// nodeKind is the closed set of node shapes the text visitor handles
type nodeKind int

const (
	kindSkipped nodeKind = iota
	kindText
	kindElement
	kindCodeBlock
)

func classify(n *html.Node) nodeKind {
	switch n.Type {
	case html.TextNode:
		return kindText
	case html.ElementNode:
		switch n.DataAtom {
		case atom.Script, atom.Style, atom.Nav, atom.Header, atom.Footer:
			return kindSkipped
		case atom.Pre:
			return kindCodeBlock
		}
		return kindElement
	}
	return kindSkipped
}

// textVisitor collects the plain text of a content run depth-first
type textVisitor struct {
	parts []string
}

func (v *textVisitor) visit(n *html.Node) {
	switch classify(n) {
	case kindText:
		v.add(n.Data)
	case kindCodeBlock:
		code := strings.TrimRightFunc(nodeText(n), unicode.IsSpace)
		if code != "" {
			v.parts = append(v.parts, codeFence+"\n"+code+"\n"+codeFence)
		}
	case kindElement:
		if !hasElementChild(n) {
			v.add(nodeText(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			v.visit(c)
		}
	}
}

func (v *textVisitor) add(s string) {
	if s = strings.TrimSpace(s); s != "" {
		v.parts = append(v.parts, s)
	}
}

func hasElementChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}

// htmlToText renders a content run as normalized plain text. Code blocks
// are kept verbatim inside fences.
func htmlToText(nodes []*html.Node) string {
	v := &textVisitor{}
	for _, n := range nodes {
		v.visit(n)
	}
	return textutil.NormalizeWhitespace(strings.Join(v.parts, "\n"))
}
