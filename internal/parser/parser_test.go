package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/docvec/pkg/types"
)

const guideHTML = `<nav><a href="/home">Home</a></nav>
<header><h1>Site header</h1></header>
<h1>Guide</h1>
<p>Welcome to the guide.</p>
<h2 id="shapes">Shapes</h2>
<p>Shapes are <strong>basic</strong> elements.</p>
<h3>Triangle</h3>
<p>A triangle has three sides.</p>
<pre><code class="language-JS">const x = 1;
</code></pre>
<h2>Empty</h2>
<footer>Footer text</footer>
`

func sectionByID(t *testing.T, result *types.ParseResult, id string) types.Section {
	t.Helper()
	for _, s := range result.Sections {
		if s.Heading.ID == id {
			return s
		}
	}
	t.Fatalf("section %q not found", id)
	return types.Section{}
}

func TestNew(t *testing.T) {
	p := New()
	assert.Equal(t, DefaultBoilerplate, p.boilerplate)

	p = New(WithBoilerplate(".sidebar"))
	assert.Equal(t, ".sidebar", p.boilerplate)
}

func TestParse_Sections(t *testing.T) {
	result, err := New().Parse("guide/shapes.html", []byte(guideHTML))
	require.NoError(t, err)
	assert.Empty(t, result.Errors)

	t.Run("headings in document order without boilerplate", func(t *testing.T) {
		require.Len(t, result.Headings, 4)
		assert.Equal(t, types.Heading{Level: 1, ID: "guide", Text: "Guide"}, result.Headings[0])
		assert.Equal(t, types.Heading{Level: 2, ID: "shapes", Text: "Shapes"}, result.Headings[1])
		assert.Equal(t, types.Heading{Level: 3, ID: "triangle", Text: "Triangle"}, result.Headings[2])
		assert.Equal(t, types.Heading{Level: 2, ID: "empty", Text: "Empty"}, result.Headings[3])
	})

	t.Run("empty section skipped", func(t *testing.T) {
		require.Len(t, result.Sections, 3)
		for _, s := range result.Sections {
			assert.NotEqual(t, "empty", s.Heading.ID)
		}
	})

	t.Run("h1 section runs to the end of the document", func(t *testing.T) {
		s := sectionByID(t, result, "guide")
		assert.Equal(t, "", s.H2Heading)
		assert.Contains(t, s.Text, "Welcome to the guide.")
		assert.Contains(t, s.Text, "A triangle has three sides.")
		assert.NotContains(t, s.Text, "Home")
		assert.NotContains(t, s.Text, "Footer text")
		assert.NotContains(t, s.Text, "Site header")
	})

	t.Run("h2 section stops at next h2", func(t *testing.T) {
		s := sectionByID(t, result, "shapes")
		assert.Equal(t, "Shapes", s.H2Heading)
		assert.Equal(t, "Shapes are\nbasic\nelements.\nTriangle\nA triangle has three sides.\n```\nconst x = 1;\n```", s.Text)
		assert.Equal(t, []string{"js"}, s.CodeLangs)
	})

	t.Run("h3 section has h2 ancestor", func(t *testing.T) {
		s := sectionByID(t, result, "triangle")
		assert.Equal(t, "Shapes", s.H2Heading)
		assert.Equal(t, "A triangle has three sides.\n```\nconst x = 1;\n```", s.Text)
		assert.Equal(t, []string{"js"}, s.CodeLangs)
	})
}

func TestParse_H3WithoutH2(t *testing.T) {
	html := `<h1>Top</h1><p>Intro.</p><h3>Deep</h3><p>Deep text.</p>`
	result, err := New().Parse("a.html", []byte(html))
	require.NoError(t, err)

	s := sectionByID(t, result, "deep")
	assert.Equal(t, "", s.H2Heading)
}

func TestParse_DuplicateSectionIDs(t *testing.T) {
	html := `<h2>Example</h2><p>a</p><h2>Example</h2><p>b</p><h2 id="example">Other</h2><p>c</p>`
	result, err := New().Parse("a.html", []byte(html))
	require.NoError(t, err)

	require.Len(t, result.Sections, 3)
	assert.Equal(t, "example", result.Sections[0].Heading.ID)
	assert.Equal(t, "example-1", result.Sections[1].Heading.ID)
	assert.Equal(t, "example-2", result.Sections[2].Heading.ID)

	t.Run("explicit id holds the next suffix", func(t *testing.T) {
		html := `<h2 id="example-1">First</h2><p>a</p><h2>Example</h2><p>b</p><h2>Example</h2><p>c</p>`
		result, err := New().Parse("b.html", []byte(html))
		require.NoError(t, err)

		require.Len(t, result.Sections, 3)
		ids := make(map[string]bool)
		for _, sec := range result.Sections {
			assert.False(t, ids[sec.Heading.ID], "duplicate section id %s", sec.Heading.ID)
			ids[sec.Heading.ID] = true
		}
		assert.Equal(t, "example-1", result.Sections[0].Heading.ID)
		assert.Equal(t, "example", result.Sections[1].Heading.ID)
		assert.Equal(t, "example-2", result.Sections[2].Heading.ID)
	})
}

func TestParse_LinksAndImages(t *testing.T) {
	html := `<h2>Media</h2>
<a href="/top">Top</a>
<p><a href="/x"> X  link </a> <a href="">  </a> <a>no href</a></p>
<p><img src="a.png" alt="A"><img alt="none"><img src="b.png"></p>
<h2>Next</h2><p><a href="/other">Other</a></p>`

	result, err := New().Parse("a.html", []byte(html))
	require.NoError(t, err)

	s := sectionByID(t, result, "media")
	assert.Equal(t, []types.Link{{Text: "Top", Href: "/top"}, {Text: "X link", Href: "/x"}}, s.Links)
	assert.Equal(t, []types.Image{{Alt: "A", Src: "a.png"}, {Alt: "", Src: "b.png"}}, s.Images)
	assert.Empty(t, s.CodeLangs)
}

func TestParse_CodeLangsUniqueLowercase(t *testing.T) {
	html := `<h2>Code</h2>
<pre><code class="hljs language-Go">a</code></pre>
<pre><code class="language-go">b</code></pre>
<pre><code class="language-c++">c</code></pre>
<pre><code>plain</code></pre>
<code class="language-rust">inline</code>`

	result, err := New().Parse("a.html", []byte(html))
	require.NoError(t, err)

	s := sectionByID(t, result, "code")
	assert.Equal(t, []string{"go", "c++"}, s.CodeLangs)
	assert.Contains(t, s.Text, "```\nplain\n```")
}

func TestParse_FrontMatter(t *testing.T) {
	content := `---
title: Penpot Boards
desc: Learn boards
url: https://custom.example/boards/
updatedAt: 2024-03-01
keywords: [boards, layout]
---
<h1>Boards heading</h1><p>Body.</p>`

	result, err := New().Parse("user-guide/boards.html", []byte(content))
	require.NoError(t, err)

	fm := result.FrontMatter
	assert.Equal(t, "Penpot Boards", fm.Title)
	assert.Equal(t, "Learn boards", fm.Desc)
	assert.Equal(t, "https://custom.example/boards/", fm.URL)
	assert.Equal(t, "2024-03-01", fm.UpdatedAt)
	assert.Equal(t, []string{"boards", "layout"}, fm.Keywords)
	require.Len(t, result.Sections, 1)
	assert.Equal(t, "Body.", result.Sections[0].Text)
}

func TestParse_FrontMatterErrors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		_, err := New().Parse("bad.html", []byte("---\ntitle: [unclosed\n---\n<h1>x</h1>"))
		require.Error(t, err)
		assert.ErrorIs(t, err, types.ErrSourceRead)
	})

	t.Run("unterminated block is body", func(t *testing.T) {
		result, err := New().Parse("a.html", []byte("---\n<h1>Title</h1><p>x</p>"))
		require.NoError(t, err)
		assert.Equal(t, "", result.FrontMatter.Title)
		assert.Equal(t, "Title", result.FirstH1())
	})

	t.Run("keywords as string", func(t *testing.T) {
		result, err := New().Parse("a.html", []byte("---\nkeywords: a, b\n---\n<h1>T</h1><p>x</p>"))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, result.FrontMatter.Keywords)
	})
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "page.html")
	require.NoError(t, os.WriteFile(path, []byte(guideHTML), 0o644))

	result, err := New().ParseFile(path, "page.html")
	require.NoError(t, err)
	assert.Equal(t, "page.html", result.Path)
	assert.Len(t, result.Sections, 3)

	_, err = New().ParseFile(filepath.Join(dir, "missing.html"), "missing.html")
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrSourceRead)
}

func TestParse_NoHeadings(t *testing.T) {
	result, err := New().Parse("guide/no-heading.html", []byte("<p>Just text.</p>"))
	require.NoError(t, err)
	assert.Empty(t, result.Sections)
	assert.True(t, result.HasErrors())
}

func TestBuildPage(t *testing.T) {
	opts := PageOptions{BaseURL: "https://example.com/user-guide/", Lang: "en", Version: "2.0"}

	t.Run("title from first h1", func(t *testing.T) {
		result, err := New().Parse("guide/shapes.html", []byte(guideHTML))
		require.NoError(t, err)

		page := BuildPage(result, opts)
		assert.Equal(t, "guide", page.ID)
		assert.Equal(t, "Guide", page.Title)
		assert.Equal(t, "guide/shapes.html", page.Path)
		assert.Equal(t, "https://example.com/user-guide/guide/shapes/", page.URL)
		assert.Equal(t, []string{"Shapes", "Triangle", "Empty"}, page.Headings)
		assert.Equal(t, types.KindGuide, page.Kind)
		assert.Equal(t, "en", page.Lang)
		assert.Equal(t, "2.0", page.Version)
		assert.Equal(t, "Guide\nShapes; Triangle; Empty", page.SearchableText)
		assert.Zero(t, page.SectionCount)
	})

	t.Run("front-matter wins", func(t *testing.T) {
		content := "---\ntitle: Boards & Layouts\ndescription: All about boards\nurl: /custom/\n---\n<h1>Other</h1><p>x</p>"
		result, err := New().Parse("reference/boards.html", []byte(content))
		require.NoError(t, err)

		page := BuildPage(result, opts)
		assert.Equal(t, "boards-and-layouts", page.ID)
		assert.Equal(t, "Boards & Layouts", page.Title)
		assert.Equal(t, "All about boards", page.Description)
		assert.Equal(t, "/custom/", page.URL)
		assert.Equal(t, types.KindReference, page.Kind)
	})

	t.Run("filename fallback", func(t *testing.T) {
		result, err := New().Parse("tutorials/first-steps.html", []byte("<p>text</p>"))
		require.NoError(t, err)

		page := BuildPage(result, PageOptions{})
		assert.Equal(t, "first-steps", page.Title)
		assert.Equal(t, "first-steps", page.ID)
		assert.Equal(t, "", page.URL)
		assert.Equal(t, types.KindTutorial, page.Kind)
	})
}

func TestMakeURL(t *testing.T) {
	base := "https://example.com/user-guide"
	tests := []struct {
		name      string
		base      string
		rel       string
		sectionID string
		want      string
	}{
		{"no base", "", "a/b.html", "x", ""},
		{"leaf page", base, "shapes/boards.html", "", "https://example.com/user-guide/shapes/boards/"},
		{"top-level page", base + "/", "intro.njk", "", "https://example.com/user-guide/intro/"},
		{"index maps to dir", base, "shapes/index.html", "", "https://example.com/user-guide/shapes/"},
		{"root index", base, "index.htm", "", "https://example.com/user-guide/"},
		{"section fragment", base, "shapes/boards.html", "sizing", "https://example.com/user-guide/shapes/boards/#sizing"},
		{"uppercase ext", base, "a/B.HTML", "", "https://example.com/user-guide/a/B/"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MakeURL(tt.base, tt.rel, tt.sectionID))
		})
	}
}

func TestWithFragment(t *testing.T) {
	assert.Equal(t, "u#s", WithFragment("u", "s"))
	assert.Equal(t, "u", WithFragment("u", ""))
	assert.Equal(t, "", WithFragment("", "s"))
}

func TestDeriveKind(t *testing.T) {
	tests := []struct {
		path string
		want types.PageKind
	}{
		{"reference/shapes.html", types.KindReference},
		{"docs/Reference/x.html", types.KindReference},
		{"plugins/api/index.html", types.KindReference},
		{"plugins/api.html", types.KindReference},
		{"tutorials/first.html", types.KindTutorial},
		{"releases/2.0.html", types.KindRelease},
		{"user-guide/boards.html", types.KindGuide},
		{"apis-overview.html", types.KindGuide},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveKind(tt.path))
		})
	}
}
