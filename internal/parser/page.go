package parser

import (
	"path"
	"strings"

	"github.com/dshills/docvec/internal/textutil"
	"github.com/dshills/docvec/pkg/types"
)

// PageOptions carries the run configuration copied onto every page
type PageOptions struct {
	BaseURL string
	Lang    string
	Version string
}

// BuildPage derives the page record of a parsed document. SectionCount is
// left at zero; the caller sets it once the page's chunks exist.
func BuildPage(result *types.ParseResult, opts PageOptions) *types.Page {
	fm := result.FrontMatter

	title := fm.Title
	if title == "" {
		title = result.FirstH1()
	}
	if title == "" {
		base := path.Base(result.Path)
		title = strings.TrimSuffix(base, path.Ext(base))
	}

	desc := fm.Desc
	if desc == "" {
		desc = fm.Description
	}

	id := textutil.Slugify(title)
	if id == "" {
		id = textutil.Slugify(result.Path)
	}

	url := fm.URL
	if url == "" {
		url = MakeURL(opts.BaseURL, result.Path, "")
	}

	headings := result.SubHeadings()
	searchable := make([]string, 0, 3)
	for _, s := range []string{title, desc, strings.Join(headings, "; ")} {
		if s != "" {
			searchable = append(searchable, s)
		}
	}

	return &types.Page{
		ID:             id,
		Path:           result.Path,
		URL:            url,
		Title:          title,
		Description:    desc,
		Lang:           opts.Lang,
		Version:        opts.Version,
		Headings:       headings,
		Kind:           DeriveKind(result.Path),
		SearchableText: textutil.NormalizeWhitespace(strings.Join(searchable, "\n")),
		UpdatedAt:      fm.UpdatedAt,
		Keywords:       fm.Keywords,
	}
}
