package chunker

import (
	"fmt"
	"slices"
	"strings"

	"github.com/dshills/docvec/internal/parser"
	"github.com/dshills/docvec/internal/textutil"
	"github.com/dshills/docvec/pkg/types"
)

const (
	// DefaultMaxTokens is the token budget of one chunk's searchable text
	DefaultMaxTokens = 360

	// DefaultOverlapTokens is the budget of sentences repeated at the start of the next part
	DefaultOverlapTokens = 60

	// DefaultSummaryChars caps the summary built from leading sentences
	DefaultSummaryChars = 240

	breadcrumbSeparator = " > "
)

// Config controls chunk sizing
type Config struct {
	MaxTokens     int
	OverlapTokens int
	SummaryChars  int
	VectorDim     int
	Estimator     textutil.TokenEstimator
}

// DefaultConfig returns the default chunk sizing
func DefaultConfig() Config {
	return Config{
		MaxTokens:     DefaultMaxTokens,
		OverlapTokens: DefaultOverlapTokens,
		SummaryChars:  DefaultSummaryChars,
		Estimator:     textutil.DefaultEstimator,
	}
}

// Chunker turns parsed sections into chunk records
type Chunker struct {
	cfg Config
}

// New creates a new Chunker. Zero fields of cfg fall back to the defaults,
// except OverlapTokens where zero disables overlap.
func New(cfg Config) *Chunker {
	def := DefaultConfig()
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = def.MaxTokens
	}
	if cfg.OverlapTokens < 0 {
		cfg.OverlapTokens = 0
	}
	if cfg.SummaryChars <= 0 {
		cfg.SummaryChars = def.SummaryChars
	}
	if cfg.Estimator == nil {
		cfg.Estimator = def.Estimator
	}
	return &Chunker{cfg: cfg}
}

// Config returns the effective configuration
func (c *Chunker) Config() Config {
	return c.cfg
}

// ChunkPage chunks every section of a parsed page in document order
func (c *Chunker) ChunkPage(page *types.Page, result *types.ParseResult) []*types.Chunk {
	chunks := make([]*types.Chunk, 0, len(result.Sections))
	for _, sec := range result.Sections {
		chunks = append(chunks, c.ChunkSection(page, sec)...)
	}
	return chunks
}

// ChunkSection emits one chunk when the section fits the token budget and
// numbered parts otherwise.
func (c *Chunker) ChunkSection(page *types.Page, sec types.Section) []*types.Chunk {
	if sec.Text == "" {
		return nil
	}

	crumbs := BuildBreadcrumbs(page.Title, sec)
	heading := sec.Heading.Text
	summary := textutil.FirstSentences(sec.Text, c.cfg.SummaryChars)

	base := types.Chunk{
		PageID:       page.ID,
		URL:          parser.WithFragment(page.URL, sec.Heading.ID),
		SourcePath:   page.Path,
		Lang:         page.Lang,
		Version:      page.Version,
		SectionLevel: clampLevel(sec.Heading.Level),
		SectionID:    sec.Heading.ID,
		HasCode:      len(sec.CodeLangs) > 0,
		CodeLangs:    sec.CodeLangs,
		Links:        sec.Links,
		Images:       sec.Images,
		VectorDim:    c.cfg.VectorDim,
	}

	draft := BuildSearchableText(crumbs, heading, summary, sec.Text)
	if tokens := c.cfg.Estimator.Estimate(draft); tokens <= c.cfg.MaxTokens {
		ch := base
		ch.ID = page.ID + "#" + sec.Heading.ID
		ch.Breadcrumbs = crumbs
		ch.Heading = heading
		ch.Text = sec.Text
		ch.Summary = summary
		ch.SearchableText = draft
		ch.Tokens = tokens
		if textutil.IsDefinitionHeading(heading) {
			ch.IsDefinition = types.BoolPtr(true)
		}
		return []*types.Chunk{&ch}
	}

	parts := c.SplitByTokens(sec.Text)
	chunks := make([]*types.Chunk, 0, len(parts))
	for i, text := range parts {
		n := i + 1
		partHeading := fmt.Sprintf("%s (part %d)", heading, n)
		partSummary := textutil.FirstSentences(text, c.cfg.SummaryChars)
		partCrumbs := slices.Clone(crumbs)
		searchable := BuildSearchableText(partCrumbs, partHeading, partSummary, text)

		ch := base
		ch.ID = fmt.Sprintf("%s#%s__%d", page.ID, sec.Heading.ID, n)
		ch.Breadcrumbs = partCrumbs
		ch.Heading = partHeading
		ch.Text = text
		ch.Summary = partSummary
		ch.SearchableText = searchable
		ch.Tokens = c.cfg.Estimator.Estimate(searchable)
		chunks = append(chunks, &ch)
	}
	return chunks
}

// SplitByTokens greedily packs sentences into parts of at most MaxTokens.
// Each part after the first starts with the tail sentences of the previous
// part that fit the overlap budget. A single sentence larger than the
// budget is emitted whole, after its overlap.
func (c *Chunker) SplitByTokens(text string) []string {
	var parts, buf []string

	flush := func() {
		if len(buf) > 0 {
			parts = append(parts, strings.Join(buf, " "))
			buf = nil
		}
	}

	for _, s := range textutil.SplitIntoSentences(text) {
		if len(buf) > 0 && c.estimate(append(slices.Clip(buf), s)) > c.cfg.MaxTokens {
			flush()
			buf = c.overlap(parts[len(parts)-1], s)
		}
		buf = append(buf, s)
	}
	flush()

	return parts
}

// overlap returns the tail of prev within the overlap budget as a single
// joined string, trimmed from the front until it fits with next. The last
// sentence that fits the overlap budget is always kept, so a part may exceed
// MaxTokens by at most OverlapTokens.
func (c *Chunker) overlap(prev, next string) []string {
	if c.cfg.OverlapTokens <= 0 {
		return nil
	}

	sentences := textutil.SplitIntoSentences(prev)
	start := len(sentences)
	tokens := 0
	for i := len(sentences) - 1; i >= 0; i-- {
		t := c.cfg.Estimator.Estimate(sentences[i])
		if tokens+t > c.cfg.OverlapTokens {
			break
		}
		tokens += t
		start = i
	}
	tail := sentences[start:]

	for len(tail) > 1 && c.estimate(append(slices.Clip(tail), next)) > c.cfg.MaxTokens {
		tail = tail[1:]
	}
	if len(tail) == 0 {
		return nil
	}
	return []string{strings.Join(tail, " ")}
}

func (c *Chunker) estimate(sentences []string) int {
	return c.cfg.Estimator.Estimate(strings.Join(sentences, " "))
}

// BuildBreadcrumbs returns [pageTitle, h2, h3] with absent levels omitted.
// An h1 section contributes its own heading when it differs from the title.
// An h1 matching the page title adds no crumb, so the trail never repeats
// the title.
func BuildBreadcrumbs(pageTitle string, sec types.Section) []string {
	h2 := sec.H2Heading
	if h2 == "" && sec.Heading.Level == 1 && sec.Heading.Text != pageTitle {
		h2 = sec.Heading.Text
	}
	h3 := ""
	if sec.Heading.Level == 3 {
		h3 = sec.Heading.Text
	}

	crumbs := make([]string, 0, 3)
	for _, c := range []string{pageTitle, h2, h3} {
		if c != "" {
			crumbs = append(crumbs, c)
		}
	}
	return crumbs
}

// BuildSearchableText is the embedding input of a chunk
func BuildSearchableText(breadcrumbs []string, heading, summary, text string) string {
	parts := make([]string, 0, 4)
	for _, p := range []string{strings.Join(breadcrumbs, breadcrumbSeparator), heading, summary, text} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return textutil.NormalizeWhitespace(strings.Join(parts, "\n\n"))
}

func clampLevel(level int) int {
	if level < 1 || level > 3 {
		return 3
	}
	return level
}
