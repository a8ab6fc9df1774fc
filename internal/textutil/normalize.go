package textutil

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/gosimple/slug"
)

var (
	tabsOrCR        = regexp.MustCompile(`[\t\r]+`)
	spacesBeforeNL  = regexp.MustCompile(` +\n`)
	manyNewlines    = regexp.MustCompile(`\n{3,}`)
	anyWhitespace   = regexp.MustCompile(`\s+`)
	definitionStart = regexp.MustCompile(`(?i)^(what is|define|definition|overview)`)
)

// NormalizeWhitespace turns non-breaking spaces and runs of tabs or carriage
// returns into single spaces, drops trailing spaces on each line, caps blank
// runs at one empty line and trims the ends. NormalizeWhitespace is idempotent.
func NormalizeWhitespace(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\u00a0", " ")
	text = tabsOrCR.ReplaceAllString(text, " ")
	text = spacesBeforeNL.ReplaceAllString(text, "\n")
	text = manyNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// CollapseSpaces replaces every whitespace run with one space and trims
func CollapseSpaces(text string) string {
	text = strings.ReplaceAll(text, "\u00a0", " ")
	return strings.TrimSpace(anyWhitespace.ReplaceAllString(text, " "))
}

// SplitIntoSentences splits text after '.', '!' or '?' when the following
// whitespace is followed by an uppercase letter, a digit, an opening bracket
// or an inverted '¡'/'¿'. Abbreviations and decimals may mis-split.
func SplitIntoSentences(text string) []string {
	text = CollapseSpaces(text)
	if text == "" {
		return nil
	}

	var sentences []string
	start := 0
	var prev rune
	for i, r := range text {
		if r == ' ' && isTerminal(prev) {
			next, _ := utf8.DecodeRuneInString(text[i+1:])
			if opensSentence(next) {
				if s := text[start:i]; s != "" {
					sentences = append(sentences, s)
				}
				start = i + 1
			}
		}
		prev = r
	}
	if s := text[start:]; s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?'
}

func opensSentence(r rune) bool {
	switch {
	case r == utf8.RuneError:
		return false
	case unicode.IsUpper(r), unicode.IsDigit(r):
		return true
	}
	return r == '¡' || r == '¿' || r == '[' || r == '('
}

// FirstSentences greedily joins leading sentences while the result stays
// within maxChars. The first sentence is always kept whole. Falls back to a
// prefix of text when no sentence can be found.
func FirstSentences(text string, maxChars int) string {
	var b strings.Builder
	n := 0
	for _, s := range SplitIntoSentences(text) {
		sn := utf8.RuneCountInString(s)
		if n == 0 {
			b.WriteString(s)
			n = sn
			continue
		}
		if n+1+sn > maxChars {
			break
		}
		b.WriteByte(' ')
		b.WriteString(s)
		n += 1 + sn
	}
	if b.Len() > 0 {
		return b.String()
	}
	return Truncate(text, maxChars)
}

// Truncate returns at most n runes of s
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// Slugify lower-cases s and reduces it to ASCII letters, digits and dashes
func Slugify(s string) string {
	return slug.Make(strings.TrimSpace(s))
}

// IsDefinitionHeading reports whether a heading reads like a definition
func IsDefinitionHeading(heading string) bool {
	return definitionStart.MatchString(strings.TrimSpace(heading))
}
