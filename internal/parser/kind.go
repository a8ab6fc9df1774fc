package parser

import (
	"path"
	"strings"

	"github.com/dshills/docvec/pkg/types"
)

// DeriveKind classifies a page from its relative path. The path is matched
// with a leading slash and without its extension so that top-level
// directories and "api" leaves are recognised.
func DeriveKind(relPath string) types.PageKind {
	s := "/" + strings.TrimPrefix(strings.ToLower(relPath), "/")
	s = strings.TrimSuffix(s, path.Ext(s))

	switch {
	case isReference(s):
		return types.KindReference
	case strings.Contains(s, "/tutorial"):
		return types.KindTutorial
	case strings.Contains(s, "/release"):
		return types.KindRelease
	default:
		return types.KindGuide
	}
}

func isReference(s string) bool {
	return strings.Contains(s, "/reference") ||
		strings.HasSuffix(s, "/api") ||
		strings.Contains(s, "/api/")
}
