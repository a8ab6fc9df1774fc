package parser

import (
	"regexp"
	"strings"
)

var templateExt = regexp.MustCompile(`(?i)\.(njk|html?)$`)

// MakeURL maps a relative source path onto the public site. "index" pages
// map to their directory, every other page to "<dir>/<name>/". Returns ""
// when baseURL is empty.
func MakeURL(baseURL, relPath, sectionID string) string {
	if baseURL == "" {
		return ""
	}

	noExt := templateExt.ReplaceAllString(relPath, "")
	parts := strings.FieldsFunc(noExt, func(r rune) bool { return r == '/' })

	var filename string
	if len(parts) > 0 {
		filename = parts[len(parts)-1]
		parts = parts[:len(parts)-1]
	}
	dir := strings.Join(parts, "/")

	var pagePath string
	switch {
	case filename == "" || strings.EqualFold(filename, "index"):
		if dir != "" {
			pagePath = dir + "/"
		}
	case dir != "":
		pagePath = dir + "/" + filename + "/"
	default:
		pagePath = filename + "/"
	}

	u := strings.TrimSuffix(baseURL, "/") + "/" + pagePath
	return WithFragment(u, sectionID)
}

// WithFragment appends "#sectionID" when both parts are non-empty
func WithFragment(u, sectionID string) string {
	if u == "" || sectionID == "" {
		return u
	}
	return u + "#" + sectionID
}
