package util

import (
	"errors"
	"html"
	"path/filepath"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// SanitizeFileName strips directories and markup from a client-supplied name.
// The result is only used for display and logging; storage keys are generated.
func SanitizeFileName(name string) (string, error) {
	s := html.UnescapeString(StripTags(name))
	s = strings.TrimSpace(strings.ReplaceAll(s, "\\", "/"))
	s = strings.TrimSpace(filepath.Base(s))
	if s == "" || s == "." || s == "/" || s == ".." {
		return "", errors.New("invalid file name")
	}
	return s, nil
}

// Extension returns the lowercased extension of name without the dot.
func Extension(name string) string {
	ext := filepath.Ext(strings.TrimSpace(name))
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// StripTags removes all HTML from s.
func StripTags(s string) string {
	return strictPolicy.Sanitize(s)
}
