// Package textclean normalises extracted text before it is chunked.
package textclean

import (
	"path/filepath"
	"regexp"
	"strings"
)

var (
	invisible    = strings.NewReplacer("\u200b", "", "\ufeff", "", "\r", "")
	controlChars = regexp.MustCompile(`[\x00-\x08\x0b\x0c\x0e-\x1f\x7f]`)
)

// Clean collapses whitespace (including non-breaking spaces), removes
// zero-width and control characters, and trims leading dots and spaces.
// Blank input yields "".
func Clean(text string) string {
	text = invisible.Replace(text)
	text = strings.Join(strings.Fields(text), " ")
	text = controlChars.ReplaceAllString(text, "")
	return strings.TrimLeft(text, " .\n\t")
}

// WordCount returns the number of whitespace-separated words.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

// Title returns the caller-supplied "title" metadata value, or a
// readable name derived from the URI's base name.
func Title(metadata map[string]any, uri string) string {
	if title, ok := metadata["title"].(string); ok && strings.TrimSpace(title) != "" {
		return strings.TrimSpace(title)
	}
	if uri == "" {
		return ""
	}
	name := filepath.Base(uri)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.NewReplacer("_", " ", "-", " ").Replace(name)
	return strings.TrimSpace(name)
}

// Metadata copies src and records the MIME type and source format.
func Metadata(src map[string]any, mimeType, format string) map[string]any {
	dst := make(map[string]any, len(src)+2)
	for k, v := range src {
		dst[k] = v
	}
	dst["mime_type"] = mimeType
	dst["format"] = format
	return dst
}
