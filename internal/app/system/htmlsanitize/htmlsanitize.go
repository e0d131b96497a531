// Package htmlsanitize cleans user-supplied rich text before it is
// stored. Troop descriptions accept a small set of formatting tags;
// everything else (scripts, event handlers, javascript: URLs) is
// stripped server-side so clients can render stored HTML directly.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

var (
	richText  = bluemonday.UGCPolicy()
	plainText = bluemonday.StrictPolicy()
)

// Sanitize cleans rich text, keeping common formatting and safe links.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return richText.Sanitize(s)
}

// StripTags removes all markup, returning plain text. Used for fields
// that must never contain HTML (names, patrol names, notes).
func StripTags(s string) string {
	if s == "" {
		return ""
	}
	return plainText.Sanitize(s)
}
