// Package normalize centralizes normalization of user-supplied field values
// before they are validated or written to the database.
package normalize

import (
	"strings"

	"github.com/scouthq/troophub/internal/app/system/htmlsanitize"
)

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims a person or troop name, preserving case. Names never
// contain HTML, so any markup is stripped first.
func Name(s string) string {
	return strings.TrimSpace(htmlsanitize.StripTags(s))
}

// Notes trims free-form notes, stripping any markup. Notes are plain
// text; rich text is only accepted on troop descriptions.
func Notes(s string) string {
	return strings.TrimSpace(htmlsanitize.StripTags(s))
}

// Role uppercases and trims a troop role so it matches the canonical
// enum form (e.g. "scoutmaster" -> "SCOUTMASTER").
func Role(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Status uppercases and trims a troop status (e.g. "active" -> "ACTIVE").
func Status(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Rank uppercases and trims a scout rank.
func Rank(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// Provider lowercases and trims a social login provider name.
func Provider(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// QueryParam trims a free-form query parameter, preserving case.
func QueryParam(s string) string {
	return strings.TrimSpace(s)
}
