package utils

import (
	"regexp"
	"strings"
)

var nonIdentifier = regexp.MustCompile("[^a-z0-9]+")

// Slugify turns a human-chosen name into a lowercase identifier safe to
// embed in SQL object names. Runs of non-alphanumerics collapse to a single
// underscore; the result is clamped so a prefixed view name stays below the
// Postgres identifier limit (63 bytes).
func Slugify(s string) string {
	s = strings.ToLower(s)
	s = nonIdentifier.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 48 {
		s = s[:48]
	}
	return s
}
