// Package handle builds URL-safe product handles.
package handle

import (
	"regexp"
	"strings"
)

var (
	disallowedRegexp = regexp.MustCompile(`[^a-z0-9\-_]`)
	dashRunRegexp    = regexp.MustCompile(`-+`)
)

// Sanitize lower-cases the input, replaces every character outside
// [a-z0-9-_] with a hyphen, collapses hyphen runs and trims hyphens from
// both ends. It never fails; an empty input yields an empty handle.
//
// Examples:
//   - "Sheoldred, the Apocalypse - STC346CA" → "sheoldred-the-apocalypse-stc346ca"
//   - "Jace_Beleren" → "jace_beleren"
func Sanitize(input string) string {
	h := strings.ToLower(input)
	h = disallowedRegexp.ReplaceAllString(h, "-")
	h = dashRunRegexp.ReplaceAllString(h, "-")
	return strings.Trim(h, "-")
}
