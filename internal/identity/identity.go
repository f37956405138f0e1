// Package identity derives and compares person names. Gallery images are
// named after the person they show; multiple reference photos use a numeric
// suffix ("jan-novak_2.jpg"). Comparison is diacritic- and case-insensitive
// so "jan-novak" finds "Jan Novák".
package identity

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// multiPhotoSuffix matches a trailing "_2" / "-3" style counter that groups
// several reference photos under one identity.
var multiPhotoSuffix = regexp.MustCompile(`[_-]\d+$`)

// FromFilename derives the identity name from a reference image filename.
// Returns an empty string if nothing usable remains, which callers must
// treat as an invalid reference image.
func FromFilename(filename string) string {
	base := filepath.Base(filename)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	name = multiPhotoSuffix.ReplaceAllString(name, "")
	return strings.TrimSpace(name)
}

// RemoveDiacritics removes diacritical marks from a string (e.g., "Jiří" -> "Jiri").
func RemoveDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, _ := transform.String(t, s)
	return result
}

// Normalize normalizes a name for comparison (lowercase, no diacritics,
// spaces for dashes and underscores).
func Normalize(name string) string {
	name = RemoveDiacritics(name)
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "-", " ")
	name = strings.ReplaceAll(name, "_", " ")
	return strings.TrimSpace(name)
}

// Equal reports whether two names refer to the same person under Normalize.
func Equal(a, b string) bool {
	return Normalize(a) == Normalize(b)
}
