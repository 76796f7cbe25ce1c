package domain

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	diacritics = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	nonWord    = regexp.MustCompile(`[^\p{L}\p{N}\s]+`)
	spaces     = regexp.MustCompile(`\s+`)
)

// NormalizeName reduces a name to its comparison key: lowercase,
// diacritics folded, punctuation stripped, whitespace collapsed.
// "Björk" and "bjork" share a key; so do "AC/DC" and "ACDC".
func NormalizeName(s string) string {
	s = strings.ToLower(s)
	if folded, _, err := transform.String(diacritics, s); err == nil {
		s = folded
	}
	s = nonWord.ReplaceAllString(s, "")
	s = spaces.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Names that address the shared compilations folder instead of a real
// catalog artist. Matched on the normalized key.
var variousAliases = map[string]struct{}{
	"various":         {},
	"various artists": {},
	"va":              {},
	"compilation":     {},
	"compilations":    {},
	"soundtrack":      {},
	"soundtracks":     {},
	"ost":             {},
}

// IsVariousArtists reports whether a name is a compilation alias
// ("Various Artists", "VA", "V.A.", "OST", ...).
func IsVariousArtists(name string) bool {
	_, ok := variousAliases[NormalizeName(name)]
	return ok
}
