package normalizer

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold reduces s to a comparison key: accents stripped, lower case,
// '-' and '_' treated as spaces, whitespace collapsed.
// "  Contestó_Llamada " and "contesto llamada" fold to the same key.
func Fold(s string) string {
	// transform chains carry state, build one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}
	stripped = strings.Map(func(r rune) rune {
		if r == '-' || r == '_' {
			return ' '
		}
		return unicode.ToLower(r)
	}, stripped)
	return strings.Join(strings.Fields(stripped), " ")
}
