package thread

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// foldASCII strips diacritics so "Café Réview" slugs to "cafe-review".
var foldASCII = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug normalizes an identifier: diacritics folded to ASCII, lowercased,
// runs of non-alphanumerics collapsed to single hyphens.
func Slug(s string) string {
	if folded, _, err := transform.String(foldASCII, s); err == nil {
		s = folded
	}
	s = strings.ToLower(s)
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			lastHyphen = false
		} else if !lastHyphen {
			b.WriteByte('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
