package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalize folds broker text for keyword matching: diacritics are removed,
// letters lower-cased and runs of whitespace collapsed to a single space.
// "  Bonificação em  Ativos " becomes "bonificacao em ativos".
func Normalize(s string) string {
	// transform.Chain keeps state, so one per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}
