// Package textfold normalizes user text for accent- and case-insensitive
// comparisons ("São Paulo" == "sao paulo", "PAGAMENTO" == "pagamento").
package textfold

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold lowercases s, strips combining marks and trims surrounding space.
func Fold(s string) string {
	// transformers carry state, so a chain is built per call
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(strings.TrimSpace(out))
}

// Contains reports whether the folded haystack contains the folded needle.
func Contains(haystack, needle string) bool {
	return strings.Contains(Fold(haystack), Fold(needle))
}
