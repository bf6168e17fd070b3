package ingestion

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var accentStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowers, trims and strips diacritics from a header or trigger
// string so "Número de Factura" and "numero de factura" compare equal.
func Normalize(s string) string {
	stripped, _, err := transform.String(accentStripper, s)
	if err != nil {
		stripped = s
	}
	return strings.ToLower(strings.TrimSpace(stripped))
}

// CleanCell normalizes a raw cell value: NBSP variants become spaces,
// control characters are dropped, and the result is trimmed. Supplier
// workbooks routinely carry embedded newlines and non-breaking spaces from
// copy-pasted portal exports.
func CleanCell(s string) string {
	if s == "" {
		return ""
	}

	s = strings.NewReplacer(" ", " ", " ", " ").Replace(s)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r < 32 || r == unicode.ReplacementChar:
			// drop
		default:
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}
