package ingestion

import "strings"

// Resolve picks the first actual column matching any of the candidate
// canonical names. A column matches when its normalized form is a substring
// of the candidate's normalized form, or contains it. Candidates are tried
// in order, so more specific names should come first.
func Resolve(actual []string, candidates ...string) (string, bool) {
	for _, candidate := range candidates {
		want := Normalize(candidate)
		if want == "" {
			continue
		}
		for _, col := range actual {
			got := Normalize(col)
			if got == "" {
				continue
			}
			if strings.Contains(got, want) || strings.Contains(want, got) {
				return col, true
			}
		}
	}
	return "", false
}

// MapRequired maps each required canonical column name to an actual header.
// Required names with no match are absent from the result; the downstream
// pipeline fills those canonical columns with empty values (invoice_date
// falls back to the metadata date extracted during parsing).
func MapRequired(actual []string, required []string) map[string]string {
	mapping := make(map[string]string, len(required))
	for _, req := range required {
		if col, ok := Resolve(actual, req); ok {
			mapping[req] = col
		}
	}
	return mapping
}
