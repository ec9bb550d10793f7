// Package normalize canonicalizes drug and ingredient names for comparison.
//
// All matching in the engine happens over normalized keys: lower-cased,
// punctuation-stripped, whitespace-collapsed strings. Normalization is a pure,
// idempotent function so the same rules can run at dataset-build time and at
// query time and produce identical keys.
package normalize

import "strings"

// Punctuation that separates words when normalized.
const separators = "-/_"

// Punctuation that is dropped outright. Numeric strength tokens like "20MG"
// survive untouched.
const dropped = ".,;:!?'\"()[]{}*&#@"

// Normalize returns the canonical comparison key for a raw drug, ingredient,
// or manufacturer name. Empty input yields empty output.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	lowered := strings.ToLower(raw)

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case strings.ContainsRune(separators, r):
			b.WriteRune(' ')
		case strings.ContainsRune(dropped, r):
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	// Collapse runs of whitespace to single spaces and trim.
	return strings.Join(strings.Fields(b.String()), " ")
}
