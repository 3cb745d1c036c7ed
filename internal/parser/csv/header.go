package csv

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const utf8BOM = "\uFEFF"

// NormalizeHeader folds a raw header cell into a snake_case identifier:
// lowercase, accents stripped, runs of separators collapsed to one '_',
// other punctuation dropped. "Trip Distance" becomes "trip_distance".
func NormalizeHeader(s string) string {
	s = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(s, utf8BOM)))

	// Decompose → remove nonspacing marks (accents) → recompose.
	t := transform.Chain(
		norm.NFD,
		runes.Remove(runes.In(unicode.Mn)),
		norm.NFC,
	)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "_")
}

// resolveHeader maps one header cell to a target column name. header_map is
// consulted with the raw (trimmed) name first, then with the normalized name.
func resolveHeader(raw string, headerMap map[string]string) string {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, utf8BOM))
	if mapped, ok := headerMap[raw]; ok {
		return mapped
	}
	n := NormalizeHeader(raw)
	if mapped, ok := headerMap[n]; ok {
		return mapped
	}
	return n
}
