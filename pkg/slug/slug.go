package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
	valid    = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
)

// Generate creates a URL-friendly handle from a product or collection title.
// Accents are folded to their ASCII base letter.
//
// Examples:
//   - "CoQ10 Ubiquinone" → "coq10-ubiquinone"
//   - "Crème Brûlée Roast" → "creme-brulee-roast"
//   - "5-HTP (100mg)" → "5-htp-100mg"
func Generate(name string) string {
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		strings.TrimSpace(name),
	)
	if err != nil {
		folded = name
	}

	s := strings.ToLower(folded)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// Valid reports whether s is already a well-formed handle.
func Valid(s string) bool {
	return valid.MatchString(s)
}
