package place

import (
	"cmp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var punctReplacer = strings.NewReplacer("-", " ", "'", " ", "’", " ")

// Normalize folds accents, turns dashes and apostrophes into spaces,
// collapses whitespace and lowercases.
func Normalize(s string) string {
	if s == "" {
		return ""
	}
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	folded = punctReplacer.Replace(folded)
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

// CompareNames orders names by their normalized form, then byte-wise.
func CompareNames(a, b string) int {
	if c := cmp.Compare(Normalize(a), Normalize(b)); c != 0 {
		return c
	}
	return cmp.Compare(a, b)
}

// Label joins name and address with an em dash unless they are the same.
func Label(name, address string) string {
	if address != "" && address != name {
		return name + " — " + address
	}
	return name
}
