// Package util provides small helpers shared across packages.
package util

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Runs of anything that is not a lowercase ASCII letter or digit.
	nonAlphanumericRe = regexp.MustCompile(`[^a-z0-9]+`)

	// Letters that do not decompose into an ASCII base under NFD.
	ligatures = strings.NewReplacer(
		"ß", "ss",
		"æ", "ae", "Æ", "AE",
		"œ", "oe", "Œ", "OE",
		"ø", "o", "Ø", "O",
		"đ", "d", "Đ", "D",
		"ł", "l", "Ł", "L",
		"þ", "th", "Þ", "TH",
	)
)

// Webalize converts a tag name to its URL-safe slug.
//
// Rules:
//  1. Transliterate accented letters to ASCII ("Čeština" → "Cestina")
//  2. Lowercase
//  3. Collapse every run of non-alphanumerics into a single dash
//  4. Trim leading/trailing dashes
//
// Examples:
//
//	"Forms & Validation" → "forms-validation"
//	"Žluťoučký kůň"      → "zlutoucky-kun"
//	"  --Nette--  "      → "nette"
func Webalize(input string) string {
	s := ligatures.Replace(input)

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(t, s); err == nil {
		s = out
	}

	s = strings.ToLower(s)
	s = nonAlphanumericRe.ReplaceAllString(s, "-")

	return strings.Trim(s, "-")
}
