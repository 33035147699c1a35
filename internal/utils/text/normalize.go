package text

import (
	"strings"
	"unicode"
)

// Normalize reduces raw text to a canonical comparable form: lowercases,
// drops everything that is not a letter or digit, and collapses runs of
// the same character to a single occurrence. This defeats the usual
// obfuscation tricks (punctuation insertion, character repetition) used
// to slip past literal matching.
func Normalize(content string) string {
	var result []rune
	var last rune = -1
	for _, r := range strings.ToLower(content) {
		if r == '_' || !(unicode.IsLetter(r) || unicode.IsDigit(r)) {
			continue
		}
		if r == last {
			continue
		}
		result = append(result, r)
		last = r
	}
	return string(result)
}

// Skeleton strips the text down to bare lowercase ASCII letters with
// repeated characters collapsed. Used for obfuscation-resistant link
// matching: "g o o g l e . c o m" and "gooogle.com" both reduce to
// "goglecom".
func Skeleton(content string) string {
	var result []rune
	var last rune = -1
	for _, r := range strings.ToLower(content) {
		if r < 'a' || r > 'z' {
			continue
		}
		if r == last {
			continue
		}
		result = append(result, r)
		last = r
	}
	return string(result)
}
