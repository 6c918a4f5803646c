package handwriting

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// normalize puts s in NFC, folds case and trims surrounding space. Thai
// input may arrive with vowels and tone marks in either composed order.
func normalize(s string) string {
	return strings.TrimSpace(cases.Fold().String(norm.NFC.String(s)))
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
