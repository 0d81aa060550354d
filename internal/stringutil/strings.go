// Package stringutil provides Spanish text normalisation for keyword matching.
package stringutil

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const (
	variationSelector = '\uFE0F'
	keycapCombining   = '\u20E3'
)

// Fold lowercases s and strips diacritics so "Mañana" and "MANANA" compare
// equal. The result is safe for substring matching against folded keywords.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(folded)
}

// NormalizeDigits turns keycap emoji ("1️⃣", "2⃣") into plain digits and
// "🔟" into "10".
func NormalizeDigits(s string) string {
	if !strings.ContainsAny(s, "\uFE0F\u20E3🔟") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch r {
		case variationSelector, keycapCombining:
			continue
		case '🔟':
			b.WriteString("10")
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Normalize folds s, converts keycap digits and collapses whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(Fold(NormalizeDigits(s))), " ")
}

// ContainsAny reports whether s contains any of the substrings.
// Both sides are expected to be folded already.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if sub != "" && strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// Words splits s into letter/digit tokens.
func Words(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HasWord reports whether word appears in s as a whole token.
func HasWord(s, word string) bool {
	for _, w := range Words(s) {
		if w == word {
			return true
		}
	}
	return false
}

// IsNumeric checks if a string contains only digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var numberWords = map[string]string{
	"dos": "2", "tres": "3", "cuatro": "4", "cinco": "5", "seis": "6",
	"siete": "7", "ocho": "8", "nueve": "9", "diez": "10", "once": "11",
	"doce": "12", "trece": "13", "catorce": "14", "quince": "15",
	"dieciseis": "16", "diecisiete": "17", "dieciocho": "18",
	"diecinueve": "19", "veinte": "20", "veintiuno": "21", "veintiuna": "21",
}

var numberWordRe = regexp.MustCompile(`\b(dos|tres|cuatro|cinco|seis|siete|ocho|nueve|diez|once|doce|trece|catorce|quince|dieciseis|diecisiete|dieciocho|diecinueve|veinte|veintiuno|veintiuna)\b`)

// DigitizeNumbers replaces Spanish number words from "dos" to "veintiuno"
// with digits. The input must be folded.
func DigitizeNumbers(s string) string {
	return numberWordRe.ReplaceAllStringFunc(s, func(w string) string {
		return numberWords[w]
	})
}
