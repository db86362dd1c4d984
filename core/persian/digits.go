// Package persian formats and parses numbers, currency amounts and
// jewelry weights the way Iranian shops write them: Persian digits,
// Arabic thousands/decimal separators, toman/rial amounts and
// gram/mesghal/soot weights.
package persian

import "strings"

const (
	// ThousandsSep is ARABIC THOUSANDS SEPARATOR (U+066C).
	ThousandsSep = '٬'
	// DecimalSep is ARABIC DECIMAL SEPARATOR (U+066B).
	DecimalSep = '٫'

	zwnj = '‌' // zero-width non-joiner, common in Persian input
)

// ToPersianDigits maps ASCII digits in s to Persian digits (U+06F0..U+06F9).
// Other runes pass through unchanged.
func ToPersianDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s) * 2)
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune('۰' + (r - '0'))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ToLatinDigits maps Persian (U+06F0..U+06F9) and Arabic-Indic
// (U+0660..U+0669) digits in s to ASCII. Other runes pass through.
func ToLatinDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= '۰' && r <= '۹':
			b.WriteRune('0' + (r - '۰'))
		case r >= '٠' && r <= '٩':
			b.WriteRune('0' + (r - '٠'))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
