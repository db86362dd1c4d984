package persian

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidNumber = errors.New("invalid number")

// FormatNumber renders d rounded to places decimals with Persian digits,
// thousands separators and, when places > 0, the Arabic decimal separator.
func FormatNumber(d decimal.Decimal, places int32) string {
	return formatFixed(d, places, false)
}

func formatFixed(d decimal.Decimal, places int32, trim bool) string {
	s := d.StringFixed(places)

	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart, fracPart = s[:i], s[i+1:]
	}
	if trim {
		fracPart = strings.TrimRight(fracPart, "0")
	}

	var b strings.Builder
	if neg && !(intPart == "0" && fracPart == "") {
		b.WriteByte('-')
	}
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteRune(ThousandsSep)
		}
		b.WriteRune('۰' + (c - '0'))
	}
	if fracPart != "" {
		b.WriteRune(DecimalSep)
		for _, c := range fracPart {
			b.WriteRune('۰' + (c - '0'))
		}
	}
	return b.String()
}

// ParseNumber parses a human-entered number. It accepts Persian,
// Arabic-Indic and ASCII digits, either separator convention
// ("۱٬۲۳۴٫۵" or "1,234.5"), an ASCII or U+2212 minus, and ignores
// whitespace and zero-width non-joiners.
func ParseNumber(s string) (decimal.Decimal, error) {
	cleaned := normalizeNumber(s)
	if cleaned == "" || cleaned == "-" {
		return decimal.Zero, ErrInvalidNumber
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, ErrInvalidNumber
	}
	return d, nil
}

// normalizeNumber reduces s to ASCII digits with an optional leading '-'
// and at most one '.'; it returns "" when a rune cannot be interpreted.
func normalizeNumber(s string) string {
	s = ToLatinDigits(s)

	var b strings.Builder
	b.Grow(len(s))
	seenDot := false
	seenDigit := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
			seenDigit = true
		case r == ThousandsSep || r == ',' || r == '،': // ٬ , ،
			if !seenDigit {
				return ""
			}
		case r == DecimalSep || r == '.':
			if seenDot {
				return ""
			}
			seenDot = true
			b.WriteByte('.')
		case r == '-' || r == '−':
			if b.Len() > 0 {
				return ""
			}
			b.WriteByte('-')
		case r == ' ' || r == '\t' || r == zwnj || r == ' ':
			// ignore
		default:
			return ""
		}
	}
	if !seenDigit {
		return ""
	}
	return b.String()
}
