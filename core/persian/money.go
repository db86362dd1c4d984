package persian

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid amount")

// 1 toman = 10 rial, exactly.
var RialPerToman = decimal.NewFromInt(10)

var (
	tomanWord   = "تومان"
	rialWord    = "ریال"
	thousand    = decimal.NewFromInt(1_000)
	million     = decimal.NewFromInt(1_000_000)
	billion     = decimal.NewFromInt(1_000_000_000)
	scaleWords  = []string{"میلیارد", "میلیون", "هزار"}
	scaleValues = []decimal.Decimal{billion, million, thousand}
)

// FormatToman renders d as a whole-toman amount, e.g. "۱۲٬۳۴۵ تومان".
// Halves round away from zero.
func FormatToman(d decimal.Decimal) string {
	return formatFixed(d, 0, false) + " " + tomanWord
}

// FormatRial renders d (a toman amount) in rial, e.g. "۱۲۳٬۴۵۰ ریال".
func FormatRial(d decimal.Decimal) string {
	return formatFixed(d.Mul(RialPerToman), 0, false) + " " + rialWord
}

// HumanToman compacts d with هزار/میلیون/میلیارد keeping at most one
// decimal, e.g. "۲٫۵ میلیون تومان". Amounts under a thousand render plain.
func HumanToman(d decimal.Decimal) string {
	abs := d.Abs()
	for i, scale := range scaleValues {
		if abs.GreaterThanOrEqual(scale) {
			return formatFixed(d.Div(scale), 1, true) + " " + scaleWords[i] + " " + tomanWord
		}
	}
	return FormatToman(d)
}

// ParseToman reads a toman amount in any of the Format*/HumanToman shapes:
// scale words multiply, a ریال suffix divides by ten, and bare numbers are
// taken as toman. It round-trips FormatToman exactly and HumanToman to its
// displayed precision.
func ParseToman(s string) (decimal.Decimal, error) {
	stripCount := func(sub string) int {
		n := strings.Count(s, sub)
		if n > 0 {
			s = strings.ReplaceAll(s, sub, " ")
		}
		return n
	}

	isRial := stripCount(rialWord) > 0
	if stripCount(tomanWord) > 0 && isRial {
		return decimal.Zero, ErrInvalidAmount
	}

	mult := decimal.NewFromInt(1)
	for i, w := range scaleWords {
		for n := stripCount(w); n > 0; n-- {
			mult = mult.Mul(scaleValues[i])
		}
	}

	num, err := ParseNumber(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}

	num = num.Mul(mult)
	if isRial {
		num = num.Div(RialPerToman)
	}
	return num, nil
}
