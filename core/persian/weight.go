package persian

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrInvalidWeight = errors.New("invalid weight")

// Bazaar units: weights are stored in grams; mesghal is the traditional
// gold unit and soot the jeweler's milligram.
var (
	GramsPerMesghal = decimal.RequireFromString("4.6083")
	GramsPerSoot    = decimal.RequireFromString("0.001")
)

type WeightUnit int

const (
	Gram WeightUnit = iota
	Mesghal
	Soot
)

var weightUnitWords = map[WeightUnit]string{
	Gram:    "گرم",
	Mesghal: "مثقال",
	Soot:    "سوت",
}

// display precision per unit: grams to the milligram, mesghal finer
// (a mesghal is ~4.6 g), soot integral.
var weightUnitPlaces = map[WeightUnit]int32{
	Gram:    3,
	Mesghal: 4,
	Soot:    0,
}

func (u WeightUnit) String() string { return weightUnitWords[u] }

func GramsToMesghal(grams decimal.Decimal) decimal.Decimal { return grams.Div(GramsPerMesghal) }
func MesghalToGrams(m decimal.Decimal) decimal.Decimal     { return m.Mul(GramsPerMesghal) }
func GramsToSoot(grams decimal.Decimal) decimal.Decimal    { return grams.Div(GramsPerSoot) }
func SootToGrams(s decimal.Decimal) decimal.Decimal        { return s.Mul(GramsPerSoot) }

// FormatWeight renders a gram weight in the requested unit with the unit
// word, trimming trailing zeros, e.g. "۱۲٫۳ گرم", "۲٫۶۷۷۲ مثقال", "۲۵۰ سوت".
func FormatWeight(grams decimal.Decimal, unit WeightUnit) string {
	v := grams
	switch unit {
	case Mesghal:
		v = GramsToMesghal(grams)
	case Soot:
		v = GramsToSoot(grams)
	}
	return formatFixed(v, weightUnitPlaces[unit], true) + " " + weightUnitWords[unit]
}

// ParseWeight reads a weight with an optional unit word (گرم، مثقال، سوت)
// and returns it in grams along with the unit it was written in. A bare
// number is taken as grams.
func ParseWeight(s string) (decimal.Decimal, WeightUnit, error) {
	unit := Gram
	for _, u := range []WeightUnit{Mesghal, Soot, Gram} {
		if w := weightUnitWords[u]; strings.Contains(s, w) {
			unit = u
			s = strings.ReplaceAll(s, w, " ")
			break
		}
	}

	num, err := ParseNumber(s)
	if err != nil {
		return decimal.Zero, unit, ErrInvalidWeight
	}

	switch unit {
	case Mesghal:
		return MesghalToGrams(num), unit, nil
	case Soot:
		return SootToGrams(num), unit, nil
	}
	return num, unit, nil
}
