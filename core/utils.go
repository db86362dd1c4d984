package core

import (
	"strings"

	"github.com/zargarco/zargar/core/persian"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// CleanDigits cleans `s` and folds Persian and Arabic-Indic digits to Latin,
// so digit-bearing input (phones, national IDs, search terms) stores and
// compares in one script regardless of the keyboard it was typed on.
func CleanDigits(s string) string {
	return persian.ToLatinDigits(CleanString(s))
}
