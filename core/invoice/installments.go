package invoice

import (
	"time"

	"github.com/shopspring/decimal"
)

// buildSchedule lays out the repayment of a financed amount:
//
//	total = financed * (1 + monthlyRatePct/100 * months)
//
// split into equal whole-toman monthly amounts due one month apart starting
// one month after start. The last installment absorbs the rounding so the
// schedule sums exactly to total.
func buildSchedule(financed decimal.Decimal, months int, monthlyRatePct decimal.Decimal, start time.Time) (decimal.Decimal, []Installment) {
	m := decimal.NewFromInt(int64(months))
	total := financed.Mul(hundred.Add(monthlyRatePct.Mul(m))).Div(hundred).Round(0)

	monthly := total.Div(m).Round(0)
	installments := make([]Installment, months)
	for i := range installments {
		amount := monthly
		if i == months-1 {
			amount = total.Sub(monthly.Mul(decimal.NewFromInt(int64(months - 1))))
		}
		installments[i] = Installment{
			Seq:     i + 1,
			DueDate: start.AddDate(0, i+1, 0),
			Amount:  amount,
		}
	}
	return total, installments
}
