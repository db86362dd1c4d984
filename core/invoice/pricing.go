package invoice

import "github.com/shopspring/decimal"

var (
	karatBase = decimal.NewFromInt(18)
	hundred   = decimal.NewFromInt(100)
)

// Breakdown is the priced view of one unit of a line, in whole toman.
type Breakdown struct {
	GoldValue decimal.Decimal `json:"gold_value"`
	Wage      decimal.Decimal `json:"wage"`
	Profit    decimal.Decimal `json:"profit"`
	Tax       decimal.Decimal `json:"tax"`
	Stone     decimal.Decimal `json:"stone"`
	UnitTotal decimal.Decimal `json:"unit_total"`
	Total     decimal.Decimal `json:"total"` // UnitTotal times quantity
}

// PriceLine prices ln at pricePerGram (toman per gram of 18 karat gold)
// with the Iranian retail chain:
//
//	goldValue = pricePerGram * karat/18 * weight
//	wage      = goldValue * wagePct/100
//	profit    = (goldValue + wage) * profitPct/100
//	tax       = (wage + profit) * taxPct/100   (VAT on wage and profit only)
//
// Each component is computed on the unrounded chain, then rounded half-up
// to whole toman on its own, so the printed breakdown sums exactly to the
// line total.
func PriceLine(pricePerGram decimal.Decimal, ln Line) Breakdown {
	karat := decimal.NewFromInt(int64(ln.Karat))
	goldValue := pricePerGram.Mul(karat).Mul(ln.WeightGrams).Div(karatBase)
	wage := goldValue.Mul(ln.WagePct).Div(hundred)
	profit := goldValue.Add(wage).Mul(ln.ProfitPct).Div(hundred)
	tax := wage.Add(profit).Mul(ln.TaxPct).Div(hundred)

	b := Breakdown{
		GoldValue: goldValue.Round(0),
		Wage:      wage.Round(0),
		Profit:    profit.Round(0),
		Tax:       tax.Round(0),
		Stone:     ln.StoneValue.Round(0),
	}
	b.UnitTotal = b.GoldValue.Add(b.Wage).Add(b.Profit).Add(b.Tax).Add(b.Stone)
	b.Total = b.UnitTotal.Mul(decimal.NewFromInt(int64(ln.Quantity)))
	return b
}

// priceLines reprices every line in place at pricePerGram and returns the
// invoice-level totals (each component summed over lines, quantity included).
func priceLines(pricePerGram decimal.Decimal, lines []Line) (totals Breakdown) {
	for i := range lines {
		lines[i].UnitPricePerGram = pricePerGram
		b := PriceLine(pricePerGram, lines[i])
		lines[i].Total = b.Total

		qty := decimal.NewFromInt(int64(lines[i].Quantity))
		totals.GoldValue = totals.GoldValue.Add(b.GoldValue.Mul(qty))
		totals.Wage = totals.Wage.Add(b.Wage.Mul(qty))
		totals.Profit = totals.Profit.Add(b.Profit.Mul(qty))
		totals.Tax = totals.Tax.Add(b.Tax.Mul(qty))
		totals.Stone = totals.Stone.Add(b.Stone.Mul(qty))
		totals.Total = totals.Total.Add(b.Total)
	}
	return totals
}
