package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

type (
	// SalesSummary aggregates issued invoices over [From, To).
	SalesSummary struct {
		From         time.Time       `json:"from"`
		To           time.Time       `json:"to"`
		Count        int             `json:"count"`
		Gross        decimal.Decimal `json:"gross"`
		GrossDisplay string          `json:"gross_display"`
		GoldValue    decimal.Decimal `json:"gold_value"`
		Wage         decimal.Decimal `json:"wage"`
		Profit       decimal.Decimal `json:"profit"`
		Tax          decimal.Decimal `json:"tax"`
		Days         []DaySales      `json:"days"`
		TopProducts  []ProductSales  `json:"top_products"`
	}

	// DaySales buckets sales by Tehran calendar day.
	DaySales struct {
		Date  string          `json:"date"` // 2006-01-02, Tehran
		Count int             `json:"count"`
		Gross decimal.Decimal `json:"gross"`
	}

	ProductSales struct {
		ProductID   string          `json:"product_id"`
		Description string          `json:"description"`
		Quantity    int             `json:"quantity"`
		Value       decimal.Decimal `json:"value"`
	}

	// InventoryValuation prices the stock on hand at the latest board
	// price, bucketed by karat.
	InventoryValuation struct {
		At                time.Time        `json:"at"`
		PricePerGram      decimal.Decimal  `json:"price_per_gram"`
		Karats            []KaratValuation `json:"karats"`
		TotalItems        int              `json:"total_items"`
		TotalWeight       decimal.Decimal  `json:"total_weight"`
		TotalValue        decimal.Decimal  `json:"total_value"`
		TotalValueDisplay string           `json:"total_value_display"`
	}

	KaratValuation struct {
		Karat       int             `json:"karat"`
		Items       int             `json:"items"`
		WeightGrams decimal.Decimal `json:"weight_grams"`
		GoldValue   decimal.Decimal `json:"gold_value"`
		WageValue   decimal.Decimal `json:"wage_value"`
		StoneValue  decimal.Decimal `json:"stone_value"`
		Value       decimal.Decimal `json:"value"`
	}

	// DueInstallment is an unpaid installment on an active plan, joined
	// with enough invoice and customer context to chase it.
	DueInstallment struct {
		PlanID         string          `json:"plan_id"`
		InvoiceID      string          `json:"invoice_id"`
		InvoiceNumber  int64           `json:"invoice_number"`
		Seq            int             `json:"seq"`
		DueDate        time.Time       `json:"due_date"`
		Amount         decimal.Decimal `json:"amount"`
		AmountDisplay  string          `json:"amount_display"`
		CustomerID     string          `json:"customer_id"`
		CustomerName   string          `json:"customer_name"`
		CustomerPhone  string          `json:"customer_phone"`
	}

	InstallmentsDue struct {
		Days          int              `json:"days"`
		Overdue       []DueInstallment `json:"overdue"`
		Upcoming      []DueInstallment `json:"upcoming"`
		OverdueTotal  decimal.Decimal  `json:"overdue_total"`
		UpcomingTotal decimal.Decimal  `json:"upcoming_total"`
	}

	// Overview is the dashboard payload: last 30 days of sales, current
	// stock valuation and the week's installments.
	Overview struct {
		GeneratedAt time.Time          `json:"generated_at"`
		Sales       SalesSummary       `json:"sales"`
		Inventory   InventoryValuation `json:"inventory"`
		Due         InstallmentsDue    `json:"due"`
	}
)

// WriteCSV renders the day series with a trailing total row.
func (s SalesSummary) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"date", "count", "gross"})
	for _, d := range s.Days {
		_ = cw.Write([]string{d.Date, strconv.Itoa(d.Count), d.Gross.String()})
	}
	_ = cw.Write([]string{"total", strconv.Itoa(s.Count), s.Gross.String()})
	cw.Flush()
	return cw.Error()
}

// WriteCSV renders the karat buckets with a trailing total row.
func (v InventoryValuation) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"karat", "items", "weight_grams", "gold_value", "wage_value", "stone_value", "value"})
	for _, k := range v.Karats {
		_ = cw.Write([]string{
			strconv.Itoa(k.Karat),
			strconv.Itoa(k.Items),
			k.WeightGrams.String(),
			k.GoldValue.String(),
			k.WageValue.String(),
			k.StoneValue.String(),
			k.Value.String(),
		})
	}
	_ = cw.Write([]string{"total", strconv.Itoa(v.TotalItems), v.TotalWeight.String(), "", "", "", v.TotalValue.String()})
	cw.Flush()
	return cw.Error()
}

// WriteCSV renders overdue rows first, then upcoming.
func (d InstallmentsDue) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"state", "due_date", "invoice_number", "seq", "customer", "phone", "amount"})
	write := func(state string, insts []DueInstallment) {
		for _, inst := range insts {
			_ = cw.Write([]string{
				state,
				inst.DueDate.Format("2006-01-02"),
				strconv.FormatInt(inst.InvoiceNumber, 10),
				strconv.Itoa(inst.Seq),
				inst.CustomerName,
				inst.CustomerPhone,
				inst.Amount.String(),
			})
		}
	}
	write("overdue", d.Overdue)
	write("upcoming", d.Upcoming)
	cw.Flush()
	return cw.Error()
}
