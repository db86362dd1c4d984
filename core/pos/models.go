package pos

import (
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/persian"
)

type (
	// QuoteRequest prices a prospective sale at the counter. The optional
	// weight replaces the catalog weight for pieces sold by actual weight.
	QuoteRequest struct {
		ProductID   string              `json:"product_id" validate:"required,uuid4"`
		Quantity    int                 `json:"quantity" validate:"min=0,max=1000"`
		WeightGrams decimal.NullDecimal `json:"weight_grams"`
	}

	Quote struct {
		ProductID    string            `json:"product_id"`
		Description  string            `json:"description"`
		Quantity     int               `json:"quantity"`
		WeightGrams  decimal.Decimal   `json:"weight_grams"`
		Karat        int               `json:"karat"`
		PricePerGram decimal.Decimal   `json:"price_per_gram"`
		PricedAt     time.Time         `json:"priced_at"`
		Breakdown    invoice.Breakdown `json:"breakdown"`
		Display      QuoteDisplay      `json:"display"`
	}

	// QuoteDisplay carries the quote ready to show on a Persian screen.
	QuoteDisplay struct {
		Weight       string `json:"weight"`
		PricePerGram string `json:"price_per_gram"`
		Total        string `json:"total"`
		TotalHuman   string `json:"total_human"`
	}

	// QuickSaleRequest sells a single catalog item and collects the full
	// amount in one go.
	QuickSaleRequest struct {
		CustomerID string `json:"customer_id" validate:"omitempty,uuid4"`
		ProductID  string `json:"product_id" validate:"required,uuid4"`
		Quantity   int    `json:"quantity" validate:"min=0,max=1000"`
		Method     string `json:"method" validate:"omitempty,oneof=cash card cheque gold"`
		Reference  string `json:"reference" validate:"max=128"`
		Note       string `json:"note" validate:"max=255"`
	}

	Sale struct {
		Invoice invoice.Invoice `json:"invoice"`
		Payment invoice.Payment `json:"payment"`
		Receipt Receipt         `json:"receipt"`
	}

	ReceiptLine struct {
		Description string `json:"description"`
		Quantity    string `json:"quantity"`
		Weight      string `json:"weight"`
		Karat       string `json:"karat"`
		Total       string `json:"total"`
	}

	// Receipt is the printable payload for an issued invoice. All amounts
	// are preformatted Persian strings.
	Receipt struct {
		InvoiceID    string        `json:"invoice_id"`
		Number       string        `json:"number"`
		IssuedAt     time.Time     `json:"issued_at"`
		PricePerGram string        `json:"price_per_gram"`
		Lines        []ReceiptLine `json:"lines"`
		TotalGold    string        `json:"total_gold"`
		TotalWage    string        `json:"total_wage"`
		TotalProfit  string        `json:"total_profit"`
		TotalTax     string        `json:"total_tax"`
		TotalStone   string        `json:"total_stone"`
		Total        string        `json:"total"`
		TotalHuman   string        `json:"total_human"`
		Paid         string        `json:"paid"`
		Outstanding  string        `json:"outstanding"`
	}
)

func (qr *QuoteRequest) clean() {
	qr.ProductID = core.CleanString(qr.ProductID)
	if qr.Quantity == 0 {
		qr.Quantity = 1
	}
}

func (qr *QuoteRequest) Validate(validate *validator.Validate) error {
	qr.clean()
	if err := validate.Struct(qr); err != nil {
		return err
	}
	if qr.WeightGrams.Valid && !qr.WeightGrams.Decimal.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{
			Field: "weight_grams",
			Error: "weight must be positive",
		})
	}
	return nil
}

func (qs *QuickSaleRequest) clean() {
	qs.CustomerID = core.CleanString(qs.CustomerID)
	qs.ProductID = core.CleanString(qs.ProductID)
	qs.Reference = core.CleanString(qs.Reference)
	qs.Note = core.CleanString(qs.Note)
	if qs.Quantity == 0 {
		qs.Quantity = 1
	}
	if qs.Method == "" {
		qs.Method = invoice.MethodCash
	}
}

func (qs *QuickSaleRequest) Validate(validate *validator.Validate) error {
	qs.clean()
	if err := validate.Struct(qs); err != nil {
		return err
	}
	return nil
}

func buildReceipt(inv invoice.Invoice, paid, outstanding decimal.Decimal) Receipt {
	r := Receipt{
		InvoiceID:    inv.ID,
		Number:       persian.ToPersianDigits(strconv.FormatInt(inv.Number, 10)),
		IssuedAt:     inv.IssuedAt,
		PricePerGram: persian.FormatToman(inv.PricePerGram),
		TotalGold:    persian.FormatToman(inv.TotalGold),
		TotalWage:    persian.FormatToman(inv.TotalWage),
		TotalProfit:  persian.FormatToman(inv.TotalProfit),
		TotalTax:     persian.FormatToman(inv.TotalTax),
		TotalStone:   persian.FormatToman(inv.TotalStone),
		Total:        persian.FormatToman(inv.Total),
		TotalHuman:   persian.HumanToman(inv.Total),
		Paid:         persian.FormatToman(paid),
		Outstanding:  persian.FormatToman(outstanding),
	}
	for _, ln := range inv.Lines {
		r.Lines = append(r.Lines, ReceiptLine{
			Description: ln.Description,
			Quantity:    persian.ToPersianDigits(strconv.Itoa(ln.Quantity)),
			Weight:      persian.FormatWeight(ln.WeightGrams, persian.Gram),
			Karat:       persian.ToPersianDigits(strconv.Itoa(ln.Karat)) + " عیار",
			Total:       persian.FormatToman(ln.Total),
		})
	}
	return r
}
