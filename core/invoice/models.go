package invoice

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
)

// Invoice kinds
const (
	KindSale     = "sale"
	KindPurchase = "purchase"
)

// Invoice statuses
const (
	StatusDraft         = "draft"
	StatusIssued        = "issued"
	StatusPartiallyPaid = "partially_paid"
	StatusPaid          = "paid"
	StatusCancelled     = "cancelled"
)

// Payment methods
const (
	MethodCash   = "cash"
	MethodCard   = "card"
	MethodCheque = "cheque"
	MethodGold   = "gold"
)

// Installment plan statuses
const (
	PlanActive    = "active"
	PlanSettled   = "settled"
	PlanCancelled = "cancelled"
)

type (
	Invoice struct {
		ID           string          `json:"id"`
		Number       int64           `json:"number"` // 0 until issued
		Kind         string          `json:"kind"`
		CustomerID   string          `json:"customer_id"` // empty for walk-in
		Status       string          `json:"status"`
		PricePerGram decimal.Decimal `json:"price_per_gram"` // board price the lines were last priced at
		TotalGold    decimal.Decimal `json:"total_gold"`
		TotalWage    decimal.Decimal `json:"total_wage"`
		TotalProfit  decimal.Decimal `json:"total_profit"`
		TotalTax     decimal.Decimal `json:"total_tax"`
		TotalStone   decimal.Decimal `json:"total_stone"`
		Total        decimal.Decimal `json:"total"`
		Note         string          `json:"note"`
		Lines        []Line          `json:"lines,omitempty"`
		IssuedAt     time.Time       `json:"issued_at"`
		CreatedBy    string          `json:"created_by"`
		CreatedAt    time.Time       `json:"created_at"`
		UpdatedAt    time.Time       `json:"updated_at"`
	}

	Line struct {
		ID               string          `json:"id"`
		InvoiceID        string          `json:"invoice_id"`
		ProductID        string          `json:"product_id"`
		Description      string          `json:"description"`
		Quantity         int             `json:"quantity"`
		WeightGrams      decimal.Decimal `json:"weight_grams"`
		Karat            int             `json:"karat"`
		UnitPricePerGram decimal.Decimal `json:"unit_price_per_gram"`
		WagePct          decimal.Decimal `json:"wage_pct"`
		ProfitPct        decimal.Decimal `json:"profit_pct"`
		TaxPct           decimal.Decimal `json:"tax_pct"`
		StoneValue       decimal.Decimal `json:"stone_value"`
		Total            decimal.Decimal `json:"total"`
	}

	Payment struct {
		ID        string          `json:"id"`
		InvoiceID string          `json:"invoice_id"`
		Amount    decimal.Decimal `json:"amount"`
		Method    string          `json:"method"`
		Reference string          `json:"reference"`
		PaidAt    time.Time       `json:"paid_at"`
		ByUserID  string          `json:"by_user_id"`
	}

	InstallmentPlan struct {
		ID                 string          `json:"id"`
		InvoiceID          string          `json:"invoice_id"`
		DownPayment        decimal.Decimal `json:"down_payment"`
		Months             int             `json:"months"`
		MonthlyInterestPct decimal.Decimal `json:"monthly_interest_pct"`
		Status             string          `json:"status"`
		CreatedAt          time.Time       `json:"created_at"`
		Installments       []Installment   `json:"installments,omitempty"`
	}

	Installment struct {
		ID        string          `json:"id"`
		PlanID    string          `json:"plan_id"`
		Seq       int             `json:"seq"`
		DueDate   time.Time       `json:"due_date"`
		Amount    decimal.Decimal `json:"amount"`
		PaidAt    time.Time       `json:"paid_at"` // zero while unpaid
		PaymentID string          `json:"payment_id"`
	}

	// Detail is the single-invoice billing view.
	Detail struct {
		Invoice
		Payments    []Payment        `json:"payments"`
		Plan        *InstallmentPlan `json:"plan,omitempty"` // the active plan, if any
		Outstanding decimal.Decimal  `json:"outstanding"`
	}
)

func (i *Invoice) IsDraft() bool  { return i.Status == StatusDraft }
func (i *Invoice) IsClosed() bool { return i.Status == StatusPaid || i.Status == StatusCancelled }

// Payable reports whether the invoice can take a direct payment.
func (i *Invoice) Payable() bool {
	return i.Status == StatusIssued || i.Status == StatusPartiallyPaid
}

// Overdue reports whether the installment has lapsed unpaid; derived, never stored.
func (i *Installment) Overdue(now time.Time) bool {
	return i.PaidAt.IsZero() && i.DueDate.Before(now)
}

func (i *Installment) Paid() bool { return !i.PaidAt.IsZero() }

type NewLine struct {
	ProductID   string              `json:"product_id" validate:"required,uuid4"`
	Description string              `json:"description"`
	Quantity    int                 `json:"quantity" validate:"min=0,max=1000"`
	WeightGrams decimal.NullDecimal `json:"weight_grams"` // override for bulk items; product weight otherwise
	WagePct     decimal.NullDecimal `json:"wage_pct"`
	ProfitPct   decimal.NullDecimal `json:"profit_pct"`
	TaxPct      decimal.NullDecimal `json:"tax_pct"`
	StoneValue  decimal.NullDecimal `json:"stone_value"`
}

type NewInvoice struct {
	Kind       string    `json:"kind" validate:"omitempty,oneof=sale purchase"`
	CustomerID string    `json:"customer_id" validate:"omitempty,uuid4"`
	Note       string    `json:"note"`
	Lines      []NewLine `json:"lines" validate:"omitempty,dive"`
}

func (ni *NewInvoice) Validate(validate *validator.Validate) error {
	ni.Kind = core.CleanString(ni.Kind, true)
	if ni.Kind == "" {
		ni.Kind = KindSale
	}
	ni.Note = core.CleanString(ni.Note)
	for i := range ni.Lines {
		ni.Lines[i].clean()
	}
	if err := validate.Struct(ni); err != nil {
		return err
	}
	return validateLines(ni.Lines)
}

type UpdateInvoice struct {
	CustomerID string    `json:"customer_id" validate:"omitempty,uuid4"`
	Note       string    `json:"note"`
	Lines      []NewLine `json:"lines" validate:"omitempty,dive"` // non-nil replaces all lines
}

func (ui *UpdateInvoice) Validate(validate *validator.Validate) error {
	ui.Note = core.CleanString(ui.Note)
	for i := range ui.Lines {
		ui.Lines[i].clean()
	}
	if err := validate.Struct(ui); err != nil {
		return err
	}
	return validateLines(ui.Lines)
}

func (nl *NewLine) clean() {
	nl.Description = core.CleanString(nl.Description)
	if nl.Quantity == 0 {
		nl.Quantity = 1
	}
}

// validateLines checks the decimal overrides the validator cannot see.
func validateLines(lines []NewLine) error {
	for i, nl := range lines {
		field := func(name string) string { return fmt.Sprintf("lines[%d].%s", i, name) }
		if nl.WeightGrams.Valid && !nl.WeightGrams.Decimal.IsPositive() {
			return core.NewValidationError(nil, core.FieldError{Field: field("weight_grams"), Error: "weight override must be greater than zero"})
		}
		for _, pct := range []struct {
			name string
			val  decimal.NullDecimal
		}{
			{"wage_pct", nl.WagePct},
			{"profit_pct", nl.ProfitPct},
			{"tax_pct", nl.TaxPct},
		} {
			if pct.val.Valid && (pct.val.Decimal.IsNegative() || pct.val.Decimal.GreaterThan(decimal.NewFromInt(100))) {
				return core.NewValidationError(nil, core.FieldError{Field: field(pct.name), Error: "percentage must be between 0 and 100"})
			}
		}
		if nl.StoneValue.Valid && nl.StoneValue.Decimal.IsNegative() {
			return core.NewValidationError(nil, core.FieldError{Field: field("stone_value"), Error: "stone value cannot be negative"})
		}
	}
	return nil
}

type NewPayment struct {
	Amount    decimal.Decimal `json:"amount"`
	Method    string          `json:"method" validate:"omitempty,oneof=cash card cheque gold"`
	Reference string          `json:"reference"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.Method = core.CleanString(np.Method, true)
	if np.Method == "" {
		np.Method = MethodCash
	}
	np.Reference = core.CleanString(np.Reference)
	if err := validate.Struct(np); err != nil {
		return err
	}
	if !np.Amount.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount must be greater than zero"})
	}
	if !np.Amount.Equal(np.Amount.Truncate(0)) {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount must be a whole toman amount"})
	}
	return nil
}

type NewInstallmentPlan struct {
	DownPayment        decimal.Decimal `json:"down_payment"`
	Months             int             `json:"months" validate:"required,min=1,max=60"`
	MonthlyInterestPct decimal.Decimal `json:"monthly_interest_pct"`
}

func (np *NewInstallmentPlan) Validate(validate *validator.Validate) error {
	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.DownPayment.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{Field: "down_payment", Error: "down payment cannot be negative"})
	}
	if !np.DownPayment.Equal(np.DownPayment.Truncate(0)) {
		return core.NewValidationError(nil, core.FieldError{Field: "down_payment", Error: "down payment must be a whole toman amount"})
	}
	if np.MonthlyInterestPct.IsNegative() || np.MonthlyInterestPct.GreaterThan(decimal.NewFromInt(100)) {
		return core.NewValidationError(nil, core.FieldError{Field: "monthly_interest_pct", Error: "interest must be between 0 and 100"})
	}
	return nil
}

// QueryFilter is a filter for quering invoices.
type QueryFilter struct {
	Status     string    `query:"status"`
	Kind       string    `query:"kind"`
	CustomerID string    `query:"customer_id"`
	Number     int64     `query:"number"`
	IssuedFrom time.Time `query:"issued_from"`
	IssuedTo   time.Time `query:"issued_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	if qf == nil {
		return true
	}
	return qf.Status == "" && qf.Kind == "" && qf.CustomerID == "" &&
		qf.Number == 0 && qf.IssuedFrom.IsZero() && qf.IssuedTo.IsZero()
}

// GetFilter is a filter for getting a single invoice.
type GetFilter struct {
	ID     string
	Number int64
}
