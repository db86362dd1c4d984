package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/goldprice"
)

var (
	ErrNotFound            = errors.New("invoice not found")
	ErrPlanNotFound        = errors.New("installment plan not found")
	ErrInstallmentNotFound = errors.New("installment not found")
)

type (
	// Repository persists invoices, payments and installment plans.
	// GetInvoice and GetPlan load their child rows; QueryInvoices does not.
	Repository interface {
		CreateInvoice(ctx context.Context, inv Invoice, exec ...core.DBExecutor) (Invoice, error)
		QueryInvoices(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Invoice, error)
		GetInvoice(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Invoice, error)
		UpdateInvoice(ctx context.Context, inv Invoice, exec ...core.DBExecutor) (Invoice, error)
		ReplaceLines(ctx context.Context, invoiceID string, lines []Line, exec ...core.DBExecutor) ([]Line, error)
		DeleteInvoice(ctx context.Context, id string, exec ...core.DBExecutor) error
		NextInvoiceNumber(ctx context.Context, exec ...core.DBExecutor) (int64, error)

		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		QueryPayments(ctx context.Context, invoiceID string, exec ...core.DBExecutor) ([]Payment, error)
		PaidSum(ctx context.Context, invoiceID string, exec ...core.DBExecutor) (decimal.Decimal, error)
		// OutstandingForCustomer sums total minus payments over the
		// customer's open invoices.
		OutstandingForCustomer(ctx context.Context, customerID string, exec ...core.DBExecutor) (decimal.Decimal, error)

		CreatePlan(ctx context.Context, plan InstallmentPlan, exec ...core.DBExecutor) (InstallmentPlan, error)
		GetPlan(ctx context.Context, id string, exec ...core.DBExecutor) (InstallmentPlan, error)
		// GetActivePlan returns ErrPlanNotFound when the invoice has none.
		GetActivePlan(ctx context.Context, invoiceID string, exec ...core.DBExecutor) (InstallmentPlan, error)
		UpdatePlan(ctx context.Context, plan InstallmentPlan, exec ...core.DBExecutor) (InstallmentPlan, error)
		UpdateInstallment(ctx context.Context, inst Installment, exec ...core.DBExecutor) (Installment, error)
	}

	// StockMover and PriceGetter are the slices of the catalog and gold
	// price layers this package needs.
	StockMover interface {
		GetProduct(ctx context.Context, filter catalog.GetFilter, exec ...core.DBExecutor) (catalog.Product, error)
		AdjustStock(ctx context.Context, e catalog.StockEntry, exec ...core.DBExecutor) (catalog.Product, error)
	}
	PriceGetter interface {
		Latest(ctx context.Context) (goldprice.GoldPrice, error)
	}

	Service interface {
		Create(ctx context.Context, ni NewInvoice, createdBy string) (Invoice, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error)
		GetByID(ctx context.Context, id string) (Invoice, error)
		GetDetail(ctx context.Context, id string) (Detail, error)
		UpdateDraft(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error)
		DeleteDraft(ctx context.Context, id string) error
		// Issue prices the lines at the pinned price, or the latest board
		// price when pin is not set, moves stock and assigns the number.
		Issue(ctx context.Context, id string, pin decimal.NullDecimal, byUserID string) (Invoice, error)
		Cancel(ctx context.Context, id string, byUserID string) (Invoice, error)

		AddPayment(ctx context.Context, invoiceID string, np NewPayment, byUserID string) (Payment, error)
		Payments(ctx context.Context, invoiceID string) ([]Payment, error)
		Outstanding(ctx context.Context, invoiceID string) (decimal.Decimal, error)
		OutstandingForCustomer(ctx context.Context, customerID string) (decimal.Decimal, error)

		CreateInstallmentPlan(ctx context.Context, invoiceID string, np NewInstallmentPlan, byUserID string) (InstallmentPlan, error)
		GetPlan(ctx context.Context, planID string) (InstallmentPlan, error)
		PayInstallment(ctx context.Context, planID string, seq int, np NewPayment, byUserID string) (Installment, error)
		CancelPlan(ctx context.Context, planID string) (InstallmentPlan, error)
	}

	service struct {
		db     core.DB
		repo   Repository
		stock  StockMover
		prices PriceGetter
		conf   *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, stock StockMover, prices PriceGetter, conf *core.Config) Service {
	return &service{
		db:     db,
		repo:   repo,
		stock:  stock,
		prices: prices,
		conf:   conf,
	}
}

func (svc *service) Create(ctx context.Context, ni NewInvoice, createdBy string) (Invoice, error) {
	lines, err := svc.buildLines(ctx, ni.Lines)
	if err != nil {
		return Invoice{}, err
	}

	now := time.Now().UTC()
	inv := Invoice{
		Kind:       ni.Kind,
		CustomerID: ni.CustomerID,
		Status:     StatusDraft,
		Note:       ni.Note,
		Lines:      lines,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	svc.previewTotals(ctx, &inv)
	return svc.repo.CreateInvoice(ctx, inv)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Invoice, error) {
	return svc.repo.QueryInvoices(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Invoice, error) {
	return svc.repo.GetInvoice(ctx, GetFilter{ID: id})
}

func (svc *service) GetDetail(ctx context.Context, id string) (Detail, error) {
	inv, err := svc.GetByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	payments, err := svc.repo.QueryPayments(ctx, inv.ID)
	if err != nil {
		return Detail{}, err
	}
	paid, err := svc.repo.PaidSum(ctx, inv.ID)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{
		Invoice:     inv,
		Payments:    payments,
		Outstanding: inv.Total.Sub(paid),
	}
	plan, err := svc.repo.GetActivePlan(ctx, inv.ID)
	switch {
	case err == nil:
		detail.Plan = &plan
	case errors.Cause(err) != ErrPlanNotFound:
		return Detail{}, err
	}
	return detail, nil
}

func (svc *service) UpdateDraft(ctx context.Context, id string, ui UpdateInvoice) (Invoice, error) {
	inv, err := svc.GetByID(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if !inv.IsDraft() {
		return Invoice{}, core.NewValidationError(errors.New("only draft invoices can be edited"))
	}

	if ui.CustomerID != "" {
		inv.CustomerID = ui.CustomerID
	}
	if ui.Note != "" {
		inv.Note = ui.Note
	}
	if ui.Lines != nil {
		lines, err := svc.buildLines(ctx, ui.Lines)
		if err != nil {
			return Invoice{}, err
		}
		inv.Lines = lines
	}
	svc.previewTotals(ctx, &inv)
	inv.UpdatedAt = time.Now().UTC()

	inv, err = svc.repo.UpdateInvoice(ctx, inv)
	if err != nil {
		return Invoice{}, err
	}
	if ui.Lines != nil {
		if inv.Lines, err = svc.repo.ReplaceLines(ctx, inv.ID, inv.Lines); err != nil {
			return Invoice{}, err
		}
	}
	return inv, nil
}

func (svc *service) DeleteDraft(ctx context.Context, id string) error {
	inv, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !inv.IsDraft() {
		return core.NewValidationError(errors.New("only draft invoices can be deleted"))
	}
	return svc.repo.DeleteInvoice(ctx, id)
}

func (svc *service) Issue(ctx context.Context, id string, pin decimal.NullDecimal, byUserID string) (Invoice, error) {
	price, err := svc.resolvePrice(ctx, pin)
	if err != nil {
		return Invoice{}, err
	}

	tx, err := svc.db.BeginTx(ctx)
	if err != nil {
		return Invoice{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	inv, err := svc.repo.GetInvoice(ctx, GetFilter{ID: id}, tx)
	if err != nil {
		return Invoice{}, err
	}
	if !inv.IsDraft() {
		return Invoice{}, core.NewValidationError(errors.New("only draft invoices can be issued"))
	}
	if len(inv.Lines) == 0 {
		return Invoice{}, core.NewValidationError(errors.New("an invoice needs at least one line"))
	}

	number, err := svc.repo.NextInvoiceNumber(ctx, tx)
	if err != nil {
		return Invoice{}, err
	}

	// stock moves with the invoice kind's sign
	for i, ln := range inv.Lines {
		delta, reason := -ln.Quantity, catalog.ReasonSale
		if inv.Kind == KindPurchase {
			delta, reason = ln.Quantity, catalog.ReasonPurchase
		}
		if _, err = svc.stock.AdjustStock(ctx, catalog.StockEntry{
			ProductID: ln.ProductID,
			Delta:     delta,
			Reason:    reason,
			Note:      fmt.Sprintf("invoice #%d", number),
			ByUserID:  byUserID,
			At:        time.Now().UTC(),
		}, tx); err != nil {
			if errors.Cause(err) == catalog.ErrInsufficientStock {
				return Invoice{}, core.NewValidationError(err, core.FieldError{
					Field: fmt.Sprintf("lines[%d].product_id", i),
					Error: "insufficient stock for this product",
				})
			}
			return Invoice{}, err
		}
	}

	now := time.Now().UTC()
	totals := priceLines(price, inv.Lines)
	inv.Number = number
	inv.Status = StatusIssued
	inv.PricePerGram = price
	inv.TotalGold = totals.GoldValue
	inv.TotalWage = totals.Wage
	inv.TotalProfit = totals.Profit
	inv.TotalTax = totals.Tax
	inv.TotalStone = totals.Stone
	inv.Total = totals.Total
	inv.IssuedAt = now
	inv.UpdatedAt = now

	if inv, err = svc.repo.UpdateInvoice(ctx, inv, tx); err != nil {
		return Invoice{}, err
	}
	if inv.Lines, err = svc.repo.ReplaceLines(ctx, inv.ID, inv.Lines, tx); err != nil {
		return Invoice{}, err
	}
	if err = tx.Commit(); err != nil {
		return Invoice{}, errors.Wrap(err, "committing issue")
	}
	return inv, nil
}

func (svc *service) Cancel(ctx context.Context, id string, byUserID string) (Invoice, error) {
	tx, err := svc.db.BeginTx(ctx)
	if err != nil {
		return Invoice{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	inv, err := svc.repo.GetInvoice(ctx, GetFilter{ID: id}, tx)
	if err != nil {
		return Invoice{}, err
	}
	switch inv.Status {
	case StatusDraft:
		// nothing to unwind
	case StatusIssued:
		paid, err := svc.repo.PaidSum(ctx, inv.ID, tx)
		if err != nil {
			return Invoice{}, err
		}
		if paid.IsPositive() {
			return Invoice{}, core.NewValidationError(errors.New("an invoice with payments cannot be cancelled"))
		}
		if _, err = svc.repo.GetActivePlan(ctx, inv.ID, tx); err == nil {
			return Invoice{}, core.NewValidationError(errors.New("cancel the installment plan first"))
		} else if errors.Cause(err) != ErrPlanNotFound {
			return Invoice{}, err
		}
		// put the goods back
		for _, ln := range inv.Lines {
			delta := ln.Quantity
			if inv.Kind == KindPurchase {
				delta = -ln.Quantity
			}
			if _, err = svc.stock.AdjustStock(ctx, catalog.StockEntry{
				ProductID: ln.ProductID,
				Delta:     delta,
				Reason:    catalog.ReasonAdjust,
				Note:      fmt.Sprintf("invoice #%d cancelled", inv.Number),
				ByUserID:  byUserID,
				At:        time.Now().UTC(),
			}, tx); err != nil {
				return Invoice{}, err
			}
		}
	default:
		return Invoice{}, core.NewValidationError(errors.New("an invoice with payments cannot be cancelled"))
	}

	inv.Status = StatusCancelled
	inv.UpdatedAt = time.Now().UTC()
	if inv, err = svc.repo.UpdateInvoice(ctx, inv, tx); err != nil {
		return Invoice{}, err
	}
	if err = tx.Commit(); err != nil {
		return Invoice{}, errors.Wrap(err, "committing cancel")
	}
	return inv, nil
}

func (svc *service) AddPayment(ctx context.Context, invoiceID string, np NewPayment, byUserID string) (Payment, error) {
	tx, err := svc.db.BeginTx(ctx)
	if err != nil {
		return Payment{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	inv, err := svc.repo.GetInvoice(ctx, GetFilter{ID: invoiceID}, tx)
	if err != nil {
		return Payment{}, err
	}
	p, err := svc.applyPayment(ctx, inv, Payment{
		InvoiceID: inv.ID,
		Amount:    np.Amount,
		Method:    np.Method,
		Reference: np.Reference,
		PaidAt:    time.Now().UTC(),
		ByUserID:  byUserID,
	}, true, tx)
	if err != nil {
		return Payment{}, err
	}
	if err = tx.Commit(); err != nil {
		return Payment{}, errors.Wrap(err, "committing payment")
	}
	return p, nil
}

func (svc *service) Payments(ctx context.Context, invoiceID string) ([]Payment, error) {
	return svc.repo.QueryPayments(ctx, invoiceID)
}

func (svc *service) Outstanding(ctx context.Context, invoiceID string) (decimal.Decimal, error) {
	inv, err := svc.GetByID(ctx, invoiceID)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := svc.repo.PaidSum(ctx, inv.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return inv.Total.Sub(paid), nil
}

func (svc *service) OutstandingForCustomer(ctx context.Context, customerID string) (decimal.Decimal, error) {
	return svc.repo.OutstandingForCustomer(ctx, customerID)
}

func (svc *service) CreateInstallmentPlan(ctx context.Context, invoiceID string, np NewInstallmentPlan, byUserID string) (InstallmentPlan, error) {
	tx, err := svc.db.BeginTx(ctx)
	if err != nil {
		return InstallmentPlan{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	inv, err := svc.repo.GetInvoice(ctx, GetFilter{ID: invoiceID}, tx)
	if err != nil {
		return InstallmentPlan{}, err
	}
	if !inv.Payable() {
		return InstallmentPlan{}, core.NewValidationError(errors.New("only issued invoices can take an installment plan"))
	}
	if _, err = svc.repo.GetActivePlan(ctx, inv.ID, tx); err == nil {
		return InstallmentPlan{}, core.NewValidationError(errors.New("an active installment plan already exists"))
	} else if errors.Cause(err) != ErrPlanNotFound {
		return InstallmentPlan{}, err
	}

	paid, err := svc.repo.PaidSum(ctx, inv.ID, tx)
	if err != nil {
		return InstallmentPlan{}, err
	}
	outstanding := inv.Total.Sub(paid)
	if !outstanding.IsPositive() {
		return InstallmentPlan{}, core.NewValidationError(errors.New("nothing outstanding on this invoice"))
	}
	if np.DownPayment.GreaterThanOrEqual(outstanding) {
		return InstallmentPlan{}, core.NewValidationError(nil, core.FieldError{
			Field: "down_payment",
			Error: "down payment must be less than the outstanding amount",
		})
	}
	financed := outstanding.Sub(np.DownPayment)
	if financed.LessThan(decimal.NewFromInt(int64(np.Months))) {
		return InstallmentPlan{}, core.NewValidationError(nil, core.FieldError{
			Field: "months",
			Error: "too many months for this amount",
		})
	}

	now := time.Now().UTC()
	_, installments := buildSchedule(financed, np.Months, np.MonthlyInterestPct, now)
	plan := InstallmentPlan{
		InvoiceID:          inv.ID,
		DownPayment:        np.DownPayment,
		Months:             np.Months,
		MonthlyInterestPct: np.MonthlyInterestPct,
		Status:             PlanActive,
		CreatedAt:          now,
		Installments:       installments,
	}
	if plan, err = svc.repo.CreatePlan(ctx, plan, tx); err != nil {
		return InstallmentPlan{}, err
	}

	if np.DownPayment.IsPositive() {
		if _, err = svc.applyPayment(ctx, inv, Payment{
			InvoiceID: inv.ID,
			Amount:    np.DownPayment,
			Method:    MethodCash,
			Reference: "پیش‌پرداخت",
			PaidAt:    now,
			ByUserID:  byUserID,
		}, true, tx); err != nil {
			return InstallmentPlan{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return InstallmentPlan{}, errors.Wrap(err, "committing plan")
	}
	return plan, nil
}

func (svc *service) GetPlan(ctx context.Context, planID string) (InstallmentPlan, error) {
	return svc.repo.GetPlan(ctx, planID)
}

func (svc *service) PayInstallment(ctx context.Context, planID string, seq int, np NewPayment, byUserID string) (Installment, error) {
	tx, err := svc.db.BeginTx(ctx)
	if err != nil {
		return Installment{}, errors.Wrap(err, "beginning transaction")
	}
	defer tx.Rollback()

	plan, err := svc.repo.GetPlan(ctx, planID, tx)
	if err != nil {
		return Installment{}, err
	}
	if plan.Status != PlanActive {
		return Installment{}, core.NewValidationError(errors.New("the installment plan is not active"))
	}

	var inst *Installment
	for i := range plan.Installments {
		if plan.Installments[i].Seq == seq {
			inst = &plan.Installments[i]
			break
		}
	}
	if inst == nil {
		return Installment{}, ErrInstallmentNotFound
	}
	if inst.Paid() {
		return Installment{}, core.NewValidationError(errors.New("this installment is already paid"))
	}

	inv, err := svc.repo.GetInvoice(ctx, GetFilter{ID: plan.InvoiceID}, tx)
	if err != nil {
		return Installment{}, err
	}
	// the scheduled amount includes the financing charge, so the invoice
	// cap does not apply here
	p, err := svc.applyPayment(ctx, inv, Payment{
		InvoiceID: inv.ID,
		Amount:    inst.Amount,
		Method:    np.Method,
		Reference: np.Reference,
		PaidAt:    time.Now().UTC(),
		ByUserID:  byUserID,
	}, false, tx)
	if err != nil {
		return Installment{}, err
	}

	inst.PaidAt = p.PaidAt
	inst.PaymentID = p.ID
	if *inst, err = svc.repo.UpdateInstallment(ctx, *inst, tx); err != nil {
		return Installment{}, err
	}

	remaining := 0
	for _, other := range plan.Installments {
		if !other.Paid() {
			remaining++
		}
	}
	if remaining == 0 {
		plan.Status = PlanSettled
		if _, err = svc.repo.UpdatePlan(ctx, plan, tx); err != nil {
			return Installment{}, err
		}
	}
	if err = tx.Commit(); err != nil {
		return Installment{}, errors.Wrap(err, "committing installment payment")
	}
	return *inst, nil
}

func (svc *service) CancelPlan(ctx context.Context, planID string) (InstallmentPlan, error) {
	plan, err := svc.repo.GetPlan(ctx, planID)
	if err != nil {
		return InstallmentPlan{}, err
	}
	if plan.Status != PlanActive {
		return InstallmentPlan{}, core.NewValidationError(errors.New("the installment plan is not active"))
	}
	for _, inst := range plan.Installments {
		if inst.Paid() {
			return InstallmentPlan{}, core.NewValidationError(errors.New("a plan with paid installments cannot be cancelled"))
		}
	}
	plan.Status = PlanCancelled
	return svc.repo.UpdatePlan(ctx, plan)
}

// applyPayment records p and rolls the invoice status forward from the new
// paid total. The cap guards direct payments; installment amounts carry
// interest past the invoice total.
func (svc *service) applyPayment(ctx context.Context, inv Invoice, p Payment, enforceCap bool, exec ...core.DBExecutor) (Payment, error) {
	if !inv.Payable() {
		return Payment{}, core.NewValidationError(errors.New("the invoice cannot take payments in its current status"))
	}
	paid, err := svc.repo.PaidSum(ctx, inv.ID, exec...)
	if err != nil {
		return Payment{}, err
	}
	if enforceCap && p.Amount.GreaterThan(inv.Total.Sub(paid)) {
		return Payment{}, core.NewValidationError(nil, core.FieldError{
			Field: "amount",
			Error: "payment exceeds the outstanding amount",
		})
	}

	if p, err = svc.repo.CreatePayment(ctx, p, exec...); err != nil {
		return Payment{}, err
	}

	status := StatusPartiallyPaid
	if paid.Add(p.Amount).GreaterThanOrEqual(inv.Total) {
		status = StatusPaid
	}
	if status != inv.Status {
		inv.Status = status
		inv.UpdatedAt = time.Now().UTC()
		if _, err = svc.repo.UpdateInvoice(ctx, inv, exec...); err != nil {
			return Payment{}, err
		}
	}
	return p, nil
}

// buildLines snapshots product attributes into lines, with any overrides
// the payload carries.
func (svc *service) buildLines(ctx context.Context, newLines []NewLine, exec ...core.DBExecutor) ([]Line, error) {
	lines := make([]Line, 0, len(newLines))
	for i, nl := range newLines {
		prod, err := svc.stock.GetProduct(ctx, catalog.GetFilter{ID: nl.ProductID}, exec...)
		if err != nil {
			if errors.Cause(err) == catalog.ErrNotFound {
				return nil, core.NewValidationError(err, core.FieldError{
					Field: fmt.Sprintf("lines[%d].product_id", i),
					Error: "product not found",
				})
			}
			return nil, err
		}
		if prod.IsActive != nil && !*prod.IsActive {
			return nil, core.NewValidationError(nil, core.FieldError{
				Field: fmt.Sprintf("lines[%d].product_id", i),
				Error: "product is not active",
			})
		}

		ln := Line{
			ProductID:   prod.ID,
			Description: nl.Description,
			Quantity:    nl.Quantity,
			WeightGrams: prod.WeightGrams,
			Karat:       prod.Karat,
			WagePct:     prod.WagePct,
			ProfitPct:   decimal.NewFromFloat(svc.conf.DefaultProfitPct),
			TaxPct:      decimal.NewFromFloat(svc.conf.DefaultTaxPct),
			StoneValue:  prod.StoneValue,
		}
		if ln.Description == "" {
			ln.Description = prod.Name
		}
		if nl.WeightGrams.Valid {
			ln.WeightGrams = nl.WeightGrams.Decimal
		}
		if nl.WagePct.Valid {
			ln.WagePct = nl.WagePct.Decimal
		}
		if nl.ProfitPct.Valid {
			ln.ProfitPct = nl.ProfitPct.Decimal
		}
		if nl.TaxPct.Valid {
			ln.TaxPct = nl.TaxPct.Decimal
		}
		if nl.StoneValue.Valid {
			ln.StoneValue = nl.StoneValue.Decimal
		}
		lines = append(lines, ln)
	}
	return lines, nil
}

// previewTotals best-effort prices a draft at the current board price so
// billing pages can show an estimate; Issue reprices authoritatively.
func (svc *service) previewTotals(ctx context.Context, inv *Invoice) {
	gp, err := svc.prices.Latest(ctx)
	if err != nil {
		return
	}
	totals := priceLines(gp.PricePerGram, inv.Lines)
	inv.PricePerGram = gp.PricePerGram
	inv.TotalGold = totals.GoldValue
	inv.TotalWage = totals.Wage
	inv.TotalProfit = totals.Profit
	inv.TotalTax = totals.Tax
	inv.TotalStone = totals.Stone
	inv.Total = totals.Total
}

func (svc *service) resolvePrice(ctx context.Context, pin decimal.NullDecimal) (decimal.Decimal, error) {
	if pin.Valid {
		if !pin.Decimal.IsPositive() || !pin.Decimal.Equal(pin.Decimal.Truncate(0)) {
			return decimal.Zero, core.NewValidationError(nil, core.FieldError{
				Field: "price_per_gram",
				Error: "pinned price must be a positive whole toman amount",
			})
		}
		return pin.Decimal, nil
	}
	gp, err := svc.prices.Latest(ctx)
	if err != nil {
		if errors.Cause(err) == goldprice.ErrNoPrice {
			return decimal.Zero, core.NewValidationError(err, core.FieldError{
				Field: "price_per_gram",
				Error: "no gold price has been set; set one or pin a price",
			})
		}
		return decimal.Zero, err
	}
	return gp.PricePerGram, nil
}
