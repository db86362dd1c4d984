package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/tenant"
)

type invoiceRow struct {
	ID           string              `db:"id"`
	Number       null.Int64          `db:"number"`
	Kind         string              `db:"kind"`
	CustomerID   null.String         `db:"customer_id"`
	Status       string              `db:"status"`
	PricePerGram decimal.NullDecimal `db:"price_per_gram"`
	TotalGold    decimal.Decimal     `db:"total_gold"`
	TotalWage    decimal.Decimal     `db:"total_wage"`
	TotalProfit  decimal.Decimal     `db:"total_profit"`
	TotalTax     decimal.Decimal     `db:"total_tax"`
	TotalStone   decimal.Decimal     `db:"total_stone"`
	Total        decimal.Decimal     `db:"total"`
	Note         string              `db:"note"`
	IssuedAt     null.Time           `db:"issued_at"`
	CreatedBy    null.String         `db:"created_by"`
	CreatedAt    time.Time           `db:"created_at"`
	UpdatedAt    null.Time           `db:"updated_at"`
}

var invoiceColumns = []string{
	"id", "number", "kind", "customer_id", "status", "price_per_gram",
	"total_gold", "total_wage", "total_profit", "total_tax", "total_stone",
	"total", "note", "issued_at", "created_by", "created_at", "updated_at",
}

type lineRow struct {
	ID               string          `db:"id"`
	InvoiceID        string          `db:"invoice_id"`
	Position         int             `db:"position"`
	ProductID        string          `db:"product_id"`
	Description      string          `db:"description"`
	Quantity         int             `db:"quantity"`
	WeightGrams      decimal.Decimal `db:"weight_grams"`
	Karat            int             `db:"karat"`
	UnitPricePerGram decimal.Decimal `db:"unit_price_per_gram"`
	WagePct          decimal.Decimal `db:"wage_pct"`
	ProfitPct        decimal.Decimal `db:"profit_pct"`
	TaxPct           decimal.Decimal `db:"tax_pct"`
	StoneValue       decimal.Decimal `db:"stone_value"`
	Total            decimal.Decimal `db:"total"`
}

var lineColumns = []string{
	"id", "invoice_id", "position", "product_id", "description", "quantity",
	"weight_grams", "karat", "unit_price_per_gram", "wage_pct", "profit_pct",
	"tax_pct", "stone_value", "total",
}

type paymentRow struct {
	ID        string          `db:"id"`
	InvoiceID string          `db:"invoice_id"`
	Amount    decimal.Decimal `db:"amount"`
	Method    string          `db:"method"`
	Reference string          `db:"reference"`
	PaidAt    time.Time       `db:"paid_at"`
	ByUserID  null.String     `db:"by_user_id"`
}

var paymentColumns = []string{"id", "invoice_id", "amount", "method", "reference", "paid_at", "by_user_id"}

type planRow struct {
	ID                 string          `db:"id"`
	InvoiceID          string          `db:"invoice_id"`
	DownPayment        decimal.Decimal `db:"down_payment"`
	Months             int             `db:"months"`
	MonthlyInterestPct decimal.Decimal `db:"monthly_interest_pct"`
	Status             string          `db:"status"`
	CreatedAt          time.Time       `db:"created_at"`
}

var planColumns = []string{"id", "invoice_id", "down_payment", "months", "monthly_interest_pct", "status", "created_at"}

type installmentRow struct {
	ID        string          `db:"id"`
	PlanID    string          `db:"plan_id"`
	Seq       int             `db:"seq"`
	DueDate   time.Time       `db:"due_date"`
	Amount    decimal.Decimal `db:"amount"`
	PaidAt    null.Time       `db:"paid_at"`
	PaymentID null.String     `db:"payment_id"`
}

var installmentColumns = []string{"id", "plan_id", "seq", "due_date", "amount", "paid_at", "payment_id"}

// invoiceRepository holds core.DB rather than an executor: creating an
// invoice or a plan writes parent and child rows, and callers outside a
// service transaction still get atomicity.
type invoiceRepository struct {
	db core.DB
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(db core.DB) *invoiceRepository {
	return &invoiceRepository{db: db}
}

// withTx runs fn on the caller's executor when one was passed, otherwise
// inside a fresh transaction.
func (repo invoiceRepository) withTx(ctx context.Context, exec []core.DBExecutor, fn func(exe core.DBExecutor) error) error {
	if len(exec) > 0 {
		return fn(exec[0])
	}

	tx, err := repo.db.BeginTx(ctx)
	if err != nil {
		return errors.Wrap(err, "beginning transaction")
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "committing transaction")
}

func (repo invoiceRepository) pack(inv invoice.Invoice) invoiceRow {
	return invoiceRow{
		ID:           inv.ID,
		Number:       null.NewInt64(inv.Number, inv.Number != 0),
		Kind:         inv.Kind,
		CustomerID:   null.NewString(inv.CustomerID, inv.CustomerID != ""),
		Status:       inv.Status,
		PricePerGram: decimal.NullDecimal{Decimal: inv.PricePerGram, Valid: !inv.PricePerGram.IsZero()},
		TotalGold:    inv.TotalGold,
		TotalWage:    inv.TotalWage,
		TotalProfit:  inv.TotalProfit,
		TotalTax:     inv.TotalTax,
		TotalStone:   inv.TotalStone,
		Total:        inv.Total,
		Note:         inv.Note,
		IssuedAt:     null.NewTime(inv.IssuedAt.UTC(), !inv.IssuedAt.IsZero()),
		CreatedBy:    null.NewString(inv.CreatedBy, inv.CreatedBy != ""),
		CreatedAt:    inv.CreatedAt.UTC(),
		UpdatedAt:    null.NewTime(inv.UpdatedAt.UTC(), !inv.UpdatedAt.IsZero()),
	}
}

func (repo invoiceRepository) unpack(r invoiceRow) invoice.Invoice {
	return invoice.Invoice{
		ID:           r.ID,
		Number:       r.Number.Int64,
		Kind:         r.Kind,
		CustomerID:   r.CustomerID.String,
		Status:       r.Status,
		PricePerGram: r.PricePerGram.Decimal,
		TotalGold:    r.TotalGold,
		TotalWage:    r.TotalWage,
		TotalProfit:  r.TotalProfit,
		TotalTax:     r.TotalTax,
		TotalStone:   r.TotalStone,
		Total:        r.Total,
		Note:         r.Note,
		IssuedAt:     r.IssuedAt.Time,
		CreatedBy:    r.CreatedBy.String,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt.Time,
	}
}

func (repo invoiceRepository) unpackLine(r lineRow) invoice.Line {
	return invoice.Line{
		ID:               r.ID,
		InvoiceID:        r.InvoiceID,
		ProductID:        r.ProductID,
		Description:      r.Description,
		Quantity:         r.Quantity,
		WeightGrams:      r.WeightGrams,
		Karat:            r.Karat,
		UnitPricePerGram: r.UnitPricePerGram,
		WagePct:          r.WagePct,
		ProfitPct:        r.ProfitPct,
		TaxPct:           r.TaxPct,
		StoneValue:       r.StoneValue,
		Total:            r.Total,
	}
}

func (repo invoiceRepository) unpackLines(rows []lineRow) []invoice.Line {
	lines := make([]invoice.Line, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, repo.unpackLine(r))
	}
	return lines
}

func (repo invoiceRepository) insertLines(ctx context.Context, exe core.DBExecutor, table, invoiceID string, lines []invoice.Line) ([]invoice.Line, error) {
	if len(lines) == 0 {
		return nil, nil
	}

	q := psql.Insert(table).Columns(lineColumns...)
	for i, ln := range lines {
		q = q.Values(uuid.New().String(), invoiceID, i, ln.ProductID, ln.Description, ln.Quantity,
			ln.WeightGrams, ln.Karat, ln.UnitPricePerGram, ln.WagePct, ln.ProfitPct,
			ln.TaxPct, ln.StoneValue, ln.Total)
	}
	query, args, err := q.Suffix("RETURNING *").ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []lineRow
	if err = exe.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "inserting invoice lines")
	}
	return repo.unpackLines(rows), nil
}

func (repo invoiceRepository) loadLines(ctx context.Context, exe core.DBExecutor, table, invoiceID string) ([]invoice.Line, error) {
	query, args, err := psql.Select(lineColumns...).From(table).
		Where(sq.Eq{"invoice_id": invoiceID}).
		OrderBy("position ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []lineRow
	if err = exe.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "loading invoice lines")
	}
	return repo.unpackLines(rows), nil
}

func (repo invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice, exec ...core.DBExecutor) (invoice.Invoice, error) {
	invTable, err := tenantTable(ctx, "invoice")
	if err != nil {
		return invoice.Invoice{}, err
	}
	lineTable, err := tenantTable(ctx, "invoice_line")
	if err != nil {
		return invoice.Invoice{}, err
	}

	inv.ID = uuid.New().String()
	r := repo.pack(inv)

	var saved invoice.Invoice
	err = repo.withTx(ctx, exec, func(exe core.DBExecutor) error {
		query, args, err := psql.Insert(invTable).
			Columns(invoiceColumns...).
			Values(r.ID, r.Number, r.Kind, r.CustomerID, r.Status, r.PricePerGram,
				r.TotalGold, r.TotalWage, r.TotalProfit, r.TotalTax, r.TotalStone,
				r.Total, r.Note, r.IssuedAt, r.CreatedBy, r.CreatedAt, r.UpdatedAt).
			Suffix("RETURNING *").
			ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}

		var ir invoiceRow
		if err = exe.GetContext(ctx, &ir, query, args...); err != nil {
			return errors.Wrap(err, "inserting invoice")
		}
		saved = repo.unpack(ir)
		saved.Lines, err = repo.insertLines(ctx, exe, lineTable, inv.ID, inv.Lines)
		return err
	})
	if err != nil {
		return invoice.Invoice{}, err
	}
	return saved, nil
}

func (repo invoiceRepository) QueryInvoices(ctx context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	table, err := tenantTable(ctx, "invoice")
	if err != nil {
		return nil, err
	}

	q := psql.Select(invoiceColumns...).From(table)
	if filter != nil {
		if filter.Status != "" {
			q = q.Where(sq.Eq{"status": filter.Status})
		}
		if filter.Kind != "" {
			q = q.Where(sq.Eq{"kind": filter.Kind})
		}
		if filter.CustomerID != "" {
			q = q.Where(sq.Eq{"customer_id": filter.CustomerID})
		}
		if filter.Number != 0 {
			q = q.Where(sq.Eq{"number": filter.Number})
		}
		if !filter.IssuedFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"issued_at": filter.IssuedFrom.UTC()})
		}
		if !filter.IssuedTo.IsZero() {
			q = q.Where(sq.Lt{"issued_at": filter.IssuedTo.UTC()})
		}
	}

	q = applyOrdering(q, ordering, map[string]struct{}{
		"number": {}, "status": {}, "total": {}, "issued_at": {}, "created_at": {},
	}, "created_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []invoiceRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying invoices")
	}

	invs := make([]invoice.Invoice, 0, len(rows))
	for _, r := range rows {
		invs = append(invs, repo.unpack(r))
	}
	return invs, nil
}

func (repo invoiceRepository) GetInvoice(ctx context.Context, filter invoice.GetFilter, exec ...core.DBExecutor) (invoice.Invoice, error) {
	invTable, err := tenantTable(ctx, "invoice")
	if err != nil {
		return invoice.Invoice{}, err
	}
	lineTable, err := tenantTable(ctx, "invoice_line")
	if err != nil {
		return invoice.Invoice{}, err
	}

	q := psql.Select(invoiceColumns...).From(invTable)
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return invoice.Invoice{}, invoice.ErrNotFound
		}
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Number != 0:
		q = q.Where(sq.Eq{"number": filter.Number})
	default:
		return invoice.Invoice{}, invoice.ErrNotFound
	}

	query, args, err := q.ToSql()
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "building query")
	}
	exe := executor(repo.db, exec)

	var r invoiceRow
	if err = exe.GetContext(ctx, &r, query, args...); err != nil {
		return invoice.Invoice{}, trapNoRowsErr(err, invoice.ErrNotFound, "finding invoice")
	}
	inv := repo.unpack(r)
	if inv.Lines, err = repo.loadLines(ctx, exe, lineTable, inv.ID); err != nil {
		return invoice.Invoice{}, err
	}
	return inv, nil
}

func (repo invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice, exec ...core.DBExecutor) (invoice.Invoice, error) {
	invTable, err := tenantTable(ctx, "invoice")
	if err != nil {
		return invoice.Invoice{}, err
	}
	lineTable, err := tenantTable(ctx, "invoice_line")
	if err != nil {
		return invoice.Invoice{}, err
	}

	r := repo.pack(inv)
	query, args, err := psql.Update(invTable).
		Set("number", r.Number).
		Set("kind", r.Kind).
		Set("customer_id", r.CustomerID).
		Set("status", r.Status).
		Set("price_per_gram", r.PricePerGram).
		Set("total_gold", r.TotalGold).
		Set("total_wage", r.TotalWage).
		Set("total_profit", r.TotalProfit).
		Set("total_tax", r.TotalTax).
		Set("total_stone", r.TotalStone).
		Set("total", r.Total).
		Set("note", r.Note).
		Set("issued_at", r.IssuedAt).
		Set("updated_at", r.UpdatedAt).
		Where(sq.Eq{"id": inv.ID}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return invoice.Invoice{}, errors.Wrap(err, "building query")
	}
	exe := executor(repo.db, exec)

	var saved invoiceRow
	if err = exe.GetContext(ctx, &saved, query, args...); err != nil {
		return invoice.Invoice{}, trapNoRowsErr(err, invoice.ErrNotFound, "updating invoice")
	}
	updated := repo.unpack(saved)
	if updated.Lines, err = repo.loadLines(ctx, exe, lineTable, updated.ID); err != nil {
		return invoice.Invoice{}, err
	}
	return updated, nil
}

func (repo invoiceRepository) ReplaceLines(ctx context.Context, invoiceID string, lines []invoice.Line, exec ...core.DBExecutor) ([]invoice.Line, error) {
	table, err := tenantTable(ctx, "invoice_line")
	if err != nil {
		return nil, err
	}

	var saved []invoice.Line
	err = repo.withTx(ctx, exec, func(exe core.DBExecutor) error {
		query, args, err := psql.Delete(table).Where(sq.Eq{"invoice_id": invoiceID}).ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		if _, err = exe.ExecContext(ctx, query, args...); err != nil {
			return errors.Wrap(err, "deleting invoice lines")
		}
		saved, err = repo.insertLines(ctx, exe, table, invoiceID, lines)
		return err
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

func (repo invoiceRepository) DeleteInvoice(ctx context.Context, id string, exec ...core.DBExecutor) error {
	table, err := tenantTable(ctx, "invoice")
	if err != nil {
		return err
	}

	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "deleting invoice")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting invoice")
	}
	if cnt == 0 {
		return invoice.ErrNotFound
	}
	return nil
}

func (repo invoiceRepository) NextInvoiceNumber(ctx context.Context, exec ...core.DBExecutor) (int64, error) {
	schema := tenant.SchemaFromContext(ctx)
	if schema == "" {
		return 0, errNoTenant
	}

	// each shop numbers its invoices from its own schema-local sequence
	query := fmt.Sprintf("SELECT nextval('%s.invoice_number_seq')", pq.QuoteIdentifier(schema))
	var n int64
	if err := executor(repo.db, exec).GetContext(ctx, &n, query); err != nil {
		return 0, errors.Wrap(err, "fetching next invoice number")
	}
	return n, nil
}

func (repo invoiceRepository) CreatePayment(ctx context.Context, p invoice.Payment, exec ...core.DBExecutor) (invoice.Payment, error) {
	table, err := tenantTable(ctx, "payment")
	if err != nil {
		return invoice.Payment{}, err
	}

	p.ID = uuid.New().String()
	query, args, err := psql.Insert(table).
		Columns(paymentColumns...).
		Values(p.ID, p.InvoiceID, p.Amount, p.Method, p.Reference, p.PaidAt.UTC(), null.NewString(p.ByUserID, p.ByUserID != "")).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return invoice.Payment{}, errors.Wrap(err, "building query")
	}

	var saved paymentRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return invoice.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return invoice.Payment{
		ID:        saved.ID,
		InvoiceID: saved.InvoiceID,
		Amount:    saved.Amount,
		Method:    saved.Method,
		Reference: saved.Reference,
		PaidAt:    saved.PaidAt,
		ByUserID:  saved.ByUserID.String,
	}, nil
}

func (repo invoiceRepository) QueryPayments(ctx context.Context, invoiceID string, exec ...core.DBExecutor) ([]invoice.Payment, error) {
	table, err := tenantTable(ctx, "payment")
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select(paymentColumns...).From(table).
		Where(sq.Eq{"invoice_id": invoiceID}).
		OrderBy("paid_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []paymentRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}

	payments := make([]invoice.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, invoice.Payment{
			ID:        r.ID,
			InvoiceID: r.InvoiceID,
			Amount:    r.Amount,
			Method:    r.Method,
			Reference: r.Reference,
			PaidAt:    r.PaidAt,
			ByUserID:  r.ByUserID.String,
		})
	}
	return payments, nil
}

func (repo invoiceRepository) PaidSum(ctx context.Context, invoiceID string, exec ...core.DBExecutor) (decimal.Decimal, error) {
	table, err := tenantTable(ctx, "payment")
	if err != nil {
		return decimal.Zero, err
	}

	query, args, err := psql.Select("COALESCE(SUM(amount), 0)").From(table).
		Where(sq.Eq{"invoice_id": invoiceID}).
		ToSql()
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "building query")
	}
	var sum decimal.Decimal
	if err = executor(repo.db, exec).GetContext(ctx, &sum, query, args...); err != nil {
		return decimal.Zero, errors.Wrap(err, "summing payments")
	}
	return sum, nil
}

func (repo invoiceRepository) OutstandingForCustomer(ctx context.Context, customerID string, exec ...core.DBExecutor) (decimal.Decimal, error) {
	invTable, err := tenantTable(ctx, "invoice")
	if err != nil {
		return decimal.Zero, err
	}
	payTable, err := tenantTable(ctx, "payment")
	if err != nil {
		return decimal.Zero, err
	}

	query := fmt.Sprintf(`
		SELECT COALESCE(SUM(i.total - COALESCE(p.paid, 0)), 0)
		FROM %s i
		LEFT JOIN (SELECT invoice_id, SUM(amount) AS paid FROM %s GROUP BY invoice_id) p ON p.invoice_id = i.id
		WHERE i.customer_id = $1 AND i.status IN ($2, $3)`,
		invTable, payTable)

	var sum decimal.Decimal
	err = executor(repo.db, exec).GetContext(ctx, &sum, query, customerID, invoice.StatusIssued, invoice.StatusPartiallyPaid)
	if err != nil {
		return decimal.Zero, errors.Wrap(err, "summing customer outstanding")
	}
	return sum, nil
}

func (repo invoiceRepository) CreatePlan(ctx context.Context, plan invoice.InstallmentPlan, exec ...core.DBExecutor) (invoice.InstallmentPlan, error) {
	planTable, err := tenantTable(ctx, "installment_plan")
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	instTable, err := tenantTable(ctx, "installment")
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}

	plan.ID = uuid.New().String()

	var saved invoice.InstallmentPlan
	err = repo.withTx(ctx, exec, func(exe core.DBExecutor) error {
		query, args, err := psql.Insert(planTable).
			Columns(planColumns...).
			Values(plan.ID, plan.InvoiceID, plan.DownPayment, plan.Months, plan.MonthlyInterestPct, plan.Status, plan.CreatedAt.UTC()).
			Suffix("RETURNING *").
			ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}

		var pr planRow
		if err = exe.GetContext(ctx, &pr, query, args...); err != nil {
			if isPqError(err, pqUniqueViolation, "installment_plan_active_key") {
				// the service pre-checks; this trips only on a concurrent create
				return errors.New("invoice already has an active installment plan")
			}
			return errors.Wrap(err, "inserting installment plan")
		}
		saved = repo.unpackPlan(pr)

		if len(plan.Installments) == 0 {
			return nil
		}
		iq := psql.Insert(instTable).Columns(installmentColumns...)
		for _, inst := range plan.Installments {
			iq = iq.Values(uuid.New().String(), plan.ID, inst.Seq, inst.DueDate,
				inst.Amount, null.NewTime(inst.PaidAt.UTC(), !inst.PaidAt.IsZero()),
				null.NewString(inst.PaymentID, inst.PaymentID != ""))
		}
		query, args, err = iq.Suffix("RETURNING *").ToSql()
		if err != nil {
			return errors.Wrap(err, "building query")
		}
		var rows []installmentRow
		if err = exe.SelectContext(ctx, &rows, query, args...); err != nil {
			return errors.Wrap(err, "inserting installments")
		}
		saved.Installments = repo.unpackInstallments(rows)
		return nil
	})
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	return saved, nil
}

func (repo invoiceRepository) unpackPlan(r planRow) invoice.InstallmentPlan {
	return invoice.InstallmentPlan{
		ID:                 r.ID,
		InvoiceID:          r.InvoiceID,
		DownPayment:        r.DownPayment,
		Months:             r.Months,
		MonthlyInterestPct: r.MonthlyInterestPct,
		Status:             r.Status,
		CreatedAt:          r.CreatedAt,
	}
}

func (repo invoiceRepository) unpackInstallments(rows []installmentRow) []invoice.Installment {
	insts := make([]invoice.Installment, 0, len(rows))
	for _, r := range rows {
		insts = append(insts, invoice.Installment{
			ID:        r.ID,
			PlanID:    r.PlanID,
			Seq:       r.Seq,
			DueDate:   r.DueDate,
			Amount:    r.Amount,
			PaidAt:    r.PaidAt.Time,
			PaymentID: r.PaymentID.String,
		})
	}
	return insts
}

func (repo invoiceRepository) loadInstallments(ctx context.Context, exe core.DBExecutor, table, planID string) ([]invoice.Installment, error) {
	query, args, err := psql.Select(installmentColumns...).From(table).
		Where(sq.Eq{"plan_id": planID}).
		OrderBy("seq ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []installmentRow
	if err = exe.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "loading installments")
	}
	return repo.unpackInstallments(rows), nil
}

func (repo invoiceRepository) GetPlan(ctx context.Context, id string, exec ...core.DBExecutor) (invoice.InstallmentPlan, error) {
	planTable, err := tenantTable(ctx, "installment_plan")
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	instTable, err := tenantTable(ctx, "installment")
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	if _, err = uuid.Parse(id); err != nil {
		return invoice.InstallmentPlan{}, invoice.ErrPlanNotFound
	}

	query, args, err := psql.Select(planColumns...).From(planTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return invoice.InstallmentPlan{}, errors.Wrap(err, "building query")
	}
	exe := executor(repo.db, exec)

	var r planRow
	if err = exe.GetContext(ctx, &r, query, args...); err != nil {
		return invoice.InstallmentPlan{}, trapNoRowsErr(err, invoice.ErrPlanNotFound, "finding installment plan")
	}
	plan := repo.unpackPlan(r)
	if plan.Installments, err = repo.loadInstallments(ctx, exe, instTable, plan.ID); err != nil {
		return invoice.InstallmentPlan{}, err
	}
	return plan, nil
}

func (repo invoiceRepository) GetActivePlan(ctx context.Context, invoiceID string, exec ...core.DBExecutor) (invoice.InstallmentPlan, error) {
	planTable, err := tenantTable(ctx, "installment_plan")
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	instTable, err := tenantTable(ctx, "installment")
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}

	query, args, err := psql.Select(planColumns...).From(planTable).
		Where(sq.Eq{"invoice_id": invoiceID, "status": invoice.PlanActive}).
		ToSql()
	if err != nil {
		return invoice.InstallmentPlan{}, errors.Wrap(err, "building query")
	}
	exe := executor(repo.db, exec)

	var r planRow
	if err = exe.GetContext(ctx, &r, query, args...); err != nil {
		return invoice.InstallmentPlan{}, trapNoRowsErr(err, invoice.ErrPlanNotFound, "finding active installment plan")
	}
	plan := repo.unpackPlan(r)
	if plan.Installments, err = repo.loadInstallments(ctx, exe, instTable, plan.ID); err != nil {
		return invoice.InstallmentPlan{}, err
	}
	return plan, nil
}

func (repo invoiceRepository) UpdatePlan(ctx context.Context, plan invoice.InstallmentPlan, exec ...core.DBExecutor) (invoice.InstallmentPlan, error) {
	planTable, err := tenantTable(ctx, "installment_plan")
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	instTable, err := tenantTable(ctx, "installment")
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}

	query, args, err := psql.Update(planTable).
		Set("status", plan.Status).
		Where(sq.Eq{"id": plan.ID}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return invoice.InstallmentPlan{}, errors.Wrap(err, "building query")
	}
	exe := executor(repo.db, exec)

	var saved planRow
	if err = exe.GetContext(ctx, &saved, query, args...); err != nil {
		return invoice.InstallmentPlan{}, trapNoRowsErr(err, invoice.ErrPlanNotFound, "updating installment plan")
	}
	updated := repo.unpackPlan(saved)
	if updated.Installments, err = repo.loadInstallments(ctx, exe, instTable, updated.ID); err != nil {
		return invoice.InstallmentPlan{}, err
	}
	return updated, nil
}

func (repo invoiceRepository) UpdateInstallment(ctx context.Context, inst invoice.Installment, exec ...core.DBExecutor) (invoice.Installment, error) {
	table, err := tenantTable(ctx, "installment")
	if err != nil {
		return invoice.Installment{}, err
	}

	query, args, err := psql.Update(table).
		Set("paid_at", null.NewTime(inst.PaidAt.UTC(), !inst.PaidAt.IsZero())).
		Set("payment_id", null.NewString(inst.PaymentID, inst.PaymentID != "")).
		Where(sq.Eq{"id": inst.ID}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return invoice.Installment{}, errors.Wrap(err, "building query")
	}

	var saved installmentRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return invoice.Installment{}, trapNoRowsErr(err, invoice.ErrInstallmentNotFound, "updating installment")
	}
	return invoice.Installment{
		ID:        saved.ID,
		PlanID:    saved.PlanID,
		Seq:       saved.Seq,
		DueDate:   saved.DueDate,
		Amount:    saved.Amount,
		PaidAt:    saved.PaidAt.Time,
		PaymentID: saved.PaymentID.String,
	}, nil
}
