package sqlxrepos

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/report"
)

// reportRepository serves the read models behind sales, inventory and
// installment reports. It only ever reads.
type reportRepository struct {
	db core.DBExecutor
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db core.DBExecutor) *reportRepository {
	return &reportRepository{db: db}
}

func (repo reportRepository) IssuedInvoices(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]invoice.Invoice, error) {
	invTable, err := tenantTable(ctx, "invoice")
	if err != nil {
		return nil, err
	}
	lineTable, err := tenantTable(ctx, "invoice_line")
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select(invoiceColumns...).From(invTable).
		Where(sq.NotEq{"status": []string{invoice.StatusDraft, invoice.StatusCancelled}}).
		Where(sq.GtOrEq{"issued_at": from.UTC()}).
		Where(sq.Lt{"issued_at": to.UTC()}).
		OrderBy("issued_at ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	exe := executor(repo.db, exec)

	var rows []invoiceRow
	if err = exe.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying issued invoices")
	}
	if len(rows) == 0 {
		return nil, nil
	}

	invs := make([]invoice.Invoice, 0, len(rows))
	ids := make([]string, 0, len(rows))
	byID := make(map[string]int, len(rows))
	ir := invoiceRepository{}
	for i, r := range rows {
		invs = append(invs, ir.unpack(r))
		ids = append(ids, r.ID)
		byID[r.ID] = i
	}

	// one pass for all line items
	query, args, err = psql.Select(lineColumns...).From(lineTable).
		Where(sq.Eq{"invoice_id": ids}).
		OrderBy("invoice_id", "position ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var lineRows []lineRow
	if err = exe.SelectContext(ctx, &lineRows, query, args...); err != nil {
		return nil, errors.Wrap(err, "loading invoice lines")
	}
	for _, lr := range lineRows {
		i := byID[lr.InvoiceID]
		invs[i].Lines = append(invs[i].Lines, ir.unpackLine(lr))
	}
	return invs, nil
}

func (repo reportRepository) ActiveProducts(ctx context.Context, exec ...core.DBExecutor) ([]catalog.Product, error) {
	table, err := tenantTable(ctx, "product")
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select(productColumns...).From(table).
		Where(sq.Eq{"is_active": true}).
		OrderBy("karat ASC", "sku ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []productRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying active products")
	}
	return catalogRepository{}.unpackProducts(rows), nil
}

type dueInstallmentRow struct {
	PlanID        string          `db:"plan_id"`
	InvoiceID     string          `db:"invoice_id"`
	InvoiceNumber null.Int64      `db:"invoice_number"`
	Seq           int             `db:"seq"`
	DueDate       time.Time       `db:"due_date"`
	Amount        decimal.Decimal `db:"amount"`
	CustomerID    null.String     `db:"customer_id"`
	CustomerName  null.String     `db:"customer_name"`
	CustomerPhone null.String     `db:"customer_phone"`
}

func (repo reportRepository) OpenInstallments(ctx context.Context, exec ...core.DBExecutor) ([]report.DueInstallment, error) {
	instTable, err := tenantTable(ctx, "installment")
	if err != nil {
		return nil, err
	}
	planTable, err := tenantTable(ctx, "installment_plan")
	if err != nil {
		return nil, err
	}
	invTable, err := tenantTable(ctx, "invoice")
	if err != nil {
		return nil, err
	}
	custTable, err := tenantTable(ctx, "customer")
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
		SELECT p.id AS plan_id, inv.id AS invoice_id, inv.number AS invoice_number,
		       i.seq, i.due_date, i.amount,
		       c.id AS customer_id, c.full_name AS customer_name, c.phone AS customer_phone
		FROM %s i
		JOIN %s p ON p.id = i.plan_id AND p.status = $1
		JOIN %s inv ON inv.id = p.invoice_id
		LEFT JOIN %s c ON c.id = inv.customer_id
		WHERE i.paid_at IS NULL
		ORDER BY i.due_date ASC, i.seq ASC`,
		instTable, planTable, invTable, custTable)

	var rows []dueInstallmentRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, invoice.PlanActive); err != nil {
		return nil, errors.Wrap(err, "querying open installments")
	}

	due := make([]report.DueInstallment, 0, len(rows))
	for _, r := range rows {
		due = append(due, report.DueInstallment{
			PlanID:        r.PlanID,
			InvoiceID:     r.InvoiceID,
			InvoiceNumber: r.InvoiceNumber.Int64,
			Seq:           r.Seq,
			DueDate:       r.DueDate,
			Amount:        r.Amount,
			CustomerID:    r.CustomerID.String,
			CustomerName:  r.CustomerName.String,
			CustomerPhone: r.CustomerPhone.String,
		})
	}
	return due, nil
}
