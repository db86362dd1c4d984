package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/report"
)

// reportRepository reads across the billing, catalog and customer tables.
// It only ever reads.
type reportRepository struct {
	invoices  *invoiceTable
	products  *productTable
	customers *customerTable
}

var _ report.Repository = (*reportRepository)(nil) // interface compliance check

func NewReportRepository(db *DB) *reportRepository {
	return &reportRepository{invoices: db.invoice, products: db.product, customers: db.customer}
}

func (repo *reportRepository) IssuedInvoices(ctx context.Context, from, to time.Time, _ ...core.DBExecutor) ([]invoice.Invoice, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.invoices.RLock()
	defer repo.invoices.RUnlock()

	var invs []invoice.Invoice
	for _, inv := range repo.invoices.invoices[schema] {
		if inv.Status == invoice.StatusDraft || inv.Status == invoice.StatusCancelled {
			continue
		}
		if inv.IssuedAt.Before(from.UTC()) || !inv.IssuedAt.Before(to.UTC()) {
			continue
		}
		cp := *inv
		cp.Lines = copyLines(inv.Lines)
		invs = append(invs, cp)
	}
	sort.SliceStable(invs, func(i, j int) bool {
		if !invs[i].IssuedAt.Equal(invs[j].IssuedAt) {
			return invs[i].IssuedAt.Before(invs[j].IssuedAt)
		}
		return invs[i].ID < invs[j].ID
	})
	return invs, nil
}

func (repo *reportRepository) ActiveProducts(ctx context.Context, _ ...core.DBExecutor) ([]catalog.Product, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.products.RLock()
	defer repo.products.RUnlock()

	var prods []catalog.Product
	for _, p := range repo.products.table[schema] {
		if p.IsActive == nil || *p.IsActive {
			prods = append(prods, *p)
		}
	}
	sort.SliceStable(prods, func(i, j int) bool {
		if prods[i].Karat != prods[j].Karat {
			return prods[i].Karat < prods[j].Karat
		}
		return prods[i].SKU < prods[j].SKU
	})
	return prods, nil
}

func (repo *reportRepository) OpenInstallments(ctx context.Context, _ ...core.DBExecutor) ([]report.DueInstallment, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.invoices.RLock()
	defer repo.invoices.RUnlock()
	repo.customers.RLock()
	defer repo.customers.RUnlock()

	var due []report.DueInstallment
	for _, inst := range repo.invoices.installments[schema] {
		if !inst.PaidAt.IsZero() {
			continue
		}
		plan, ok := repo.invoices.plans[schema][inst.PlanID]
		if !ok || plan.Status != invoice.PlanActive {
			continue
		}
		inv, ok := repo.invoices.invoices[schema][plan.InvoiceID]
		if !ok {
			continue
		}
		d := report.DueInstallment{
			PlanID:    plan.ID,
			InvoiceID: inv.ID,
			Seq:       inst.Seq,
			DueDate:   inst.DueDate,
			Amount:    inst.Amount,
		}
		d.InvoiceNumber = inv.Number
		if cust, ok := repo.customers.table[schema][inv.CustomerID]; ok {
			d.CustomerID = cust.ID
			d.CustomerName = cust.FullName
			d.CustomerPhone = cust.Phone
		}
		due = append(due, d)
	}
	sort.SliceStable(due, func(i, j int) bool {
		if !due[i].DueDate.Equal(due[j].DueDate) {
			return due[i].DueDate.Before(due[j].DueDate)
		}
		return due[i].Seq < due[j].Seq
	})
	return due, nil
}
