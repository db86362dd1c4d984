package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/invoice"
)

type invoiceRepository struct {
	db *invoiceTable
}

var _ invoice.Repository = (*invoiceRepository)(nil) // interface compliance check

func NewInvoiceRepository(db *DB) *invoiceRepository {
	return &invoiceRepository{db: db.invoice}
}

func (repo *invoiceRepository) query(schema string) []invoice.Invoice {
	rows := repo.db.invoices[schema]
	invs := make([]invoice.Invoice, 0, len(rows))
	for _, inv := range rows {
		invs = append(invs, *inv)
	}
	return invs
}

func copyLines(lines []invoice.Line) []invoice.Line {
	if lines == nil {
		return nil
	}
	cp := make([]invoice.Line, len(lines))
	copy(cp, lines)
	return cp
}

func copyInstallments(insts []invoice.Installment) []invoice.Installment {
	if insts == nil {
		return nil
	}
	cp := make([]invoice.Installment, len(insts))
	copy(cp, insts)
	return cp
}

func (repo *invoiceRepository) CreateInvoice(ctx context.Context, inv invoice.Invoice, _ ...core.DBExecutor) (invoice.Invoice, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.Invoice{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	inv.ID = uuid.New().String()
	lines := copyLines(inv.Lines)
	for i := range lines {
		lines[i].ID = uuid.New().String()
		lines[i].InvoiceID = inv.ID
	}
	inv.Lines = lines

	rows, ok := repo.db.invoices[schema]
	if !ok {
		rows = make(map[string]*invoice.Invoice)
		repo.db.invoices[schema] = rows
	}
	stored := inv
	stored.Lines = copyLines(lines)
	rows[inv.ID] = &stored
	return inv, nil
}

func (repo *invoiceRepository) QueryInvoices(ctx context.Context, filter *invoice.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]invoice.Invoice, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	invs := repo.query(schema)
	if filter != nil && !filter.IsEmpty() {
		filtered := invs[:0]
		for _, inv := range invs {
			if matchInvoice(inv, filter) {
				filtered = append(filtered, inv)
			}
		}
		invs = filtered
	}
	// the list view goes without line items
	for i := range invs {
		invs[i].Lines = nil
	}
	sortInvoices(invs, ordering)
	return invs, nil
}

func matchInvoice(inv invoice.Invoice, filter *invoice.QueryFilter) bool {
	if filter.Status != "" && inv.Status != filter.Status {
		return false
	}
	if filter.Kind != "" && inv.Kind != filter.Kind {
		return false
	}
	if filter.CustomerID != "" && inv.CustomerID != filter.CustomerID {
		return false
	}
	if filter.Number != 0 && inv.Number != filter.Number {
		return false
	}
	if !filter.IssuedFrom.IsZero() && (inv.IssuedAt.IsZero() || inv.IssuedAt.Before(filter.IssuedFrom.UTC())) {
		return false
	}
	if !filter.IssuedTo.IsZero() && (inv.IssuedAt.IsZero() || !inv.IssuedAt.Before(filter.IssuedTo.UTC())) {
		return false
	}
	return true
}

func sortInvoices(invs []invoice.Invoice, ordering []core.DBOrdering) {
	ord := firstOrdering(ordering, core.DBOrdering{Field: "created_at"})
	sort.SliceStable(invs, func(i, j int) bool {
		a, b := invs[i], invs[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "number":
			if a.Number != b.Number {
				return a.Number < b.Number
			}
		case "status":
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		case "total":
			if !a.Total.Equal(b.Total) {
				return a.Total.LessThan(b.Total)
			}
		case "issued_at":
			if !a.IssuedAt.Equal(b.IssuedAt) {
				return a.IssuedAt.Before(b.IssuedAt)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

func (repo *invoiceRepository) GetInvoice(ctx context.Context, filter invoice.GetFilter, _ ...core.DBExecutor) (invoice.Invoice, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.Invoice{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if inv, ok := repo.db.invoices[schema][filter.ID]; ok {
			cp := *inv
			cp.Lines = copyLines(inv.Lines)
			return cp, nil
		}
	case filter.Number != 0:
		for _, inv := range repo.db.invoices[schema] {
			if inv.Number == filter.Number {
				cp := *inv
				cp.Lines = copyLines(inv.Lines)
				return cp, nil
			}
		}
	}
	return invoice.Invoice{}, invoice.ErrNotFound
}

func (repo *invoiceRepository) UpdateInvoice(ctx context.Context, inv invoice.Invoice, _ ...core.DBExecutor) (invoice.Invoice, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.Invoice{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.invoices[schema][inv.ID]
	if !ok {
		return invoice.Invoice{}, invoice.ErrNotFound
	}
	orig.Number = inv.Number
	orig.Kind = inv.Kind
	orig.CustomerID = inv.CustomerID
	orig.Status = inv.Status
	orig.PricePerGram = inv.PricePerGram
	orig.TotalGold = inv.TotalGold
	orig.TotalWage = inv.TotalWage
	orig.TotalProfit = inv.TotalProfit
	orig.TotalTax = inv.TotalTax
	orig.TotalStone = inv.TotalStone
	orig.Total = inv.Total
	orig.Note = inv.Note
	orig.IssuedAt = inv.IssuedAt
	orig.UpdatedAt = inv.UpdatedAt

	cp := *orig
	cp.Lines = copyLines(orig.Lines)
	return cp, nil
}

func (repo *invoiceRepository) ReplaceLines(ctx context.Context, invoiceID string, lines []invoice.Line, _ ...core.DBExecutor) ([]invoice.Line, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	inv, ok := repo.db.invoices[schema][invoiceID]
	if !ok {
		return nil, invoice.ErrNotFound
	}
	replaced := copyLines(lines)
	for i := range replaced {
		replaced[i].ID = uuid.New().String()
		replaced[i].InvoiceID = invoiceID
	}
	inv.Lines = copyLines(replaced)
	return replaced, nil
}

func (repo *invoiceRepository) DeleteInvoice(ctx context.Context, id string, _ ...core.DBExecutor) error {
	schema, err := schemaOf(ctx)
	if err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.invoices[schema][id]; !ok {
		return invoice.ErrNotFound
	}
	delete(repo.db.invoices[schema], id)
	return nil
}

func (repo *invoiceRepository) NextInvoiceNumber(ctx context.Context, _ ...core.DBExecutor) (int64, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return 0, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	// each shop numbers its invoices from its own counter
	repo.db.numbers[schema]++
	return repo.db.numbers[schema], nil
}

func (repo *invoiceRepository) CreatePayment(ctx context.Context, p invoice.Payment, _ ...core.DBExecutor) (invoice.Payment, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.Payment{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	p.ID = uuid.New().String()
	rows, ok := repo.db.payments[schema]
	if !ok {
		rows = make(map[string]*invoice.Payment)
		repo.db.payments[schema] = rows
	}
	rows[p.ID] = &p
	return p, nil
}

func (repo *invoiceRepository) QueryPayments(ctx context.Context, invoiceID string, _ ...core.DBExecutor) ([]invoice.Payment, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	var payments []invoice.Payment
	for _, p := range repo.db.payments[schema] {
		if p.InvoiceID == invoiceID {
			payments = append(payments, *p)
		}
	}
	sort.SliceStable(payments, func(i, j int) bool {
		if !payments[i].PaidAt.Equal(payments[j].PaidAt) {
			return payments[i].PaidAt.Before(payments[j].PaidAt)
		}
		return payments[i].ID < payments[j].ID
	})
	return payments, nil
}

func (repo *invoiceRepository) PaidSum(ctx context.Context, invoiceID string, _ ...core.DBExecutor) (decimal.Decimal, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	sum := decimal.Zero
	for _, p := range repo.db.payments[schema] {
		if p.InvoiceID == invoiceID {
			sum = sum.Add(p.Amount)
		}
	}
	return sum, nil
}

func (repo *invoiceRepository) OutstandingForCustomer(ctx context.Context, customerID string, _ ...core.DBExecutor) (decimal.Decimal, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	outstanding := decimal.Zero
	for _, inv := range repo.db.invoices[schema] {
		if inv.CustomerID != customerID || !inv.Payable() {
			continue
		}
		paid := decimal.Zero
		for _, p := range repo.db.payments[schema] {
			if p.InvoiceID == inv.ID {
				paid = paid.Add(p.Amount)
			}
		}
		outstanding = outstanding.Add(inv.Total.Sub(paid))
	}
	return outstanding, nil
}

func (repo *invoiceRepository) CreatePlan(ctx context.Context, plan invoice.InstallmentPlan, _ ...core.DBExecutor) (invoice.InstallmentPlan, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	// mirror of the partial unique index on active plans per invoice
	for _, existing := range repo.db.plans[schema] {
		if existing.InvoiceID == plan.InvoiceID && existing.Status == invoice.PlanActive {
			return invoice.InstallmentPlan{}, errors.New("invoice already has an active installment plan")
		}
	}

	plan.ID = uuid.New().String()
	insts := copyInstallments(plan.Installments)
	for i := range insts {
		insts[i].ID = uuid.New().String()
		insts[i].PlanID = plan.ID
	}
	plan.Installments = insts

	plans, ok := repo.db.plans[schema]
	if !ok {
		plans = make(map[string]*invoice.InstallmentPlan)
		repo.db.plans[schema] = plans
	}
	stored := plan
	stored.Installments = nil
	plans[plan.ID] = &stored

	instRows, ok := repo.db.installments[schema]
	if !ok {
		instRows = make(map[string]*invoice.Installment)
		repo.db.installments[schema] = instRows
	}
	for i := range insts {
		inst := insts[i]
		instRows[inst.ID] = &inst
	}
	return plan, nil
}

func (repo *invoiceRepository) planInstallments(schema, planID string) []invoice.Installment {
	var insts []invoice.Installment
	for _, inst := range repo.db.installments[schema] {
		if inst.PlanID == planID {
			insts = append(insts, *inst)
		}
	}
	sort.SliceStable(insts, func(i, j int) bool { return insts[i].Seq < insts[j].Seq })
	return insts
}

func (repo *invoiceRepository) GetPlan(ctx context.Context, id string, _ ...core.DBExecutor) (invoice.InstallmentPlan, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	plan, ok := repo.db.plans[schema][id]
	if !ok {
		return invoice.InstallmentPlan{}, invoice.ErrPlanNotFound
	}
	cp := *plan
	cp.Installments = repo.planInstallments(schema, plan.ID)
	return cp, nil
}

func (repo *invoiceRepository) GetActivePlan(ctx context.Context, invoiceID string, _ ...core.DBExecutor) (invoice.InstallmentPlan, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, plan := range repo.db.plans[schema] {
		if plan.InvoiceID == invoiceID && plan.Status == invoice.PlanActive {
			cp := *plan
			cp.Installments = repo.planInstallments(schema, plan.ID)
			return cp, nil
		}
	}
	return invoice.InstallmentPlan{}, invoice.ErrPlanNotFound
}

func (repo *invoiceRepository) UpdatePlan(ctx context.Context, plan invoice.InstallmentPlan, _ ...core.DBExecutor) (invoice.InstallmentPlan, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.InstallmentPlan{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.plans[schema][plan.ID]
	if !ok {
		return invoice.InstallmentPlan{}, invoice.ErrPlanNotFound
	}
	// a plan only ever changes status
	orig.Status = plan.Status

	cp := *orig
	cp.Installments = repo.planInstallments(schema, orig.ID)
	return cp, nil
}

func (repo *invoiceRepository) UpdateInstallment(ctx context.Context, inst invoice.Installment, _ ...core.DBExecutor) (invoice.Installment, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return invoice.Installment{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.installments[schema][inst.ID]
	if !ok {
		return invoice.Installment{}, invoice.ErrInstallmentNotFound
	}
	// settlement only touches when and how it was paid
	orig.PaidAt = inst.PaidAt
	orig.PaymentID = inst.PaymentID
	return *orig, nil
}
