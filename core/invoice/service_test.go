package invoice

import (
	"context"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/goldprice"
)

// txStub satisfies core.DBTransactor; the repo stubs ignore the executor.
type txStub struct{ core.DBExecutor }

func (txStub) Commit() error   { return nil }
func (txStub) Rollback() error { return nil }

type dbStub struct{ core.DBExecutor }

func (dbStub) BeginTx(context.Context) (core.DBTransactor, error) { return txStub{}, nil }

type repoStub struct {
	invoices map[string]Invoice
	payments map[string][]Payment
	plans    map[string]InstallmentPlan
	number   int64
	seq      int
}

func newRepoStub() *repoStub {
	return &repoStub{
		invoices: make(map[string]Invoice),
		payments: make(map[string][]Payment),
		plans:    make(map[string]InstallmentPlan),
	}
}

func (r *repoStub) nextID() string {
	r.seq++
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", r.seq, r.seq)
}

func (r *repoStub) CreateInvoice(_ context.Context, inv Invoice, _ ...core.DBExecutor) (Invoice, error) {
	inv.ID = r.nextID()
	for i := range inv.Lines {
		inv.Lines[i].ID = r.nextID()
		inv.Lines[i].InvoiceID = inv.ID
	}
	r.invoices[inv.ID] = inv
	return inv, nil
}
func (r *repoStub) QueryInvoices(_ context.Context, _ *QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Invoice, error) {
	invs := make([]Invoice, 0, len(r.invoices))
	for _, inv := range r.invoices {
		inv.Lines = nil
		invs = append(invs, inv)
	}
	return invs, nil
}
func (r *repoStub) GetInvoice(_ context.Context, filter GetFilter, _ ...core.DBExecutor) (Invoice, error) {
	for _, inv := range r.invoices {
		if inv.ID == filter.ID || (filter.Number != 0 && inv.Number == filter.Number) {
			return inv, nil
		}
	}
	return Invoice{}, ErrNotFound
}
func (r *repoStub) UpdateInvoice(_ context.Context, inv Invoice, _ ...core.DBExecutor) (Invoice, error) {
	orig, ok := r.invoices[inv.ID]
	if !ok {
		return Invoice{}, ErrNotFound
	}
	if inv.Lines == nil {
		inv.Lines = orig.Lines
	}
	r.invoices[inv.ID] = inv
	return inv, nil
}
func (r *repoStub) ReplaceLines(_ context.Context, invoiceID string, lines []Line, _ ...core.DBExecutor) ([]Line, error) {
	inv, ok := r.invoices[invoiceID]
	if !ok {
		return nil, ErrNotFound
	}
	for i := range lines {
		if lines[i].ID == "" {
			lines[i].ID = r.nextID()
		}
		lines[i].InvoiceID = invoiceID
	}
	inv.Lines = lines
	r.invoices[invoiceID] = inv
	return lines, nil
}
func (r *repoStub) DeleteInvoice(_ context.Context, id string, _ ...core.DBExecutor) error {
	if _, ok := r.invoices[id]; !ok {
		return ErrNotFound
	}
	delete(r.invoices, id)
	return nil
}
func (r *repoStub) NextInvoiceNumber(_ context.Context, _ ...core.DBExecutor) (int64, error) {
	r.number++
	return r.number, nil
}

func (r *repoStub) CreatePayment(_ context.Context, p Payment, _ ...core.DBExecutor) (Payment, error) {
	p.ID = r.nextID()
	r.payments[p.InvoiceID] = append(r.payments[p.InvoiceID], p)
	return p, nil
}
func (r *repoStub) QueryPayments(_ context.Context, invoiceID string, _ ...core.DBExecutor) ([]Payment, error) {
	return r.payments[invoiceID], nil
}
func (r *repoStub) PaidSum(_ context.Context, invoiceID string, _ ...core.DBExecutor) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, p := range r.payments[invoiceID] {
		sum = sum.Add(p.Amount)
	}
	return sum, nil
}
func (r *repoStub) OutstandingForCustomer(_ context.Context, customerID string, _ ...core.DBExecutor) (decimal.Decimal, error) {
	sum := decimal.Zero
	for _, inv := range r.invoices {
		if inv.CustomerID != customerID || !inv.Payable() {
			continue
		}
		paid, _ := r.PaidSum(context.Background(), inv.ID)
		sum = sum.Add(inv.Total.Sub(paid))
	}
	return sum, nil
}

func (r *repoStub) CreatePlan(_ context.Context, plan InstallmentPlan, _ ...core.DBExecutor) (InstallmentPlan, error) {
	plan.ID = r.nextID()
	for i := range plan.Installments {
		plan.Installments[i].ID = r.nextID()
		plan.Installments[i].PlanID = plan.ID
	}
	r.plans[plan.ID] = plan
	return plan, nil
}
func (r *repoStub) GetPlan(_ context.Context, id string, _ ...core.DBExecutor) (InstallmentPlan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return InstallmentPlan{}, ErrPlanNotFound
	}
	insts := make([]Installment, len(plan.Installments))
	copy(insts, plan.Installments)
	plan.Installments = insts
	return plan, nil
}
func (r *repoStub) GetActivePlan(_ context.Context, invoiceID string, _ ...core.DBExecutor) (InstallmentPlan, error) {
	for id, plan := range r.plans {
		if plan.InvoiceID == invoiceID && plan.Status == PlanActive {
			return r.GetPlan(context.Background(), id)
		}
	}
	return InstallmentPlan{}, ErrPlanNotFound
}
func (r *repoStub) UpdatePlan(_ context.Context, plan InstallmentPlan, _ ...core.DBExecutor) (InstallmentPlan, error) {
	orig, ok := r.plans[plan.ID]
	if !ok {
		return InstallmentPlan{}, ErrPlanNotFound
	}
	if plan.Installments == nil {
		plan.Installments = orig.Installments
	}
	r.plans[plan.ID] = plan
	return plan, nil
}
func (r *repoStub) UpdateInstallment(_ context.Context, inst Installment, _ ...core.DBExecutor) (Installment, error) {
	plan, ok := r.plans[inst.PlanID]
	if !ok {
		return Installment{}, ErrPlanNotFound
	}
	for i := range plan.Installments {
		if plan.Installments[i].ID == inst.ID {
			plan.Installments[i] = inst
			r.plans[inst.PlanID] = plan
			return inst, nil
		}
	}
	return Installment{}, ErrInstallmentNotFound
}

type stockStub struct{ products map[string]catalog.Product }

func (s *stockStub) GetProduct(_ context.Context, filter catalog.GetFilter, _ ...core.DBExecutor) (catalog.Product, error) {
	if prod, ok := s.products[filter.ID]; ok {
		return prod, nil
	}
	return catalog.Product{}, catalog.ErrNotFound
}
func (s *stockStub) AdjustStock(_ context.Context, e catalog.StockEntry, _ ...core.DBExecutor) (catalog.Product, error) {
	prod, ok := s.products[e.ProductID]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	if prod.Quantity+e.Delta < 0 {
		return catalog.Product{}, catalog.ErrInsufficientStock
	}
	prod.Quantity += e.Delta
	s.products[e.ProductID] = prod
	return prod, nil
}

type priceStub struct {
	price decimal.Decimal
	err   error
}

func (p *priceStub) Latest(context.Context) (goldprice.GoldPrice, error) {
	if p.err != nil {
		return goldprice.GoldPrice{}, p.err
	}
	return goldprice.GoldPrice{PricePerGram: p.price, Source: goldprice.SourceManual}, nil
}

type fixture struct {
	svc    Service
	repo   *repoStub
	stock  *stockStub
	prices *priceStub
	prodID string
}

func setupService(t *testing.T) *fixture {
	t.Helper()
	active := true
	prodID := "11111111-0000-4000-8000-000000000001"
	f := &fixture{
		repo: newRepoStub(),
		stock: &stockStub{products: map[string]catalog.Product{
			prodID: {
				ID:          prodID,
				SKU:         "brc-1001",
				Name:        "دستبند کارتیه",
				Karat:       18,
				WeightGrams: dec(t, "5"),
				WagePct:     dec(t, "14"),
				Quantity:    10,
				IsActive:    &active,
			},
		}},
		prices: &priceStub{price: dec(t, "4000000")},
		prodID: prodID,
	}
	conf := &core.Config{DefaultTaxPct: 9, DefaultProfitPct: 7}
	f.svc = NewService(dbStub{}, f.repo, f.stock, f.prices, conf)
	return f
}

// unit total of the fixture product at the fixture price: gold 20000000,
// wage 2800000, profit 1596000, tax 395640
const fixtureUnitTotal = "24791640"

func (f *fixture) draft(t *testing.T, qty int) Invoice {
	t.Helper()
	inv, err := f.svc.Create(context.Background(), NewInvoice{
		Kind:  KindSale,
		Lines: []NewLine{{ProductID: f.prodID, Quantity: qty}},
	}, "cashier-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return inv
}

func (f *fixture) issued(t *testing.T, qty int) Invoice {
	t.Helper()
	inv := f.draft(t, qty)
	inv, err := f.svc.Issue(context.Background(), inv.ID, decimal.NullDecimal{}, "cashier-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return inv
}

func TestCreateDraft(t *testing.T) {
	f := setupService(t)
	inv := f.draft(t, 1)

	if inv.Status != StatusDraft {
		t.Errorf("Status = %q, want %q", inv.Status, StatusDraft)
	}
	if inv.Number != 0 {
		t.Errorf("Number = %d, want 0 before issue", inv.Number)
	}
	// board price present, so the draft carries an estimate
	if want := dec(t, fixtureUnitTotal); !inv.Total.Equal(want) {
		t.Errorf("Total = %s, want %s", inv.Total, want)
	}
	// defaults snapshotted from config and product
	ln := inv.Lines[0]
	if !ln.WagePct.Equal(dec(t, "14")) || !ln.ProfitPct.Equal(dec(t, "7")) || !ln.TaxPct.Equal(dec(t, "9")) {
		t.Errorf("line pcts = (%s, %s, %s), want (14, 7, 9)", ln.WagePct, ln.ProfitPct, ln.TaxPct)
	}
	if ln.Description != "دستبند کارتیه" {
		t.Errorf("Description = %q, want product name", ln.Description)
	}
	// drafts reserve nothing
	if got := f.stock.products[f.prodID].Quantity; got != 10 {
		t.Errorf("stock = %d, want 10", got)
	}
}

func TestIssue(t *testing.T) {
	f := setupService(t)
	inv := f.issued(t, 2)

	if inv.Status != StatusIssued {
		t.Errorf("Status = %q, want %q", inv.Status, StatusIssued)
	}
	if inv.Number != 1 {
		t.Errorf("Number = %d, want 1", inv.Number)
	}
	if inv.IssuedAt.IsZero() {
		t.Error("IssuedAt not set")
	}
	if want := dec(t, "49583280"); !inv.Total.Equal(want) {
		t.Errorf("Total = %s, want %s", inv.Total, want)
	}
	if got := f.stock.products[f.prodID].Quantity; got != 8 {
		t.Errorf("stock = %d, want 8", got)
	}

	// an issued invoice cannot be issued again
	if _, err := f.svc.Issue(context.Background(), inv.ID, decimal.NullDecimal{}, "cashier-1"); !core.IsValidationError(err) {
		t.Errorf("second Issue() error = %v, want validation error", err)
	}
}

func TestIssuePurchaseAddsStock(t *testing.T) {
	f := setupService(t)
	inv, err := f.svc.Create(context.Background(), NewInvoice{
		Kind:  KindPurchase,
		Lines: []NewLine{{ProductID: f.prodID, Quantity: 3}},
	}, "cashier-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if _, err = f.svc.Issue(context.Background(), inv.ID, decimal.NullDecimal{}, "cashier-1"); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if got := f.stock.products[f.prodID].Quantity; got != 13 {
		t.Errorf("stock = %d, want 13", got)
	}
}

func TestIssueWithoutPrice(t *testing.T) {
	f := setupService(t)
	f.prices.err = goldprice.ErrNoPrice

	inv := f.draft(t, 1)
	if _, err := f.svc.Issue(context.Background(), inv.ID, decimal.NullDecimal{}, "cashier-1"); !core.IsValidationError(err) {
		t.Errorf("Issue() error = %v, want validation error", err)
	}

	// a pinned price unblocks the issue
	pin := decimal.NewNullDecimal(dec(t, "3900000"))
	issued, err := f.svc.Issue(context.Background(), inv.ID, pin, "cashier-1")
	if err != nil {
		t.Fatalf("Issue() with pin error = %v", err)
	}
	if !issued.PricePerGram.Equal(pin.Decimal) {
		t.Errorf("PricePerGram = %s, want %s", issued.PricePerGram, pin.Decimal)
	}
}

func TestIssueRepricesStaleDraft(t *testing.T) {
	f := setupService(t)
	inv := f.draft(t, 1)

	// board moved between draft and issue
	f.prices.price = dec(t, "4200000")
	issued, err := f.svc.Issue(context.Background(), inv.ID, decimal.NullDecimal{}, "cashier-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !issued.PricePerGram.Equal(dec(t, "4200000")) {
		t.Errorf("PricePerGram = %s, want repriced 4200000", issued.PricePerGram)
	}
	// 21000000 + 2940000 + 1675800 + 415422
	if want := dec(t, "26031222"); !issued.Total.Equal(want) {
		t.Errorf("Total = %s, want %s", issued.Total, want)
	}
}

func TestIssueInsufficientStock(t *testing.T) {
	f := setupService(t)
	inv := f.draft(t, 11)

	if _, err := f.svc.Issue(context.Background(), inv.ID, decimal.NullDecimal{}, "cashier-1"); !core.IsValidationError(err) {
		t.Errorf("Issue() error = %v, want validation error", err)
	}
	if got := f.stock.products[f.prodID].Quantity; got != 10 {
		t.Errorf("stock = %d, want untouched 10", got)
	}
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	inv := f.issued(t, 2)

	cancelled, err := f.svc.Cancel(ctx, inv.ID, "owner-1")
	if err != nil {
		t.Fatalf("Cancel() error = %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("Status = %q, want %q", cancelled.Status, StatusCancelled)
	}
	if got := f.stock.products[f.prodID].Quantity; got != 10 {
		t.Errorf("stock = %d, want restored 10", got)
	}

	// paid invoices stay on the books
	paidInv := f.issued(t, 1)
	if _, err = f.svc.AddPayment(ctx, paidInv.ID, NewPayment{Amount: dec(t, "1000"), Method: MethodCash}, "cashier-1"); err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	if _, err = f.svc.Cancel(ctx, paidInv.ID, "owner-1"); !core.IsValidationError(err) {
		t.Errorf("Cancel() of paid invoice error = %v, want validation error", err)
	}
}

func TestAddPayment(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	inv := f.issued(t, 1) // total 24791640

	if _, err := f.svc.AddPayment(ctx, inv.ID, NewPayment{Amount: dec(t, "10000000"), Method: MethodCard}, "cashier-1"); err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	got, _ := f.svc.GetByID(ctx, inv.ID)
	if got.Status != StatusPartiallyPaid {
		t.Errorf("Status = %q, want %q", got.Status, StatusPartiallyPaid)
	}

	// overpay rejected
	if _, err := f.svc.AddPayment(ctx, inv.ID, NewPayment{Amount: dec(t, "14791641")}, "cashier-1"); !core.IsValidationError(err) {
		t.Errorf("overpay error = %v, want validation error", err)
	}

	// paying exactly the outstanding settles the invoice
	if _, err := f.svc.AddPayment(ctx, inv.ID, NewPayment{Amount: dec(t, "14791640")}, "cashier-1"); err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	got, _ = f.svc.GetByID(ctx, inv.ID)
	if got.Status != StatusPaid {
		t.Errorf("Status = %q, want %q", got.Status, StatusPaid)
	}

	// and a settled invoice takes no more
	if _, err := f.svc.AddPayment(ctx, inv.ID, NewPayment{Amount: dec(t, "1")}, "cashier-1"); !core.IsValidationError(err) {
		t.Errorf("payment on paid invoice error = %v, want validation error", err)
	}
}

func TestInstallmentFlow(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	inv := f.issued(t, 1) // total 24791640

	plan, err := f.svc.CreateInstallmentPlan(ctx, inv.ID, NewInstallmentPlan{
		DownPayment:        dec(t, "4791640"),
		Months:             4,
		MonthlyInterestPct: dec(t, "2.5"),
	}, "owner-1")
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() error = %v", err)
	}
	// financed 20000000 at 2.5% x 4 months = 22000000
	if len(plan.Installments) != 4 {
		t.Fatalf("len(installments) = %d, want 4", len(plan.Installments))
	}
	for _, inst := range plan.Installments {
		if !inst.Amount.Equal(dec(t, "5500000")) {
			t.Errorf("installment %d amount = %s, want 5500000", inst.Seq, inst.Amount)
		}
	}

	// the down payment landed on the invoice
	got, _ := f.svc.GetByID(ctx, inv.ID)
	if got.Status != StatusPartiallyPaid {
		t.Errorf("Status = %q, want %q", got.Status, StatusPartiallyPaid)
	}

	// a second active plan is blocked
	if _, err = f.svc.CreateInstallmentPlan(ctx, inv.ID, NewInstallmentPlan{Months: 2}, "owner-1"); !core.IsValidationError(err) {
		t.Errorf("second plan error = %v, want validation error", err)
	}

	for seq := 1; seq <= 4; seq++ {
		if _, err = f.svc.PayInstallment(ctx, plan.ID, seq, NewPayment{Method: MethodCash}, "cashier-1"); err != nil {
			t.Fatalf("PayInstallment(%d) error = %v", seq, err)
		}
	}

	settled, err := f.svc.GetPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("GetPlan() error = %v", err)
	}
	if settled.Status != PlanSettled {
		t.Errorf("plan status = %q, want %q", settled.Status, PlanSettled)
	}
	got, _ = f.svc.GetByID(ctx, inv.ID)
	if got.Status != StatusPaid {
		t.Errorf("invoice status = %q, want %q", got.Status, StatusPaid)
	}

	// paying a settled plan's installment again is rejected
	if _, err = f.svc.PayInstallment(ctx, plan.ID, 1, NewPayment{}, "cashier-1"); !core.IsValidationError(err) {
		t.Errorf("PayInstallment() on settled plan error = %v, want validation error", err)
	}
}

func TestCreateInstallmentPlanGuards(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	inv := f.issued(t, 1)

	// down payment swallowing the whole outstanding makes no plan
	if _, err := f.svc.CreateInstallmentPlan(ctx, inv.ID, NewInstallmentPlan{
		DownPayment: dec(t, fixtureUnitTotal),
		Months:      4,
	}, "owner-1"); !core.IsValidationError(err) {
		t.Errorf("full down payment error = %v, want validation error", err)
	}

	draft := f.draft(t, 1)
	if _, err := f.svc.CreateInstallmentPlan(ctx, draft.ID, NewInstallmentPlan{Months: 4}, "owner-1"); !core.IsValidationError(err) {
		t.Errorf("plan on draft error = %v, want validation error", err)
	}
}

func TestCancelPlan(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	inv := f.issued(t, 1)

	plan, err := f.svc.CreateInstallmentPlan(ctx, inv.ID, NewInstallmentPlan{Months: 4}, "owner-1")
	if err != nil {
		t.Fatalf("CreateInstallmentPlan() error = %v", err)
	}
	cancelled, err := f.svc.CancelPlan(ctx, plan.ID)
	if err != nil {
		t.Fatalf("CancelPlan() error = %v", err)
	}
	if cancelled.Status != PlanCancelled {
		t.Errorf("status = %q, want %q", cancelled.Status, PlanCancelled)
	}

	// a new plan may replace the cancelled one
	plan2, err := f.svc.CreateInstallmentPlan(ctx, inv.ID, NewInstallmentPlan{Months: 2}, "owner-1")
	if err != nil {
		t.Fatalf("replacement plan error = %v", err)
	}

	// but once an installment is paid the plan is locked in
	if _, err = f.svc.PayInstallment(ctx, plan2.ID, 1, NewPayment{}, "cashier-1"); err != nil {
		t.Fatalf("PayInstallment() error = %v", err)
	}
	if _, err = f.svc.CancelPlan(ctx, plan2.ID); !core.IsValidationError(err) {
		t.Errorf("CancelPlan() with paid installment error = %v, want validation error", err)
	}
}

func TestGetDetail(t *testing.T) {
	ctx := context.Background()
	f := setupService(t)
	inv := f.issued(t, 1)

	if _, err := f.svc.AddPayment(ctx, inv.ID, NewPayment{Amount: dec(t, "10000000")}, "cashier-1"); err != nil {
		t.Fatalf("AddPayment() error = %v", err)
	}
	if _, err := f.svc.CreateInstallmentPlan(ctx, inv.ID, NewInstallmentPlan{Months: 2}, "owner-1"); err != nil {
		t.Fatalf("CreateInstallmentPlan() error = %v", err)
	}

	detail, err := f.svc.GetDetail(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetDetail() error = %v", err)
	}
	if len(detail.Payments) != 1 {
		t.Errorf("len(payments) = %d, want 1", len(detail.Payments))
	}
	if detail.Plan == nil {
		t.Fatal("Plan missing from detail")
	}
	if want := dec(t, "14791640"); !detail.Outstanding.Equal(want) {
		t.Errorf("Outstanding = %s, want %s", detail.Outstanding, want)
	}
}
