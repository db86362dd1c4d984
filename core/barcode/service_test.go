package barcode

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/invoice"
)

type repoStub struct {
	barcodes   map[string]Barcode
	scans      []ScanEvent
	seq        int
	failCreate int // CreateBarcode returns ErrCodeExists this many times
}

func newRepoStub() *repoStub {
	return &repoStub{barcodes: make(map[string]Barcode)}
}

func (r *repoStub) nextID() string {
	r.seq++
	return fmt.Sprintf("%08x-0000-4000-8000-%012x", r.seq, r.seq)
}

func (r *repoStub) CreateBarcode(_ context.Context, b Barcode, _ ...core.DBExecutor) (Barcode, error) {
	if r.failCreate > 0 {
		r.failCreate--
		return Barcode{}, ErrCodeExists
	}
	for _, other := range r.barcodes {
		if other.Code == b.Code {
			return Barcode{}, ErrCodeExists
		}
	}
	b.ID = r.nextID()
	r.barcodes[b.ID] = b
	return b, nil
}
func (r *repoStub) GetBarcode(_ context.Context, filter GetFilter, _ ...core.DBExecutor) (Barcode, error) {
	for _, b := range r.barcodes {
		if b.ID == filter.ID || (filter.Code != "" && b.Code == filter.Code) {
			return b, nil
		}
	}
	return Barcode{}, ErrNotFound
}
func (r *repoStub) GetActiveBarcode(_ context.Context, kind, refID string, _ ...core.DBExecutor) (Barcode, error) {
	for _, b := range r.barcodes {
		if b.Kind == kind && b.RefID == refID && !b.Revoked() {
			return b, nil
		}
	}
	return Barcode{}, ErrNotFound
}
func (r *repoStub) UpdateBarcode(_ context.Context, b Barcode, _ ...core.DBExecutor) (Barcode, error) {
	if _, ok := r.barcodes[b.ID]; !ok {
		return Barcode{}, ErrNotFound
	}
	r.barcodes[b.ID] = b
	return b, nil
}
func (r *repoStub) CreateScan(_ context.Context, e ScanEvent, _ ...core.DBExecutor) (ScanEvent, error) {
	e.ID = r.nextID()
	r.scans = append(r.scans, e)
	return e, nil
}
func (r *repoStub) QueryScans(_ context.Context, barcodeID string, _ ...core.DBExecutor) ([]ScanEvent, error) {
	var out []ScanEvent
	for _, e := range r.scans {
		if e.BarcodeID == barcodeID {
			out = append(out, e)
		}
	}
	return out, nil
}

type productStub struct {
	prod catalog.Product
	err  error
}

func (s *productStub) GetByID(context.Context, string) (catalog.Product, error) {
	return s.prod, s.err
}

type invoiceStub struct {
	inv invoice.Invoice
	err error
}

func (s *invoiceStub) GetByID(context.Context, string) (invoice.Invoice, error) {
	return s.inv, s.err
}

type qrStub struct {
	content string
	size    int
}

func (s *qrStub) Encode(content string, sizePx int) ([]byte, error) {
	s.content = content
	s.size = sizePx
	return []byte("png"), nil
}

const (
	prodID = "11111111-0000-4000-8000-000000000001"
	invID  = "22222222-0000-4000-8000-000000000002"
)

func setupService(t *testing.T) (Service, *repoStub, *productStub, *invoiceStub, *qrStub) {
	t.Helper()
	repo := newRepoStub()
	products := &productStub{prod: catalog.Product{ID: prodID, SKU: "brc-1001", Name: "دستبند کارتیه"}}
	invoices := &invoiceStub{inv: invoice.Invoice{ID: invID, Number: 7}}
	qr := &qrStub{}
	conf := &core.Config{FrontendBaseURL: "https://app.zargar.example/"}
	return NewService(repo, products, invoices, qr, conf), repo, products, invoices, qr
}

func TestIssueForProduct(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := setupService(t)

	b, err := svc.IssueForProduct(ctx, prodID)
	if err != nil {
		t.Fatalf("IssueForProduct() error = %v", err)
	}
	if len(b.Code) != codeLen {
		t.Errorf("len(Code) = %d, want %d", len(b.Code), codeLen)
	}
	for _, r := range b.Code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Errorf("Code %q contains %q outside the alphabet", b.Code, r)
		}
	}
	if b.Kind != KindProduct || b.RefID != prodID {
		t.Errorf("barcode = %+v", b)
	}
	if b.Revoked() {
		t.Error("fresh barcode is revoked")
	}

	// a re-issue retires the old code
	b2, err := svc.IssueForProduct(ctx, prodID)
	if err != nil {
		t.Fatalf("second IssueForProduct() error = %v", err)
	}
	if b2.Code == b.Code {
		t.Error("re-issue reused the code")
	}
	old := repo.barcodes[b.ID]
	if !old.Revoked() {
		t.Error("prior barcode still active after re-issue")
	}
	if _, err = repo.GetActiveBarcode(ctx, KindProduct, prodID); err != nil {
		t.Fatalf("GetActiveBarcode() error = %v", err)
	}
}

func TestIssueUnknownProduct(t *testing.T) {
	svc, _, products, _, _ := setupService(t)
	products.err = catalog.ErrNotFound
	if _, err := svc.IssueForProduct(context.Background(), prodID); !core.IsValidationError(err) {
		t.Errorf("IssueForProduct() error = %v, want validation error", err)
	}
}

func TestIssueRetriesCollisions(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := setupService(t)

	repo.failCreate = generateAttempts - 1
	if _, err := svc.IssueForInvoice(ctx, invID); err != nil {
		t.Errorf("IssueForInvoice() with %d collisions error = %v", generateAttempts-1, err)
	}

	repo.failCreate = generateAttempts
	if _, err := svc.IssueForInvoice(ctx, invID); err == nil {
		t.Error("IssueForInvoice() with endless collisions error = nil, want error")
	}
}

func TestResolve(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := setupService(t)

	b, err := svc.IssueForProduct(ctx, prodID)
	if err != nil {
		t.Fatalf("IssueForProduct() error = %v", err)
	}

	res, err := svc.Resolve(ctx, b.Code, "counter-2")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Revoked {
		t.Error("Revoked = true, want false")
	}
	if res.Product == nil || res.Product.ID != prodID {
		t.Errorf("Product = %+v", res.Product)
	}
	if res.Invoice != nil {
		t.Error("Invoice set on a product barcode")
	}
	if len(repo.scans) != 1 || repo.scans[0].Station != "counter-2" {
		t.Errorf("scans = %+v, want one from counter-2", repo.scans)
	}

	if _, err = svc.Resolve(ctx, "ZZZZZZZZZZ", ""); err == nil {
		t.Error("Resolve() of unknown code error = nil, want error")
	}
}

func TestResolveNormalizesCode(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := setupService(t)

	b, err := svc.IssueForInvoice(ctx, invID)
	if err != nil {
		t.Fatalf("IssueForInvoice() error = %v", err)
	}
	// force a code with the confusable characters
	b.Code = "01ABCDEFGH"
	if _, err = repo.UpdateBarcode(ctx, b); err != nil {
		t.Fatalf("UpdateBarcode() error = %v", err)
	}

	res, err := svc.Resolve(ctx, " olabcdefgh ", "")
	if err != nil {
		t.Fatalf("Resolve() of mistyped code error = %v", err)
	}
	if res.Invoice == nil || res.Invoice.Number != 7 {
		t.Errorf("Invoice = %+v", res.Invoice)
	}
}

func TestResolveRevoked(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, _, _ := setupService(t)

	b, err := svc.IssueForProduct(ctx, prodID)
	if err != nil {
		t.Fatalf("IssueForProduct() error = %v", err)
	}
	if _, err = svc.Revoke(ctx, b.Code); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}

	res, err := svc.Resolve(ctx, b.Code, "counter-1")
	if err != nil {
		t.Fatalf("Resolve() of revoked code error = %v", err)
	}
	if !res.Revoked {
		t.Error("Revoked = false, want true")
	}
	if res.Product == nil {
		t.Error("entity missing from revoked resolution")
	}
	if len(repo.scans) != 0 {
		t.Errorf("scans = %+v, want none for a revoked code", repo.scans)
	}

	if _, err = svc.Revoke(ctx, b.Code); !core.IsValidationError(err) {
		t.Errorf("second Revoke() error = %v, want validation error", err)
	}
}

func TestResolveGoneProduct(t *testing.T) {
	ctx := context.Background()
	svc, _, products, _, _ := setupService(t)

	b, err := svc.IssueForProduct(ctx, prodID)
	if err != nil {
		t.Fatalf("IssueForProduct() error = %v", err)
	}
	products.err = catalog.ErrNotFound

	if _, err = svc.Resolve(ctx, b.Code, ""); !core.IsGoneError(err) {
		t.Errorf("Resolve() error = %v, want gone error", err)
	}
}

func TestPNG(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, qr := setupService(t)

	b, err := svc.IssueForProduct(ctx, prodID)
	if err != nil {
		t.Fatalf("IssueForProduct() error = %v", err)
	}
	png, err := svc.PNG(ctx, b.Code, 0)
	if err != nil {
		t.Fatalf("PNG() error = %v", err)
	}
	if len(png) == 0 {
		t.Error("empty image")
	}
	if want := "https://app.zargar.example/scan/" + b.Code; qr.content != want {
		t.Errorf("encoded content = %q, want %q", qr.content, want)
	}
	if qr.size != defaultPNGSize {
		t.Errorf("size = %d, want default %d", qr.size, defaultPNGSize)
	}
}

func TestScans(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := setupService(t)

	b, err := svc.IssueForProduct(ctx, prodID)
	if err != nil {
		t.Fatalf("IssueForProduct() error = %v", err)
	}
	for _, station := range []string{"counter-1", "counter-2"} {
		if _, err = svc.Resolve(ctx, b.Code, station); err != nil {
			t.Fatalf("Resolve(%s) error = %v", station, err)
		}
	}
	events, err := svc.Scans(ctx, b.Code)
	if err != nil {
		t.Fatalf("Scans() error = %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len(events) = %d, want 2", len(events))
	}
}
