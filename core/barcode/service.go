package barcode

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/invoice"
)

var (
	ErrNotFound = errors.New("barcode not found")

	// ErrCodeExists is the repository's duplicate-code sentinel; the
	// generator retries on it.
	ErrCodeExists = errors.New("barcode code already exists")
)

// generateAttempts bounds collision retries. With 32^10 codes per tenant
// one retry is already rare.
const generateAttempts = 5

const defaultPNGSize = 256

type (
	Repository interface {
		CreateBarcode(ctx context.Context, b Barcode, exec ...core.DBExecutor) (Barcode, error)
		GetBarcode(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Barcode, error)
		// GetActiveBarcode returns the unrevoked barcode for a ref, if any.
		GetActiveBarcode(ctx context.Context, kind, refID string, exec ...core.DBExecutor) (Barcode, error)
		UpdateBarcode(ctx context.Context, b Barcode, exec ...core.DBExecutor) (Barcode, error)
		CreateScan(ctx context.Context, e ScanEvent, exec ...core.DBExecutor) (ScanEvent, error)
		QueryScans(ctx context.Context, barcodeID string, exec ...core.DBExecutor) ([]ScanEvent, error)
	}

	ProductGetter interface {
		GetByID(ctx context.Context, id string) (catalog.Product, error)
	}

	InvoiceGetter interface {
		GetByID(ctx context.Context, id string) (invoice.Invoice, error)
	}

	Service interface {
		IssueForProduct(ctx context.Context, productID string) (Barcode, error)
		IssueForInvoice(ctx context.Context, invoiceID string) (Barcode, error)
		PNG(ctx context.Context, code string, sizePx int) ([]byte, error)
		Resolve(ctx context.Context, code, station string) (Resolution, error)
		Scans(ctx context.Context, code string) ([]ScanEvent, error)
		Revoke(ctx context.Context, code string) (Barcode, error)
	}

	service struct {
		repo     Repository
		products ProductGetter
		invoices InvoiceGetter
		qr       core.QREncoder
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, products ProductGetter, invoices InvoiceGetter, qr core.QREncoder, conf *core.Config) Service {
	return &service{
		repo:     repo,
		products: products,
		invoices: invoices,
		qr:       qr,
		conf:     conf,
	}
}

func (svc *service) IssueForProduct(ctx context.Context, productID string) (Barcode, error) {
	if _, err := svc.products.GetByID(ctx, productID); err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return Barcode{}, core.NewValidationError(err, core.FieldError{
				Field: "product_id",
				Error: "product not found",
			})
		}
		return Barcode{}, err
	}
	return svc.issue(ctx, KindProduct, productID)
}

func (svc *service) IssueForInvoice(ctx context.Context, invoiceID string) (Barcode, error) {
	if _, err := svc.invoices.GetByID(ctx, invoiceID); err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return Barcode{}, core.NewValidationError(err, core.FieldError{
				Field: "invoice_id",
				Error: "invoice not found",
			})
		}
		return Barcode{}, err
	}
	return svc.issue(ctx, KindInvoice, invoiceID)
}

// issue creates a fresh code for the ref, revoking the previous one. A ref
// has at most one active code at a time.
func (svc *service) issue(ctx context.Context, kind, refID string) (Barcode, error) {
	now := time.Now().UTC()

	prior, err := svc.repo.GetActiveBarcode(ctx, kind, refID)
	switch {
	case err == nil:
		prior.RevokedAt = now
		if _, err = svc.repo.UpdateBarcode(ctx, prior); err != nil {
			return Barcode{}, errors.Wrap(err, "revoking prior barcode")
		}
	case errors.Cause(err) != ErrNotFound:
		return Barcode{}, err
	}

	for attempt := 0; attempt < generateAttempts; attempt++ {
		code, err := generateCode()
		if err != nil {
			return Barcode{}, err
		}
		b, err := svc.repo.CreateBarcode(ctx, Barcode{
			Code:      code,
			Kind:      kind,
			RefID:     refID,
			CreatedAt: now,
		})
		if errors.Cause(err) == ErrCodeExists {
			continue
		}
		return b, err
	}
	return Barcode{}, errors.Errorf("generating barcode: %d collisions in a row", generateAttempts)
}

// PNG renders the scan URL for code as a QR image. Revoked codes render
// too; scanning them reports the revocation.
func (svc *service) PNG(ctx context.Context, code string, sizePx int) ([]byte, error) {
	b, err := svc.byCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if sizePx <= 0 {
		sizePx = defaultPNGSize
	}
	url := strings.TrimRight(svc.conf.FrontendBaseURL, "/") + "/scan/" + b.Code
	return svc.qr.Encode(url, sizePx)
}

func (svc *service) Resolve(ctx context.Context, code, station string) (Resolution, error) {
	b, err := svc.byCode(ctx, code)
	if err != nil {
		return Resolution{}, err
	}
	res := Resolution{Barcode: b, Revoked: b.Revoked()}

	switch b.Kind {
	case KindProduct:
		prod, err := svc.products.GetByID(ctx, b.RefID)
		if err != nil {
			if errors.Cause(err) == catalog.ErrNotFound {
				return Resolution{}, core.NewGoneError("the product behind this barcode no longer exists")
			}
			return Resolution{}, err
		}
		res.Product = &prod
	case KindInvoice:
		inv, err := svc.invoices.GetByID(ctx, b.RefID)
		if err != nil {
			if errors.Cause(err) == invoice.ErrNotFound {
				return Resolution{}, core.NewGoneError("the invoice behind this barcode no longer exists")
			}
			return Resolution{}, err
		}
		res.Invoice = &inv
	}

	// scans of revoked codes are reported but not recorded
	if !res.Revoked {
		if _, err = svc.repo.CreateScan(ctx, ScanEvent{
			BarcodeID: b.ID,
			Station:   core.CleanString(station),
			ScannedAt: time.Now().UTC(),
		}); err != nil {
			return Resolution{}, errors.Wrap(err, "recording scan")
		}
	}
	return res, nil
}

func (svc *service) Scans(ctx context.Context, code string) ([]ScanEvent, error) {
	b, err := svc.byCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryScans(ctx, b.ID)
}

func (svc *service) Revoke(ctx context.Context, code string) (Barcode, error) {
	b, err := svc.byCode(ctx, code)
	if err != nil {
		return Barcode{}, err
	}
	if b.Revoked() {
		return Barcode{}, core.NewValidationError(errors.New("the barcode is already revoked"))
	}
	b.RevokedAt = time.Now().UTC()
	return svc.repo.UpdateBarcode(ctx, b)
}

func (svc *service) byCode(ctx context.Context, code string) (Barcode, error) {
	return svc.repo.GetBarcode(ctx, GetFilter{Code: NormalizeCode(code)})
}
