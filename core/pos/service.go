package pos

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/goldprice"
	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/persian"
)

type (
	ProductGetter interface {
		GetByID(ctx context.Context, id string) (catalog.Product, error)
	}

	PriceGetter interface {
		Latest(ctx context.Context) (goldprice.GoldPrice, error)
	}

	Invoicer interface {
		Create(ctx context.Context, ni invoice.NewInvoice, createdBy string) (invoice.Invoice, error)
		Issue(ctx context.Context, id string, pin decimal.NullDecimal, byUserID string) (invoice.Invoice, error)
		AddPayment(ctx context.Context, invoiceID string, np invoice.NewPayment, byUserID string) (invoice.Payment, error)
		DeleteDraft(ctx context.Context, id string) error
		Cancel(ctx context.Context, id string, byUserID string) (invoice.Invoice, error)
		GetDetail(ctx context.Context, id string) (invoice.Detail, error)
	}

	Service interface {
		Quote(ctx context.Context, qr QuoteRequest) (Quote, error)
		QuickSale(ctx context.Context, qs QuickSaleRequest, byUserID string) (Sale, error)
		Receipt(ctx context.Context, invoiceID string) (Receipt, error)
	}

	service struct {
		products ProductGetter
		prices   PriceGetter
		invoices Invoicer
		conf     *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(products ProductGetter, prices PriceGetter, invoices Invoicer, conf *core.Config) Service {
	return &service{
		products: products,
		prices:   prices,
		invoices: invoices,
		conf:     conf,
	}
}

// Quote prices a prospective sale at the latest board price. Nothing is
// persisted; the returned figures hold only as long as the board does.
func (svc *service) Quote(ctx context.Context, qr QuoteRequest) (Quote, error) {
	qr.clean()

	prod, err := svc.products.GetByID(ctx, qr.ProductID)
	if err != nil {
		if errors.Cause(err) == catalog.ErrNotFound {
			return Quote{}, core.NewValidationError(err, core.FieldError{
				Field: "product_id",
				Error: "product not found",
			})
		}
		return Quote{}, err
	}
	if prod.IsActive != nil && !*prod.IsActive {
		return Quote{}, core.NewValidationError(nil, core.FieldError{
			Field: "product_id",
			Error: "product is not active",
		})
	}

	price, err := svc.prices.Latest(ctx)
	if err != nil {
		if errors.Cause(err) == goldprice.ErrNoPrice {
			return Quote{}, core.NewValidationError(err)
		}
		return Quote{}, err
	}

	weight := prod.WeightGrams
	if qr.WeightGrams.Valid {
		weight = qr.WeightGrams.Decimal
	}
	ln := invoice.Line{
		Quantity:    qr.Quantity,
		WeightGrams: weight,
		Karat:       prod.Karat,
		WagePct:     prod.WagePct,
		ProfitPct:   decimal.NewFromFloat(svc.conf.DefaultProfitPct),
		TaxPct:      decimal.NewFromFloat(svc.conf.DefaultTaxPct),
		StoneValue:  prod.StoneValue,
	}
	bd := invoice.PriceLine(price.PricePerGram, ln)

	q := Quote{
		ProductID:    prod.ID,
		Description:  prod.Name,
		Quantity:     qr.Quantity,
		WeightGrams:  weight,
		Karat:        prod.Karat,
		PricePerGram: price.PricePerGram,
		PricedAt:     time.Now().UTC(),
		Breakdown:    bd,
	}
	q.Display = QuoteDisplay{
		Weight:       persian.FormatWeight(weight, persian.Gram),
		PricePerGram: persian.FormatToman(price.PricePerGram),
		Total:        persian.FormatToman(bd.Total),
		TotalHuman:   persian.HumanToman(bd.Total),
	}
	return q, nil
}

// QuickSale runs the whole counter flow for a single item: draft, issue at
// the board price, collect the full amount. A failure past the draft stage
// unwinds what was already written before the error is returned.
func (svc *service) QuickSale(ctx context.Context, qs QuickSaleRequest, byUserID string) (Sale, error) {
	qs.clean()

	inv, err := svc.invoices.Create(ctx, invoice.NewInvoice{
		Kind:       invoice.KindSale,
		CustomerID: qs.CustomerID,
		Note:       qs.Note,
		Lines:      []invoice.NewLine{{ProductID: qs.ProductID, Quantity: qs.Quantity}},
	}, byUserID)
	if err != nil {
		return Sale{}, err
	}

	issued, err := svc.invoices.Issue(ctx, inv.ID, decimal.NullDecimal{}, byUserID)
	if err != nil {
		// the draft holds no stock and no payments
		_ = svc.invoices.DeleteDraft(ctx, inv.ID)
		return Sale{}, err
	}

	p, err := svc.invoices.AddPayment(ctx, issued.ID, invoice.NewPayment{
		Amount:    issued.Total,
		Method:    qs.Method,
		Reference: qs.Reference,
	}, byUserID)
	if err != nil {
		// put the stock back; the sale never happened
		_, _ = svc.invoices.Cancel(ctx, issued.ID, byUserID)
		return Sale{}, err
	}

	// paying the full total settles the invoice
	issued.Status = invoice.StatusPaid
	return Sale{
		Invoice: issued,
		Payment: p,
		Receipt: buildReceipt(issued, p.Amount, decimal.Zero),
	}, nil
}

// Receipt rebuilds the printable payload for an issued invoice, for
// reprints at the counter.
func (svc *service) Receipt(ctx context.Context, invoiceID string) (Receipt, error) {
	detail, err := svc.invoices.GetDetail(ctx, invoiceID)
	if err != nil {
		return Receipt{}, err
	}
	if detail.IsDraft() {
		return Receipt{}, core.NewValidationError(errors.New("draft invoices have no receipt"))
	}
	paid := detail.Total.Sub(detail.Outstanding)
	return buildReceipt(detail.Invoice, paid, detail.Outstanding), nil
}
