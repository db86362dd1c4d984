package report

import (
	"context"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/goldprice"
	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/persian"
)

// Tehran wall time decides which day a sale belongs to. Iran has kept a
// fixed +03:30 since dropping DST in 2022, hence the fallback zone.
var tehran = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Tehran")
	if err != nil {
		return time.FixedZone("IRST", 3*3600+1800)
	}
	return loc
}()

const topProductsLimit = 5

type (
	Repository interface {
		// IssuedInvoices returns invoices issued in [from, to) with their
		// lines, in every post-draft status except cancelled.
		IssuedInvoices(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]invoice.Invoice, error)
		// ActiveProducts returns active catalog products.
		ActiveProducts(ctx context.Context, exec ...core.DBExecutor) ([]catalog.Product, error)
		// OpenInstallments returns unpaid installments of active plans,
		// joined with invoice and customer context.
		OpenInstallments(ctx context.Context, exec ...core.DBExecutor) ([]DueInstallment, error)
	}

	PriceGetter interface {
		Latest(ctx context.Context) (goldprice.GoldPrice, error)
	}

	Service interface {
		SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error)
		InventoryValuation(ctx context.Context) (InventoryValuation, error)
		InstallmentsDue(ctx context.Context, days int) (InstallmentsDue, error)
		Overview(ctx context.Context) (Overview, error)
	}

	service struct {
		repo   Repository
		prices PriceGetter
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, prices PriceGetter) Service {
	return &service{
		repo:   repo,
		prices: prices,
	}
}

func (svc *service) SalesSummary(ctx context.Context, from, to time.Time) (SalesSummary, error) {
	if !to.After(from) {
		return SalesSummary{}, core.NewValidationError(nil, core.FieldError{
			Field: "to",
			Error: "end must come after start",
		})
	}
	invs, err := svc.repo.IssuedInvoices(ctx, from, to)
	if err != nil {
		return SalesSummary{}, errors.Wrap(err, "loading sales")
	}

	s := SalesSummary{From: from, To: to}
	byDay := make(map[string]*DaySales)
	byProduct := make(map[string]*ProductSales)
	for _, inv := range invs {
		s.Count++
		s.Gross = s.Gross.Add(inv.Total)
		s.GoldValue = s.GoldValue.Add(inv.TotalGold)
		s.Wage = s.Wage.Add(inv.TotalWage)
		s.Profit = s.Profit.Add(inv.TotalProfit)
		s.Tax = s.Tax.Add(inv.TotalTax)

		date := inv.IssuedAt.In(tehran).Format("2006-01-02")
		day, ok := byDay[date]
		if !ok {
			day = &DaySales{Date: date}
			byDay[date] = day
		}
		day.Count++
		day.Gross = day.Gross.Add(inv.Total)

		for _, ln := range inv.Lines {
			ps, ok := byProduct[ln.ProductID]
			if !ok {
				ps = &ProductSales{ProductID: ln.ProductID, Description: ln.Description}
				byProduct[ln.ProductID] = ps
			}
			ps.Quantity += ln.Quantity
			ps.Value = ps.Value.Add(ln.Total)
		}
	}

	s.Days = make([]DaySales, 0, len(byDay))
	for _, day := range byDay {
		s.Days = append(s.Days, *day)
	}
	sort.Slice(s.Days, func(i, j int) bool { return s.Days[i].Date < s.Days[j].Date })

	s.TopProducts = make([]ProductSales, 0, len(byProduct))
	for _, ps := range byProduct {
		s.TopProducts = append(s.TopProducts, *ps)
	}
	sort.Slice(s.TopProducts, func(i, j int) bool {
		if !s.TopProducts[i].Value.Equal(s.TopProducts[j].Value) {
			return s.TopProducts[i].Value.GreaterThan(s.TopProducts[j].Value)
		}
		return s.TopProducts[i].ProductID < s.TopProducts[j].ProductID
	})
	if len(s.TopProducts) > topProductsLimit {
		s.TopProducts = s.TopProducts[:topProductsLimit]
	}

	s.GrossDisplay = persian.HumanToman(s.Gross)
	return s, nil
}

func (svc *service) InventoryValuation(ctx context.Context) (InventoryValuation, error) {
	price, err := svc.prices.Latest(ctx)
	if err != nil {
		if errors.Cause(err) == goldprice.ErrNoPrice {
			return InventoryValuation{}, core.NewValidationError(err)
		}
		return InventoryValuation{}, err
	}
	prods, err := svc.repo.ActiveProducts(ctx)
	if err != nil {
		return InventoryValuation{}, errors.Wrap(err, "loading products")
	}

	v := InventoryValuation{
		At:           time.Now().UTC(),
		PricePerGram: price.PricePerGram,
	}
	byKarat := make(map[int]*KaratValuation)
	for _, prod := range prods {
		if prod.Quantity == 0 {
			continue
		}
		// zero profit and tax: valuation is gold + wage + stones
		bd := invoice.PriceLine(price.PricePerGram, invoice.Line{
			Quantity:    prod.Quantity,
			WeightGrams: prod.WeightGrams,
			Karat:       prod.Karat,
			WagePct:     prod.WagePct,
			StoneValue:  prod.StoneValue,
		})
		qty := decimal.NewFromInt(int64(prod.Quantity))

		k, ok := byKarat[prod.Karat]
		if !ok {
			k = &KaratValuation{Karat: prod.Karat}
			byKarat[prod.Karat] = k
		}
		k.Items += prod.Quantity
		k.WeightGrams = k.WeightGrams.Add(prod.WeightGrams.Mul(qty))
		k.GoldValue = k.GoldValue.Add(bd.GoldValue.Mul(qty))
		k.WageValue = k.WageValue.Add(bd.Wage.Mul(qty))
		k.StoneValue = k.StoneValue.Add(bd.Stone.Mul(qty))
		k.Value = k.Value.Add(bd.Total)
	}

	v.Karats = make([]KaratValuation, 0, len(byKarat))
	for _, k := range byKarat {
		v.Karats = append(v.Karats, *k)
		v.TotalItems += k.Items
		v.TotalWeight = v.TotalWeight.Add(k.WeightGrams)
		v.TotalValue = v.TotalValue.Add(k.Value)
	}
	sort.Slice(v.Karats, func(i, j int) bool { return v.Karats[i].Karat < v.Karats[j].Karat })

	v.TotalValueDisplay = persian.HumanToman(v.TotalValue)
	return v, nil
}

func (svc *service) InstallmentsDue(ctx context.Context, days int) (InstallmentsDue, error) {
	if days <= 0 {
		days = 7
	}
	insts, err := svc.repo.OpenInstallments(ctx)
	if err != nil {
		return InstallmentsDue{}, errors.Wrap(err, "loading installments")
	}

	now := time.Now().In(tehran)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tehran)
	horizon := today.AddDate(0, 0, days)

	d := InstallmentsDue{Days: days}
	for _, inst := range insts {
		inst.AmountDisplay = persian.FormatToman(inst.Amount)
		switch {
		case inst.DueDate.Before(today):
			d.Overdue = append(d.Overdue, inst)
			d.OverdueTotal = d.OverdueTotal.Add(inst.Amount)
		case inst.DueDate.Before(horizon):
			d.Upcoming = append(d.Upcoming, inst)
			d.UpcomingTotal = d.UpcomingTotal.Add(inst.Amount)
		}
	}
	sort.Slice(d.Overdue, func(i, j int) bool { return d.Overdue[i].DueDate.Before(d.Overdue[j].DueDate) })
	sort.Slice(d.Upcoming, func(i, j int) bool { return d.Upcoming[i].DueDate.Before(d.Upcoming[j].DueDate) })
	return d, nil
}

// Overview assembles the dashboard in one shot, the three reports
// loading concurrently.
func (svc *service) Overview(ctx context.Context) (Overview, error) {
	now := time.Now().In(tehran)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, tehran)

	o := Overview{GeneratedAt: now.UTC()}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		o.Sales, err = svc.SalesSummary(ctx, today.AddDate(0, 0, -29), today.AddDate(0, 0, 1))
		return err
	})
	g.Go(func() (err error) {
		o.Inventory, err = svc.InventoryValuation(ctx)
		return err
	})
	g.Go(func() (err error) {
		o.Due, err = svc.InstallmentsDue(ctx, 7)
		return err
	})
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return o, nil
}
