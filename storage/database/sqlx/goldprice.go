package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/goldprice"
)

type goldPriceRow struct {
	ID           string          `db:"id"`
	PricePerGram decimal.Decimal `db:"price_per_gram"`
	Source       string          `db:"source"`
	At           time.Time       `db:"at"`
	ByUserID     null.String     `db:"by_user_id"`
}

var goldPriceColumns = []string{"id", "price_per_gram", "source", "at", "by_user_id"}

type goldPriceRepository struct {
	db core.DBExecutor
}

var _ goldprice.Repository = (*goldPriceRepository)(nil) // interface compliance check

func NewGoldPriceRepository(db core.DBExecutor) *goldPriceRepository {
	return &goldPriceRepository{db: db}
}

func (repo goldPriceRepository) unpack(r goldPriceRow) goldprice.GoldPrice {
	return goldprice.GoldPrice{
		ID:           r.ID,
		PricePerGram: r.PricePerGram,
		Source:       r.Source,
		At:           r.At,
		ByUserID:     r.ByUserID.String,
	}
}

func (repo goldPriceRepository) CreateGoldPrice(ctx context.Context, gp goldprice.GoldPrice, exec ...core.DBExecutor) (goldprice.GoldPrice, error) {
	table, err := tenantTable(ctx, "gold_price")
	if err != nil {
		return goldprice.GoldPrice{}, err
	}

	gp.ID = uuid.New().String()
	query, args, err := psql.Insert(table).
		Columns(goldPriceColumns...).
		Values(gp.ID, gp.PricePerGram, gp.Source, gp.At.UTC(), null.NewString(gp.ByUserID, gp.ByUserID != "")).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return goldprice.GoldPrice{}, errors.Wrap(err, "building query")
	}

	var saved goldPriceRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return goldprice.GoldPrice{}, errors.Wrap(err, "inserting gold price")
	}
	return repo.unpack(saved), nil
}

func (repo goldPriceRepository) LatestGoldPrice(ctx context.Context, exec ...core.DBExecutor) (goldprice.GoldPrice, error) {
	table, err := tenantTable(ctx, "gold_price")
	if err != nil {
		return goldprice.GoldPrice{}, err
	}

	query, args, err := psql.Select(goldPriceColumns...).From(table).
		OrderBy("at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return goldprice.GoldPrice{}, errors.Wrap(err, "building query")
	}
	var r goldPriceRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return goldprice.GoldPrice{}, trapNoRowsErr(err, goldprice.ErrNoPrice, "finding latest gold price")
	}
	return repo.unpack(r), nil
}

func (repo goldPriceRepository) QueryGoldPrices(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]goldprice.GoldPrice, error) {
	table, err := tenantTable(ctx, "gold_price")
	if err != nil {
		return nil, err
	}

	q := psql.Select(goldPriceColumns...).From(table)
	if !from.IsZero() {
		q = q.Where(sq.GtOrEq{"at": from.UTC()})
	}
	if !to.IsZero() {
		q = q.Where(sq.Lt{"at": to.UTC()})
	}
	q = q.OrderBy("at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []goldPriceRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying gold prices")
	}

	prices := make([]goldprice.GoldPrice, 0, len(rows))
	for _, r := range rows {
		prices = append(prices, repo.unpack(r))
	}
	return prices, nil
}
