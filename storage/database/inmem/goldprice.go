package inmemdb

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/goldprice"
)

type goldPriceRepository struct {
	db *goldPriceTable
}

var _ goldprice.Repository = (*goldPriceRepository)(nil) // interface compliance check

func NewGoldPriceRepository(db *DB) *goldPriceRepository {
	return &goldPriceRepository{db: db.goldPrice}
}

func (repo *goldPriceRepository) query(schema string) []goldprice.GoldPrice {
	rows := repo.db.table[schema]
	prices := make([]goldprice.GoldPrice, 0, len(rows))
	for _, gp := range rows {
		prices = append(prices, *gp)
	}
	// newest first
	sort.SliceStable(prices, func(i, j int) bool {
		if !prices[i].At.Equal(prices[j].At) {
			return prices[i].At.After(prices[j].At)
		}
		return prices[i].ID < prices[j].ID
	})
	return prices
}

func (repo *goldPriceRepository) CreateGoldPrice(ctx context.Context, gp goldprice.GoldPrice, _ ...core.DBExecutor) (goldprice.GoldPrice, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return goldprice.GoldPrice{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	gp.ID = uuid.New().String()
	rows, ok := repo.db.table[schema]
	if !ok {
		rows = make(map[string]*goldprice.GoldPrice)
		repo.db.table[schema] = rows
	}
	rows[gp.ID] = &gp
	return gp, nil
}

func (repo *goldPriceRepository) LatestGoldPrice(ctx context.Context, _ ...core.DBExecutor) (goldprice.GoldPrice, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return goldprice.GoldPrice{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	prices := repo.query(schema)
	if len(prices) == 0 {
		return goldprice.GoldPrice{}, goldprice.ErrNoPrice
	}
	return prices[0], nil
}

func (repo *goldPriceRepository) QueryGoldPrices(ctx context.Context, from, to time.Time, _ ...core.DBExecutor) ([]goldprice.GoldPrice, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	prices := repo.query(schema)
	filtered := prices[:0]
	for _, gp := range prices {
		if !from.IsZero() && gp.At.Before(from.UTC()) {
			continue
		}
		if !to.IsZero() && !gp.At.Before(to.UTC()) {
			continue
		}
		filtered = append(filtered, gp)
	}
	return filtered, nil
}
