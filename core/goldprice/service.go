package goldprice

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
)

// ErrNoPrice is returned while no price has been set for the tenant yet.
var ErrNoPrice = errors.New("no gold price has been set")

type (
	Repository interface {
		CreateGoldPrice(ctx context.Context, gp GoldPrice, exec ...core.DBExecutor) (GoldPrice, error)
		// LatestGoldPrice returns ErrNoPrice on an empty board.
		LatestGoldPrice(ctx context.Context, exec ...core.DBExecutor) (GoldPrice, error)
		QueryGoldPrices(ctx context.Context, from, to time.Time, exec ...core.DBExecutor) ([]GoldPrice, error)
	}

	Service interface {
		Set(ctx context.Context, sp SetGoldPrice, byUserID string) (GoldPrice, error)
		Latest(ctx context.Context) (GoldPrice, error)
		History(ctx context.Context, from, to time.Time) ([]GoldPrice, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Set(ctx context.Context, sp SetGoldPrice, byUserID string) (GoldPrice, error) {
	return svc.repo.CreateGoldPrice(ctx, GoldPrice{
		PricePerGram: sp.PricePerGram,
		Source:       sp.Source,
		At:           time.Now().UTC(),
		ByUserID:     byUserID,
	})
}

func (svc *service) Latest(ctx context.Context) (GoldPrice, error) {
	return svc.repo.LatestGoldPrice(ctx)
}

func (svc *service) History(ctx context.Context, from, to time.Time) ([]GoldPrice, error) {
	return svc.repo.QueryGoldPrices(ctx, from, to)
}
