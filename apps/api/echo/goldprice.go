package echoapi

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core/goldprice"
)

type goldPriceApi struct {
	svc      goldprice.Service
	validate *validator.Validate
}

func registerGoldPriceAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc goldprice.Service, validate *validator.Validate) {
	api := goldPriceApi{
		svc:      svc,
		validate: validate,
	}

	gg := g.Group("/gold-price", auth...)
	gg.POST("", api.set, managerMiddleware())
	gg.GET("", api.latest)
	gg.GET("/history", api.history)
}

// Handlers

func (api *goldPriceApi) set(ctx echo.Context) error {
	var data goldprice.SetGoldPrice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to SetGoldPrice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	gp, err := api.svc.Set(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "setting gold price")
	}
	return ctx.JSON(http.StatusCreated, gp)
}

func (api *goldPriceApi) latest(ctx echo.Context) error {
	gp, err := api.svc.Latest(ctx.Request().Context())
	if err != nil {
		if errors.Cause(err) == goldprice.ErrNoPrice {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting latest gold price")
	}
	return ctx.JSON(http.StatusOK, gp)
}

type priceHistoryRequest struct {
	From time.Time `query:"from"`
	To   time.Time `query:"to"`
}

func (api *goldPriceApi) history(ctx echo.Context) error {
	// zero bounds are open ended
	var query priceHistoryRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to priceHistoryRequest")
	}

	prices, err := api.svc.History(ctx.Request().Context(), query.From, query.To)
	if err != nil {
		return errors.Wrap(err, "querying gold price history")
	}
	if prices == nil {
		prices = []goldprice.GoldPrice{}
	}
	return ctx.JSON(http.StatusOK, prices)
}
