package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/pos"
)

type posApi struct {
	svc      pos.Service
	validate *validator.Validate
}

func registerPOSAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc pos.Service, validate *validator.Validate) {
	api := posApi{
		svc:      svc,
		validate: validate,
	}

	pg := g.Group("/pos", auth...)
	pg.POST("/quote", api.quote)
	pg.POST("/quick-sale", api.quickSale)
	pg.GET("/receipt/:id", api.receipt)
}

// Handlers

func (api *posApi) quote(ctx echo.Context) error {
	var data pos.QuoteRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuoteRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	q, err := api.svc.Quote(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "pricing quote")
	}
	return ctx.JSON(http.StatusOK, q)
}

func (api *posApi) quickSale(ctx echo.Context) error {
	var data pos.QuickSaleRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to QuickSaleRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	sale, err := api.svc.QuickSale(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "running quick sale")
	}
	return ctx.JSON(http.StatusCreated, sale)
}

func (api *posApi) receipt(ctx echo.Context) error {
	rcpt, err := api.svc.Receipt(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "building receipt")
	}
	return ctx.JSON(http.StatusOK, rcpt)
}
