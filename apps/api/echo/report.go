package echoapi

import (
	"io"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core/report"
	"github.com/zargarco/zargar/core/user"
)

type reportApi struct {
	svc report.Service
}

func registerReportAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc report.Service) {
	api := reportApi{svc: svc}

	rg := g.Group("/reports", auth...)
	rg.Use(roleMiddleware(user.RoleShopOwner, user.RoleShopManager, user.RoleShopAccountant))

	rg.GET("/sales", api.sales)
	rg.GET("/inventory", api.inventory)
	rg.GET("/installments", api.installments)
	rg.GET("/overview", api.overview)
}

type (
	salesReportRequest struct {
		From time.Time `query:"from"`
		To   time.Time `query:"to"`
	}

	installmentsReportRequest struct {
		Days int `query:"days"`
	}
)

// Handlers

func (api *reportApi) sales(ctx echo.Context) error {
	var query salesReportRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to salesReportRequest")
	}
	// default to the trailing 30 days
	if query.To.IsZero() {
		query.To = time.Now().UTC()
	}
	if query.From.IsZero() {
		query.From = query.To.AddDate(0, 0, -30)
	}

	s, err := api.svc.SalesSummary(ctx.Request().Context(), query.From, query.To)
	if err != nil {
		return errors.Wrap(err, "building sales summary")
	}

	if csvRequested(ctx) {
		return writeCSV(ctx, "sales.csv", s)
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *reportApi) inventory(ctx echo.Context) error {
	v, err := api.svc.InventoryValuation(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building inventory valuation")
	}

	if csvRequested(ctx) {
		return writeCSV(ctx, "inventory.csv", v)
	}
	return ctx.JSON(http.StatusOK, v)
}

func (api *reportApi) installments(ctx echo.Context) error {
	var query installmentsReportRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to installmentsReportRequest")
	}

	d, err := api.svc.InstallmentsDue(ctx.Request().Context(), query.Days)
	if err != nil {
		return errors.Wrap(err, "building installments due")
	}

	if csvRequested(ctx) {
		return writeCSV(ctx, "installments.csv", d)
	}
	return ctx.JSON(http.StatusOK, d)
}

func (api *reportApi) overview(ctx echo.Context) error {
	o, err := api.svc.Overview(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "building overview")
	}
	return ctx.JSON(http.StatusOK, o)
}

type csvWriter interface {
	WriteCSV(w io.Writer) error
}

func writeCSV(ctx echo.Context, filename string, data csvWriter) error {
	res := ctx.Response()
	res.Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	res.Header().Set(echo.HeaderContentDisposition, `attachment; filename="`+filename+`"`)
	res.WriteHeader(http.StatusOK)
	return data.WriteCSV(res)
}
