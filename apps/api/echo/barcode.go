package echoapi

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core/barcode"
)

type barcodeApi struct {
	svc barcode.Service
}

func registerBarcodeAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc barcode.Service) {
	api := barcodeApi{svc: svc}

	bg := g.Group("/barcodes", auth...)
	bg.POST("/products/:id", api.issueForProduct)
	bg.POST("/invoices/:id", api.issueForInvoice)
	bg.GET("/:code", api.resolve)
	bg.GET("/:code/png", api.png)
	bg.GET("/:code/scans", api.scans)
	bg.POST("/:code/revoke", api.revoke, managerMiddleware())
}

// Handlers

func (api *barcodeApi) issueForProduct(ctx echo.Context) error {
	b, err := api.svc.IssueForProduct(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "issuing product barcode")
	}
	return ctx.JSON(http.StatusCreated, b)
}

func (api *barcodeApi) issueForInvoice(ctx echo.Context) error {
	b, err := api.svc.IssueForInvoice(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "issuing invoice barcode")
	}
	return ctx.JSON(http.StatusCreated, b)
}

// resolve is what scan stations hit; the station name lands in the scan
// log.
func (api *barcodeApi) resolve(ctx echo.Context) error {
	res, err := api.svc.Resolve(ctx.Request().Context(), ctx.Param("code"), ctx.QueryParam("station"))
	if err != nil {
		if errors.Cause(err) == barcode.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "resolving barcode")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *barcodeApi) png(ctx echo.Context) error {
	size, _ := strconv.Atoi(ctx.QueryParam("size"))

	png, err := api.svc.PNG(ctx.Request().Context(), ctx.Param("code"), size)
	if err != nil {
		if errors.Cause(err) == barcode.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "rendering barcode PNG")
	}
	return ctx.Blob(http.StatusOK, "image/png", png)
}

func (api *barcodeApi) scans(ctx echo.Context) error {
	scans, err := api.svc.Scans(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		if errors.Cause(err) == barcode.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying barcode scans")
	}
	if scans == nil {
		scans = []barcode.ScanEvent{}
	}
	return ctx.JSON(http.StatusOK, scans)
}

func (api *barcodeApi) revoke(ctx echo.Context) error {
	b, err := api.svc.Revoke(ctx.Request().Context(), ctx.Param("code"))
	if err != nil {
		if errors.Cause(err) == barcode.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "revoking barcode")
	}
	return ctx.JSON(http.StatusOK, b)
}
