package echoapi

import (
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core/invoice"
)

type invoiceApi struct {
	svc      invoice.Service
	validate *validator.Validate
}

func registerInvoiceAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc invoice.Service, validate *validator.Validate) {
	api := invoiceApi{
		svc:      svc,
		validate: validate,
	}

	ig := g.Group("/invoices", auth...)
	ig.POST("", api.create)
	ig.GET("", api.query)
	ig.GET("/:id", api.retrieve)
	ig.PUT("/:id", api.update)
	ig.DELETE("/:id", api.destroy)
	ig.POST("/:id/issue", api.issue)
	ig.POST("/:id/cancel", api.cancel)
	ig.POST("/:id/payments", api.addPayment)
	ig.GET("/:id/payments", api.payments)
	ig.POST("/:id/installment-plan", api.createPlan)

	plg := g.Group("/installment-plans", auth...)
	plg.GET("/:id", api.retrievePlan)
	plg.POST("/:id/installments/:seq/pay", api.payInstallment)
	plg.POST("/:id/cancel", api.cancelPlan)
}

// Invoice handlers

func (api *invoiceApi) create(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var data invoice.NewInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	inv, err := api.svc.Create(reqCtx, data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating invoice")
	}
	return ctx.JSON(http.StatusCreated, inv)
}

func (api *invoiceApi) query(ctx echo.Context) error {
	filter := new(invoice.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []invoice.Invoice{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	invs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying invoices")
	}
	if invs == nil {
		invs = []invoice.Invoice{}
	}
	return ctx.JSON(http.StatusOK, invs)
}

// retrieve returns the invoice with its lines, payments and outstanding
// balance.
func (api *invoiceApi) retrieve(ctx echo.Context) error {
	detail, err := api.svc.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding invoice by ID")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *invoiceApi) update(ctx echo.Context) error {
	var data invoice.UpdateInvoice
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateInvoice")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	inv, err := api.svc.UpdateDraft(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "updating invoice draft")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteDraft(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "deleting invoice draft")
	}
	return ctx.NoContent(http.StatusNoContent)
}

type issueInvoiceRequest struct {
	// PricePerGram pins the gold price for this invoice; unset means the
	// latest board price at issue time.
	PricePerGram decimal.NullDecimal `json:"price_per_gram"`
}

func (api *invoiceApi) issue(ctx echo.Context) error {
	var data issueInvoiceRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to issueInvoiceRequest")
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	inv, err := api.svc.Issue(ctx.Request().Context(), ctx.Param("id"), data.PricePerGram, claims.Subject)
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "issuing invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

func (api *invoiceApi) cancel(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	inv, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "cancelling invoice")
	}
	return ctx.JSON(http.StatusOK, inv)
}

// Payment handlers

func (api *invoiceApi) addPayment(ctx echo.Context) error {
	var data invoice.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	pmt, err := api.svc.AddPayment(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "adding payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *invoiceApi) payments(ctx echo.Context) error {
	pmts, err := api.svc.Payments(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "querying payments")
	}
	if pmts == nil {
		pmts = []invoice.Payment{}
	}
	return ctx.JSON(http.StatusOK, pmts)
}

// Installment plan handlers

func (api *invoiceApi) createPlan(ctx echo.Context) error {
	var data invoice.NewInstallmentPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewInstallmentPlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	plan, err := api.svc.CreateInstallmentPlan(ctx.Request().Context(), ctx.Param("id"), data, claims.Subject)
	if err != nil {
		if errors.Cause(err) == invoice.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "creating installment plan")
	}
	return ctx.JSON(http.StatusCreated, plan)
}

func (api *invoiceApi) retrievePlan(ctx echo.Context) error {
	plan, err := api.svc.GetPlan(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrPlanNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding installment plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *invoiceApi) payInstallment(ctx echo.Context) error {
	seq, err := strconv.Atoi(ctx.Param("seq"))
	if err != nil {
		return errHttpNotFound
	}

	var data invoice.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	inst, err := api.svc.PayInstallment(ctx.Request().Context(), ctx.Param("id"), seq, data, claims.Subject)
	if err != nil {
		cause := errors.Cause(err)
		if cause == invoice.ErrPlanNotFound || cause == invoice.ErrInstallmentNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "paying installment")
	}
	return ctx.JSON(http.StatusOK, inst)
}

func (api *invoiceApi) cancelPlan(ctx echo.Context) error {
	plan, err := api.svc.CancelPlan(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == invoice.ErrPlanNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "cancelling installment plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}
