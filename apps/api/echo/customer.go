package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core/customer"
)

type customerApi struct {
	svc      customer.Service
	validate *validator.Validate
}

func registerCustomerAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc customer.Service, validate *validator.Validate) {
	api := customerApi{
		svc:      svc,
		validate: validate,
	}

	cg := g.Group("/customers", auth...)
	cg.POST("", api.create)
	cg.GET("", api.query)
	cg.GET("/:id", api.retrieve)
	cg.PUT("/:id", api.update)
	cg.DELETE("/:id", api.destroy, managerMiddleware())
	cg.DELETE("", api.destroyMultiple, managerMiddleware())
}

// Handlers

func (api *customerApi) create(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var data customer.NewCustomer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewCustomer")
	}
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	cust, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating customer")
	}
	return ctx.JSON(http.StatusCreated, cust)
}

func (api *customerApi) query(ctx echo.Context) error {
	filter := new(customer.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []customer.Customer{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	custs, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying customers")
	}
	if custs == nil {
		custs = []customer.Customer{}
	}
	return ctx.JSON(http.StatusOK, custs)
}

// retrieve returns the customer with their running balance and installment
// summary, what the POS screen shows when a customer is pulled up.
func (api *customerApi) retrieve(ctx echo.Context) error {
	detail, err := api.svc.GetDetail(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == customer.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding customer by ID")
	}
	return ctx.JSON(http.StatusOK, detail)
}

func (api *customerApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	cust, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == customer.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding customer by ID")
	}

	var data customer.UpdateCustomer
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateCustomer")
	}
	if err := data.Validate(reqCtx, cust, api.validate, api.svc); err != nil {
		return err
	}

	cust, err = api.svc.Update(reqCtx, cust.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating customer")
	}
	return ctx.JSON(http.StatusOK, cust)
}

func (api *customerApi) destroy(ctx echo.Context) error {
	if err := api.svc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting customer")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *customerApi) destroyMultiple(ctx echo.Context) error {
	var query DestroyMultipleRequest
	if err := ctx.Bind(&query); err != nil {
		return errors.Wrap(err, "binding to DestroyMultipleRequest")
	}
	if query.IDs == nil {
		return ctx.NoContent(http.StatusNoContent)
	}

	if err := api.svc.Delete(ctx.Request().Context(), query.IDs...); err != nil {
		return errors.Wrap(err, "deleting customers")
	}
	return ctx.NoContent(http.StatusNoContent)
}
