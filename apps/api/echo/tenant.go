package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
)

type tenantApi struct {
	svc      tenant.Service
	validate *validator.Validate
}

func registerTenantAPI(g *echo.Group, auth []echo.MiddlewareFunc, svc tenant.Service, validate *validator.Validate) {
	api := tenantApi{
		svc:      svc,
		validate: validate,
	}

	tg := g.Group("/tenants", auth...)
	tg.Use(superMiddleware())

	// registration and lifecycle are super:admin; support reads along
	adminOnly := superMiddleware(user.RoleSuperAdmin)
	tg.POST("", api.create, adminOnly)
	tg.GET("", api.query)
	tg.GET("/:id", api.retrieve)
	tg.PUT("/:id", api.update, adminOnly)
	tg.POST("/:id/provision", api.provision, adminOnly)
	tg.POST("/:id/activate", api.activate, adminOnly)
	tg.POST("/:id/deactivate", api.deactivate, adminOnly)
}

// Handlers

func (api *tenantApi) create(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var data tenant.NewTenant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTenant")
	}
	if err := data.Validate(reqCtx, api.validate, api.svc); err != nil {
		return err
	}

	tnt, err := api.svc.Create(reqCtx, data)
	if err != nil {
		return errors.Wrap(err, "creating tenant")
	}

	return ctx.JSON(http.StatusCreated, tnt)
}

func (api *tenantApi) query(ctx echo.Context) error {
	filter := new(tenant.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []tenant.Tenant{})
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	tenants, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying tenants")
	}
	if tenants == nil {
		tenants = []tenant.Tenant{}
	}
	return ctx.JSON(http.StatusOK, tenants)
}

func (api *tenantApi) retrieve(ctx echo.Context) error {
	tnt, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding tenant by ID")
	}
	return ctx.JSON(http.StatusOK, tnt)
}

func (api *tenantApi) update(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	tnt, err := api.svc.GetByID(reqCtx, ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding tenant by ID")
	}

	var data tenant.UpdateTenant
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateTenant")
	}
	if err := data.Validate(tnt, api.validate); err != nil {
		return err
	}

	tnt, err = api.svc.Update(reqCtx, tnt.ID, data)
	if err != nil {
		return errors.Wrap(err, "updating tenant")
	}

	return ctx.JSON(http.StatusOK, tnt)
}

// provision (re-)runs schema setup for the tenant; safe to repeat.
func (api *tenantApi) provision(ctx echo.Context) error {
	if err := api.svc.Provision(ctx.Request().Context(), ctx.Param("id")); err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "provisioning tenant")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *tenantApi) activate(ctx echo.Context) error {
	return api.setActive(ctx, true)
}

func (api *tenantApi) deactivate(ctx echo.Context) error {
	return api.setActive(ctx, false)
}

func (api *tenantApi) setActive(ctx echo.Context, active bool) error {
	tnt, err := api.svc.SetActive(ctx.Request().Context(), ctx.Param("id"), active)
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "setting tenant active state")
	}
	return ctx.JSON(http.StatusOK, tnt)
}
