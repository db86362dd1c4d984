package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/hijack"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
)

type hijackApi struct {
	conf      *core.Config
	svc       hijack.Service
	tenantSvc tenant.Service
	userSvc   user.Service
	validate  *validator.Validate
}

func registerHijackAPI(
	g *echo.Group,
	auth []echo.MiddlewareFunc,
	conf *core.Config,
	svc hijack.Service,
	tenantSvc tenant.Service,
	userSvc user.Service,
	validate *validator.Validate,
) {
	api := hijackApi{
		conf:      conf,
		svc:       svc,
		tenantSvc: tenantSvc,
		userSvc:   userSvc,
		validate:  validate,
	}

	hg := g.Group("/hijack", auth...)
	hg.Use(superMiddleware())

	hg.POST("", api.start, superMiddleware(user.RoleSuperAdmin))
	hg.GET("", api.query)
	hg.GET("/:id", api.retrieve)
	hg.POST("/:id/release", api.release)
	hg.POST("/:id/revoke", api.revoke, superMiddleware(user.RoleSuperAdmin))
}

type HijackResponse struct {
	Session hijack.Session `json:"session"`
	Token   string         `json:"token"`
}

// Handlers

func (api *hijackApi) start(ctx echo.Context) error {
	reqCtx := ctx.Request().Context()

	var data hijack.StartHijack
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to StartHijack")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	superAdmin, err := getContextUser(ctx, api.userSvc)
	if err != nil {
		return errors.Wrap(err, "getting context user")
	}

	s, target, err := api.svc.Start(reqCtx, superAdmin, data, ctx.RealIP(), ctx.Request().UserAgent())
	if err != nil {
		return errors.Wrap(err, "starting hijack session")
	}

	tnt, err := api.tenantSvc.GetByID(reqCtx, s.TenantID)
	if err != nil {
		return errors.Wrap(err, "finding hijacked tenant")
	}

	token, err := GenerateToken(api.conf, GetHijackClaims(api.conf, target, tnt, s))
	if err != nil {
		return errors.Wrap(err, "generating hijack token")
	}

	return ctx.JSON(http.StatusCreated, HijackResponse{Session: s, Token: token})
}

func (api *hijackApi) query(ctx echo.Context) error {
	filter := new(hijack.QueryFilter)
	if err := ctx.Bind(filter); err != nil {
		return ctx.JSON(http.StatusOK, []hijack.Session{})
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	sessions, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Orderings)
	if err != nil {
		return errors.Wrap(err, "querying hijack sessions")
	}
	if sessions == nil {
		sessions = []hijack.Session{}
	}
	return ctx.JSON(http.StatusOK, sessions)
}

func (api *hijackApi) retrieve(ctx echo.Context) error {
	s, err := api.svc.Get(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == hijack.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "finding hijack session")
	}
	return ctx.JSON(http.StatusOK, s)
}

// release ends the caller's own session; revoking someone else's needs
// super:admin via revoke.
func (api *hijackApi) release(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return err
	}

	s, err := api.svc.Release(ctx.Request().Context(), ctx.Param("id"), claims.Subject)
	if err != nil {
		if errors.Cause(err) == hijack.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "releasing hijack session")
	}
	return ctx.JSON(http.StatusOK, s)
}

func (api *hijackApi) revoke(ctx echo.Context) error {
	s, err := api.svc.Revoke(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		if errors.Cause(err) == hijack.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "revoking hijack session")
	}
	return ctx.JSON(http.StatusOK, s)
}
