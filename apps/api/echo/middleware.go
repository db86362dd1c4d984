package echoapi

import (
	"net"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/hijack"
	"github.com/zargarco/zargar/core/tenant"
)

// tenantHeader overrides Host-based resolution; handy for dev setups and
// scan stations that talk to the API host directly.
const tenantHeader = "X-Tenant"

// tenantMiddleware resolves the shop for the request from the X-Tenant
// header or the Host subdomain and stashes it on the request context.
// Requests naming no shop pass through to the platform realm.
func tenantMiddleware(conf *core.Config, svc tenant.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sub := requestSubdomain(ctx, conf)
			if sub == "" {
				return next(ctx)
			}

			tnt, err := svc.GetBySubdomain(ctx.Request().Context(), sub)
			if err != nil {
				if errors.Cause(err) == tenant.ErrNotFound {
					return errUnknownTenant
				}
				return errors.Wrap(err, "resolving tenant")
			}
			if !tnt.Active() {
				return errTenantDeactivated
			}

			req := ctx.Request()
			ctx.SetRequest(req.WithContext(tenant.WithTenant(req.Context(), tnt)))
			return next(ctx)
		}
	}
}

func requestSubdomain(ctx echo.Context, conf *core.Config) string {
	if sub := ctx.Request().Header.Get(tenantHeader); sub != "" {
		return strings.ToLower(strings.TrimSpace(sub))
	}

	host := ctx.Request().Host
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	if suffix := "." + conf.BaseDomain; strings.HasSuffix(host, suffix) {
		return strings.TrimSuffix(host, suffix)
	}
	return ""
}

// claimsTenantMiddleware rejects tokens presented outside the realm they
// were minted for. Superadmins reach a shop only through a hijack token.
func claimsTenantMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}

			tnt, _ := tenant.FromContext(ctx.Request().Context())
			if claims.TenantID != tnt.ID {
				return errTokenWrongTenant
			}
			return next(ctx)
		}
	}
}

// hijackVerifyMiddleware re-checks the audit session behind a hijack token
// on every request, so releasing or revoking it cuts access immediately.
func hijackVerifyMiddleware(svc hijack.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if !claims.Hijacked() {
				return next(ctx)
			}

			if _, err = svc.Verify(ctx.Request().Context(), claims.HijackSessionID); err != nil {
				switch errors.Cause(err) {
				case hijack.ErrNotFound, hijack.ErrSessionEnded:
					return errHijackSessionEnded
				}
				return errors.Wrap(err, "verifying hijack session")
			}
			return next(ctx)
		}
	}
}

// managerMiddleware restricts an endpoint to shop owners and managers,
// optionally narrowed to specific roles.
func managerMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsManager && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// superMiddleware restricts an endpoint to platform operators.
func superMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsSuper && contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// userAdminMiddleware gates user administration: shop managers run their
// staff, platform operators run platform accounts. The realm split itself
// is enforced by claimsTenantMiddleware.
func userAdminMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context claims")
			}
			if claims.IsManager || claims.IsSuper {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}

// roleMiddleware restricts an endpoint to the given roles, whatever their
// realm.
func roleMiddleware(roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			if contextHasAnyRole(ctx, roles) {
				return next(ctx)
			}
			return errHttpForbidden
		}
	}
}
