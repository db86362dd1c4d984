package echoapi

import (
	"context"
	"sort"
	"time"

	"github.com/dgrijalva/jwt-go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/hijack"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
)

var (
	jwtContextKey  = "userToken"
	contextUserKey = "user"
)

// appJWTConfig returns the JWT auth middleware config for the signing key in conf.
func appJWTConfig(conf *core.Config) middleware.JWTConfig {
	return middleware.JWTConfig{
		SigningKey:    []byte(conf.SecretKey),
		SigningMethod: middleware.AlgorithmHS256,
		ContextKey:    jwtContextKey,
		Claims:        new(Claims),
	}
}

// Claims represents the authorization claims transmitted via a JWT.
// Tenant tokens carry the shop they were minted for; hijack tokens
// additionally carry their audit session and the superadmin behind it.
type Claims struct {
	jwt.StandardClaims
	OrigIssuedAt    int64    `json:"oriat,omitempty"`
	Username        string   `json:"username,omitempty"`
	Email           string   `json:"email,omitempty"`
	TenantID        string   `json:"tenant_id,omitempty"`
	Schema          string   `json:"schema,omitempty"`
	IsSuper         bool     `json:"is_super,omitempty"`   // -> PLATFORM CONSOLE
	IsManager       bool     `json:"is_manager,omitempty"` // -> SHOP ADMIN
	Roles           []string `json:"roles,omitempty"`
	HijackSessionID string   `json:"hijack_sid,omitempty"`
	HijackedBy      string   `json:"hijacked_by,omitempty"`
}

func (c *Claims) Hijacked() bool { return c.HijackSessionID != "" }

func GetUserClaims(conf *core.Config, usr user.User, tnt tenant.Tenant, origIat ...int64) *Claims {
	now := time.Now()
	nownix := now.Unix()

	var oriat int64
	if len(origIat) > 0 {
		oriat = origIat[0]
	} else {
		oriat = nownix
	}

	claims := &Claims{
		StandardClaims: jwt.StandardClaims{
			Issuer:    conf.AppName,
			Subject:   usr.ID,
			Audience:  tokenAudience(tnt),
			ExpiresAt: now.Add(conf.Server.JWTExpirationDelta).Unix(),
			IssuedAt:  nownix,
		},
		OrigIssuedAt: oriat,
		Username:     usr.Username,
		Email:        usr.Email,
		TenantID:     tnt.ID,
		Schema:       tnt.SchemaName,
		IsSuper:      usr.IsSuper(),
		IsManager:    usr.IsManager(),
		Roles:        usr.Roles,
	}
	return claims
}

// GetHijackClaims mints claims for the hijack target, pinned to the tenant
// and capped at the session TTL.
func GetHijackClaims(conf *core.Config, target user.User, tnt tenant.Tenant, s hijack.Session) *Claims {
	claims := GetUserClaims(conf, target, tnt)
	claims.ExpiresAt = s.ExpiresAt.Unix()
	claims.HijackSessionID = s.ID
	claims.HijackedBy = s.SuperAdminID
	return claims
}

func tokenAudience(tnt tenant.Tenant) string {
	if tnt.Subdomain != "" {
		return tnt.Subdomain
	}
	return "platform"
}

// authenticate checks credentials against the realm on ctx: the resolved
// shop's staff, or platform operators when no shop was resolved.
func authenticate(ctx context.Context, conf *core.Config, uname, pwd string, svc user.Service) (*Claims, error) {
	usr, err := svc.GetByUsernameOrEmail(ctx, uname)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding user by username or email")
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if usr.IsActive != nil && !*usr.IsActive {
		return nil, errAccountDeactivated
	}
	usr, err = svc.SetLastLogin(ctx, usr)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	tnt, _ := tenant.FromContext(ctx)
	return GetUserClaims(conf, usr, tnt), nil
}

// GenerateToken generates a signed JWT token string representing the user Claims.
func GenerateToken(conf *core.Config, claims *Claims) (string, error) {
	method := jwt.GetSigningMethod(middleware.AlgorithmHS256)
	token := jwt.NewWithClaims(method, claims)

	ss, err := token.SignedString([]byte(conf.SecretKey))
	if err != nil {
		return "", errors.New("signing token")
	}
	return ss, nil
}

func getContextClaims(ctx echo.Context) (Claims, error) {
	if token, ok := ctx.Get(jwtContextKey).(*jwt.Token); ok {
		if claims, ok := token.Claims.(*Claims); ok {
			return *claims, nil
		}
	}
	return Claims{}, errUnauthorized
}

func getContextUser(ctx echo.Context, svc user.Service, clms ...Claims) (user.User, error) {
	if usr, ok := ctx.Get(contextUserKey).(user.User); ok {
		return usr, nil
	}

	var claims Claims
	var err error
	if len(clms) > 0 {
		claims = clms[0]
	} else {
		claims, err = getContextClaims(ctx)
		if err != nil {
			return user.User{}, errors.Wrap(err, "getting context claims")
		}
	}

	usr, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		return user.User{}, errors.Wrap(err, "finding user by ID")
	}
	ctx.Set(contextUserKey, usr)
	return usr, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		sort.Strings(claims.Roles)
		for _, role := range roles {
			if i := sort.SearchStrings(claims.Roles, role); i < len(claims.Roles) {
				if match := claims.Roles[i]; role == match {
					return true
				}
			}
		}
	}
	return false
}

func refreshToken(ctx echo.Context, conf *core.Config, svc user.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	// hijack tokens live and die with their session
	if claims.Hijacked() {
		return "", errHttpForbidden
	}

	usr, err := getContextUser(ctx, svc, claims)
	if err != nil {
		return "", errors.Wrap(err, "getting context user")
	}

	// check if user is still active
	if usr.IsActive != nil && !*usr.IsActive {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(conf.Server.JWTRefreshExpirationDelta)
	if time.Now().After(expTime) {
		return "", errRefreshExpired
	}

	tnt, _ := tenant.FromContext(ctx.Request().Context())
	newClaims := GetUserClaims(conf, usr, tnt, claims.OrigIssuedAt)
	token, err := GenerateToken(conf, newClaims)
	return token, errors.Wrap(err, "generating token")
}
