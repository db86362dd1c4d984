package hijack

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
)

var (
	ErrNotFound      = errors.New("hijack session not found")
	ErrSessionEnded  = errors.New("hijack session has ended")
	ErrActiveExists  = errors.New("an active hijack session for this tenant already exists")
	ErrNotSuperAdmin = errors.New("only superadmins may hijack")
)

type (
	Repository interface {
		CreateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
		GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (Session, error)
		// GetActiveSession returns ErrNotFound when the pair holds no active session.
		GetActiveSession(ctx context.Context, superAdminID, tenantID string, exec ...core.DBExecutor) (Session, error)
		QuerySessions(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Session, error)
		UpdateSession(ctx context.Context, s Session, exec ...core.DBExecutor) (Session, error)
	}

	// TenantGetter and UserGetter are the slices of the tenant and user
	// services this package needs.
	TenantGetter interface {
		GetByID(ctx context.Context, id string) (tenant.Tenant, error)
	}
	UserGetter interface {
		GetByID(ctx context.Context, id string) (user.User, error)
	}

	Service interface {
		// Start opens a session and returns it with the target user the
		// caller should mint a tenant token for.
		Start(ctx context.Context, superAdmin user.User, sh StartHijack, clientIP, userAgent string) (Session, user.User, error)
		// Get applies lazy TTL expiry before returning the session.
		Get(ctx context.Context, id string) (Session, error)
		// Verify returns the session only while it is live; middleware
		// calls it on every hijack-token request.
		Verify(ctx context.Context, id string) (Session, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error)
		Release(ctx context.Context, id string, superAdminID string) (Session, error)
		Revoke(ctx context.Context, id string) (Session, error)
	}

	service struct {
		repo    Repository
		tenants TenantGetter
		users   UserGetter
		conf    *core.Config
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, tenants TenantGetter, users UserGetter, conf *core.Config) Service {
	return &service{
		repo:    repo,
		tenants: tenants,
		users:   users,
		conf:    conf,
	}
}

func (svc *service) Start(ctx context.Context, superAdmin user.User, sh StartHijack, clientIP, userAgent string) (Session, user.User, error) {
	if !superAdmin.IsSuper() {
		return Session{}, user.User{}, core.NewValidationError(ErrNotSuperAdmin)
	}

	t, err := svc.tenants.GetByID(ctx, sh.TenantID)
	if err != nil {
		if errors.Cause(err) == tenant.ErrNotFound {
			return Session{}, user.User{}, core.NewValidationError(err, core.FieldError{Field: "tenant_id", Error: err.Error()})
		}
		return Session{}, user.User{}, err
	}

	// the target must exist in the tenant's own schema
	target, err := svc.users.GetByID(tenant.WithTenant(ctx, t), sh.TargetUserID)
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return Session{}, user.User{}, core.NewValidationError(err, core.FieldError{Field: "target_user_id", Error: err.Error()})
		}
		return Session{}, user.User{}, err
	}

	now := time.Now().UTC()

	// one active session per (superadmin, tenant): a stale one expires
	// in place, a live one blocks
	existing, err := svc.repo.GetActiveSession(ctx, superAdmin.ID, t.ID)
	switch {
	case err == nil:
		if !existing.TTLExpired(now) {
			return Session{}, user.User{}, core.NewValidationError(ErrActiveExists)
		}
		if _, err = svc.expire(ctx, existing); err != nil {
			return Session{}, user.User{}, err
		}
	case errors.Cause(err) != ErrNotFound:
		return Session{}, user.User{}, err
	}

	s := Session{
		SuperAdminID: superAdmin.ID,
		TenantID:     t.ID,
		TargetUserID: target.ID,
		Status:       StatusActive,
		Reason:       sh.Reason,
		ClientIP:     clientIP,
		UserAgent:    userAgent,
		StartedAt:    now,
		ExpiresAt:    now.Add(svc.conf.HijackTimeoutDelta),
	}
	s, err = svc.repo.CreateSession(ctx, s)
	if err != nil {
		return Session{}, user.User{}, err
	}
	return s, target, nil
}

func (svc *service) Get(ctx context.Context, id string) (Session, error) {
	s, err := svc.repo.GetSession(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.TTLExpired(time.Now().UTC()) {
		return svc.expire(ctx, s)
	}
	return s, nil
}

func (svc *service) Verify(ctx context.Context, id string) (Session, error) {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.Status != StatusActive {
		return Session{}, ErrSessionEnded
	}
	return s, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Session, error) {
	sessions, err := svc.repo.QuerySessions(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	// report stale sessions as expired without a write per row; the
	// transition is persisted whenever the session is read alone
	now := time.Now().UTC()
	for i := range sessions {
		if sessions[i].TTLExpired(now) {
			sessions[i].Status = StatusExpired
			sessions[i].EndedAt = sessions[i].ExpiresAt
		}
	}
	return sessions, nil
}

func (svc *service) Release(ctx context.Context, id string, superAdminID string) (Session, error) {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	if s.SuperAdminID != superAdminID {
		return Session{}, core.NewValidationError(errors.New("only the owning superadmin may release; use revoke"))
	}
	return svc.end(ctx, s, StatusReleased)
}

func (svc *service) Revoke(ctx context.Context, id string) (Session, error) {
	s, err := svc.Get(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return svc.end(ctx, s, StatusRevoked)
}

func (svc *service) end(ctx context.Context, s Session, status string) (Session, error) {
	if s.Status != StatusActive {
		return Session{}, core.NewValidationError(ErrSessionEnded)
	}
	s.Status = status
	s.EndedAt = time.Now().UTC()
	return svc.repo.UpdateSession(ctx, s)
}

func (svc *service) expire(ctx context.Context, s Session) (Session, error) {
	s.Status = StatusExpired
	s.EndedAt = s.ExpiresAt
	return svc.repo.UpdateSession(ctx, s)
}
