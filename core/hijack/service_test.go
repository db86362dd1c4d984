package hijack

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
)

type repoStub struct {
	sessions map[string]Session
	seq      int
}

func newRepoStub() *repoStub {
	return &repoStub{sessions: make(map[string]Session)}
}

func (r *repoStub) CreateSession(_ context.Context, s Session, _ ...core.DBExecutor) (Session, error) {
	r.seq++
	s.ID = fmt.Sprintf("session-%d", r.seq)
	r.sessions[s.ID] = s
	return s, nil
}
func (r *repoStub) GetSession(_ context.Context, id string, _ ...core.DBExecutor) (Session, error) {
	s, ok := r.sessions[id]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}
func (r *repoStub) GetActiveSession(_ context.Context, superAdminID, tenantID string, _ ...core.DBExecutor) (Session, error) {
	for _, s := range r.sessions {
		if s.SuperAdminID == superAdminID && s.TenantID == tenantID && s.Status == StatusActive {
			return s, nil
		}
	}
	return Session{}, ErrNotFound
}
func (r *repoStub) QuerySessions(_ context.Context, _ *QueryFilter, _ []core.DBOrdering, _ ...core.DBExecutor) ([]Session, error) {
	sessions := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions, nil
}
func (r *repoStub) UpdateSession(_ context.Context, s Session, _ ...core.DBExecutor) (Session, error) {
	if _, ok := r.sessions[s.ID]; !ok {
		return Session{}, ErrNotFound
	}
	r.sessions[s.ID] = s
	return s, nil
}

type tenantGetterStub struct{ t tenant.Tenant }

func (g tenantGetterStub) GetByID(_ context.Context, id string) (tenant.Tenant, error) {
	if id != g.t.ID {
		return tenant.Tenant{}, tenant.ErrNotFound
	}
	return g.t, nil
}

type userGetterStub struct {
	usr       user.User
	seenCtxTn tenant.Tenant
}

func (g *userGetterStub) GetByID(ctx context.Context, id string) (user.User, error) {
	g.seenCtxTn, _ = tenant.FromContext(ctx)
	if id != g.usr.ID {
		return user.User{}, user.ErrNotFound
	}
	return g.usr, nil
}

func setupService() (Service, *repoStub, *userGetterStub, user.User, StartHijack) {
	repo := newRepoStub()
	shop := tenant.Tenant{
		ID:         "6b9f8a4e-0f7e-4f2a-9f62-6c1f6f9a0001",
		Subdomain:  "talayejavaheri",
		SchemaName: "t_talayejavaheri",
	}
	target := user.User{ID: "6b9f8a4e-0f7e-4f2a-9f62-6c1f6f9a0002", Username: "owner", Roles: []string{user.RoleShopOwner}}
	users := &userGetterStub{usr: target}
	conf := &core.Config{HijackTimeoutDelta: 2 * time.Hour}
	svc := NewService(repo, tenantGetterStub{t: shop}, users, conf)

	superAdmin := user.User{ID: "6b9f8a4e-0f7e-4f2a-9f62-6c1f6f9a0003", Username: "root", Roles: []string{user.RoleSuperAdmin}}
	sh := StartHijack{TenantID: shop.ID, TargetUserID: target.ID, Reason: "billing dispute"}
	return svc, repo, users, superAdmin, sh
}

func TestStart(t *testing.T) {
	ctx := context.Background()
	svc, _, users, superAdmin, sh := setupService()

	s, target, err := svc.Start(ctx, superAdmin, sh, "10.0.0.9", "curl/8.0")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if s.Status != StatusActive {
		t.Errorf("Status = %q, want %q", s.Status, StatusActive)
	}
	if s.SuperAdminID != superAdmin.ID || s.TenantID != sh.TenantID || s.TargetUserID != sh.TargetUserID {
		t.Errorf("session ids = (%q, %q, %q), want (%q, %q, %q)",
			s.SuperAdminID, s.TenantID, s.TargetUserID, superAdmin.ID, sh.TenantID, sh.TargetUserID)
	}
	if target.ID != sh.TargetUserID {
		t.Errorf("target.ID = %q, want %q", target.ID, sh.TargetUserID)
	}
	if want := s.StartedAt.Add(2 * time.Hour); !s.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", s.ExpiresAt, want)
	}

	// the target lookup must run against the tenant's schema
	if users.seenCtxTn.SchemaName != "t_talayejavaheri" {
		t.Errorf("target looked up with schema %q, want %q", users.seenCtxTn.SchemaName, "t_talayejavaheri")
	}
}

func TestStartRequiresSuperAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, sh := setupService()

	shopOwner := user.User{ID: "6b9f8a4e-0f7e-4f2a-9f62-6c1f6f9a0004", Roles: []string{user.RoleShopOwner}}
	if _, _, err := svc.Start(ctx, shopOwner, sh, "", ""); !core.IsValidationError(err) {
		t.Errorf("Start() error = %v, want validation error", err)
	}
}

func TestStartBlockedByLiveSession(t *testing.T) {
	ctx := context.Background()
	svc, _, _, superAdmin, sh := setupService()

	if _, _, err := svc.Start(ctx, superAdmin, sh, "", ""); err != nil {
		t.Fatalf("first Start() error = %v", err)
	}
	if _, _, err := svc.Start(ctx, superAdmin, sh, "", ""); !core.IsValidationError(err) {
		t.Errorf("second Start() error = %v, want validation error", err)
	}
}

func TestStartExpiresStaleSession(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, superAdmin, sh := setupService()

	stale, _, err := svc.Start(ctx, superAdmin, sh, "", "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s := repo.sessions[stale.ID]
	s.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	repo.sessions[stale.ID] = s

	fresh, _, err := svc.Start(ctx, superAdmin, sh, "", "")
	if err != nil {
		t.Fatalf("Start() after stale error = %v", err)
	}
	if fresh.ID == stale.ID {
		t.Error("Start() reused the stale session")
	}
	if got := repo.sessions[stale.ID].Status; got != StatusExpired {
		t.Errorf("stale session status = %q, want %q", got, StatusExpired)
	}
}

func TestGetPersistsLazyExpiry(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, superAdmin, sh := setupService()

	created, _, err := svc.Start(ctx, superAdmin, sh, "", "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s := repo.sessions[created.ID]
	s.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	repo.sessions[created.ID] = s

	got, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Status != StatusExpired {
		t.Errorf("Get() status = %q, want %q", got.Status, StatusExpired)
	}
	if !got.EndedAt.Equal(s.ExpiresAt) {
		t.Errorf("EndedAt = %v, want expiry time %v", got.EndedAt, s.ExpiresAt)
	}
	if persisted := repo.sessions[created.ID]; persisted.Status != StatusExpired {
		t.Errorf("persisted status = %q, want %q", persisted.Status, StatusExpired)
	}
}

func TestVerify(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, superAdmin, sh := setupService()

	created, _, err := svc.Start(ctx, superAdmin, sh, "", "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if _, err = svc.Verify(ctx, created.ID); err != nil {
		t.Errorf("Verify() on live session error = %v", err)
	}

	s := repo.sessions[created.ID]
	s.Status = StatusRevoked
	repo.sessions[created.ID] = s
	if _, err = svc.Verify(ctx, created.ID); err != ErrSessionEnded {
		t.Errorf("Verify() on revoked session error = %v, want %v", err, ErrSessionEnded)
	}
}

func TestRelease(t *testing.T) {
	ctx := context.Background()
	svc, _, _, superAdmin, sh := setupService()

	created, _, err := svc.Start(ctx, superAdmin, sh, "", "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if _, err = svc.Release(ctx, created.ID, "someone-else"); !core.IsValidationError(err) {
		t.Errorf("Release() by non-owner error = %v, want validation error", err)
	}

	released, err := svc.Release(ctx, created.ID, superAdmin.ID)
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if released.Status != StatusReleased {
		t.Errorf("status = %q, want %q", released.Status, StatusReleased)
	}
	if released.EndedAt.IsZero() {
		t.Error("EndedAt not set on release")
	}

	// terminal states stay terminal
	if _, err = svc.Release(ctx, created.ID, superAdmin.ID); !core.IsValidationError(err) {
		t.Errorf("Release() twice error = %v, want validation error", err)
	}
	if _, err = svc.Revoke(ctx, created.ID); !core.IsValidationError(err) {
		t.Errorf("Revoke() after release error = %v, want validation error", err)
	}
}

func TestRevoke(t *testing.T) {
	ctx := context.Background()
	svc, _, _, superAdmin, sh := setupService()

	created, _, err := svc.Start(ctx, superAdmin, sh, "", "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	revoked, err := svc.Revoke(ctx, created.ID)
	if err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if revoked.Status != StatusRevoked {
		t.Errorf("status = %q, want %q", revoked.Status, StatusRevoked)
	}
}

func TestQueryReportsStaleAsExpired(t *testing.T) {
	ctx := context.Background()
	svc, repo, _, superAdmin, sh := setupService()

	created, _, err := svc.Start(ctx, superAdmin, sh, "", "")
	if err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	s := repo.sessions[created.ID]
	s.ExpiresAt = time.Now().UTC().Add(-time.Minute)
	repo.sessions[created.ID] = s

	sessions, err := svc.Query(ctx, nil, nil)
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("len(sessions) = %d, want 1", len(sessions))
	}
	if sessions[0].Status != StatusExpired {
		t.Errorf("queried status = %q, want %q", sessions[0].Status, StatusExpired)
	}
	// Query itself writes nothing
	if persisted := repo.sessions[created.ID]; persisted.Status != StatusActive {
		t.Errorf("persisted status = %q, want %q", persisted.Status, StatusActive)
	}
}
