package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	echoapi "github.com/zargarco/zargar/apps/api/echo"
	"github.com/zargarco/zargar/core/hijack"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
	"github.com/zargarco/zargar/tests"
)

func Test_hijackApi_start(t *testing.T) {
	setup(t)

	root := testutil.CreateUser(t, context.Background(), usrRepo, "Root", "platform-root", "root@zargar.local", "", []string{user.RoleSuperAdmin}, true)
	support := testutil.CreateUser(t, context.Background(), usrRepo, "Support", "support1", "support@zargar.local", "", []string{user.RoleSuperSupport}, true)

	demo, demoCtx := seedShop(t, "demo")
	morteza := testutil.CreateUser(t, demoCtx, usrRepo, "مرتضی", "morteza", "morteza@demo.test", "", []string{user.RoleShopOwner}, true)

	rootToken := getToken(t, root, tenant.Tenant{})
	start := func(tenantID, targetID, reason string) []byte {
		return marchallObj(t, hijack.StartHijack{TenantID: tenantID, TargetUserID: targetID, Reason: reason})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "support may not start", token: getToken(t, support, tenant.Tenant{}),
			body: start(demo.ID, morteza.ID, "بررسی شکایت مشتری"), wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "required fields", token: rootToken, wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"tenant_id":      "this field is required",
				"target_user_id": "this field is required",
				"reason":         "this field is required",
			}),
		},
		{
			name: "malformed ids", token: rootToken, body: start("not-a-uuid", "nope", "بررسی"),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"tenant_id":      "tenant_id must be a valid version 4 UUID",
				"target_user_id": "target_user_id must be a valid version 4 UUID",
			}),
		},
		{
			name: "unknown shop", token: rootToken,
			body:     start("3f6fb6f0-41cf-4cfe-8f0c-0f65b0cbd8b1", morteza.ID, "بررسی"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"tenant_id": "tenant not found"}),
		},
		{
			// platform operators live in the public schema, not the shop's
			name: "platform account is not a shop target", token: rootToken,
			body:     start(demo.ID, root.ID, "بررسی"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"target_user_id": "user not found"}),
		},
		{
			name: "started", token: rootToken,
			body: start(demo.ID, morteza.ID, "بررسی شکایت مشتری"), wantCode: http.StatusCreated,
		},
		{
			name: "second session for the same shop is refused while one is live", token: rootToken,
			body: start(demo.ID, morteza.ID, "بررسی شکایت مشتری"), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "an active hijack session for this tenant already exists"}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/hijack"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData echoapi.HijackResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty hijack token")
				}
				s := respData.Session
				if s.ID == "" {
					t.Error("failed! empty session ID")
				}
				if s.Status != hijack.StatusActive {
					t.Errorf("failed! status = %q; want %q", s.Status, hijack.StatusActive)
				}
				if s.SuperAdminID != root.ID || s.TenantID != demo.ID || s.TargetUserID != morteza.ID {
					t.Errorf("failed! session parties = (%q, %q, %q)", s.SuperAdminID, s.TenantID, s.TargetUserID)
				}
				if s.Reason != "بررسی شکایت مشتری" {
					t.Errorf("failed! reason = %q", s.Reason)
				}
				if s.ClientIP != "192.0.2.1" { // httptest.NewRequest's RemoteAddr
					t.Errorf("failed! client_ip = %q", s.ClientIP)
				}
				if !s.ExpiresAt.After(s.StartedAt) {
					t.Errorf("failed! expires_at %v not after started_at %v", s.ExpiresAt, s.StartedAt)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_hijackApi_sessionLifecycle(t *testing.T) {
	setup(t)

	root := testutil.CreateUser(t, context.Background(), usrRepo, "Root", "platform-root", "root@zargar.local", "", []string{user.RoleSuperAdmin}, true)
	root2 := testutil.CreateUser(t, context.Background(), usrRepo, "Root II", "platform-root2", "root2@zargar.local", "", []string{user.RoleSuperAdmin}, true)
	support := testutil.CreateUser(t, context.Background(), usrRepo, "Support", "support1", "support@zargar.local", "", []string{user.RoleSuperSupport}, true)

	demo, demoCtx := seedShop(t, "demo")
	morteza := testutil.CreateUser(t, demoCtx, usrRepo, "مرتضی", "morteza", "morteza@demo.test", "", []string{user.RoleShopOwner}, true)

	rootToken := getToken(t, root, tenant.Tenant{})
	supportToken := getToken(t, support, tenant.Tenant{})

	startSession := func(t *testing.T) echoapi.HijackResponse {
		t.Helper()
		body := marchallObj(t, hijack.StartHijack{TenantID: demo.ID, TargetUserID: morteza.ID, Reason: "بازیابی حساب مالک"})
		req, rec := newAuthRequest(http.MethodPost, "/v1/hijack", "", rootToken, body)
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("start failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData echoapi.HijackResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		return respData
	}
	hr := startSession(t)

	t.Run("hijack token works the shop as the target", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", "demo", hr.Token)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusOK, wantData: marchallList(t, morteza)}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("hijack token cannot be refreshed", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", "demo", hr.Token)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("support reads the audit trail", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/hijack", "", supportToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, hr.Session)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/hijack/"+hr.Session.ID, "", supportToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallObj(t, hr.Session)}, rec)
	})

	t.Run("release by another operator is refused", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/hijack/"+hr.Session.ID+"/release", "", supportToken)
		app.ServeHTTP(rec, req)

		tt := httpTest{
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "only the owning superadmin may release; use revoke"}),
		}
		checkCodeAndData(t, tt, rec)
	})

	var released hijack.Session
	t.Run("release ends the session", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/hijack/"+hr.Session.ID+"/release", "", rootToken)
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &released); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if released.Status != hijack.StatusReleased {
			t.Errorf("failed! status = %q; want %q", released.Status, hijack.StatusReleased)
		}
		if released.EndedAt.IsZero() {
			t.Error("failed! ended_at not set")
		}
	})

	t.Run("a dead hijack token is cut off", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", "demo", hr.Token)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "hijack session has ended"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("release is final", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/hijack/"+hr.Session.ID+"/release", "", rootToken)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "hijack session has ended"})}
		checkCodeAndData(t, tt, rec)
	})

	t.Run("status filter", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/hijack?status=released", "", rootToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t, released)}, rec)

		req, rec = newAuthRequest(http.MethodGet, "/v1/hijack?status=active", "", rootToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: marchallList(t)}, rec)
	})

	t.Run("revoke force-ends another operator's session", func(t *testing.T) {
		hr2 := startSession(t)

		req, rec := newAuthRequest(http.MethodPost, "/v1/hijack/"+hr2.Session.ID+"/revoke", "", supportToken)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})}, rec)

		req, rec = newAuthRequest(http.MethodPost, "/v1/hijack/"+hr2.Session.ID+"/revoke", "", getToken(t, root2, tenant.Tenant{}))
		app.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %s", rec.Code, rec.Body.String())
		}
		var respData hijack.Session
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if respData.Status != hijack.StatusRevoked {
			t.Errorf("failed! status = %q; want %q", respData.Status, hijack.StatusRevoked)
		}

		req, rec = newAuthRequest(http.MethodGet, "/v1/users", "demo", hr2.Token)
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "hijack session has ended"})}, rec)
	})

	t.Run("unknown session", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/hijack/00000000-0000-4000-8000-000000000000", "", rootToken)
		app.ServeHTTP(rec, req)

		tt := httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"})}
		checkCodeAndData(t, tt, rec)
	})
}
