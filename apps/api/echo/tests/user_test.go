package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/mail"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"testing"
	"time"

	echoapi "github.com/zargarco/zargar/apps/api/echo"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
	"github.com/zargarco/zargar/services/email"
	"github.com/zargarco/zargar/tests"
)

func Test_userApi_login(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	testutil.CreateTenant(t, tenantRepo, "زرگری تعطیل", "closed", false)

	owner := testutil.CreateUser(t, demoCtx, usrRepo, "آرش زرگر", "arash", "arash@demo.test", "LolC@t123", []string{user.RoleShopOwner}, true)
	testutil.CreateUser(t, demoCtx, usrRepo, "N Dog", "ndog", "ndog@demo.test", "LolC@t123", []string{user.RoleShopCashier}, false)
	testutil.CreateUser(t, context.Background(), usrRepo, "Root", "platform-root", "root@zargar.local", "LolC@t123", []string{user.RoleSuperAdmin}, true)

	login := func(uname, pwd string) []byte {
		return marchallObj(t, echoapi.LoginRequest{Username: uname, Password: pwd})
	}

	tests := []httpTest{
		{
			name: "required fields", shop: "demo", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "this field is required", "password": "this field is required"}),
		},
		{
			name: "unknown user", shop: "demo", body: login("nobody", "LolC@t123"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", shop: "demo", body: login("arash", "nope"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", shop: "demo", body: login("ndog", "LolC@t123"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "shop staff is invisible on the platform realm", body: login("arash", "LolC@t123"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "platform operator is invisible on a shop realm", shop: "demo", body: login("platform-root", "LolC@t123"),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "unknown shop", shop: "ghost", body: login("arash", "LolC@t123"),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "unknown shop"}),
		},
		{
			name: "deactivated shop", shop: "closed", body: login("arash", "LolC@t123"),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "shop deactivated"}),
		},
		{name: "shop staff login", shop: "demo", body: login("arash", "LolC@t123"), wantCode: http.StatusOK},
		{name: "email login", shop: "demo", body: login("arash@demo.test", "LolC@t123"), wantCode: http.StatusOK},
		{name: "platform operator login", body: login("platform-root", "LolC@t123"), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/login"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.shop, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess the token; just check that one came back
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("login stamps last_login", func(t *testing.T) {
		refreshed, err := usrRepo.GetUser(demoCtx, user.GetFilter{ID: owner.ID})
		if err != nil {
			t.Fatalf("GetUser() failed: %v", err)
		}
		if refreshed.LastLogin.IsZero() {
			t.Error("failed! last_login not set")
		}
	})
	_ = demo
}

func Test_userApi_refreshToken(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	naughty := testutil.CreateUser(t, demoCtx, usrRepo, "N Dog", "ndog", "ndog@demo.test", "", []string{user.RoleShopCashier}, false)
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "صندوقدار", "sandogh", "sandogh@demo.test", "", []string{user.RoleShopCashier}, true)

	// a token whose first issue is older than the refresh window
	staleIat := time.Now().Add(-2 * conf.Server.JWTRefreshExpirationDelta).Unix()
	unrefreshableToken, err := echoapi.GenerateToken(conf, echoapi.GetUserClaims(conf, cashier, demo, staleIat))
	if err != nil {
		t.Fatalf("GenerateToken(): %v", err)
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Inactive user not allowed", token: getToken(t, naughty, demo),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "Refresh period expired", token: unrefreshableToken,
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "refresh has expired"}),
		},
		{name: "Token refreshed", token: getToken(t, cashier, demo), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/token-refresh"
		tt.shop = "demo"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			// cannot guess new token.. just check that it's not empty
			if tt.wantCode == http.StatusOK {
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var respData echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Errorf("json.Unmarshal() failed! err %v", err)
				}
				if respData.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_register(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	owner := testutil.CreateUser(t, demoCtx, usrRepo, "آرش زرگر", "arash", "arash@demo.test", "", []string{user.RoleShopOwner}, true)
	manager := testutil.CreateUser(t, demoCtx, usrRepo, "مدیر", "modir1", "modir@demo.test", "", []string{user.RoleShopManager}, true)
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "صندوقدار", "sandogh", "sandogh@demo.test", "", []string{user.RoleShopCashier}, true)

	newUsr := func(name, uname, email string, roles ...string) []byte {
		return marchallObj(t, user.NewUser{
			Name: name, Username: uname, Email: email,
			Password: "LolC@t123", PasswordConfirm: "LolC@t123", Roles: roles,
		})
	}

	tests := []httpTest{
		{name: "Auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Shop admin required", token: getToken(t, cashier, demo), wantCode: http.StatusForbidden,
			body:     newUsr("حسابدار", "hesab1", "hesab@demo.test", user.RoleShopAccountant),
			wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "cannot grant a role above your own", token: getToken(t, manager, demo), wantCode: http.StatusBadRequest,
			body:     newUsr("مالک دوم", "malek2", "malek2@demo.test", user.RoleShopOwner),
			wantData: marchallObj(t, map[string]string{"roles": "not enough rights to set these roles"}),
		},
		{
			name: "duplicate username", token: getToken(t, owner, demo), wantCode: http.StatusBadRequest,
			body:     newUsr("تکراری", "sandogh", "dup@demo.test", user.RoleShopCashier),
			wantData: marchallObj(t, httpErr{Error: "a user with this username or email already exists"}),
		},
		{
			name: "created", token: getToken(t, owner, demo), wantCode: http.StatusCreated,
			body:  newUsr("حسابدار", "hesab1", "hesab@demo.test", user.RoleShopAccountant),
			extra: []string{user.RoleShopAccountant},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/register"
		tt.shop = "demo"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)

			if tt.wantCode == http.StatusCreated {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
				}
				var respData user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
					t.Fatalf("json.Unmarshal() failed! err %v", err)
				}
				if respData.ID == "" {
					t.Error("failed! empty user ID")
				}
				wantRoles, _ := tt.extra.([]string)
				if len(respData.Roles) != len(wantRoles) || respData.Roles[0] != wantRoles[0] {
					t.Errorf("failed! roles = %v; want %v", respData.Roles, wantRoles)
				}
				if len(emailsvc.SentMessages) != 1 {
					t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
				}
				welcome := emailsvc.SentMessages[0]
				if !strings.Contains(welcome.TextContent, "hesab1") {
					t.Errorf("failed! welcome mail does not mention the username; text %q", welcome.TextContent)
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_userQuery(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")

	path := func(search, ordering string, createdFrom, createdTo time.Time, isActive *bool, roles ...string) string {
		v := make(url.Values)
		if search != "" {
			v.Add("search", search)
		}
		if ordering != "" {
			v.Add("ordering", ordering)
		}
		if isActive != nil {
			v.Add("is_active", strconv.FormatBool(*isActive))
		}
		if !createdFrom.IsZero() {
			v.Add("created_from", createdFrom.Format(time.RFC3339))
		}
		if !createdTo.IsZero() {
			v.Add("created_to", createdTo.Format(time.RFC3339))
		}
		for _, r := range roles {
			v.Add("role", r)
		}
		return "/v1/users?" + v.Encode()
	}
	bPtr := func(b bool) *bool { return &b }

	now := time.Now().UTC()
	t1 := now.Add(-4 * time.Hour)
	t2 := now.Add(-3 * time.Hour)
	t3 := now.Add(-2 * time.Hour)

	owner := testutil.CreateUser(t, demoCtx, usrRepo, "آرش زرگر", "arash", "arash@demo.test", "", []string{user.RoleShopOwner}, true, t1)
	manager := testutil.CreateUser(t, demoCtx, usrRepo, "مدیر فروش", "modir1", "modir@demo.test", "", []string{user.RoleShopManager}, true, t2)
	accountant := testutil.CreateUser(t, demoCtx, usrRepo, "حسابدار", "hesab1", "hesab@demo.test", "", []string{user.RoleShopAccountant}, true, t3)
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "صندوقدار", "sandogh", "sandogh@demo.test", "", []string{user.RoleShopCashier}, true)
	naughty := testutil.CreateUser(t, demoCtx, usrRepo, "N Dog", "ndog", "ndog@demo.test", "", []string{user.RoleShopCashier}, false)

	// platform operators must never leak into a shop's staff listing
	testutil.CreateUser(t, context.Background(), usrRepo, "Root", "platform-root", "root@zargar.local", "", []string{user.RoleSuperAdmin}, true)

	ownerToken := getToken(t, owner, demo)
	empty := marchallList(t, []interface{}{}...)

	tests := []httpTest{
		{name: "Auth required", path: "/v1/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "Shop admin required", path: "/v1/users", token: getToken(t, cashier, demo),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "Get all", path: "/v1/users", token: ownerToken,
			wantData: marchallList(t, owner, manager, accountant, cashier, naughty),
		},
		// filtering
		{name: "search (unknown)", path: path("lol", "", time.Time{}, time.Time{}, nil), token: ownerToken, wantData: empty},
		{name: "search=dog", path: path("dog", "", time.Time{}, time.Time{}, nil), token: ownerToken, wantData: marchallList(t, naughty)},
		{
			name: "search by email domain", path: path("@demo.test", "", time.Time{}, time.Time{}, nil),
			token: ownerToken, wantData: marchallList(t, owner, manager, accountant, cashier, naughty),
		},
		{name: "role (unknown)", path: path("", "", time.Time{}, time.Time{}, nil, "lol"), token: ownerToken, wantData: empty},
		{
			name: "role=shop:cashier", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleShopCashier),
			token: ownerToken, wantData: marchallList(t, cashier, naughty),
		},
		{
			name: "role=shop: prefix", path: path("", "", time.Time{}, time.Time{}, nil, user.RoleShop),
			token: ownerToken, wantData: marchallList(t, owner, manager, accountant, cashier, naughty),
		},
		{
			name: "is_active=true", path: path("", "", time.Time{}, time.Time{}, bPtr(true)),
			token: ownerToken, wantData: marchallList(t, owner, manager, accountant, cashier),
		},
		{name: "is_active=false", path: path("", "", time.Time{}, time.Time{}, bPtr(false)), token: ownerToken, wantData: marchallList(t, naughty)},
		{
			name: "created_from", path: path("", "", t2, time.Time{}, nil),
			token: ownerToken, wantData: marchallList(t, manager, accountant, cashier, naughty),
		},
		{
			name: "created_from - created_to", path: path("", "", t1, t3, nil),
			token: ownerToken, wantData: marchallList(t, owner, manager, accountant),
		},
		{
			name: "combo", path: path("modir", "", t1, t3, bPtr(true), user.RoleShopManager),
			token: ownerToken, wantData: marchallList(t, manager),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.shop = "demo"
		if tt.wantCode == 0 {
			tt.wantCode = http.StatusOK
		}

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.shop, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("order by created_at", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, path("", "created_at", time.Time{}, time.Time{}, nil), "demo", ownerToken)
		app.ServeHTTP(rec, req)

		var respData []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &respData); err != nil {
			t.Fatalf("json.Unmarshal() failed! err %v", err)
		}
		if len(respData) != 5 {
			t.Fatalf("failed! len = %d; want 5", len(respData))
		}
		if respData[0].ID != owner.ID {
			t.Errorf("failed! first = %s; want %s", respData[0].Username, owner.Username)
		}
	})
}

func Test_userApi_resetPassword(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "صندوقدار", "sandogh", "sandogh@demo.test", "", []string{user.RoleShopCashier}, true)
	successData := marchallObj(t, echoapi.SuccessResponse{Success: "If the email address supplied is associated with an active account on this system, " +
		"an email will arrive in your inbox shortly with instructions to reset your password."})

	pathRegex, err := regexp.Compile(`/password-reset/confirm\?uid=.+`)
	if err != nil {
		t.Fatalf("regexp.Compile(): %v", err)
	}

	type extraTest struct {
		emailSent bool
		to        mail.Address
	}
	tests := []httpTest{
		{name: "required fields", wantCode: http.StatusBadRequest, wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "this field is required"})},
		{
			name: "invalid email", wantCode: http.StatusBadRequest, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol"}),
			wantData: marchallObj(t, echoapi.PasswordResetRequest{Email: "email must be a valid email address"}),
		},
		{
			name: "unknown email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: "lol@test.com"}),
			wantData: successData, extra: extraTest{emailSent: false},
		},
		{
			name: "known email", wantCode: http.StatusOK, body: marchallObj(t, echoapi.PasswordResetRequest{Email: cashier.Email}),
			wantData: successData, extra: extraTest{emailSent: true, to: mail.Address{Name: cashier.Name, Address: cashier.Email}},
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset"
		tt.shop = "demo"

		t.Run(tt.name, func(t *testing.T) {
			emailsvc.SentMessages = nil // reset

			req, rec := newRequest(tt.method, tt.path, tt.shop, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if extra, ok := tt.extra.(extraTest); ok {
				if extra.emailSent {
					if len(emailsvc.SentMessages) != 1 {
						t.Fatalf("failed! len(SentMessages) = %d; want 1", len(emailsvc.SentMessages))
					}
					msg := emailsvc.SentMessages[0]
					if msg.To[0] != extra.to {
						t.Errorf("failed! To = %v; want %v", msg.To[0], extra.to)
					}
					if !strings.Contains(msg.TextContent, cashier.Username) {
						t.Errorf("failed! text content does not contain the username %q", cashier.Username)
					}
					if !pathRegex.MatchString(msg.TextContent) {
						t.Errorf("failed! text content does not match pathRegex %v", pathRegex)
					}
					if !pathRegex.MatchString(msg.HTMLContent) {
						t.Errorf("failed! HTML content does not match pathRegex %v", pathRegex)
					}
				} else {
					if len(emailsvc.SentMessages) > 0 {
						t.Errorf("failed! len(SentMessages) = %d; want 0", len(emailsvc.SentMessages))
					}
				}
			}
		})
	}
	_ = demo
}

func Test_userApi_confirmPasswordReset(t *testing.T) {
	setup(t)

	demo, demoCtx := seedShop(t, "demo")
	cashier := testutil.CreateUser(t, demoCtx, usrRepo, "صندوقدار", "sandogh", "sandogh@demo.test", "lol", []string{user.RoleShopCashier}, true)
	validUID := user.EncodeUID(cashier)
	validToken, err := user.MakeToken(cashier)
	if err != nil {
		t.Fatalf("MakeToken(): %v", err)
	}

	reqMsg := "this field is required"
	tests := []httpTest{
		{
			name: "required fields", wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, user.ResetUserPassword{Token: reqMsg, UID: reqMsg, Password: "password must contain at least 8 characters", PasswordConfirm: reqMsg}),
		},
		{
			name: "invalid pwd: min len", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 8 characters"}),
		},
		{
			name: "invalid pwd: no whitespace", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "l o loll", PasswordConfirm: "l o loll"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must not contain whitespace"}),
		},
		{
			name: "invalid pwd: not all numeric", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "12345678", PasswordConfirm: "12345678"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password cannot be entirely numeric"}),
		},
		{
			name: "invalid pwd: complexity", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "lol12345", PasswordConfirm: "lol12345"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password must contain at least 1 uppercase character, 1 lowercase character, 1 digit and 1 special character"}),
		},
		{
			name: "invalid pwd: too common", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "P@$$w0rd", PasswordConfirm: "P@$$w0rd"}),
			wantData: marchallObj(t, user.ResetUserPassword{Password: "password is too common"}),
		},
		{
			name: "PasswordConfirm must = Password", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "lol", Password: "LolC@t123", PasswordConfirm: "lol"}),
			wantData: marchallObj(t, user.ResetUserPassword{PasswordConfirm: "password_confirm must be equal to Password"}),
		},
		{
			name: "invalid uid", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "bG9s", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "unknown user", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "lol", UID: "OTk5", Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "invalid token", wantCode: http.StatusBadRequest,
			body:     marchallObj(t, user.ResetUserPassword{Token: "HE4TS-sigsig-sig", UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, httpErr{Error: "invalid token"}),
		},
		{
			name: "valid token", wantCode: http.StatusOK,
			body:     marchallObj(t, user.ResetUserPassword{Token: validToken, UID: validUID, Password: "LolC@t123", PasswordConfirm: "LolC@t123"}),
			wantData: marchallObj(t, echoapi.SuccessResponse{Success: "Password has been reset with the new password."}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPost
		tt.path = "/v1/users/password-reset-confirm"
		tt.shop = "demo"

		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(tt.method, tt.path, tt.shop, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				refreshed, err := usrRepo.GetUser(demoCtx, user.GetFilter{ID: cashier.ID})
				if err != nil {
					t.Fatalf("GetUser() failed: %v", err)
				}
				if bytes.Equal(refreshed.PasswordHash, cashier.PasswordHash) {
					t.Fatalf("failed to update new password")
				}
			}
		})
	}
	_ = demo
}
