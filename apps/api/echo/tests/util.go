package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/zargarco/zargar/apps/api/echo"
	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/barcode"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/customer"
	"github.com/zargarco/zargar/core/goldprice"
	"github.com/zargarco/zargar/core/hijack"
	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/notification"
	"github.com/zargarco/zargar/core/pos"
	"github.com/zargarco/zargar/core/report"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
	"github.com/zargarco/zargar/services/email"
	"github.com/zargarco/zargar/services/logger"
	"github.com/zargarco/zargar/services/qrcode"
	"github.com/zargarco/zargar/storage/database/inmem"
	"github.com/zargarco/zargar/tests"
)

var (
	app  Server
	conf *core.Config

	tenantRepo tenant.Repository
	usrRepo    user.Repository
	catRepo    catalog.Repository
	custRepo   customer.Repository
	goldRepo   goldprice.Repository
	invRepo    invoice.Repository

	goldSvc goldprice.Service
	invSvc  invoice.Service

	loadPasswordsOnce sync.Once

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

// txStub satisfies core.DBTransactor; the in-memory repos ignore the executor.
type txStub struct{ core.DBExecutor }

func (txStub) Commit() error   { return nil }
func (txStub) Rollback() error { return nil }

type dbStub struct{ core.DBExecutor }

func (dbStub) BeginTx(context.Context) (core.DBTransactor, error) { return txStub{}, nil }

// provStub skips schema DDL; the in-memory DB partitions on schema names as-is.
type provStub struct{}

func (provStub) ProvisionSchema(context.Context, string) error { return nil }

func setup(t *testing.T) Server {
	// set up DB & repos
	db, err := inmemdb.Open()
	if err != nil {
		t.Fatalf("inmemdb.Open(): %v", err)
	}
	tenantRepo = inmemdb.NewTenantRepository(db)
	usrRepo = inmemdb.NewUserRepository(db)
	catRepo = inmemdb.NewCatalogRepository(db)
	custRepo = inmemdb.NewCustomerRepository(db)
	goldRepo = inmemdb.NewGoldPriceRepository(db)
	invRepo = inmemdb.NewInvoiceRepository(db)
	hijackRepo := inmemdb.NewHijackRepository(db)
	notifRepo := inmemdb.NewNotificationRepository(db)
	reportRepo := inmemdb.NewReportRepository(db)
	bcRepo := inmemdb.NewBarcodeRepository(db)

	conf = newTestConfig()
	appLogger := logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
	appLogger.Enable(false)

	// set up services
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewServiceMock(usrRepo, mailSvc, conf)
	tenantSvc := tenant.NewService(tenantRepo, provStub{})
	hijackSvc := hijack.NewService(hijackRepo, tenantSvc, usrSvc, conf)
	catSvc := catalog.NewService(catRepo)
	goldSvc = goldprice.NewService(goldRepo)
	invSvc = invoice.NewService(dbStub{}, invRepo, catRepo, goldSvc, conf)
	custSvc := customer.NewService(custRepo, invSvc)
	posSvc := pos.NewService(catSvc, goldSvc, invSvc, conf)
	notifSvc := notification.NewService(notifRepo)
	reportSvc := report.NewService(reportRepo, goldSvc)
	bcSvc := barcode.NewService(bcRepo, catSvc, invSvc, qrcodesvc.NewService(), conf)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	loadPasswordsOnce.Do(func() { user.LoadCommonPasswords(appLogger) })

	// set up server
	app = NewServer(
		&Options{
			DisableReqLogs:  true,
			Conf:            conf,
			Logger:          appLogger,
			UserSvc:         usrSvc,
			TenantSvc:       tenantSvc,
			HijackSvc:       hijackSvc,
			CatalogSvc:      catSvc,
			CustomerSvc:     custSvc,
			GoldPriceSvc:    goldSvc,
			InvoiceSvc:      invSvc,
			POSSvc:          posSvc,
			NotificationSvc: notifSvc,
			ReportSvc:       reportSvc,
			BarcodeSvc:      bcSvc,
			Validate:        validate,
			Translator:      translator,
		},
	)
	return app
}

func newTestConfig() *core.Config {
	return &core.Config{
		Env:                       "test",
		TestMode:                  true,
		AppName:                   "Zargar",
		SecretKey:                 "s3cr3t-t3st-k3y",
		BaseDomain:                "zargar.local",
		FrontendBaseURL:           "http://zargar.local:3000",
		TimeZone:                  "UTC",
		DefaultFromName:           "Zargar",
		DefaultFromAddress:        "noreply@zargar.local",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		HijackTimeoutDelta:        2 * time.Hour,
		DefaultTaxPct:             9,
		DefaultProfitPct:          7,
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// seedShop registers an active shop and returns it with a context scoped to
// its schema, for seeding staff and stock directly through the repos.
func seedShop(t *testing.T, subdomain string) (tenant.Tenant, context.Context) {
	tnt := testutil.CreateTenant(t, tenantRepo, "زرگری "+subdomain, subdomain, true)
	return tnt, tenant.WithTenant(context.Background(), tnt)
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	shop     string // X-Tenant header; empty hits the platform realm
	body     []byte
	token    string
	wantCode int
	wantData []byte
	extra    interface{}
}

func newAuthRequest(method, path, shop, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if shop != "" {
		req.Header.Set("X-Tenant", shop)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path, shop string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, shop, "", data...)
}

func getToken(t *testing.T, usr user.User, tnt tenant.Tenant) string {
	claims := GetUserClaims(conf, usr, tnt)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

// nolint
func marchallList(t *testing.T, objs ...interface{}) []byte {
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marchallList() failed: %v", err)
	}
	return data
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
