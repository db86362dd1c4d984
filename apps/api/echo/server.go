package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

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
)

type (
	Options struct {
		Address        string
		DisableReqLogs bool

		Conf   *core.Config
		Logger core.Logger

		UserSvc         user.Service
		TenantSvc       tenant.Service
		HijackSvc       hijack.Service
		CatalogSvc      catalog.Service
		CustomerSvc     customer.Service
		GoldPriceSvc    goldprice.Service
		InvoiceSvc      invoice.Service
		POSSvc          pos.Service
		NotificationSvc notification.Service
		ReportSvc       report.Service
		BarcodeSvc      barcode.Service

		Validate   *validator.Validate
		Translator ut.Translator
	}

	Server interface {
		http.Handler
		Start()
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
		Shutdown(context.Context) error
		Close() error
	}

	server struct {
		opts  *Options
		app   *echo.Echo
		errCh chan error
		sigCh chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(opts *Options) Server {
	s := &server{
		opts:  opts,
		app:   echo.New(),
		errCh: make(chan error, 1),
		sigCh: make(chan os.Signal, 1),
	}
	signal.Notify(s.sigCh, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.opts.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1", tenantMiddleware(conf, s.opts.TenantSvc))

	// every authed route passes the same chain: token, realm, live hijack
	auth := []echo.MiddlewareFunc{
		middleware.JWTWithConfig(appJWTConfig(conf)),
		claimsTenantMiddleware(),
		hijackVerifyMiddleware(s.opts.HijackSvc),
	}

	registerUserAPI(v1, auth, conf, s.opts.UserSvc, s.opts.Validate)
	registerTenantAPI(v1, auth, s.opts.TenantSvc, s.opts.Validate)
	registerHijackAPI(v1, auth, conf, s.opts.HijackSvc, s.opts.TenantSvc, s.opts.UserSvc, s.opts.Validate)
	registerCatalogAPI(v1, auth, s.opts.CatalogSvc, s.opts.Validate)
	registerCustomerAPI(v1, auth, s.opts.CustomerSvc, s.opts.Validate)
	registerGoldPriceAPI(v1, auth, s.opts.GoldPriceSvc, s.opts.Validate)
	registerInvoiceAPI(v1, auth, s.opts.InvoiceSvc, s.opts.Validate)
	registerPOSAPI(v1, auth, s.opts.POSSvc, s.opts.Validate)
	registerNotificationAPI(v1, auth, s.opts.NotificationSvc, s.opts.UserSvc, s.opts.Validate)
	registerReportAPI(v1, auth, s.opts.ReportSvc)
	registerBarcodeAPI(v1, auth, s.opts.BarcodeSvc)
}

func (s *server) Start() {
	if err := s.app.Start(s.opts.Address); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *server) Errors() <-chan error { return s.errCh }

func (s *server) ShutdownSignal() <-chan os.Signal { return s.sigCh }

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

// signalShutdown lets the error handler start a graceful stop when an
// unrecoverable error surfaces.
func (s *server) signalShutdown() {
	select {
	case s.sigCh <- syscall.SIGTERM:
	default: // a stop is already underway
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Zargar API!")
}
