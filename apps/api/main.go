package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // registers /debug/pprof on the default mux
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/zargarco/zargar/apps/api/echo"
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
	emailsvc "github.com/zargarco/zargar/services/email"
	logsvc "github.com/zargarco/zargar/services/logger"
	qrcodesvc "github.com/zargarco/zargar/services/qrcode"
	"github.com/zargarco/zargar/storage/database"
	sqlxrepos "github.com/zargarco/zargar/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up repositories
	tenantRepo := sqlxrepos.NewTenantRepository(db)
	usrRepo := sqlxrepos.NewUserRepository(db)
	hijackRepo := sqlxrepos.NewHijackRepository(db)
	catRepo := sqlxrepos.NewCatalogRepository(db)
	custRepo := sqlxrepos.NewCustomerRepository(db)
	goldRepo := sqlxrepos.NewGoldPriceRepository(db)
	invRepo := sqlxrepos.NewInvoiceRepository(db)
	notifRepo := sqlxrepos.NewNotificationRepository(db)
	reportRepo := sqlxrepos.NewReportRepository(db)
	bcRepo := sqlxrepos.NewBarcodeRepository(db)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(usrRepo, mailSvc, conf)
	tenantSvc := tenant.NewService(tenantRepo, database.NewProvisioner(db, conf))
	hijackSvc := hijack.NewService(hijackRepo, tenantSvc, usrSvc, conf)
	catSvc := catalog.NewService(catRepo)
	goldSvc := goldprice.NewService(goldRepo)
	invSvc := invoice.NewService(db, invRepo, catRepo, goldSvc, conf)
	custSvc := customer.NewService(custRepo, invSvc)
	posSvc := pos.NewService(catSvc, goldSvc, invSvc, conf)
	notifSvc := notification.NewService(notifRepo)
	reportSvc := report.NewService(reportRepo, goldSvc)
	bcSvc := barcode.NewService(bcRepo, catSvc, invSvc, qrcodesvc.NewService(), conf)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	user.LoadCommonPasswords(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err = http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		&echoapi.Options{
			Address: conf.Server.Addr(),
			Conf:    conf,
			Logger:  logger,

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

			Validate:   validate,
			Translator: translator,
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// setUpDB creates the database and role on first run, opens the shared pool
// and applies pending registry migrations. Tenant schemas migrate separately,
// at provisioning time.
func setUpDB(conf *core.Config) (*database.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.MigratePublic(db); err != nil {
		return nil, err
	}
	return db, nil
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}
