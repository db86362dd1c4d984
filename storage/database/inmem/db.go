package inmemdb

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/barcode"
	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/customer"
	"github.com/zargarco/zargar/core/goldprice"
	"github.com/zargarco/zargar/core/hijack"
	"github.com/zargarco/zargar/core/invoice"
	"github.com/zargarco/zargar/core/notification"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
)

// publicSchema is the partition serving requests that carry no tenant,
// mirroring the public schema of the SQL store.
const publicSchema = "public"

// errNoTenant mirrors the SQL repositories: a tenant-scoped repository
// reached without a tenant in the context is a routing bug, never user input.
var errNoTenant = errors.New("inmemdb: no tenant in context")

type (
	// DB is a schema-partitioned in-memory store. Every table keys its rows
	// by schema name first so the same repositories serve any number of
	// tenants, exactly like the schema-per-tenant SQL store they stand in for.
	DB struct {
		user         *userTable
		tenant       *tenantTable
		hijack       *hijackTable
		category     *categoryTable
		product      *productTable
		stock        *stockTable
		customer     *customerTable
		goldPrice    *goldPriceTable
		invoice      *invoiceTable
		announcement *announcementTable
		barcode      *barcodeTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]map[string]*user.User
	}

	tenantTable struct {
		sync.RWMutex
		table map[string]*tenant.Tenant
	}

	hijackTable struct {
		sync.RWMutex
		table map[string]*hijack.Session
	}

	categoryTable struct {
		sync.RWMutex
		table map[string]map[string]*catalog.Category
	}

	productTable struct {
		sync.RWMutex
		table map[string]map[string]*catalog.Product
	}

	stockTable struct {
		sync.RWMutex
		table map[string]map[string]*catalog.StockEntry
	}

	customerTable struct {
		sync.RWMutex
		table map[string]map[string]*customer.Customer
	}

	goldPriceTable struct {
		sync.RWMutex
		table map[string]map[string]*goldprice.GoldPrice
	}

	invoiceTable struct {
		sync.RWMutex
		invoices     map[string]map[string]*invoice.Invoice
		payments     map[string]map[string]*invoice.Payment
		plans        map[string]map[string]*invoice.InstallmentPlan
		installments map[string]map[string]*invoice.Installment
		numbers      map[string]int64
	}

	announcementTable struct {
		sync.RWMutex
		table map[string]map[string]*notification.Announcement
		reads map[string][]notification.ReadMark
	}

	barcodeTable struct {
		sync.RWMutex
		codes map[string]map[string]*barcode.Barcode
		scans map[string]map[string]*barcode.ScanEvent
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:         &userTable{table: make(map[string]map[string]*user.User)},
		tenant:       &tenantTable{table: make(map[string]*tenant.Tenant)},
		hijack:       &hijackTable{table: make(map[string]*hijack.Session)},
		category:     &categoryTable{table: make(map[string]map[string]*catalog.Category)},
		product:      &productTable{table: make(map[string]map[string]*catalog.Product)},
		stock:        &stockTable{table: make(map[string]map[string]*catalog.StockEntry)},
		customer:     &customerTable{table: make(map[string]map[string]*customer.Customer)},
		goldPrice:    &goldPriceTable{table: make(map[string]map[string]*goldprice.GoldPrice)},
		invoice:      &invoiceTable{invoices: make(map[string]map[string]*invoice.Invoice), payments: make(map[string]map[string]*invoice.Payment), plans: make(map[string]map[string]*invoice.InstallmentPlan), installments: make(map[string]map[string]*invoice.Installment), numbers: make(map[string]int64)},
		announcement: &announcementTable{table: make(map[string]map[string]*notification.Announcement), reads: make(map[string][]notification.ReadMark)},
		barcode:      &barcodeTable{codes: make(map[string]map[string]*barcode.Barcode), scans: make(map[string]map[string]*barcode.ScanEvent)},
	}
	return db, nil
}

// schemaOf resolves the partition for the request tenant. Tenant-scoped
// repositories refuse when none is set; falling back to a shared partition
// would leak data across shops.
func schemaOf(ctx context.Context) (string, error) {
	if s := tenant.SchemaFromContext(ctx); s != "" {
		return s, nil
	}
	return "", errNoTenant
}

// userSchemaOf is schemaOf with the public fallback: shop staff live in the
// request tenant's partition, platform staff in public.
func userSchemaOf(ctx context.Context) string {
	if s := tenant.SchemaFromContext(ctx); s != "" {
		return s
	}
	return publicSchema
}

// firstOrdering returns the first requested ordering, or the fallback when
// none was asked for. The in-memory sorters honor a single key; ties fall
// back to the row ID so results stay deterministic.
func firstOrdering(ordering []core.DBOrdering, fallback core.DBOrdering) core.DBOrdering {
	if len(ordering) > 0 {
		return ordering[0]
	}
	return fallback
}
