package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core/catalog"
	"github.com/zargarco/zargar/core/customer"
	"github.com/zargarco/zargar/core/tenant"
	"github.com/zargarco/zargar/core/user"
)

func CreateTenant(
	t *testing.T,
	repo tenant.Repository,
	name, subdomain string,
	isActive bool,
) tenant.Tenant {
	tstamp := time.Now().UTC()
	tnt := tenant.Tenant{
		Name:       name,
		Subdomain:  subdomain,
		SchemaName: tenant.SchemaFor(subdomain),
		Plan:       tenant.PlanBasic,
		IsActive:   &isActive,
		CreatedAt:  tstamp,
		UpdatedAt:  tstamp,
	}
	tnt, err := repo.CreateTenant(context.Background(), tnt)
	if err != nil {
		t.Fatalf("createTenant() failed: %v", err)
	}
	return tnt
}

// CreateUser persists a user in the schema carried by ctx; pass a
// tenant-free context for platform operators.
func CreateUser(
	t *testing.T,
	ctx context.Context,
	repo user.Repository,
	name, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  &isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(ctx, usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCategory(
	t *testing.T,
	ctx context.Context,
	repo catalog.Repository,
	name, kind string,
) catalog.Category {
	tstamp := time.Now().UTC()
	cat, err := repo.CreateCategory(ctx, catalog.Category{
		Name:      name,
		Kind:      kind,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("createCategory() failed: %v", err)
	}
	return cat
}

func CreateProduct(
	t *testing.T,
	ctx context.Context,
	repo catalog.Repository,
	cat catalog.Category,
	sku, name string,
	karat int,
	weightGrams, wagePct string,
	qty int,
) catalog.Product {
	tstamp := time.Now().UTC()
	prod, err := repo.CreateProduct(ctx, catalog.Product{
		SKU:         sku,
		Name:        name,
		CategoryID:  cat.ID,
		Karat:       karat,
		WeightGrams: decimal.RequireFromString(weightGrams),
		WagePct:     decimal.RequireFromString(wagePct),
		StoneValue:  decimal.Zero,
		Quantity:    qty,
		CreatedAt:   tstamp,
		UpdatedAt:   tstamp,
	})
	if err != nil {
		t.Fatalf("createProduct() failed: %v", err)
	}
	return prod
}

func CreateCustomer(
	t *testing.T,
	ctx context.Context,
	repo customer.Repository,
	fullName, phone string,
) customer.Customer {
	tstamp := time.Now().UTC()
	cust, err := repo.CreateCustomer(ctx, customer.Customer{
		FullName:  fullName,
		Phone:     phone,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("createCustomer() failed: %v", err)
	}
	return cust
}
