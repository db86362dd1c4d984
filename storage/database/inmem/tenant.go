package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/tenant"
)

// tenantRepository backs the shop registry. The registry spans all shops,
// so its table is not partitioned.
type tenantRepository struct {
	db *tenantTable
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db *DB) *tenantRepository {
	return &tenantRepository{db: db.tenant}
}

func (repo *tenantRepository) query() []tenant.Tenant {
	tenants := make([]tenant.Tenant, 0, len(repo.db.table))
	for _, t := range repo.db.table {
		tenants = append(tenants, *t)
	}
	return tenants
}

func (repo *tenantRepository) CheckSubdomainUniqueness(_ context.Context, subdomain string, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.query() {
		if t.Subdomain == subdomain {
			return tenant.ErrSubdomainExists
		}
	}
	return nil
}

func (repo *tenantRepository) CreateTenant(_ context.Context, t tenant.Tenant, _ ...core.DBExecutor) (tenant.Tenant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.table {
		if existing.Subdomain == t.Subdomain {
			return tenant.Tenant{}, tenant.ErrSubdomainExists
		}
	}
	t.ID = uuid.New().String()
	if t.IsActive == nil {
		active := true
		t.IsActive = &active
	}
	repo.db.table[t.ID] = &t
	return t, nil
}

func (repo *tenantRepository) QueryTenants(_ context.Context, filter *tenant.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	tenants := repo.query()
	if filter != nil && !filter.IsEmpty() {
		filtered := tenants[:0]
		for _, t := range tenants {
			if matchTenant(t, filter) {
				filtered = append(filtered, t)
			}
		}
		tenants = filtered
	}
	sortTenants(tenants, ordering)
	return tenants, nil
}

func matchTenant(t tenant.Tenant, filter *tenant.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(t.Name), s) &&
			!strings.Contains(strings.ToLower(t.Subdomain), s) {
			return false
		}
	}
	if filter.Plan != "" && t.Plan != filter.Plan {
		return false
	}
	if filter.IsActive != nil && t.Active() != *filter.IsActive {
		return false
	}
	if filter.Subdomain != "" && t.Subdomain != filter.Subdomain {
		return false
	}
	return true
}

func sortTenants(tenants []tenant.Tenant, ordering []core.DBOrdering) {
	ord := firstOrdering(ordering, core.DBOrdering{Field: "created_at"})
	sort.SliceStable(tenants, func(i, j int) bool {
		a, b := tenants[i], tenants[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "name":
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case "subdomain":
			if a.Subdomain != b.Subdomain {
				return a.Subdomain < b.Subdomain
			}
		case "plan":
			if a.Plan != b.Plan {
				return a.Plan < b.Plan
			}
		case "paid_until":
			if !a.PaidUntil.Equal(b.PaidUntil) {
				return a.PaidUntil.Before(b.PaidUntil)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

func (repo *tenantRepository) GetTenant(_ context.Context, filter tenant.GetFilter, _ ...core.DBExecutor) (tenant.Tenant, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if t, ok := repo.db.table[filter.ID]; ok {
			return *t, nil
		}
	case filter.Subdomain != "":
		for _, t := range repo.query() {
			if t.Subdomain == filter.Subdomain {
				return t, nil
			}
		}
	}
	return tenant.Tenant{}, tenant.ErrNotFound
}

func (repo *tenantRepository) UpdateTenant(_ context.Context, t tenant.Tenant, _ ...core.DBExecutor) (tenant.Tenant, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[t.ID]
	if !ok {
		return tenant.Tenant{}, tenant.ErrNotFound
	}

	// only save set fields; the subdomain and schema are fixed for life
	if t.Name != "" {
		orig.Name = t.Name
	}
	if t.Plan != "" {
		orig.Plan = t.Plan
	}
	if t.IsActive != nil {
		orig.IsActive = t.IsActive
	}
	if !t.PaidUntil.IsZero() {
		orig.PaidUntil = t.PaidUntil
	}
	orig.UpdatedAt = t.UpdatedAt
	return *orig, nil
}
