package tenant

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
)

var (
	ErrNotFound        = errors.New("tenant not found")
	ErrSubdomainExists = errors.New("a shop with this subdomain already exists")
)

type (
	Repository interface {
		CheckSubdomainUniqueness(ctx context.Context, subdomain string, exec ...core.DBExecutor) error
		CreateTenant(ctx context.Context, t Tenant, exec ...core.DBExecutor) (Tenant, error)
		QueryTenants(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Tenant, error)
		GetTenant(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Tenant, error)
		UpdateTenant(ctx context.Context, t Tenant, exec ...core.DBExecutor) (Tenant, error)
	}

	// Provisioner creates a tenant's schema and brings it up to date.
	// Implementations must be idempotent: provisioning an existing
	// schema only applies pending migrations.
	Provisioner interface {
		ProvisionSchema(ctx context.Context, schemaName string) error
	}

	Service interface {
		CheckSubdomainUniqueness(ctx context.Context, subdomain string) error
		Create(ctx context.Context, nt NewTenant) (Tenant, error)
		// Provision (re-)runs schema provisioning for an existing tenant.
		Provision(ctx context.Context, id string) error
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Tenant, error)
		GetByID(ctx context.Context, id string) (Tenant, error)
		GetBySubdomain(ctx context.Context, subdomain string) (Tenant, error)
		Update(ctx context.Context, id string, ut UpdateTenant) (Tenant, error)
		SetActive(ctx context.Context, id string, active bool) (Tenant, error)
	}

	service struct {
		repo Repository
		prov Provisioner
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, prov Provisioner) Service {
	return &service{repo: repo, prov: prov}
}

func (svc *service) CheckSubdomainUniqueness(ctx context.Context, subdomain string) error {
	if err := svc.repo.CheckSubdomainUniqueness(ctx, subdomain); err != nil {
		if err == ErrSubdomainExists {
			return core.NewValidationError(err)
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nt NewTenant) (Tenant, error) {
	now := time.Now().UTC()
	active := true
	plan := nt.Plan
	if plan == "" {
		plan = PlanBasic
	}
	t := Tenant{
		Name:       nt.Name,
		Subdomain:  nt.Subdomain,
		SchemaName: SchemaFor(nt.Subdomain),
		Plan:       plan,
		IsActive:   &active,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	t, err := svc.repo.CreateTenant(ctx, t)
	if err != nil {
		return Tenant{}, err
	}

	// the registry row survives a failed provisioning; Provision can be
	// re-run for this tenant once the cause is fixed
	if err = svc.prov.ProvisionSchema(ctx, t.SchemaName); err != nil {
		return t, errors.Wrapf(err, "provisioning schema %q", t.SchemaName)
	}
	return t, nil
}

func (svc *service) Provision(ctx context.Context, id string) error {
	t, err := svc.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return errors.Wrapf(svc.prov.ProvisionSchema(ctx, t.SchemaName), "provisioning schema %q", t.SchemaName)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Tenant, error) {
	return svc.repo.QueryTenants(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Tenant, error) {
	return svc.repo.GetTenant(ctx, GetFilter{ID: id})
}

func (svc *service) GetBySubdomain(ctx context.Context, subdomain string) (Tenant, error) {
	return svc.repo.GetTenant(ctx, GetFilter{Subdomain: core.CleanString(subdomain, true /* lower */)})
}

func (svc *service) Update(ctx context.Context, id string, ut UpdateTenant) (Tenant, error) {
	t := Tenant{
		ID:        id,
		Name:      ut.Name,
		Plan:      ut.Plan,
		IsActive:  ut.IsActive,
		PaidUntil: ut.PaidUntil,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateTenant(ctx, t)
}

func (svc *service) SetActive(ctx context.Context, id string, active bool) (Tenant, error) {
	return svc.repo.UpdateTenant(ctx, Tenant{
		ID:        id,
		IsActive:  &active,
		UpdatedAt: time.Now().UTC(),
	})
}
