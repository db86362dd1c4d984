package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/tenant"
)

// tenantTableName lives in public: the registry spans all shops.
const tenantTableName = "public.tenant"

type tenantRow struct {
	ID         string    `db:"id"`
	Name       string    `db:"name"`
	Subdomain  string    `db:"subdomain"`
	SchemaName string    `db:"schema_name"`
	Plan       string    `db:"plan"`
	IsActive   bool      `db:"is_active"`
	PaidUntil  null.Time `db:"paid_until"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  null.Time `db:"updated_at"`
}

var tenantColumns = []string{
	"id", "name", "subdomain", "schema_name", "plan", "is_active",
	"paid_until", "created_at", "updated_at",
}

type tenantRepository struct {
	db core.DBExecutor
}

var _ tenant.Repository = (*tenantRepository)(nil) // interface compliance check

func NewTenantRepository(db core.DBExecutor) *tenantRepository {
	return &tenantRepository{db: db}
}

func (repo tenantRepository) pack(t tenant.Tenant) tenantRow {
	return tenantRow{
		ID:         t.ID,
		Name:       t.Name,
		Subdomain:  t.Subdomain,
		SchemaName: t.SchemaName,
		Plan:       t.Plan,
		IsActive:   t.IsActive == nil || *t.IsActive,
		PaidUntil:  null.NewTime(t.PaidUntil, !t.PaidUntil.IsZero()),
		CreatedAt:  t.CreatedAt.UTC(),
		UpdatedAt:  null.NewTime(t.UpdatedAt.UTC(), !t.UpdatedAt.IsZero()),
	}
}

func (repo tenantRepository) unpack(r tenantRow) tenant.Tenant {
	isActive := r.IsActive
	return tenant.Tenant{
		ID:         r.ID,
		Name:       r.Name,
		Subdomain:  r.Subdomain,
		SchemaName: r.SchemaName,
		Plan:       r.Plan,
		IsActive:   &isActive,
		PaidUntil:  r.PaidUntil.Time,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt.Time,
	}
}

func (repo tenantRepository) CheckSubdomainUniqueness(ctx context.Context, subdomain string, exec ...core.DBExecutor) error {
	query, args, err := psql.Select("COUNT(*)").From(tenantTableName).
		Where(sq.Eq{"subdomain": subdomain}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var count int
	if err = executor(repo.db, exec).GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking subdomain uniqueness")
	}
	if count > 0 {
		return tenant.ErrSubdomainExists
	}
	return nil
}

func (repo tenantRepository) CreateTenant(ctx context.Context, t tenant.Tenant, exec ...core.DBExecutor) (tenant.Tenant, error) {
	t.ID = uuid.New().String()
	r := repo.pack(t)

	query, args, err := psql.Insert(tenantTableName).
		Columns(tenantColumns...).
		Values(r.ID, r.Name, r.Subdomain, r.SchemaName, r.Plan, r.IsActive, r.PaidUntil, r.CreatedAt, r.UpdatedAt).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "building query")
	}

	var saved tenantRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "") {
			return tenant.Tenant{}, tenant.ErrSubdomainExists
		}
		return tenant.Tenant{}, errors.Wrap(err, "inserting tenant")
	}
	return repo.unpack(saved), nil
}

func (repo tenantRepository) QueryTenants(ctx context.Context, filter *tenant.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]tenant.Tenant, error) {
	q := psql.Select(tenantColumns...).From(tenantTableName)

	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{sq.ILike{"name": val}, sq.ILike{"subdomain": val}})
		}
		if filter.Plan != "" {
			q = q.Where(sq.Eq{"plan": filter.Plan})
		}
		if filter.IsActive != nil {
			q = q.Where(sq.Eq{"is_active": *filter.IsActive})
		}
		if filter.Subdomain != "" {
			q = q.Where(sq.Eq{"subdomain": filter.Subdomain})
		}
	}

	q = applyOrdering(q, ordering, map[string]struct{}{
		"name": {}, "subdomain": {}, "plan": {}, "created_at": {}, "paid_until": {},
	}, "created_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []tenantRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying tenants")
	}

	tenants := make([]tenant.Tenant, 0, len(rows))
	for _, r := range rows {
		tenants = append(tenants, repo.unpack(r))
	}
	return tenants, nil
}

func (repo tenantRepository) GetTenant(ctx context.Context, filter tenant.GetFilter, exec ...core.DBExecutor) (tenant.Tenant, error) {
	q := psql.Select(tenantColumns...).From(tenantTableName)

	switch {
	case filter.ID != "":
		if _, err := uuid.Parse(filter.ID); err != nil {
			return tenant.Tenant{}, tenant.ErrNotFound
		}
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Subdomain != "":
		q = q.Where(sq.Eq{"subdomain": filter.Subdomain})
	default:
		return tenant.Tenant{}, tenant.ErrNotFound
	}

	query, args, err := q.ToSql()
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "building query")
	}
	var r tenantRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return tenant.Tenant{}, trapNoRowsErr(err, tenant.ErrNotFound, "finding tenant")
	}
	return repo.unpack(r), nil
}

func (repo tenantRepository) UpdateTenant(ctx context.Context, t tenant.Tenant, exec ...core.DBExecutor) (tenant.Tenant, error) {
	// only save set fields; the subdomain and schema are fixed for life
	q := psql.Update(tenantTableName).
		Set("updated_at", null.NewTime(t.UpdatedAt.UTC(), !t.UpdatedAt.IsZero()))
	if t.Name != "" {
		q = q.Set("name", t.Name)
	}
	if t.Plan != "" {
		q = q.Set("plan", t.Plan)
	}
	if t.IsActive != nil {
		q = q.Set("is_active", *t.IsActive)
	}
	if !t.PaidUntil.IsZero() {
		q = q.Set("paid_until", null.NewTime(t.PaidUntil, true))
	}

	query, args, err := q.Where(sq.Eq{"id": t.ID}).Suffix("RETURNING *").ToSql()
	if err != nil {
		return tenant.Tenant{}, errors.Wrap(err, "building query")
	}

	var saved tenantRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return tenant.Tenant{}, trapNoRowsErr(err, tenant.ErrNotFound, "updating tenant")
	}
	return repo.unpack(saved), nil
}
