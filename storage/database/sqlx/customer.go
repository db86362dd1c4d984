package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/customer"
)

type customerRow struct {
	ID         string    `db:"id"`
	FullName   string    `db:"full_name"`
	Phone      string    `db:"phone"`
	NationalID string    `db:"national_id"`
	Address    string    `db:"address"`
	Note       string    `db:"note"`
	CreatedAt  time.Time `db:"created_at"`
	UpdatedAt  null.Time `db:"updated_at"`
}

var customerColumns = []string{
	"id", "full_name", "phone", "national_id", "address", "note",
	"created_at", "updated_at",
}

type customerRepository struct {
	db core.DBExecutor
}

var _ customer.Repository = (*customerRepository)(nil) // interface compliance check

func NewCustomerRepository(db core.DBExecutor) *customerRepository {
	return &customerRepository{db: db}
}

func (repo customerRepository) pack(cust customer.Customer) customerRow {
	return customerRow{
		ID:         cust.ID,
		FullName:   cust.FullName,
		Phone:      cust.Phone,
		NationalID: cust.NationalID,
		Address:    cust.Address,
		Note:       cust.Note,
		CreatedAt:  cust.CreatedAt.UTC(),
		UpdatedAt:  null.NewTime(cust.UpdatedAt.UTC(), !cust.UpdatedAt.IsZero()),
	}
}

func (repo customerRepository) unpack(r customerRow) customer.Customer {
	return customer.Customer{
		ID:         r.ID,
		FullName:   r.FullName,
		Phone:      r.Phone,
		NationalID: r.NationalID,
		Address:    r.Address,
		Note:       r.Note,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt.Time,
	}
}

func (repo customerRepository) CheckPhoneUniqueness(ctx context.Context, phone string, excludedCustomers []customer.Customer, exec ...core.DBExecutor) error {
	table, err := tenantTable(ctx, "customer")
	if err != nil {
		return err
	}

	q := psql.Select("COUNT(*)").From(table).Where(sq.Eq{"phone": phone})
	if len(excludedCustomers) > 0 {
		ids := make([]string, 0, len(excludedCustomers))
		for _, c := range excludedCustomers {
			ids = append(ids, c.ID)
		}
		q = q.Where(sq.NotEq{"id": ids})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	var count int
	if err = executor(repo.db, exec).GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking phone uniqueness")
	}
	if count > 0 {
		return customer.ErrPhoneExists
	}
	return nil
}

func (repo customerRepository) CreateCustomer(ctx context.Context, cust customer.Customer, exec ...core.DBExecutor) (customer.Customer, error) {
	table, err := tenantTable(ctx, "customer")
	if err != nil {
		return customer.Customer{}, err
	}

	cust.ID = uuid.New().String()
	r := repo.pack(cust)

	query, args, err := psql.Insert(table).
		Columns(customerColumns...).
		Values(r.ID, r.FullName, r.Phone, r.NationalID, r.Address, r.Note, r.CreatedAt, r.UpdatedAt).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return customer.Customer{}, errors.Wrap(err, "building query")
	}

	var saved customerRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "") {
			return customer.Customer{}, customer.ErrPhoneExists
		}
		return customer.Customer{}, errors.Wrap(err, "inserting customer")
	}
	return repo.unpack(saved), nil
}

func (repo customerRepository) QueryCustomers(ctx context.Context, filter *customer.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]customer.Customer, error) {
	table, err := tenantTable(ctx, "customer")
	if err != nil {
		return nil, err
	}

	q := psql.Select(customerColumns...).From(table)
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			q = q.Where(sq.Or{
				sq.ILike{"full_name": val},
				sq.ILike{"phone": val},
				sq.ILike{"national_id": val},
			})
		}
		if !filter.CreatedFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"created_at": filter.CreatedFrom.UTC()})
		}
		if !filter.CreatedTo.IsZero() {
			q = q.Where(sq.LtOrEq{"created_at": filter.CreatedTo.UTC()})
		}
	}

	q = applyOrdering(q, ordering, map[string]struct{}{
		"full_name": {}, "phone": {}, "created_at": {},
	}, "created_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []customerRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying customers")
	}

	customers := make([]customer.Customer, 0, len(rows))
	for _, r := range rows {
		customers = append(customers, repo.unpack(r))
	}
	return customers, nil
}

func (repo customerRepository) GetCustomer(ctx context.Context, filter customer.GetFilter, exec ...core.DBExecutor) (customer.Customer, error) {
	table, err := tenantTable(ctx, "customer")
	if err != nil {
		return customer.Customer{}, err
	}

	q := psql.Select(customerColumns...).From(table)
	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return customer.Customer{}, customer.ErrNotFound
		}
		q = q.Where(sq.Eq{"id": filter.ID})
	case filter.Phone != "":
		q = q.Where(sq.Eq{"phone": filter.Phone})
	default:
		return customer.Customer{}, customer.ErrNotFound
	}

	query, args, err := q.ToSql()
	if err != nil {
		return customer.Customer{}, errors.Wrap(err, "building query")
	}
	var r customerRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return customer.Customer{}, trapNoRowsErr(err, customer.ErrNotFound, "finding customer")
	}
	return repo.unpack(r), nil
}

func (repo customerRepository) UpdateCustomer(ctx context.Context, cust customer.Customer, exec ...core.DBExecutor) (customer.Customer, error) {
	table, err := tenantTable(ctx, "customer")
	if err != nil {
		return customer.Customer{}, err
	}

	// only save set fields
	q := psql.Update(table).
		Set("updated_at", null.NewTime(cust.UpdatedAt.UTC(), !cust.UpdatedAt.IsZero()))
	if cust.FullName != "" {
		q = q.Set("full_name", cust.FullName)
	}
	if cust.Phone != "" {
		q = q.Set("phone", cust.Phone)
	}
	if cust.NationalID != "" {
		q = q.Set("national_id", cust.NationalID)
	}
	if cust.Address != "" {
		q = q.Set("address", cust.Address)
	}
	if cust.Note != "" {
		q = q.Set("note", cust.Note)
	}

	query, args, err := q.Where(sq.Eq{"id": cust.ID}).Suffix("RETURNING *").ToSql()
	if err != nil {
		return customer.Customer{}, errors.Wrap(err, "building query")
	}

	var saved customerRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "") {
			return customer.Customer{}, customer.ErrPhoneExists
		}
		return customer.Customer{}, trapNoRowsErr(err, customer.ErrNotFound, "updating customer")
	}
	return repo.unpack(saved), nil
}

func (repo customerRepository) DeleteCustomersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	table, err := tenantTable(ctx, "customer")
	if err != nil {
		return 0, err
	}

	query, args, err := psql.Delete(table).Where(sq.Eq{"id": ids}).ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting customers")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "deleting customers")
	}
	return int(cnt), nil
}
