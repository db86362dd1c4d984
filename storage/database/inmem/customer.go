package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/customer"
)

type customerRepository struct {
	db *customerTable
}

var _ customer.Repository = (*customerRepository)(nil) // interface compliance check

func NewCustomerRepository(db *DB) *customerRepository {
	return &customerRepository{db: db.customer}
}

func (repo *customerRepository) query(schema string) []customer.Customer {
	rows := repo.db.table[schema]
	custs := make([]customer.Customer, 0, len(rows))
	for _, c := range rows {
		custs = append(custs, *c)
	}
	return custs
}

func (repo *customerRepository) CheckPhoneUniqueness(ctx context.Context, phone string, excludedCustomers []customer.Customer, _ ...core.DBExecutor) error {
	schema, err := schemaOf(ctx)
	if err != nil {
		return err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]struct{}, len(excludedCustomers))
	for _, cust := range excludedCustomers {
		excluded[cust.ID] = struct{}{}
	}
	for _, cust := range repo.query(schema) {
		if _, ok := excluded[cust.ID]; ok {
			continue
		}
		if cust.Phone == phone {
			return customer.ErrPhoneExists
		}
	}
	return nil
}

func (repo *customerRepository) CreateCustomer(ctx context.Context, cust customer.Customer, _ ...core.DBExecutor) (customer.Customer, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return customer.Customer{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.query(schema) {
		if existing.Phone == cust.Phone {
			return customer.Customer{}, customer.ErrPhoneExists
		}
	}
	cust.ID = uuid.New().String()
	rows, ok := repo.db.table[schema]
	if !ok {
		rows = make(map[string]*customer.Customer)
		repo.db.table[schema] = rows
	}
	rows[cust.ID] = &cust
	return cust, nil
}

func (repo *customerRepository) QueryCustomers(ctx context.Context, filter *customer.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]customer.Customer, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	custs := repo.query(schema)
	if filter != nil && !filter.IsEmpty() {
		filtered := custs[:0]
		for _, c := range custs {
			if matchCustomer(c, filter) {
				filtered = append(filtered, c)
			}
		}
		custs = filtered
	}
	sortCustomers(custs, ordering)
	return custs, nil
}

func matchCustomer(c customer.Customer, filter *customer.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(c.FullName), s) &&
			!strings.Contains(c.Phone, filter.Search) &&
			!strings.Contains(c.NationalID, filter.Search) {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && c.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && c.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

func sortCustomers(custs []customer.Customer, ordering []core.DBOrdering) {
	ord := firstOrdering(ordering, core.DBOrdering{Field: "created_at"})
	sort.SliceStable(custs, func(i, j int) bool {
		a, b := custs[i], custs[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "full_name":
			if a.FullName != b.FullName {
				return a.FullName < b.FullName
			}
		case "phone":
			if a.Phone != b.Phone {
				return a.Phone < b.Phone
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

func (repo *customerRepository) GetCustomer(ctx context.Context, filter customer.GetFilter, _ ...core.DBExecutor) (customer.Customer, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return customer.Customer{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	switch {
	case filter.ID != "":
		if cust, ok := repo.db.table[schema][filter.ID]; ok {
			return *cust, nil
		}
	case filter.Phone != "":
		for _, cust := range repo.query(schema) {
			if cust.Phone == filter.Phone {
				return cust, nil
			}
		}
	}
	return customer.Customer{}, customer.ErrNotFound
}

func (repo *customerRepository) UpdateCustomer(ctx context.Context, cust customer.Customer, _ ...core.DBExecutor) (customer.Customer, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return customer.Customer{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[schema][cust.ID]
	if !ok {
		return customer.Customer{}, customer.ErrNotFound
	}
	for _, existing := range repo.query(schema) {
		if existing.ID != cust.ID && cust.Phone != "" && existing.Phone == cust.Phone {
			return customer.Customer{}, customer.ErrPhoneExists
		}
	}

	// only save set fields
	if cust.FullName != "" {
		orig.FullName = cust.FullName
	}
	if cust.Phone != "" {
		orig.Phone = cust.Phone
	}
	if cust.NationalID != "" {
		orig.NationalID = cust.NationalID
	}
	if cust.Address != "" {
		orig.Address = cust.Address
	}
	if cust.Note != "" {
		orig.Note = cust.Note
	}
	orig.UpdatedAt = cust.UpdatedAt
	return *orig, nil
}

func (repo *customerRepository) DeleteCustomersByID(ctx context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return 0, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	rows := repo.db.table[schema]
	var cnt int
	for _, id := range ids {
		if _, ok := rows[id]; ok {
			delete(rows, id)
			cnt++
		}
	}
	return cnt, nil
}
