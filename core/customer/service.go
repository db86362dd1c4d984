package customer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
)

var (
	ErrNotFound    = errors.New("customer not found")
	ErrPhoneExists = errors.New("a customer with this phone number already exists")
)

type (
	// Repository persists Customers. Zero-valued fields on UpdateCustomer
	// are left unchanged.
	Repository interface {
		CheckPhoneUniqueness(ctx context.Context, phone string, excludedCustomers []Customer, exec ...core.DBExecutor) error
		CreateCustomer(ctx context.Context, cust Customer, exec ...core.DBExecutor) (Customer, error)
		QueryCustomers(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Customer, error)
		GetCustomer(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Customer, error)
		UpdateCustomer(ctx context.Context, cust Customer, exec ...core.DBExecutor) (Customer, error)
		DeleteCustomersByID(ctx context.Context, ids []string, exec ...core.DBExecutor) (int, error)
	}

	// BalanceGetter is the slice of the invoice layer this package needs.
	BalanceGetter interface {
		OutstandingForCustomer(ctx context.Context, customerID string) (decimal.Decimal, error)
	}

	Service interface {
		CheckPhoneUniqueness(ctx context.Context, phone string, exclCusts ...Customer) error
		Create(ctx context.Context, nc NewCustomer) (Customer, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Customer, error)
		GetByID(ctx context.Context, id string) (Customer, error)
		GetByPhone(ctx context.Context, phone string) (Customer, error)
		GetDetail(ctx context.Context, id string) (Detail, error)
		Update(ctx context.Context, id string, uc UpdateCustomer) (Customer, error)
		Delete(ctx context.Context, ids ...string) error
	}

	service struct {
		repo     Repository
		balances BalanceGetter
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository, balances BalanceGetter) Service {
	return &service{
		repo:     repo,
		balances: balances,
	}
}

func (svc *service) CheckPhoneUniqueness(ctx context.Context, phone string, exclCusts ...Customer) error {
	if phone == "" {
		return nil
	}
	if err := svc.repo.CheckPhoneUniqueness(ctx, phone, exclCusts); err != nil {
		if err == ErrPhoneExists {
			return core.NewValidationError(err, core.FieldError{Field: "phone", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nc NewCustomer) (Customer, error) {
	now := time.Now().UTC()
	cust := Customer{
		FullName:   nc.FullName,
		Phone:      nc.Phone,
		NationalID: nc.NationalID,
		Address:    nc.Address,
		Note:       nc.Note,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	return svc.repo.CreateCustomer(ctx, cust)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Customer, error) {
	return svc.repo.QueryCustomers(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Customer, error) {
	return svc.repo.GetCustomer(ctx, GetFilter{ID: id})
}

func (svc *service) GetByPhone(ctx context.Context, phone string) (Customer, error) {
	return svc.repo.GetCustomer(ctx, GetFilter{Phone: phone})
}

func (svc *service) GetDetail(ctx context.Context, id string) (Detail, error) {
	cust, err := svc.GetByID(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	balance, err := svc.balances.OutstandingForCustomer(ctx, cust.ID)
	if err != nil {
		return Detail{}, errors.Wrap(err, "computing balance")
	}
	return Detail{Customer: cust, Balance: balance}, nil
}

func (svc *service) Update(ctx context.Context, id string, uc UpdateCustomer) (Customer, error) {
	cust := Customer{
		ID:         id,
		FullName:   uc.FullName,
		Phone:      uc.Phone,
		NationalID: uc.NationalID,
		Address:    uc.Address,
		Note:       uc.Note,
		UpdatedAt:  time.Now().UTC(),
	}
	return svc.repo.UpdateCustomer(ctx, cust)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCustomersByID(ctx, ids)
	return err
}
