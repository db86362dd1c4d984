package customer

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
)

type (
	Customer struct {
		ID         string    `json:"id"`
		FullName   string    `json:"full_name"`
		Phone      string    `json:"phone"`
		NationalID string    `json:"national_id"`
		Address    string    `json:"address"`
		Note       string    `json:"note"`
		CreatedAt  time.Time `json:"created_at"`
		UpdatedAt  time.Time `json:"updated_at"`
	}

	// Detail is the single-customer view; Balance is the customer's unpaid
	// invoice outstanding in toman.
	Detail struct {
		Customer
		Balance decimal.Decimal `json:"balance"`
	}
)

type NewCustomer struct {
	FullName   string `json:"full_name" validate:"required"`
	Phone      string `json:"phone" validate:"required,irphone"`
	NationalID string `json:"national_id" validate:"omitempty,nationalid"`
	Address    string `json:"address"`
	Note       string `json:"note"`
}

func (nc *NewCustomer) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.clean()
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckPhoneUniqueness(ctx, nc.Phone)
}

// clean trims the payload and maps Persian digits in phone and national ID
// to Latin so stored values are digit-normalized.
func (nc *NewCustomer) clean() {
	nc.FullName = core.CleanString(nc.FullName)
	nc.Phone = core.CleanDigits(nc.Phone)
	nc.NationalID = core.CleanDigits(nc.NationalID)
	nc.Address = core.CleanString(nc.Address)
	nc.Note = core.CleanString(nc.Note)
}

type UpdateCustomer struct {
	FullName   string `json:"full_name" validate:"omitempty"`
	Phone      string `json:"phone" validate:"omitempty,irphone"`
	NationalID string `json:"national_id" validate:"omitempty,nationalid"`
	Address    string `json:"address"`
	Note       string `json:"note"`
}

func (uc *UpdateCustomer) Validate(ctx context.Context, origCust Customer, validate *validator.Validate, svc Service) error {
	uc.FullName = core.CleanString(uc.FullName)
	uc.Phone = core.CleanDigits(uc.Phone)
	uc.NationalID = core.CleanDigits(uc.NationalID)
	uc.Address = core.CleanString(uc.Address)
	uc.Note = core.CleanString(uc.Note)
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Phone != "" && uc.Phone != origCust.Phone {
		return svc.CheckPhoneUniqueness(ctx, uc.Phone, origCust)
	}
	return nil
}

// QueryFilter is a filter for quering customers.
type QueryFilter struct {
	Search      string    `query:"search"` // matches full name or phone
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	if qf == nil {
		return true
	}
	return qf.Search == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanDigits(qf.Search)
}

// GetFilter is a filter for getting a single customer.
type GetFilter struct {
	ID    string
	Phone string
}
