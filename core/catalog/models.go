package catalog

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
)

// Category kinds
const (
	KindGold  = "gold"
	KindCoin  = "coin"
	KindStone = "stone"
	KindMisc  = "misc"
)

// Stock movement reasons
const (
	ReasonInitial  = "initial"
	ReasonPurchase = "purchase"
	ReasonSale     = "sale"
	ReasonAdjust   = "adjust"
)

// Karats lists the purities a product can be listed under. 18 is the
// Iranian retail base.
var Karats = []int{18, 21, 22, 24}

type (
	Category struct {
		ID        string    `json:"id"`
		Name      string    `json:"name"`
		Kind      string    `json:"kind"`
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}

	Product struct {
		ID          string          `json:"id"`
		SKU         string          `json:"sku"`
		Name        string          `json:"name"`
		CategoryID  string          `json:"category_id"`
		Karat       int             `json:"karat"`
		WeightGrams decimal.Decimal `json:"weight_grams"`
		WagePct     decimal.Decimal `json:"wage_pct"`
		StoneValue  decimal.Decimal `json:"stone_value"`
		Quantity    int             `json:"quantity"`
		IsActive    *bool           `json:"is_active"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   time.Time       `json:"updated_at"`
	}

	StockEntry struct {
		ID        string    `json:"id"`
		ProductID string    `json:"product_id"`
		Delta     int       `json:"delta"`
		Reason    string    `json:"reason"`
		Note      string    `json:"note"`
		ByUserID  string    `json:"by_user_id"`
		At        time.Time `json:"at"`
	}
)

type NewCategory struct {
	Name string `json:"name" validate:"required"`
	Kind string `json:"kind" validate:"omitempty,oneof=gold coin stone misc"`
}

func (nc *NewCategory) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Kind = core.CleanString(nc.Kind, true)
	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckCategoryNameUniqueness(ctx, nc.Name)
}

type UpdateCategory struct {
	Name string `json:"name" validate:"omitempty"`
	Kind string `json:"kind" validate:"omitempty,oneof=gold coin stone misc"`
}

func (uc *UpdateCategory) Validate(ctx context.Context, origCat Category, validate *validator.Validate, svc Service) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Kind = core.CleanString(uc.Kind, true)
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Name != "" && uc.Name != origCat.Name {
		return svc.CheckCategoryNameUniqueness(ctx, uc.Name)
	}
	return nil
}

type NewProduct struct {
	SKU         string          `json:"sku" validate:"required,max=64"`
	Name        string          `json:"name" validate:"required"`
	CategoryID  string          `json:"category_id" validate:"required,uuid4"`
	Karat       int             `json:"karat" validate:"omitempty,oneof=18 21 22 24"`
	WeightGrams decimal.Decimal `json:"weight_grams"`
	WagePct     decimal.Decimal `json:"wage_pct"`
	StoneValue  decimal.Decimal `json:"stone_value"`
	Quantity    int             `json:"quantity" validate:"min=0"`
}

func (np *NewProduct) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	np.SKU = core.CleanString(np.SKU, true)
	np.Name = core.CleanString(np.Name)
	if err := validate.Struct(np); err != nil {
		return err
	}

	cat, err := svc.GetCategory(ctx, np.CategoryID)
	if err != nil {
		if errors.Cause(err) == ErrCategoryNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "category_id", Error: err.Error()})
		}
		return err
	}
	if err = checkWeight(cat.Kind, np.WeightGrams); err != nil {
		return err
	}
	return svc.CheckSKUUniqueness(ctx, np.SKU)
}

type UpdateProduct struct {
	SKU         string              `json:"sku" validate:"omitempty,max=64"`
	Name        string              `json:"name" validate:"omitempty"`
	CategoryID  string              `json:"category_id" validate:"omitempty,uuid4"`
	Karat       int                 `json:"karat" validate:"omitempty,oneof=18 21 22 24"`
	WeightGrams decimal.NullDecimal `json:"weight_grams"`
	WagePct     decimal.NullDecimal `json:"wage_pct"`
	StoneValue  decimal.NullDecimal `json:"stone_value"`
	IsActive    *bool               `json:"is_active"`
}

// Validate cleans and validates the payload against the product being updated.
// Quantity is deliberately absent; stock moves only through AdjustStock.
func (up *UpdateProduct) Validate(ctx context.Context, origProd Product, validate *validator.Validate, svc Service) error {
	up.SKU = core.CleanString(up.SKU, true)
	up.Name = core.CleanString(up.Name)
	if err := validate.Struct(up); err != nil {
		return err
	}

	catID := origProd.CategoryID
	if up.CategoryID != "" {
		catID = up.CategoryID
	}
	cat, err := svc.GetCategory(ctx, catID)
	if err != nil {
		if errors.Cause(err) == ErrCategoryNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "category_id", Error: err.Error()})
		}
		return err
	}
	weight := origProd.WeightGrams
	if up.WeightGrams.Valid {
		weight = up.WeightGrams.Decimal
	}
	if err = checkWeight(cat.Kind, weight); err != nil {
		return err
	}
	if up.SKU != "" && up.SKU != origProd.SKU {
		return svc.CheckSKUUniqueness(ctx, up.SKU, origProd)
	}
	return nil
}

func checkWeight(kind string, weight decimal.Decimal) error {
	if kind == KindGold && !weight.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{
			Field: "weight_grams",
			Error: "weight must be greater than zero for gold products",
		})
	}
	if weight.IsNegative() {
		return core.NewValidationError(nil, core.FieldError{
			Field: "weight_grams",
			Error: "weight cannot be negative",
		})
	}
	return nil
}

type StockAdjustment struct {
	Delta  int    `json:"delta" validate:"required"`
	Reason string `json:"reason" validate:"omitempty,oneof=initial purchase sale adjust"`
	Note   string `json:"note"`
}

func (sa *StockAdjustment) Validate(validate *validator.Validate) error {
	sa.Reason = core.CleanString(sa.Reason, true)
	if sa.Reason == "" {
		sa.Reason = ReasonAdjust
	}
	sa.Note = core.CleanString(sa.Note)
	return validate.Struct(sa)
}

// QueryFilter is a filter for quering products.
type QueryFilter struct {
	Search     string          `query:"search"` // matches SKU or name
	CategoryID string          `query:"category_id"`
	Karat      int             `query:"karat"`
	IsActive   *bool           `query:"is_active"`
	WeightFrom decimal.Decimal `query:"weight_from"`
	WeightTo   decimal.Decimal `query:"weight_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	if qf == nil {
		return true
	}
	return qf.Search == "" && qf.CategoryID == "" && qf.Karat == 0 &&
		qf.IsActive == nil && qf.WeightFrom.IsZero() && qf.WeightTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.CategoryID = core.CleanString(qf.CategoryID)
}

// GetFilter is a filter for getting a single product.
type GetFilter struct {
	ID  string
	SKU string
}
