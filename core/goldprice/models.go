package goldprice

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zargarco/zargar/core"
)

// Price sources
const (
	SourceManual = "manual"
	SourceBoard  = "board"
)

// GoldPrice is one board quote. PricePerGram is toman per gram of 18 karat
// gold, the base all other karats are scaled from.
type GoldPrice struct {
	ID           string          `json:"id"`
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	Source       string          `json:"source"`
	At           time.Time       `json:"at"`
	ByUserID     string          `json:"by_user_id"`
}

type SetGoldPrice struct {
	PricePerGram decimal.Decimal `json:"price_per_gram"`
	Source       string          `json:"source" validate:"omitempty,oneof=manual board"`
}

func (sp *SetGoldPrice) Validate(validate *validator.Validate) error {
	sp.Source = core.CleanString(sp.Source, true)
	if sp.Source == "" {
		sp.Source = SourceManual
	}
	if err := validate.Struct(sp); err != nil {
		return err
	}
	if !sp.PricePerGram.IsPositive() {
		return core.NewValidationError(nil, core.FieldError{
			Field: "price_per_gram",
			Error: "price must be greater than zero",
		})
	}
	if !sp.PricePerGram.Equal(sp.PricePerGram.Truncate(0)) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "price_per_gram",
			Error: "price must be a whole toman amount",
		})
	}
	return nil
}
