package tenant

import (
	"context"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zargarco/zargar/core"
)

// Plans
const (
	PlanBasic      = "basic"
	PlanPro        = "pro"
	PlanEnterprise = "enterprise"
)

// reservedSubdomains cannot be claimed by shops; they are (or may become)
// platform hostnames.
var reservedSubdomains = map[string]struct{}{
	"www":    {},
	"api":    {},
	"admin":  {},
	"app":    {},
	"mail":   {},
	"static": {},
	"assets": {},
	"cdn":    {},
	"status": {},
	"docs":   {},
}

// SchemaFor derives the Postgres schema name for a subdomain.
// Hyphens are not valid in identifiers and map to underscores.
func SchemaFor(subdomain string) string {
	return "t_" + strings.ReplaceAll(subdomain, "-", "_")
}

type Tenant struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Subdomain  string    `json:"subdomain"`
	SchemaName string    `json:"schema_name"`
	Plan       string    `json:"plan"`
	IsActive   *bool     `json:"is_active"`
	PaidUntil  time.Time `json:"paid_until"`
	CreatedAt  time.Time `json:"created_at"` // UTC
	UpdatedAt  time.Time `json:"updated_at"` // UTC
}

func (t *Tenant) Active() bool {
	return t.IsActive == nil || *t.IsActive
}

// NewTenant contains information needed to register a shop.
type NewTenant struct {
	Name      string `json:"name" validate:"required"`
	Subdomain string `json:"subdomain" validate:"required,subdomain"`
	Plan      string `json:"plan" validate:"omitempty,oneof=basic pro enterprise"`
}

func (nt *NewTenant) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	nt.Name = core.CleanString(nt.Name)
	nt.Subdomain = core.CleanString(nt.Subdomain, true /* lower */)
	nt.Plan = core.CleanString(nt.Plan, true /* lower */)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	if _, ok := reservedSubdomains[nt.Subdomain]; ok {
		return core.NewValidationError(nil, core.FieldError{Field: "subdomain", Error: "this subdomain is reserved"})
	}
	return svc.CheckSubdomainUniqueness(ctx, nt.Subdomain)
}

// UpdateTenant defines what may change after registration. The subdomain
// (and so the schema) is fixed for a tenant's lifetime.
type UpdateTenant struct {
	Name      string    `json:"name"`
	Plan      string    `json:"plan" validate:"omitempty,oneof=basic pro enterprise"`
	IsActive  *bool     `json:"is_active"`
	PaidUntil time.Time `json:"paid_until"`
}

func (ut *UpdateTenant) Validate(origTenant Tenant, validate *validator.Validate) error {
	if name := core.CleanString(ut.Name); name != "" {
		ut.Name = name
	} else {
		ut.Name = origTenant.Name
	}
	if plan := core.CleanString(ut.Plan, true /* lower */); plan != "" {
		ut.Plan = plan
	} else {
		ut.Plan = origTenant.Plan
	}
	return validate.Struct(ut)
}

type QueryFilter struct {
	Search    string `query:"search"`
	Plan      string `query:"plan"`
	IsActive  *bool  `query:"is_active"`
	Subdomain string `query:"subdomain"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.Plan == "" && qf.IsActive == nil && qf.Subdomain == ""
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Plan = core.CleanString(qf.Plan, true /* lower */)
	qf.Subdomain = core.CleanString(qf.Subdomain, true /* lower */)
}

// GetFilter selects a single Tenant; ID wins over Subdomain.
type GetFilter struct {
	ID        string
	Subdomain string
}
