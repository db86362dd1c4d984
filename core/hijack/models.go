package hijack

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zargarco/zargar/core"
)

// Session statuses. A session leaves StatusActive exactly once; the
// terminal statuses are immutable.
const (
	StatusActive   = "active"
	StatusReleased = "released" // the owning superadmin ended it
	StatusExpired  = "expired"  // its TTL lapsed
	StatusRevoked  = "revoked"  // another superadmin force-ended it
)

// Session is the audit record of a superadmin impersonating a tenant user.
type Session struct {
	ID           string    `json:"id"`
	SuperAdminID string    `json:"superadmin_id"`
	TenantID     string    `json:"tenant_id"`
	TargetUserID string    `json:"target_user_id"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason"`
	ClientIP     string    `json:"client_ip"`
	UserAgent    string    `json:"user_agent"`
	StartedAt    time.Time `json:"started_at"`  // UTC
	ExpiresAt    time.Time `json:"expires_at"`  // UTC
	EndedAt      time.Time `json:"ended_at"`    // UTC; zero while active
}

func (s *Session) TTLExpired(now time.Time) bool {
	return s.Status == StatusActive && now.After(s.ExpiresAt)
}

// StartHijack contains what a superadmin must provide to impersonate a
// tenant user. The reason lands in the audit log verbatim.
type StartHijack struct {
	TenantID     string `json:"tenant_id" validate:"required,uuid4"`
	TargetUserID string `json:"target_user_id" validate:"required,uuid4"`
	Reason       string `json:"reason" validate:"required"`
}

func (sh *StartHijack) Validate(validate *validator.Validate) error {
	sh.Reason = core.CleanString(sh.Reason)
	return validate.Struct(sh)
}

type QueryFilter struct {
	TenantID     string    `query:"tenant_id"`
	SuperAdminID string    `query:"superadmin_id"`
	Status       string    `query:"status"`
	StartedFrom  time.Time `query:"started_from"`
	StartedTo    time.Time `query:"started_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.TenantID == "" && qf.SuperAdminID == "" && qf.Status == "" &&
		qf.StartedFrom.IsZero() && qf.StartedTo.IsZero()
}
