package notification

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/user"
)

// Levels
const (
	LevelInfo     = "info"
	LevelWarning  = "warning"
	LevelCritical = "critical"
)

// Audiences. An announcement targets everyone, one role, or one user.
const (
	AudienceAll        = "all"
	audienceRolePrefix = "role:"
	audienceUserPrefix = "user:"
)

func AudienceRole(role string) string   { return audienceRolePrefix + role }
func AudienceUser(userID string) string { return audienceUserPrefix + userID }

func validAudience(aud string) bool {
	switch {
	case aud == AudienceAll:
		return true
	case strings.HasPrefix(aud, audienceRolePrefix):
		want := strings.TrimPrefix(aud, audienceRolePrefix)
		for _, role := range user.AllRoles {
			if role == want {
				return true
			}
		}
	case strings.HasPrefix(aud, audienceUserPrefix):
		_, err := uuid.Parse(strings.TrimPrefix(aud, audienceUserPrefix))
		return err == nil
	}
	return false
}

type (
	Announcement struct {
		ID        string    `json:"id"`
		Title     string    `json:"title"`
		Body      string    `json:"body"`
		Level     string    `json:"level"`
		Audience  string    `json:"audience"`
		StartsAt  time.Time `json:"starts_at"`           // UTC
		EndsAt    time.Time `json:"ends_at,omitempty"`   // UTC; zero means open-ended
		CreatedBy string    `json:"created_by,omitempty"`
		CreatedAt time.Time `json:"created_at"` // UTC
		UpdatedAt time.Time `json:"updated_at"` // UTC
	}

	ReadMark struct {
		AnnouncementID string    `json:"announcement_id"`
		UserID         string    `json:"user_id"`
		ReadAt         time.Time `json:"read_at"` // UTC
	}

	// UserAnnouncement is an announcement as one user sees it.
	UserAnnouncement struct {
		Announcement
		Read   bool      `json:"read"`
		ReadAt time.Time `json:"read_at,omitempty"`
	}
)

func (a *Announcement) ActiveAt(now time.Time) bool {
	if now.Before(a.StartsAt) {
		return false
	}
	return a.EndsAt.IsZero() || now.Before(a.EndsAt)
}

func (a *Announcement) MatchesUser(usr user.User) bool {
	switch {
	case a.Audience == AudienceAll:
		return true
	case strings.HasPrefix(a.Audience, audienceRolePrefix):
		want := strings.TrimPrefix(a.Audience, audienceRolePrefix)
		for _, role := range usr.Roles {
			if role == want {
				return true
			}
		}
	case strings.HasPrefix(a.Audience, audienceUserPrefix):
		return strings.TrimPrefix(a.Audience, audienceUserPrefix) == usr.ID
	}
	return false
}

type NewAnnouncement struct {
	Title    string    `json:"title" validate:"required,max=128"`
	Body     string    `json:"body" validate:"required"`
	Level    string    `json:"level" validate:"oneof=info warning critical"`
	Audience string    `json:"audience"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func (na *NewAnnouncement) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	na.Body = core.CleanString(na.Body)
	na.Level = core.CleanString(na.Level, true /* lower */)
	na.Audience = core.CleanString(na.Audience, true /* lower */)
	if na.Level == "" {
		na.Level = LevelInfo
	}
	if na.Audience == "" {
		na.Audience = AudienceAll
	}
	if na.StartsAt.IsZero() {
		na.StartsAt = time.Now().UTC()
	}

	if err := validate.Struct(na); err != nil {
		return err
	}
	return validateWindow(na.Audience, na.StartsAt, na.EndsAt)
}

// UpdateAnnouncement carries the fields to change; zero values mean
// unchanged. A set EndsAt replaces the window end; there is no way to
// clear it back to open-ended short of recreating the announcement.
type UpdateAnnouncement struct {
	Title    string    `json:"title" validate:"omitempty,max=128"`
	Body     string    `json:"body"`
	Level    string    `json:"level" validate:"omitempty,oneof=info warning critical"`
	Audience string    `json:"audience"`
	StartsAt time.Time `json:"starts_at"`
	EndsAt   time.Time `json:"ends_at"`
}

func (ua *UpdateAnnouncement) Validate(validate *validator.Validate) error {
	ua.Title = core.CleanString(ua.Title)
	ua.Body = core.CleanString(ua.Body)
	ua.Level = core.CleanString(ua.Level, true /* lower */)
	ua.Audience = core.CleanString(ua.Audience, true /* lower */)

	if err := validate.Struct(ua); err != nil {
		return err
	}
	if ua.Audience != "" && !validAudience(ua.Audience) {
		return core.NewValidationError(nil, core.FieldError{
			Field: "audience",
			Error: "audience must be all, role:<role> or user:<id>",
		})
	}
	return nil
}

func validateWindow(audience string, startsAt, endsAt time.Time) error {
	var flds []core.FieldError
	if !validAudience(audience) {
		flds = append(flds, core.FieldError{
			Field: "audience",
			Error: "audience must be all, role:<role> or user:<id>",
		})
	}
	if !endsAt.IsZero() && !endsAt.After(startsAt) {
		flds = append(flds, core.FieldError{
			Field: "ends_at",
			Error: "end must come after start",
		})
	}
	if len(flds) > 0 {
		return core.NewValidationError(nil, flds...)
	}
	return nil
}
