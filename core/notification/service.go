package notification

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/user"
)

var ErrNotFound = errors.New("announcement not found")

type (
	Repository interface {
		CreateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		QueryAnnouncements(ctx context.Context, exec ...core.DBExecutor) ([]Announcement, error)
		GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (Announcement, error)
		UpdateAnnouncement(ctx context.Context, a Announcement, exec ...core.DBExecutor) (Announcement, error)
		DeleteAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) error

		// MarkRead records the mark; marking twice is a no-op.
		MarkRead(ctx context.Context, m ReadMark, exec ...core.DBExecutor) error
		ReadMarks(ctx context.Context, userID string, exec ...core.DBExecutor) ([]ReadMark, error)
	}

	Service interface {
		Create(ctx context.Context, na NewAnnouncement, createdBy string) (Announcement, error)
		Query(ctx context.Context) ([]Announcement, error)
		GetByID(ctx context.Context, id string) (Announcement, error)
		Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error)
		Delete(ctx context.Context, id string) error

		ForUser(ctx context.Context, usr user.User) ([]UserAnnouncement, error)
		MarkRead(ctx context.Context, announcementID string, usr user.User) error
		UnreadCount(ctx context.Context, usr user.User) (int, error)
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, na NewAnnouncement, createdBy string) (Announcement, error) {
	now := time.Now().UTC()
	return svc.repo.CreateAnnouncement(ctx, Announcement{
		Title:     na.Title,
		Body:      na.Body,
		Level:     na.Level,
		Audience:  na.Audience,
		StartsAt:  na.StartsAt,
		EndsAt:    na.EndsAt,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *service) Query(ctx context.Context) ([]Announcement, error) {
	return svc.repo.QueryAnnouncements(ctx)
}

func (svc *service) GetByID(ctx context.Context, id string) (Announcement, error) {
	return svc.repo.GetAnnouncement(ctx, id)
}

func (svc *service) Update(ctx context.Context, id string, ua UpdateAnnouncement) (Announcement, error) {
	a, err := svc.GetByID(ctx, id)
	if err != nil {
		return Announcement{}, err
	}

	if ua.Title != "" {
		a.Title = ua.Title
	}
	if ua.Body != "" {
		a.Body = ua.Body
	}
	if ua.Level != "" {
		a.Level = ua.Level
	}
	if ua.Audience != "" {
		a.Audience = ua.Audience
	}
	if !ua.StartsAt.IsZero() {
		a.StartsAt = ua.StartsAt
	}
	if !ua.EndsAt.IsZero() {
		a.EndsAt = ua.EndsAt
	}
	// the merged window still has to make sense
	if err = validateWindow(a.Audience, a.StartsAt, a.EndsAt); err != nil {
		return Announcement{}, err
	}
	a.UpdatedAt = time.Now().UTC()
	return svc.repo.UpdateAnnouncement(ctx, a)
}

func (svc *service) Delete(ctx context.Context, id string) error {
	if _, err := svc.GetByID(ctx, id); err != nil {
		return err
	}
	return svc.repo.DeleteAnnouncement(ctx, id)
}

// ForUser returns the announcements currently addressed to usr, most
// recent first ordering left to the repository, with read flags attached.
func (svc *service) ForUser(ctx context.Context, usr user.User) ([]UserAnnouncement, error) {
	all, err := svc.repo.QueryAnnouncements(ctx)
	if err != nil {
		return nil, err
	}
	marks, err := svc.repo.ReadMarks(ctx, usr.ID)
	if err != nil {
		return nil, err
	}
	readAt := make(map[string]time.Time, len(marks))
	for _, m := range marks {
		readAt[m.AnnouncementID] = m.ReadAt
	}

	now := time.Now().UTC()
	uas := make([]UserAnnouncement, 0, len(all))
	for _, a := range all {
		if !a.ActiveAt(now) || !a.MatchesUser(usr) {
			continue
		}
		ua := UserAnnouncement{Announcement: a}
		if at, ok := readAt[a.ID]; ok {
			ua.Read = true
			ua.ReadAt = at
		}
		uas = append(uas, ua)
	}
	return uas, nil
}

func (svc *service) MarkRead(ctx context.Context, announcementID string, usr user.User) error {
	if _, err := svc.GetByID(ctx, announcementID); err != nil {
		return err
	}
	return svc.repo.MarkRead(ctx, ReadMark{
		AnnouncementID: announcementID,
		UserID:         usr.ID,
		ReadAt:         time.Now().UTC(),
	})
}

func (svc *service) UnreadCount(ctx context.Context, usr user.User) (int, error) {
	uas, err := svc.ForUser(ctx, usr)
	if err != nil {
		return 0, err
	}
	var n int
	for _, ua := range uas {
		if !ua.Read {
			n++
		}
	}
	return n, nil
}
