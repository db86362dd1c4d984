package notification

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/user"
)

type repoStub struct {
	announcements map[string]Announcement
	marks         map[string]ReadMark // announcementID+userID
	seq           int
}

func newRepoStub() *repoStub {
	return &repoStub{
		announcements: make(map[string]Announcement),
		marks:         make(map[string]ReadMark),
	}
}

func (r *repoStub) CreateAnnouncement(_ context.Context, a Announcement, _ ...core.DBExecutor) (Announcement, error) {
	r.seq++
	a.ID = fmt.Sprintf("%08x-0000-4000-8000-%012x", r.seq, r.seq)
	r.announcements[a.ID] = a
	return a, nil
}
func (r *repoStub) QueryAnnouncements(_ context.Context, _ ...core.DBExecutor) ([]Announcement, error) {
	as := make([]Announcement, 0, len(r.announcements))
	for _, a := range r.announcements {
		as = append(as, a)
	}
	return as, nil
}
func (r *repoStub) GetAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) (Announcement, error) {
	if a, ok := r.announcements[id]; ok {
		return a, nil
	}
	return Announcement{}, ErrNotFound
}
func (r *repoStub) UpdateAnnouncement(_ context.Context, a Announcement, _ ...core.DBExecutor) (Announcement, error) {
	if _, ok := r.announcements[a.ID]; !ok {
		return Announcement{}, ErrNotFound
	}
	r.announcements[a.ID] = a
	return a, nil
}
func (r *repoStub) DeleteAnnouncement(_ context.Context, id string, _ ...core.DBExecutor) error {
	if _, ok := r.announcements[id]; !ok {
		return ErrNotFound
	}
	delete(r.announcements, id)
	return nil
}
func (r *repoStub) MarkRead(_ context.Context, m ReadMark, _ ...core.DBExecutor) error {
	key := m.AnnouncementID + m.UserID
	if _, ok := r.marks[key]; !ok {
		r.marks[key] = m
	}
	return nil
}
func (r *repoStub) ReadMarks(_ context.Context, userID string, _ ...core.DBExecutor) ([]ReadMark, error) {
	var ms []ReadMark
	for _, m := range r.marks {
		if m.UserID == userID {
			ms = append(ms, m)
		}
	}
	return ms, nil
}

var cashier = user.User{
	ID:    "22222222-0000-4000-8000-000000000002",
	Name:  "Sara",
	Roles: []string{user.RoleShopCashier},
}

func seedAnnouncements(t *testing.T, svc Service) map[string]Announcement {
	t.Helper()
	ctx := context.Background()
	validate := validator.New()
	out := make(map[string]Announcement)
	add := func(key string, na NewAnnouncement) {
		if err := na.Validate(validate); err != nil {
			t.Fatalf("Validate(%s) error = %v", key, err)
		}
		a, err := svc.Create(ctx, na, "owner-1")
		if err != nil {
			t.Fatalf("Create(%s) error = %v", key, err)
		}
		out[key] = a
	}

	now := time.Now().UTC()
	add("everyone", NewAnnouncement{Title: "تعطیلی نوروز", Body: "b", Level: LevelInfo, Audience: AudienceAll, StartsAt: now.Add(-time.Hour)})
	add("cashiers", NewAnnouncement{Title: "صندوق", Body: "b", Level: LevelWarning, Audience: AudienceRole(user.RoleShopCashier), StartsAt: now.Add(-time.Hour)})
	add("owners", NewAnnouncement{Title: "حسابرسی", Body: "b", Level: LevelCritical, Audience: AudienceRole(user.RoleShopOwner), StartsAt: now.Add(-time.Hour)})
	add("direct", NewAnnouncement{Title: "پیام شخصی", Body: "b", Audience: AudienceUser(cashier.ID), StartsAt: now.Add(-time.Hour)})
	add("expired", NewAnnouncement{Title: "قدیمی", Body: "b", StartsAt: now.Add(-48 * time.Hour), EndsAt: now.Add(-24 * time.Hour)})
	add("upcoming", NewAnnouncement{Title: "بعدی", Body: "b", StartsAt: now.Add(24 * time.Hour)})
	return out
}

func TestCreateDefaults(t *testing.T) {
	svc := NewService(newRepoStub())
	validate := validator.New()

	na := NewAnnouncement{Title: "t", Body: "b"}
	if err := na.Validate(validate); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	a, err := svc.Create(context.Background(), na, "owner-1")
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if a.Level != LevelInfo {
		t.Errorf("Level = %q, want %q", a.Level, LevelInfo)
	}
	if a.Audience != AudienceAll {
		t.Errorf("Audience = %q, want %q", a.Audience, AudienceAll)
	}
	if a.StartsAt.IsZero() {
		t.Error("StartsAt not defaulted")
	}
	if !a.ActiveAt(time.Now().UTC()) {
		t.Error("freshly created announcement should be active")
	}
}

func TestNewAnnouncementValidate(t *testing.T) {
	validate := validator.New()
	now := time.Now().UTC()
	tests := []struct {
		name    string
		na      NewAnnouncement
		wantErr bool
	}{
		{"ok", NewAnnouncement{Title: "t", Body: "b"}, false},
		{"role audience", NewAnnouncement{Title: "t", Body: "b", Audience: AudienceRole(user.RoleShopOwner)}, false},
		{"user audience", NewAnnouncement{Title: "t", Body: "b", Audience: AudienceUser(cashier.ID)}, false},
		{"missing title", NewAnnouncement{Body: "b"}, true},
		{"missing body", NewAnnouncement{Title: "t"}, true},
		{"bad level", NewAnnouncement{Title: "t", Body: "b", Level: "urgent"}, true},
		{"unknown role", NewAnnouncement{Title: "t", Body: "b", Audience: "role:shop:janitor"}, true},
		{"malformed user audience", NewAnnouncement{Title: "t", Body: "b", Audience: "user:42"}, true},
		{"ends before starts", NewAnnouncement{Title: "t", Body: "b", StartsAt: now, EndsAt: now.Add(-time.Hour)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.na.Validate(validate)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestForUser(t *testing.T) {
	svc := NewService(newRepoStub())
	seeded := seedAnnouncements(t, svc)

	uas, err := svc.ForUser(context.Background(), cashier)
	if err != nil {
		t.Fatalf("ForUser() error = %v", err)
	}
	got := make(map[string]bool, len(uas))
	for _, ua := range uas {
		got[ua.ID] = true
	}
	for _, key := range []string{"everyone", "cashiers", "direct"} {
		if !got[seeded[key].ID] {
			t.Errorf("%s announcement missing", key)
		}
	}
	for _, key := range []string{"owners", "expired", "upcoming"} {
		if got[seeded[key].ID] {
			t.Errorf("%s announcement should not be visible", key)
		}
	}
}

func TestMarkReadIdempotent(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepoStub())
	seeded := seedAnnouncements(t, svc)

	n, err := svc.UnreadCount(ctx, cashier)
	if err != nil {
		t.Fatalf("UnreadCount() error = %v", err)
	}
	if n != 3 {
		t.Fatalf("UnreadCount() = %d, want 3", n)
	}

	for i := 0; i < 2; i++ {
		if err = svc.MarkRead(ctx, seeded["cashiers"].ID, cashier); err != nil {
			t.Fatalf("MarkRead() #%d error = %v", i+1, err)
		}
	}
	if n, _ = svc.UnreadCount(ctx, cashier); n != 2 {
		t.Errorf("UnreadCount() after double mark = %d, want 2", n)
	}

	uas, _ := svc.ForUser(ctx, cashier)
	for _, ua := range uas {
		if ua.ID == seeded["cashiers"].ID {
			if !ua.Read || ua.ReadAt.IsZero() {
				t.Errorf("read flag not attached: %+v", ua)
			}
		}
	}

	if err = svc.MarkRead(ctx, "missing", cashier); err == nil {
		t.Error("MarkRead() of unknown announcement error = nil, want error")
	}
}

func TestUpdateWindow(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newRepoStub())
	seeded := seedAnnouncements(t, svc)
	a := seeded["everyone"]

	got, err := svc.Update(ctx, a.ID, UpdateAnnouncement{Level: LevelCritical})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.Level != LevelCritical {
		t.Errorf("Level = %q, want %q", got.Level, LevelCritical)
	}
	if got.Title != a.Title {
		t.Errorf("Title = %q, want unchanged %q", got.Title, a.Title)
	}

	// moving the end before the start is rejected on the merged result
	if _, err = svc.Update(ctx, a.ID, UpdateAnnouncement{EndsAt: a.StartsAt.Add(-time.Minute)}); !core.IsValidationError(err) {
		t.Errorf("Update() error = %v, want validation error", err)
	}
}
