package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/notification"
)

type notificationRepository struct {
	db *announcementTable
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db *DB) *notificationRepository {
	return &notificationRepository{db: db.announcement}
}

func (repo *notificationRepository) CreateAnnouncement(ctx context.Context, a notification.Announcement, _ ...core.DBExecutor) (notification.Announcement, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return notification.Announcement{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	a.ID = uuid.New().String()
	rows, ok := repo.db.table[schema]
	if !ok {
		rows = make(map[string]*notification.Announcement)
		repo.db.table[schema] = rows
	}
	rows[a.ID] = &a
	return a, nil
}

func (repo *notificationRepository) QueryAnnouncements(ctx context.Context, _ ...core.DBExecutor) ([]notification.Announcement, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := repo.db.table[schema]
	anns := make([]notification.Announcement, 0, len(rows))
	for _, a := range rows {
		anns = append(anns, *a)
	}
	// newest first
	sort.SliceStable(anns, func(i, j int) bool {
		if !anns[i].StartsAt.Equal(anns[j].StartsAt) {
			return anns[i].StartsAt.After(anns[j].StartsAt)
		}
		return anns[i].ID < anns[j].ID
	})
	return anns, nil
}

func (repo *notificationRepository) GetAnnouncement(ctx context.Context, id string, _ ...core.DBExecutor) (notification.Announcement, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return notification.Announcement{}, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	if a, ok := repo.db.table[schema][id]; ok {
		return *a, nil
	}
	return notification.Announcement{}, notification.ErrNotFound
}

func (repo *notificationRepository) UpdateAnnouncement(ctx context.Context, a notification.Announcement, _ ...core.DBExecutor) (notification.Announcement, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return notification.Announcement{}, err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[schema][a.ID]
	if !ok {
		return notification.Announcement{}, notification.ErrNotFound
	}
	orig.Title = a.Title
	orig.Body = a.Body
	orig.Level = a.Level
	orig.Audience = a.Audience
	orig.StartsAt = a.StartsAt
	orig.EndsAt = a.EndsAt
	orig.UpdatedAt = a.UpdatedAt
	return *orig, nil
}

func (repo *notificationRepository) DeleteAnnouncement(ctx context.Context, id string, _ ...core.DBExecutor) error {
	schema, err := schemaOf(ctx)
	if err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[schema][id]; !ok {
		return notification.ErrNotFound
	}
	delete(repo.db.table[schema], id)
	return nil
}

func (repo *notificationRepository) MarkRead(ctx context.Context, m notification.ReadMark, _ ...core.DBExecutor) error {
	schema, err := schemaOf(ctx)
	if err != nil {
		return err
	}
	repo.db.Lock()
	defer repo.db.Unlock()

	// marking twice is a no-op
	for _, existing := range repo.db.reads[schema] {
		if existing.AnnouncementID == m.AnnouncementID && existing.UserID == m.UserID {
			return nil
		}
	}
	repo.db.reads[schema] = append(repo.db.reads[schema], m)
	return nil
}

func (repo *notificationRepository) ReadMarks(ctx context.Context, userID string, _ ...core.DBExecutor) ([]notification.ReadMark, error) {
	schema, err := schemaOf(ctx)
	if err != nil {
		return nil, err
	}
	repo.db.RLock()
	defer repo.db.RUnlock()

	var marks []notification.ReadMark
	for _, m := range repo.db.reads[schema] {
		if m.UserID == userID {
			marks = append(marks, m)
		}
	}
	return marks, nil
}
