package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/notification"
)

type announcementRow struct {
	ID        string      `db:"id"`
	Title     string      `db:"title"`
	Body      string      `db:"body"`
	Level     string      `db:"level"`
	Audience  string      `db:"audience"`
	StartsAt  time.Time   `db:"starts_at"`
	EndsAt    null.Time   `db:"ends_at"`
	CreatedBy null.String `db:"created_by"`
	CreatedAt time.Time   `db:"created_at"`
	UpdatedAt null.Time   `db:"updated_at"`
}

var announcementColumns = []string{
	"id", "title", "body", "level", "audience", "starts_at", "ends_at",
	"created_by", "created_at", "updated_at",
}

type notificationRepository struct {
	db core.DBExecutor
}

var _ notification.Repository = (*notificationRepository)(nil) // interface compliance check

func NewNotificationRepository(db core.DBExecutor) *notificationRepository {
	return &notificationRepository{db: db}
}

func (repo notificationRepository) pack(a notification.Announcement) announcementRow {
	return announcementRow{
		ID:        a.ID,
		Title:     a.Title,
		Body:      a.Body,
		Level:     a.Level,
		Audience:  a.Audience,
		StartsAt:  a.StartsAt.UTC(),
		EndsAt:    null.NewTime(a.EndsAt.UTC(), !a.EndsAt.IsZero()),
		CreatedBy: null.NewString(a.CreatedBy, a.CreatedBy != ""),
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: null.NewTime(a.UpdatedAt.UTC(), !a.UpdatedAt.IsZero()),
	}
}

func (repo notificationRepository) unpack(r announcementRow) notification.Announcement {
	return notification.Announcement{
		ID:        r.ID,
		Title:     r.Title,
		Body:      r.Body,
		Level:     r.Level,
		Audience:  r.Audience,
		StartsAt:  r.StartsAt,
		EndsAt:    r.EndsAt.Time,
		CreatedBy: r.CreatedBy.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt.Time,
	}
}

func (repo notificationRepository) CreateAnnouncement(ctx context.Context, a notification.Announcement, exec ...core.DBExecutor) (notification.Announcement, error) {
	table, err := tenantTable(ctx, "announcement")
	if err != nil {
		return notification.Announcement{}, err
	}

	a.ID = uuid.New().String()
	r := repo.pack(a)

	query, args, err := psql.Insert(table).
		Columns(announcementColumns...).
		Values(r.ID, r.Title, r.Body, r.Level, r.Audience, r.StartsAt, r.EndsAt, r.CreatedBy, r.CreatedAt, r.UpdatedAt).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return notification.Announcement{}, errors.Wrap(err, "building query")
	}

	var saved announcementRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return notification.Announcement{}, errors.Wrap(err, "inserting announcement")
	}
	return repo.unpack(saved), nil
}

func (repo notificationRepository) QueryAnnouncements(ctx context.Context, exec ...core.DBExecutor) ([]notification.Announcement, error) {
	table, err := tenantTable(ctx, "announcement")
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select(announcementColumns...).From(table).
		OrderBy("starts_at DESC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []announcementRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying announcements")
	}

	anns := make([]notification.Announcement, 0, len(rows))
	for _, r := range rows {
		anns = append(anns, repo.unpack(r))
	}
	return anns, nil
}

func (repo notificationRepository) GetAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) (notification.Announcement, error) {
	table, err := tenantTable(ctx, "announcement")
	if err != nil {
		return notification.Announcement{}, err
	}
	if _, err = uuid.Parse(id); err != nil {
		return notification.Announcement{}, notification.ErrNotFound
	}

	query, args, err := psql.Select(announcementColumns...).From(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return notification.Announcement{}, errors.Wrap(err, "building query")
	}
	var r announcementRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return notification.Announcement{}, trapNoRowsErr(err, notification.ErrNotFound, "finding announcement")
	}
	return repo.unpack(r), nil
}

func (repo notificationRepository) UpdateAnnouncement(ctx context.Context, a notification.Announcement, exec ...core.DBExecutor) (notification.Announcement, error) {
	table, err := tenantTable(ctx, "announcement")
	if err != nil {
		return notification.Announcement{}, err
	}

	r := repo.pack(a)
	query, args, err := psql.Update(table).
		Set("title", r.Title).
		Set("body", r.Body).
		Set("level", r.Level).
		Set("audience", r.Audience).
		Set("starts_at", r.StartsAt).
		Set("ends_at", r.EndsAt).
		Set("updated_at", r.UpdatedAt).
		Where(sq.Eq{"id": a.ID}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return notification.Announcement{}, errors.Wrap(err, "building query")
	}

	var saved announcementRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return notification.Announcement{}, trapNoRowsErr(err, notification.ErrNotFound, "updating announcement")
	}
	return repo.unpack(saved), nil
}

func (repo notificationRepository) DeleteAnnouncement(ctx context.Context, id string, exec ...core.DBExecutor) error {
	table, err := tenantTable(ctx, "announcement")
	if err != nil {
		return err
	}

	query, args, err := psql.Delete(table).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	res, err := executor(repo.db, exec).ExecContext(ctx, query, args...)
	if err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	cnt, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "deleting announcement")
	}
	if cnt == 0 {
		return notification.ErrNotFound
	}
	return nil
}

func (repo notificationRepository) MarkRead(ctx context.Context, m notification.ReadMark, exec ...core.DBExecutor) error {
	table, err := tenantTable(ctx, "announcement_read")
	if err != nil {
		return err
	}

	// marking twice is a no-op
	query, args, err := psql.Insert(table).
		Columns("announcement_id", "user_id", "read_at").
		Values(m.AnnouncementID, m.UserID, m.ReadAt.UTC()).
		Suffix("ON CONFLICT (announcement_id, user_id) DO NOTHING").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	if _, err = executor(repo.db, exec).ExecContext(ctx, query, args...); err != nil {
		return errors.Wrap(err, "marking announcement read")
	}
	return nil
}

func (repo notificationRepository) ReadMarks(ctx context.Context, userID string, exec ...core.DBExecutor) ([]notification.ReadMark, error) {
	table, err := tenantTable(ctx, "announcement_read")
	if err != nil {
		return nil, err
	}

	query, args, err := psql.Select("announcement_id", "user_id", "read_at").From(table).
		Where(sq.Eq{"user_id": userID}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}

	var rows []struct {
		AnnouncementID string    `db:"announcement_id"`
		UserID         string    `db:"user_id"`
		ReadAt         time.Time `db:"read_at"`
	}
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying read marks")
	}

	marks := make([]notification.ReadMark, 0, len(rows))
	for _, r := range rows {
		marks = append(marks, notification.ReadMark{
			AnnouncementID: r.AnnouncementID,
			UserID:         r.UserID,
			ReadAt:         r.ReadAt,
		})
	}
	return marks, nil
}
