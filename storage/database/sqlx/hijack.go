package sqlxrepos

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/hijack"
)

// hijackTableName lives in public: the audit trail must survive tenant
// teardown and is owned by the platform, not the shop.
const hijackTableName = "public.hijack_session"

type hijackRow struct {
	ID           string    `db:"id"`
	SuperAdminID string    `db:"superadmin_id"`
	TenantID     string    `db:"tenant_id"`
	TargetUserID string    `db:"target_user_id"`
	Status       string    `db:"status"`
	Reason       string    `db:"reason"`
	ClientIP     string    `db:"client_ip"`
	UserAgent    string    `db:"user_agent"`
	StartedAt    time.Time `db:"started_at"`
	ExpiresAt    time.Time `db:"expires_at"`
	EndedAt      null.Time `db:"ended_at"`
}

var hijackColumns = []string{
	"id", "superadmin_id", "tenant_id", "target_user_id", "status",
	"reason", "client_ip", "user_agent", "started_at", "expires_at", "ended_at",
}

type hijackRepository struct {
	db core.DBExecutor
}

var _ hijack.Repository = (*hijackRepository)(nil) // interface compliance check

func NewHijackRepository(db core.DBExecutor) *hijackRepository {
	return &hijackRepository{db: db}
}

func (repo hijackRepository) pack(s hijack.Session) hijackRow {
	return hijackRow{
		ID:           s.ID,
		SuperAdminID: s.SuperAdminID,
		TenantID:     s.TenantID,
		TargetUserID: s.TargetUserID,
		Status:       s.Status,
		Reason:       s.Reason,
		ClientIP:     s.ClientIP,
		UserAgent:    s.UserAgent,
		StartedAt:    s.StartedAt.UTC(),
		ExpiresAt:    s.ExpiresAt.UTC(),
		EndedAt:      null.NewTime(s.EndedAt.UTC(), !s.EndedAt.IsZero()),
	}
}

func (repo hijackRepository) unpack(r hijackRow) hijack.Session {
	return hijack.Session{
		ID:           r.ID,
		SuperAdminID: r.SuperAdminID,
		TenantID:     r.TenantID,
		TargetUserID: r.TargetUserID,
		Status:       r.Status,
		Reason:       r.Reason,
		ClientIP:     r.ClientIP,
		UserAgent:    r.UserAgent,
		StartedAt:    r.StartedAt,
		ExpiresAt:    r.ExpiresAt,
		EndedAt:      r.EndedAt.Time,
	}
}

func (repo hijackRepository) CreateSession(ctx context.Context, s hijack.Session, exec ...core.DBExecutor) (hijack.Session, error) {
	s.ID = uuid.New().String()
	r := repo.pack(s)

	query, args, err := psql.Insert(hijackTableName).
		Columns(hijackColumns...).
		Values(r.ID, r.SuperAdminID, r.TenantID, r.TargetUserID, r.Status, r.Reason, r.ClientIP, r.UserAgent, r.StartedAt, r.ExpiresAt, r.EndedAt).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return hijack.Session{}, errors.Wrap(err, "building query")
	}

	var saved hijackRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		if isPqError(err, pqUniqueViolation, "hijack_session_active_key") {
			return hijack.Session{}, hijack.ErrActiveExists
		}
		return hijack.Session{}, errors.Wrap(err, "inserting hijack session")
	}
	return repo.unpack(saved), nil
}

func (repo hijackRepository) GetSession(ctx context.Context, id string, exec ...core.DBExecutor) (hijack.Session, error) {
	if _, err := uuid.Parse(id); err != nil {
		return hijack.Session{}, hijack.ErrNotFound
	}

	query, args, err := psql.Select(hijackColumns...).From(hijackTableName).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return hijack.Session{}, errors.Wrap(err, "building query")
	}
	var r hijackRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return hijack.Session{}, trapNoRowsErr(err, hijack.ErrNotFound, "finding hijack session")
	}
	return repo.unpack(r), nil
}

func (repo hijackRepository) GetActiveSession(ctx context.Context, superAdminID, tenantID string, exec ...core.DBExecutor) (hijack.Session, error) {
	query, args, err := psql.Select(hijackColumns...).From(hijackTableName).
		Where(sq.Eq{"superadmin_id": superAdminID, "tenant_id": tenantID, "status": hijack.StatusActive}).
		ToSql()
	if err != nil {
		return hijack.Session{}, errors.Wrap(err, "building query")
	}
	var r hijackRow
	if err = executor(repo.db, exec).GetContext(ctx, &r, query, args...); err != nil {
		return hijack.Session{}, trapNoRowsErr(err, hijack.ErrNotFound, "finding active hijack session")
	}
	return repo.unpack(r), nil
}

func (repo hijackRepository) QuerySessions(ctx context.Context, filter *hijack.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]hijack.Session, error) {
	q := psql.Select(hijackColumns...).From(hijackTableName)

	if filter != nil {
		if filter.TenantID != "" {
			q = q.Where(sq.Eq{"tenant_id": filter.TenantID})
		}
		if filter.SuperAdminID != "" {
			q = q.Where(sq.Eq{"superadmin_id": filter.SuperAdminID})
		}
		if filter.Status != "" {
			q = q.Where(sq.Eq{"status": filter.Status})
		}
		if !filter.StartedFrom.IsZero() {
			q = q.Where(sq.GtOrEq{"started_at": filter.StartedFrom.UTC()})
		}
		if !filter.StartedTo.IsZero() {
			q = q.Where(sq.LtOrEq{"started_at": filter.StartedTo.UTC()})
		}
	}

	q = applyOrdering(q, ordering, map[string]struct{}{
		"started_at": {}, "expires_at": {}, "status": {},
	}, "started_at DESC")

	query, args, err := q.ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "building query")
	}
	var rows []hijackRow
	if err = executor(repo.db, exec).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "querying hijack sessions")
	}

	sessions := make([]hijack.Session, 0, len(rows))
	for _, r := range rows {
		sessions = append(sessions, repo.unpack(r))
	}
	return sessions, nil
}

func (repo hijackRepository) UpdateSession(ctx context.Context, s hijack.Session, exec ...core.DBExecutor) (hijack.Session, error) {
	r := repo.pack(s)

	query, args, err := psql.Update(hijackTableName).
		Set("status", r.Status).
		Set("ended_at", r.EndedAt).
		Where(sq.Eq{"id": s.ID}).
		Suffix("RETURNING *").
		ToSql()
	if err != nil {
		return hijack.Session{}, errors.Wrap(err, "building query")
	}

	var saved hijackRow
	if err = executor(repo.db, exec).GetContext(ctx, &saved, query, args...); err != nil {
		return hijack.Session{}, trapNoRowsErr(err, hijack.ErrNotFound, "updating hijack session")
	}
	return repo.unpack(saved), nil
}
