package inmemdb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/hijack"
)

// hijackRepository backs the impersonation audit trail. The trail is owned
// by the platform, so its table is not partitioned.
type hijackRepository struct {
	db *hijackTable
}

var _ hijack.Repository = (*hijackRepository)(nil) // interface compliance check

func NewHijackRepository(db *DB) *hijackRepository {
	return &hijackRepository{db: db.hijack}
}

func (repo *hijackRepository) query() []hijack.Session {
	sessions := make([]hijack.Session, 0, len(repo.db.table))
	for _, s := range repo.db.table {
		sessions = append(sessions, *s)
	}
	return sessions
}

func (repo *hijackRepository) CreateSession(_ context.Context, s hijack.Session, _ ...core.DBExecutor) (hijack.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	// mirror of the partial unique index on active (superadmin, tenant) pairs
	for _, existing := range repo.db.table {
		if existing.Status == hijack.StatusActive &&
			existing.SuperAdminID == s.SuperAdminID && existing.TenantID == s.TenantID {
			return hijack.Session{}, hijack.ErrActiveExists
		}
	}
	s.ID = uuid.New().String()
	repo.db.table[s.ID] = &s
	return s, nil
}

func (repo *hijackRepository) GetSession(_ context.Context, id string, _ ...core.DBExecutor) (hijack.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if s, ok := repo.db.table[id]; ok {
		return *s, nil
	}
	return hijack.Session{}, hijack.ErrNotFound
}

func (repo *hijackRepository) GetActiveSession(_ context.Context, superAdminID, tenantID string, _ ...core.DBExecutor) (hijack.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, s := range repo.query() {
		if s.Status == hijack.StatusActive && s.SuperAdminID == superAdminID && s.TenantID == tenantID {
			return s, nil
		}
	}
	return hijack.Session{}, hijack.ErrNotFound
}

func (repo *hijackRepository) QuerySessions(_ context.Context, filter *hijack.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]hijack.Session, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sessions := repo.query()
	if filter != nil && !filter.IsEmpty() {
		filtered := sessions[:0]
		for _, s := range sessions {
			if matchSession(s, filter) {
				filtered = append(filtered, s)
			}
		}
		sessions = filtered
	}
	sortSessions(sessions, ordering)
	return sessions, nil
}

func matchSession(s hijack.Session, filter *hijack.QueryFilter) bool {
	if filter.TenantID != "" && s.TenantID != filter.TenantID {
		return false
	}
	if filter.SuperAdminID != "" && s.SuperAdminID != filter.SuperAdminID {
		return false
	}
	if filter.Status != "" && s.Status != filter.Status {
		return false
	}
	if !filter.StartedFrom.IsZero() && s.StartedAt.Before(filter.StartedFrom.UTC()) {
		return false
	}
	if !filter.StartedTo.IsZero() && !s.StartedAt.Before(filter.StartedTo.UTC()) {
		return false
	}
	return true
}

func sortSessions(sessions []hijack.Session, ordering []core.DBOrdering) {
	ord := firstOrdering(ordering, core.DBOrdering{Field: "started_at"})
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "expires_at":
			if !a.ExpiresAt.Equal(b.ExpiresAt) {
				return a.ExpiresAt.Before(b.ExpiresAt)
			}
		case "status":
			if a.Status != b.Status {
				return a.Status < b.Status
			}
		default:
			if !a.StartedAt.Equal(b.StartedAt) {
				return a.StartedAt.Before(b.StartedAt)
			}
		}
		return a.ID < b.ID
	})
}

func (repo *hijackRepository) UpdateSession(_ context.Context, s hijack.Session, _ ...core.DBExecutor) (hijack.Session, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[s.ID]
	if !ok {
		return hijack.Session{}, hijack.ErrNotFound
	}
	// a session only ever changes status and end time
	orig.Status = s.Status
	orig.EndedAt = s.EndedAt
	return *orig, nil
}
