package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/user"
)

type userRepository struct {
	db *userTable
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db.user}
}

func (repo *userRepository) query(schema string) []user.User {
	rows := repo.db.table[schema]
	users := make([]user.User, 0, len(rows))
	for _, u := range rows {
		users = append(users, *u)
	}
	return users
}

func (repo *userRepository) rows(schema string) map[string]*user.User {
	rows, ok := repo.db.table[schema]
	if !ok {
		rows = make(map[string]*user.User)
		repo.db.table[schema] = rows
	}
	return rows
}

func (repo *userRepository) CheckUsernameUniqueness(ctx context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	excluded := make(map[string]struct{}, len(excludedUsers))
	for _, usr := range excludedUsers {
		excluded[usr.ID] = struct{}{}
	}
	for _, usr := range repo.query(userSchemaOf(ctx)) {
		if _, ok := excluded[usr.ID]; ok {
			continue
		}
		// empty identifiers never clash
		if (username != "" && usr.Username == username) || (email != "" && usr.Email == email) {
			return user.ErrUserExists
		}
	}
	return nil
}

func (repo *userRepository) CreateUser(ctx context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.checkUniqueLocked(userSchemaOf(ctx), usr); err != nil {
		return user.User{}, err
	}
	usr.ID = uuid.New().String()
	if usr.IsActive == nil {
		active := true
		usr.IsActive = &active
	}
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	repo.rows(userSchemaOf(ctx))[usr.ID] = &usr
	return usr, nil
}

// checkUniqueLocked is the write-path mirror of the partial unique indexes;
// callers must hold the lock.
func (repo *userRepository) checkUniqueLocked(schema string, usr user.User) error {
	for _, u := range repo.query(schema) {
		if u.ID == usr.ID {
			continue
		}
		if (usr.Username != "" && u.Username == usr.Username) || (usr.Email != "" && u.Email == usr.Email) {
			return user.ErrUserExists
		}
	}
	return nil
}

func (repo *userRepository) QueryUsers(ctx context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	users := repo.query(userSchemaOf(ctx))
	if filter != nil && !filter.IsEmpty() {
		filtered := users[:0]
		for _, u := range users {
			if matchUser(u, filter) {
				filtered = append(filtered, u)
			}
		}
		users = filtered
	}
	sortUsers(users, ordering)
	return users, nil
}

func matchUser(u user.User, filter *user.QueryFilter) bool {
	if filter.Search != "" {
		s := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(u.Name), s) &&
			!strings.Contains(strings.ToLower(u.Username), s) &&
			!strings.Contains(strings.ToLower(u.Email), s) {
			return false
		}
	}
	if len(filter.Roles) > 0 {
		var hit bool
		for _, r := range filter.Roles {
			if u.RoleStartsWith(r) {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if filter.IsActive != nil {
		active := u.IsActive == nil || *u.IsActive
		if active != *filter.IsActive {
			return false
		}
	}
	if !filter.CreatedFrom.IsZero() && u.CreatedAt.Before(filter.CreatedFrom.UTC()) {
		return false
	}
	if !filter.CreatedTo.IsZero() && u.CreatedAt.After(filter.CreatedTo.UTC()) {
		return false
	}
	return true
}

func sortUsers(users []user.User, ordering []core.DBOrdering) {
	ord := firstOrdering(ordering, core.DBOrdering{Field: "created_at"})
	sort.SliceStable(users, func(i, j int) bool {
		a, b := users[i], users[j]
		if !ord.Ascending {
			a, b = b, a
		}
		switch ord.Field {
		case "name":
			if a.Name != b.Name {
				return a.Name < b.Name
			}
		case "username":
			if a.Username != b.Username {
				return a.Username < b.Username
			}
		case "email":
			if a.Email != b.Email {
				return a.Email < b.Email
			}
		case "last_login":
			if !a.LastLogin.Equal(b.LastLogin) {
				return a.LastLogin.Before(b.LastLogin)
			}
		default:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.Before(b.CreatedAt)
			}
		}
		return a.ID < b.ID
	})
}

func (repo *userRepository) GetUser(ctx context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	schema := userSchemaOf(ctx)
	switch {
	case filter.ID != "":
		if usr, ok := repo.db.table[schema][filter.ID]; ok {
			return *usr, nil
		}
	case filter.Username != "":
		for _, usr := range repo.query(schema) {
			if usr.Username == filter.Username {
				return usr, nil
			}
		}
	case filter.Email != "":
		for _, usr := range repo.query(schema) {
			if usr.Email == filter.Email {
				return usr, nil
			}
		}
	case len(filter.UsernameOrEmail) > 0:
		uname := filter.UsernameOrEmail[0]
		email := uname
		if len(filter.UsernameOrEmail) > 1 {
			email = filter.UsernameOrEmail[1]
		}
		for _, usr := range repo.query(schema) {
			if usr.Username == uname || usr.Email == email {
				return usr, nil
			}
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(ctx context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	schema := userSchemaOf(ctx)
	orig, ok := repo.db.table[schema][usr.ID]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueLocked(schema, usr); err != nil {
		return user.User{}, err
	}

	// only save set fields
	if usr.Name != "" {
		orig.Name = usr.Name
	}
	if usr.Username != "" {
		orig.Username = usr.Username
	}
	if usr.Email != "" {
		orig.Email = usr.Email
	}
	if usr.IsActive != nil {
		orig.IsActive = usr.IsActive
	}
	if usr.Roles != nil {
		orig.Roles = usr.Roles
	}
	if usr.PasswordHash != nil {
		orig.PasswordHash = usr.PasswordHash
	}
	if !usr.LastLogin.IsZero() {
		orig.LastLogin = usr.LastLogin
	}
	orig.UpdatedAt = usr.UpdatedAt
	return *orig, nil
}

func (repo *userRepository) DeleteUsersByID(ctx context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	rows := repo.db.table[userSchemaOf(ctx)]
	var cnt int
	for _, id := range ids {
		if _, ok := rows[id]; ok {
			delete(rows, id)
			cnt++
		}
	}
	return cnt, nil
}
