package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"regexp"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/pressly/goose/v3"

	"github.com/zargarco/zargar/core"
	"github.com/zargarco/zargar/core/tenant"
	appfs "github.com/zargarco/zargar/fs"
)

// DB wraps the shared pool with the transaction seam services program
// against. One pool serves every tenant; repositories qualify their
// tables with the request's schema.
type DB struct {
	*sqlx.DB
}

var _ core.DB = (*DB)(nil) // interface compliance check

func (db *DB) BeginTx(ctx context.Context) (core.DBTransactor, error) {
	return db.BeginTxx(ctx, nil)
}

func open(dbName string, admin bool, conf *core.Config, searchPath string) (*sqlx.DB, error) {
	user := url.UserPassword(conf.Database.User, conf.Database.Password)
	if admin && conf.Database.AdminUser != "" {
		user = url.UserPassword(conf.Database.AdminUser, conf.Database.AdminPassword)
	}

	sslMode := "require"
	if conf.Database.DisableTLS {
		sslMode = "disable"
	}
	q := make(url.Values)
	q.Set("sslmode", sslMode)
	q.Set("timezone", "utc")
	if searchPath != "" {
		// lib/pq forwards unknown DSN parameters as run-time settings
		q.Set("search_path", searchPath)
	}

	u := url.URL{
		Scheme:   conf.Database.Engine,
		User:     user,
		Host:     conf.Database.Address(),
		Path:     dbName,
		RawQuery: q.Encode(),
	}
	return sqlx.Open(conf.Database.Engine, u.String())
}

func Open(conf *core.Config) (*DB, error) {
	db, err := open(conf.Database.Name, false, conf, "")
	if err != nil {
		return nil, err
	}
	return &DB{db}, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 30
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		err = db.Ping()
		if err == nil {
			break
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}

	if err != nil {
		return errors.Wrap(err, "DB ping timeout")
	}
	return nil
}

func createAppUser(db *sqlx.DB, conf *core.Config) error {
	if conf.Database.User == "" {
		return nil
	}

	// check if app user exists
	var exists bool
	rows, err := db.Query(fmt.Sprintf("SELECT true FROM pg_roles WHERE rolname='%s'", conf.Database.User))
	if err != nil {
		return errors.Wrap(err, "checking app user")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&exists); err != nil {
			return errors.Wrap(err, "checking app user")
		}
	}
	if err = rows.Err(); err != nil {
		return errors.Wrap(err, "checking app user")
	}

	// create app user if not exist
	if !exists {
		q := fmt.Sprintf("CREATE USER %s CREATEDB ENCRYPTED PASSWORD '%s'", conf.Database.User, conf.Database.Password)
		if _, err = db.Exec(q); err != nil {
			return errors.Wrap(err, "creating app user")
		}
	}
	return nil
}

func createDB(db *sqlx.DB, conf *core.Config) error {
	// check if DB exists
	var exists bool
	rows, err := db.Query(fmt.Sprintf("SELECT true FROM pg_database WHERE datname='%s'", conf.Database.Name))
	if err != nil {
		return errors.Wrap(err, "checking DB")
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		if err = rows.Scan(&exists); err != nil {
			return errors.Wrap(err, "checking DB")
		}
	}
	if err = rows.Err(); err != nil {
		return errors.Wrap(err, "checking DB")
	}

	// create DB if not exist
	if !exists {
		if _, err = db.Exec(fmt.Sprintf("CREATE DATABASE %s", conf.Database.Name)); err != nil {
			return errors.Wrap(err, "creating database")
		}
	}
	return nil
}

func CreateIfNotExist(conf *core.Config) error {
	// connect as admin
	db, err := open("postgres", true, conf, "")
	if err != nil {
		return errors.Wrap(err, "opening database")
	}

	if err = ping(db); err != nil {
		return errors.Wrap(err, "pinging database")
	}

	if err = createAppUser(db, conf); err != nil {
		return errors.Wrap(err, "creating app user")
	}
	defer func() { _ = db.Close() }()

	// create DB as app user
	db, err = open("postgres", false, conf, "")
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	if err = createDB(db, conf); err != nil {
		return errors.Wrap(err, "creating database")
	}
	defer func() { _ = db.Close() }()
	return nil
}

// goose keeps package-level state (base FS, dialect), so migrations are
// serialized.
var migrateMu sync.Mutex

func migrate(db *sql.DB, dir string) error {
	migrateMu.Lock()
	defer migrateMu.Unlock()

	goose.SetBaseFS(appfs.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(db, dir)
}

// MigratePublic applies the platform migrations (tenant registry,
// superadmin users, hijack audit) to the public schema.
func MigratePublic(db *DB) error {
	if err := migrate(db.DB.DB, "migrations/public"); err != nil {
		return errors.Wrap(err, "migrating public schema")
	}
	return nil
}

// MigrateTenant brings one tenant schema up to the current migration set.
// It runs on a dedicated connection whose search_path is the tenant schema
// alone, so unqualified DDL (and goose's version table) land there.
func MigrateTenant(conf *core.Config, schemaName string) error {
	db, err := open(conf.Database.Name, false, conf, schemaName)
	if err != nil {
		return errors.Wrap(err, "opening schema connection")
	}
	defer func() { _ = db.Close() }()

	if err = migrate(db.DB, "migrations/tenant"); err != nil {
		return errors.Wrapf(err, "migrating schema %s", schemaName)
	}
	return nil
}

// schemaNameRx matches the schema names SchemaFor derives; anything else
// never reaches CREATE SCHEMA.
var schemaNameRx = regexp.MustCompile(`^t_[a-z0-9_]+$`)

// Provisioner creates and migrates tenant schemas.
type Provisioner struct {
	db   *DB
	conf *core.Config
}

var _ tenant.Provisioner = (*Provisioner)(nil) // interface compliance check

func NewProvisioner(db *DB, conf *core.Config) *Provisioner {
	return &Provisioner{db: db, conf: conf}
}

func (p *Provisioner) ProvisionSchema(ctx context.Context, schemaName string) error {
	if !schemaNameRx.MatchString(schemaName) {
		return errors.Errorf("invalid schema name %q", schemaName)
	}

	q := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pq.QuoteIdentifier(schemaName))
	if _, err := p.db.ExecContext(ctx, q); err != nil {
		return errors.Wrapf(err, "creating schema %s", schemaName)
	}
	return MigrateTenant(p.conf, schemaName)
}
