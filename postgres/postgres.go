package postgres

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/quantonganh/mailbus"
)

//go:embed migration/*.sql
var migrationFS embed.FS

const pingTimeout = 5 * time.Second

// DB represents the database connection.
type DB struct {
	db     *sqlx.DB
	ctx    context.Context
	cancel func()
	logger zerolog.Logger

	dsn          string
	MaxOpenConns int
}

// NewDB returns new database
func NewDB(dsn string, logger zerolog.Logger) *DB {
	db := &DB{
		dsn:    dsn,
		logger: logger,
	}

	db.ctx, db.cancel = context.WithCancel(context.Background())

	return db
}

// Open connects to Postgres, checks the connection and applies pending migrations
func (db *DB) Open() (err error) {
	if db.dsn == "" {
		return errors.New("dsn required")
	}

	if db.db != nil {
		return nil
	}

	if db.db, err = sqlx.Open("postgres", db.dsn); err != nil {
		return errors.Wrap(err, "failed to open database")
	}
	if db.MaxOpenConns > 0 {
		db.db.SetMaxOpenConns(db.MaxOpenConns)
		db.db.SetMaxIdleConns(db.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(db.ctx, pingTimeout)
	defer cancel()
	if err := db.db.PingContext(ctx); err != nil {
		return errors.Wrap(err, "failed to ping database")
	}

	if err := db.migrate(); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	return nil
}

func (db *DB) migrate() error {
	if _, err := db.db.ExecContext(db.ctx, `CREATE TABLE IF NOT EXISTS migrations (name TEXT PRIMARY KEY);`); err != nil {
		return fmt.Errorf("cannot create migrations table: %w", err)
	}

	names, err := fs.Glob(migrationFS, "migration/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)

	for _, name := range names {
		if err := db.migrateFile(name); err != nil {
			return fmt.Errorf("migration error: name=%q, err=%w", name, err)
		}
	}

	return nil
}

func (db *DB) migrateFile(name string) error {
	tx, err := db.db.BeginTx(db.ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var n int
	if err := tx.QueryRowContext(db.ctx, `SELECT COUNT(*) FROM migrations WHERE name = $1`, name).Scan(&n); err != nil {
		return err
	}
	if n != 0 {
		return nil
	}

	buf, err := fs.ReadFile(migrationFS, name)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(db.ctx, string(buf)); err != nil {
		return err
	}

	if _, err := tx.ExecContext(db.ctx, `INSERT INTO migrations (name) VALUES ($1)`, name); err != nil {
		return err
	}

	db.logger.Info().Str("migration", name).Msg("applied migration")

	return tx.Commit()
}

// Ping checks that the database is reachable
func (db *DB) Ping(ctx context.Context) error {
	if db.db == nil {
		return storageError(errors.New("database is not open"), "ping")
	}
	if err := db.db.PingContext(ctx); err != nil {
		return storageError(err, "ping")
	}
	return nil
}

// Close closes database connection
func (db *DB) Close() error {
	if db.db == nil {
		return nil
	}

	db.cancel()

	if err := db.db.Close(); err != nil {
		db.logger.Error().Err(err).Msg("Error closing database")
	}

	return nil
}

func storageError(err error, message string) error {
	return &mailbus.Error{
		Code: mailbus.ErrStorage,
		Err:  errors.Wrap(err, message),
	}
}
