package bolt

import (
	"context"

	"github.com/asdine/storm/v3"
	"github.com/go-errors/errors"

	"github.com/quantonganh/mailbus"
)

// DB represents a database
type DB struct {
	path    string
	stormDB *storm.DB
}

// NewDB returns new database
func NewDB(path string) *DB {
	return &DB{
		path: path,
	}
}

// Open opens new database connection
func (db *DB) Open() error {
	if db.path == "" {
		return errors.New("path required")
	}

	stormDB, err := storm.Open(db.path)
	if err != nil {
		return err
	}
	db.stormDB = stormDB

	return nil
}

// Ping reports whether the database file is open
func (db *DB) Ping(ctx context.Context) error {
	if db.stormDB == nil {
		return storageError(errors.New("database is not open"))
	}
	return ctx.Err()
}

// Close closes database connection
func (db *DB) Close() error {
	if db.stormDB != nil {
		return db.stormDB.Close()
	}

	return nil
}

// Counts returns the number of stored subscribers and subscription tokens
func (db *DB) Counts(ctx context.Context) (subscribers, tokens int, err error) {
	if ctx.Err() != nil {
		return 0, 0, storageError(ctx.Err())
	}

	if subscribers, err = db.count(&subscriberRecord{}); err != nil {
		return 0, 0, err
	}
	if tokens, err = db.count(&tokenRecord{}); err != nil {
		return 0, 0, err
	}

	return subscribers, tokens, nil
}

func (db *DB) count(record interface{}) (int, error) {
	n, err := db.stormDB.Count(record)
	if err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return 0, nil
		}
		return 0, storageError(errors.Errorf("failed to count %T: %v", record, err))
	}
	return n, nil
}

func storageError(err error) error {
	return &mailbus.Error{
		Code: mailbus.ErrStorage,
		Err:  err,
	}
}
