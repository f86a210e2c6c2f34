package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/quantonganh/mailbus"
)

const uniqueViolation = "23505"

type userStore struct {
	db *DB
}

// NewUserStore returns a UserStore backed by Postgres
func NewUserStore(db *DB) mailbus.UserStore {
	return &userStore{
		db: db,
	}
}

type userRow struct {
	ID           uuid.UUID `db:"user_id"`
	Username     string    `db:"username"`
	PasswordHash string    `db:"password_hash"`
}

func (us *userStore) InsertUser(ctx context.Context, u *mailbus.User) error {
	_, err := us.db.db.ExecContext(ctx,
		`INSERT INTO users (user_id, username, password_hash) VALUES ($1, $2, $3)`,
		u.ID, u.Username, u.PasswordHash)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return &mailbus.Error{
				Code:    mailbus.ErrConflict,
				Message: "Username is already taken.",
				Err:     err,
			}
		}
		return storageError(err, "failed to insert user")
	}
	return nil
}

func (us *userStore) FindUserByUsername(ctx context.Context, username string) (*mailbus.User, error) {
	var row userRow
	err := us.db.db.GetContext(ctx, &row,
		`SELECT user_id, username, password_hash FROM users WHERE username = $1`, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &mailbus.Error{Code: mailbus.ErrNotFound, Message: "Unknown user."}
		}
		return nil, storageError(err, "failed to find user by username")
	}

	return &mailbus.User{
		ID:           row.ID,
		Username:     row.Username,
		PasswordHash: row.PasswordHash,
	}, nil
}
