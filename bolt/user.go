package bolt

import (
	"context"

	"github.com/asdine/storm/v3"
	"github.com/go-errors/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/quantonganh/mailbus"
)

type userRecord struct {
	ID           string `storm:"id"`
	Username     string `storm:"unique"`
	PasswordHash string
}

type userStore struct {
	db *DB
}

// NewUserStore returns a UserStore backed by a bolt file
func NewUserStore(db *DB) mailbus.UserStore {
	return &userStore{
		db: db,
	}
}

func (us *userStore) InsertUser(ctx context.Context, u *mailbus.User) error {
	record := &userRecord{
		ID:           u.ID.String(),
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
	}
	if err := us.db.stormDB.Save(record); err != nil {
		if errors.Is(err, storm.ErrAlreadyExists) {
			return &mailbus.Error{Code: mailbus.ErrConflict, Message: "Username is already taken.", Err: err}
		}
		return storageError(errors.Errorf("failed to save user: %v", err))
	}

	return nil
}

func (us *userStore) FindUserByUsername(ctx context.Context, username string) (*mailbus.User, error) {
	var record userRecord
	if err := us.db.stormDB.One("Username", username, &record); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return nil, &mailbus.Error{Code: mailbus.ErrNotFound, Message: "Unknown user."}
		}
		return nil, storageError(errors.Errorf("failed to find user: %v", err))
	}

	id, err := uuid.FromString(record.ID)
	if err != nil {
		return nil, storageError(errors.Errorf("invalid user id %q: %v", record.ID, err))
	}

	return &mailbus.User{
		ID:           id,
		Username:     record.Username,
		PasswordHash: record.PasswordHash,
	}, nil
}
