package mailbus

import (
	"context"

	uuid "github.com/satori/go.uuid"
)

// User is someone allowed to publish newsletters
type User struct {
	ID           uuid.UUID
	Username     string
	PasswordHash string
}

// UserStore persists publishers. Unknown usernames carry ErrNotFound.
type UserStore interface {
	InsertUser(ctx context.Context, u *User) error
	FindUserByUsername(ctx context.Context, username string) (*User, error)
}

// AuthService checks publisher credentials
type AuthService interface {
	// Authenticate returns the user id, or an ErrUnauthorized error when the
	// username is unknown or the password does not match.
	Authenticate(ctx context.Context, username, password string) (uuid.UUID, error)
	CreateUser(ctx context.Context, username, password string) (*User, error)
}
