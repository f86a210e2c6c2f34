// Package auth checks publisher credentials stored as bcrypt hashes.
package auth

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/quantonganh/mailbus"
)

// dummyHash is compared against when the username is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("mailbus-dummy-password"), bcrypt.DefaultCost)

type service struct {
	users mailbus.UserStore
	cost  int
}

// NewService returns an AuthService on top of users
func NewService(users mailbus.UserStore) mailbus.AuthService {
	return &service{
		users: users,
		cost:  bcrypt.DefaultCost,
	}
}

func invalidCredentials(err error) error {
	return &mailbus.Error{
		Code:    mailbus.ErrUnauthorized,
		Op:      "auth.Authenticate",
		Message: "Invalid username or password.",
		Err:     err,
	}
}

// Authenticate checks username and password
func (s *service) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	user, err := s.users.FindUserByUsername(ctx, username)
	if err != nil {
		if mailbus.ErrorCode(err) != mailbus.ErrNotFound {
			return uuid.Nil, &mailbus.Error{Op: "auth.Authenticate", Err: err}
		}
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return uuid.Nil, invalidCredentials(err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return uuid.Nil, invalidCredentials(err)
	}

	return user.ID, nil
}

// CreateUser hashes password and stores a new publisher
func (s *service) CreateUser(ctx context.Context, username, password string) (*mailbus.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, mailbus.Errorf(mailbus.ErrInvalid, "Username must not be empty.")
	}
	if password == "" {
		return nil, mailbus.Errorf(mailbus.ErrInvalid, "Password must not be empty.")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash password")
	}

	user := &mailbus.User{
		ID:           uuid.NewV4(),
		Username:     username,
		PasswordHash: string(hash),
	}
	if err := s.users.InsertUser(ctx, user); err != nil {
		return nil, err
	}

	return user, nil
}
