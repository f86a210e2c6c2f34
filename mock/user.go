package mock

import (
	"context"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/mock"

	"github.com/quantonganh/mailbus"
)

// UserStore is a mock UserStore
type UserStore struct {
	mock.Mock
}

func (m *UserStore) InsertUser(ctx context.Context, u *mailbus.User) error {
	return m.Called(ctx, u).Error(0)
}

func (m *UserStore) FindUserByUsername(ctx context.Context, username string) (*mailbus.User, error) {
	args := m.Called(ctx, username)
	user, _ := args.Get(0).(*mailbus.User)
	return user, args.Error(1)
}

// AuthService is a mock AuthService
type AuthService struct {
	mock.Mock
}

func (m *AuthService) Authenticate(ctx context.Context, username, password string) (uuid.UUID, error) {
	args := m.Called(ctx, username, password)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *AuthService) CreateUser(ctx context.Context, username, password string) (*mailbus.User, error) {
	args := m.Called(ctx, username, password)
	user, _ := args.Get(0).(*mailbus.User)
	return user, args.Error(1)
}
