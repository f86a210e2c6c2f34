package mock

import (
	"context"

	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/mock"

	"github.com/quantonganh/mailbus"
)

// SubscriptionStore is a mock store. WithTx hands Tx to the callback and only
// reaches the "Commit" expectation when the callback succeeds.
type SubscriptionStore struct {
	mock.Mock
	Tx         *SubscriptionTx
	RolledBack bool
}

func (m *SubscriptionStore) WithTx(ctx context.Context, fn func(tx mailbus.SubscriptionTx) error) error {
	if err := fn(m.Tx); err != nil {
		m.RolledBack = true
		return err
	}
	return m.MethodCalled("Commit").Error(0)
}

func (m *SubscriptionStore) ConfirmedEmails(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	emails, _ := args.Get(0).([]string)
	return emails, args.Error(1)
}

// SubscriptionTx is a mock transaction
type SubscriptionTx struct {
	mock.Mock
}

func (m *SubscriptionTx) InsertSubscriber(ctx context.Context, s *mailbus.Subscriber) error {
	return m.Called(ctx, s).Error(0)
}

func (m *SubscriptionTx) InsertToken(ctx context.Context, t *mailbus.SubscriptionToken) error {
	return m.Called(ctx, t).Error(0)
}

func (m *SubscriptionTx) SubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	args := m.Called(ctx, token)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *SubscriptionTx) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

// SubscriptionService is a mock SubscriptionService
type SubscriptionService struct {
	mock.Mock
}

func (m *SubscriptionService) Subscribe(ctx context.Context, name, email string) (uuid.UUID, error) {
	args := m.Called(ctx, name, email)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *SubscriptionService) Confirm(ctx context.Context, token string) error {
	return m.Called(ctx, token).Error(0)
}
