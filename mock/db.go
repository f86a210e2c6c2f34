package mock

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Database is a mock Database
type Database struct {
	mock.Mock
}

func (m *Database) Open() error {
	return m.Called().Error(0)
}

func (m *Database) Close() error {
	return m.Called().Error(0)
}

func (m *Database) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}
