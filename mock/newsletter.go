package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/quantonganh/mailbus"
)

// MailGateway is a mock MailGateway
type MailGateway struct {
	mock.Mock
}

func (m *MailGateway) Send(ctx context.Context, email *mailbus.Email) error {
	return m.Called(ctx, email).Error(0)
}

// NewsletterService is a mock NewsletterService
type NewsletterService struct {
	mock.Mock
}

func (m *NewsletterService) Publish(ctx context.Context, n *mailbus.Newsletter) (*mailbus.DeliveryReport, error) {
	args := m.Called(ctx, n)
	report, _ := args.Get(0).(*mailbus.DeliveryReport)
	return report, args.Error(1)
}
