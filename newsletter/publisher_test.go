package newsletter

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	testifyMock "github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/quantonganh/mailbus"
	"github.com/quantonganh/mailbus/mock"
)

var issue = &mailbus.Newsletter{
	Title:    "Newsletter title",
	HTMLBody: "<p>Newsletter body as HTML</p>",
	TextBody: "Newsletter body as plain text",
}

func sentTo(email string) interface{} {
	return testifyMock.MatchedBy(func(e *mailbus.Email) bool {
		return e.To.String() == email
	})
}

func TestPublish(t *testing.T) {
	ctx := context.Background()

	t.Run("no confirmed subscribers means no emails", func(t *testing.T) {
		store := new(mock.SubscriptionStore)
		gateway := new(mock.MailGateway)
		store.On("ConfirmedEmails", ctx).Return([]string{}, nil)

		report, err := NewPublisher(store, gateway, 2, zerolog.Nop()).Publish(ctx, issue)
		require.NoError(t, err)
		assert.Equal(t, 0, report.Delivered)
		assert.Empty(t, report.Failed)
		gateway.AssertNotCalled(t, "Send", testifyMock.Anything, testifyMock.Anything)
	})

	t.Run("every confirmed subscriber gets one email", func(t *testing.T) {
		store := new(mock.SubscriptionStore)
		gateway := new(mock.MailGateway)
		emails := []string{"a@example.com", "b@example.com", "c@example.com", "d@example.com"}
		store.On("ConfirmedEmails", ctx).Return(emails, nil)
		for _, email := range emails {
			gateway.On("Send", ctx, sentTo(email)).Return(nil).Once()
		}

		report, err := NewPublisher(store, gateway, 2, zerolog.Nop()).Publish(ctx, issue)
		require.NoError(t, err)
		assert.Equal(t, len(emails), report.Delivered)
		assert.Equal(t, 0, report.Skipped)
		gateway.AssertExpectations(t)
		gateway.AssertNumberOfCalls(t, "Send", len(emails))

		sent := gateway.Calls[0].Arguments.Get(1).(*mailbus.Email)
		assert.Equal(t, issue.Title, sent.Subject)
		assert.Equal(t, issue.HTMLBody, sent.HTMLBody)
		assert.Equal(t, issue.TextBody, sent.TextBody)
	})

	t.Run("stored emails that fail validation are skipped", func(t *testing.T) {
		store := new(mock.SubscriptionStore)
		gateway := new(mock.MailGateway)
		store.On("ConfirmedEmails", ctx).Return([]string{"not-an-email", "a@example.com"}, nil)
		gateway.On("Send", ctx, sentTo("a@example.com")).Return(nil).Once()

		report, err := NewPublisher(store, gateway, 0, zerolog.Nop()).Publish(ctx, issue)
		require.NoError(t, err)
		assert.Equal(t, 1, report.Delivered)
		assert.Equal(t, 1, report.Skipped)
		gateway.AssertNumberOfCalls(t, "Send", 1)
	})

	t.Run("a failing recipient does not stop the others", func(t *testing.T) {
		store := new(mock.SubscriptionStore)
		gateway := new(mock.MailGateway)
		store.On("ConfirmedEmails", ctx).Return([]string{"a@example.com", "b@example.com", "c@example.com"}, nil)
		gateway.On("Send", ctx, sentTo("a@example.com")).Return(nil)
		gateway.On("Send", ctx, sentTo("b@example.com")).Return(&mailbus.Error{
			Code: mailbus.ErrEmailDelivery,
			Err:  errors.New("timeout"),
		})
		gateway.On("Send", ctx, sentTo("c@example.com")).Return(nil)

		report, err := NewPublisher(store, gateway, 1, zerolog.Nop()).Publish(ctx, issue)
		require.Error(t, err)
		assert.Equal(t, mailbus.ErrEmailDelivery, mailbus.ErrorCode(err))
		require.NotNil(t, report)
		assert.Equal(t, 2, report.Delivered)
		require.Len(t, report.Failed, 1)
		assert.Equal(t, "b@example.com", report.Failed[0].Email)
		gateway.AssertNumberOfCalls(t, "Send", 3)
	})

	t.Run("storage failure sends nothing", func(t *testing.T) {
		store := new(mock.SubscriptionStore)
		gateway := new(mock.MailGateway)
		store.On("ConfirmedEmails", ctx).Return(nil, &mailbus.Error{
			Code: mailbus.ErrStorage,
			Err:  errors.New("connection refused"),
		})

		report, err := NewPublisher(store, gateway, 2, zerolog.Nop()).Publish(ctx, issue)
		assert.Nil(t, report)
		assert.Equal(t, mailbus.ErrStorage, mailbus.ErrorCode(err))
		gateway.AssertNotCalled(t, "Send", testifyMock.Anything, testifyMock.Anything)
	})
}
