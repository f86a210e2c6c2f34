// Package subscription implements the subscribe and confirm flows on top of
// a SubscriptionStore and a MailGateway.
package subscription

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"

	"github.com/quantonganh/mailbus"
	"github.com/quantonganh/mailbus/metrics"
)

// Config holds what the confirmation email needs to know about the service
type Config struct {
	// BaseURL is the externally visible address used in confirmation links.
	BaseURL     string
	ProductName string
}

// Service implements mailbus.SubscriptionService
type Service struct {
	store   mailbus.SubscriptionStore
	gateway mailbus.MailGateway
	logger  zerolog.Logger

	baseURL string
	product string

	NewToken func() string
	Now      func() time.Time
}

var _ mailbus.SubscriptionService = (*Service)(nil)

// NewService returns new subscription service
func NewService(store mailbus.SubscriptionStore, gateway mailbus.MailGateway, config Config, logger zerolog.Logger) *Service {
	return &Service{
		store:    store,
		gateway:  gateway,
		logger:   logger,
		baseURL:  strings.TrimRight(config.BaseURL, "/"),
		product:  config.ProductName,
		NewToken: mailbus.NewSubscriptionToken,
		Now:      time.Now,
	}
}

// Subscribe validates the input, then inserts a pending subscriber and its
// token and sends the confirmation email in one transaction. Any failure
// after validation rolls the transaction back.
func (s *Service) Subscribe(ctx context.Context, name, email string) (_ uuid.UUID, err error) {
	const op = "subscription.Subscribe"
	defer func() {
		metrics.Subscriptions.WithLabelValues(metrics.Result(mailbus.ErrorCode(err))).Inc()
	}()

	logger := s.logger.With().
		Str("subscriber_email", email).
		Str("subscriber_name", name).
		Logger()

	ns, err := mailbus.ParseNewSubscriber(name, email)
	if err != nil {
		logger.Info().Err(err).Msg("Rejected invalid subscription request")
		return uuid.Nil, &mailbus.Error{Op: op, Err: err}
	}

	subscriber := mailbus.NewPendingSubscriber(ns, s.Now())
	err = s.store.WithTx(ctx, func(tx mailbus.SubscriptionTx) error {
		logger.Info().Str("subscriber_id", subscriber.ID.String()).Msg("Saving new subscriber details in the database")
		if err := tx.InsertSubscriber(ctx, subscriber); err != nil {
			return err
		}

		token := s.NewToken()
		logger.Info().Msg("Storing subscription token")
		if err := tx.InsertToken(ctx, &mailbus.SubscriptionToken{Token: token, SubscriberID: subscriber.ID}); err != nil {
			return err
		}

		logger.Info().Msg("Sending confirmation email to new subscriber")
		return s.sendConfirmationEmail(ctx, ns, token)
	})
	if err != nil {
		logger.Error().Err(err).Msg("Failed to subscribe")
		return uuid.Nil, &mailbus.Error{Op: op, Err: err}
	}

	return subscriber.ID, nil
}

func (s *Service) sendConfirmationEmail(ctx context.Context, ns *mailbus.NewSubscriber, token string) error {
	email, err := s.confirmationEmail(ns, ConfirmationLink(s.baseURL, token))
	if err != nil {
		return err
	}

	return s.gateway.Send(ctx, email)
}

// Confirm looks up token and marks its subscriber as confirmed. Confirming
// an already confirmed subscriber succeeds without changes.
func (s *Service) Confirm(ctx context.Context, token string) (err error) {
	const op = "subscription.Confirm"
	defer func() {
		metrics.Confirmations.WithLabelValues(metrics.Result(mailbus.ErrorCode(err))).Inc()
	}()

	if !validTokenShape(token) {
		return &mailbus.Error{Code: mailbus.ErrUnauthorized, Op: op, Message: "The subscription token is invalid."}
	}

	err = s.store.WithTx(ctx, func(tx mailbus.SubscriptionTx) error {
		id, err := tx.SubscriberIDByToken(ctx, token)
		if err != nil {
			if mailbus.ErrorCode(err) == mailbus.ErrNotFound {
				return &mailbus.Error{
					Code:    mailbus.ErrUnauthorized,
					Message: "The subscription token is invalid.",
					Err:     err,
				}
			}
			return err
		}

		s.logger.Info().Str("subscriber_id", id.String()).Msg("Confirming subscriber")
		return tx.ConfirmSubscriber(ctx, id)
	})
	if err != nil {
		if mailbus.ErrorCode(err) != mailbus.ErrUnauthorized {
			s.logger.Error().Err(err).Msg("Failed to confirm subscriber")
		}
		return &mailbus.Error{Op: op, Err: err}
	}

	return nil
}

func validTokenShape(token string) bool {
	if len(token) != mailbus.SubscriptionTokenLength {
		return false
	}
	for _, r := range token {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}
