// Package newsletter fans a newsletter out to confirmed subscribers.
package newsletter

import (
	"context"
	"fmt"
	"sync"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/quantonganh/mailbus"
	"github.com/quantonganh/mailbus/metrics"
)

const defaultConcurrency = 8

// Publisher implements mailbus.NewsletterService. Every recipient gets one
// delivery attempt; a failing recipient never stops the others.
type Publisher struct {
	store       mailbus.SubscriptionStore
	gateway     mailbus.MailGateway
	logger      zerolog.Logger
	concurrency int
}

var _ mailbus.NewsletterService = (*Publisher)(nil)

// NewPublisher returns a Publisher sending at most concurrency emails at once
func NewPublisher(store mailbus.SubscriptionStore, gateway mailbus.MailGateway, concurrency int, logger zerolog.Logger) *Publisher {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	return &Publisher{
		store:       store,
		gateway:     gateway,
		logger:      logger,
		concurrency: concurrency,
	}
}

// Publish sends n to every confirmed subscriber. Stored emails that no longer
// validate are skipped. When any delivery fails the report is returned along
// with an ErrEmailDelivery error.
func (p *Publisher) Publish(ctx context.Context, n *mailbus.Newsletter) (*mailbus.DeliveryReport, error) {
	const op = "newsletter.Publish"

	emails, err := p.store.ConfirmedEmails(ctx)
	if err != nil {
		p.logger.Error().Err(err).Msg("Failed to get confirmed subscribers")
		return nil, &mailbus.Error{Op: op, Err: err}
	}

	report := &mailbus.DeliveryReport{Failed: []mailbus.FailedRecipient{}}
	recipients := make([]mailbus.SubscriberEmail, 0, len(emails))
	for _, raw := range emails {
		email, err := mailbus.ParseSubscriberEmail(raw)
		if err != nil {
			p.logger.Warn().Err(err).Str("email", raw).
				Msg("Skipping a confirmed subscriber. Their stored email is invalid")
			report.Skipped++
			metrics.Deliveries.WithLabelValues("skipped").Inc()
			continue
		}
		recipients = append(recipients, email)
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(p.concurrency)

	for _, to := range recipients {
		to := to
		g.Go(func() error {
			err := p.gateway.Send(ctx, &mailbus.Email{
				To:       to,
				Subject:  n.Title,
				HTMLBody: n.HTMLBody,
				TextBody: n.TextBody,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Error().Err(err).Str("email", to.String()).Msg("Failed to send a newsletter")
				sentry.CaptureException(err)
				report.Failed = append(report.Failed, mailbus.FailedRecipient{Email: to.String(), Err: err})
				metrics.Deliveries.WithLabelValues("failed").Inc()
				return nil
			}
			report.Delivered++
			metrics.Deliveries.WithLabelValues("delivered").Inc()
			return nil
		})
	}
	_ = g.Wait()

	p.logger.Info().
		Int("delivered", report.Delivered).
		Int("failed", len(report.Failed)).
		Int("skipped", report.Skipped).
		Msg("Published newsletter")

	if len(report.Failed) > 0 {
		return report, &mailbus.Error{
			Code: mailbus.ErrEmailDelivery,
			Op:   op,
			Err: fmt.Errorf("failed to deliver newsletter to %d of %d recipients: %w",
				len(report.Failed), len(recipients), report.Failed[0].Err),
		}
	}

	return report, nil
}
