// Package smtp delivers emails over SMTP with gomail.
package smtp

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/gomail.v2"

	"github.com/quantonganh/mailbus"
)

// Config holds the SMTP relay settings
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

type gateway struct {
	config Config
	dialer *gomail.Dialer
}

// NewGateway returns a MailGateway dialing the relay for each email
func NewGateway(config Config) mailbus.MailGateway {
	return &gateway{
		config: config,
		dialer: gomail.NewDialer(config.Host, config.Port, config.Username, config.Password),
	}
}

// Send dials the relay and sends email. gomail has no context support, so
// the timeout and ctx are enforced around the blocking call.
func (g *gateway) Send(ctx context.Context, email *mailbus.Email) error {
	m := gomail.NewMessage()
	m.SetHeader("From", g.config.From)
	m.SetHeader("To", email.To.String())
	m.SetHeader("Subject", email.Subject)
	m.SetBody("text/plain", email.TextBody)
	m.AddAlternative("text/html", email.HTMLBody)

	if g.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.config.Timeout)
		defer cancel()
	}

	done := make(chan error, 1)
	go func() {
		done <- g.dialer.DialAndSend(m)
	}()

	select {
	case err := <-done:
		if err != nil {
			return &mailbus.Error{
				Code: mailbus.ErrEmailDelivery,
				Err:  errors.Errorf("failed to send mail to %s: %v", email.To, err),
			}
		}
		return nil
	case <-ctx.Done():
		return &mailbus.Error{
			Code: mailbus.ErrEmailDelivery,
			Err:  errors.Wrapf(ctx.Err(), "failed to send mail to %s", email.To),
		}
	}
}
