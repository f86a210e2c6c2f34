// Package sendgrid delivers emails through the SendGrid v3 API.
package sendgrid

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	sg "github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/quantonganh/mailbus"
)

type gateway struct {
	client  *sg.Client
	from    *mail.Email
	timeout time.Duration
}

// NewGateway returns a MailGateway using apiKey
func NewGateway(apiKey, from string, timeout time.Duration) mailbus.MailGateway {
	return &gateway{
		client:  sg.NewSendClient(apiKey),
		from:    mail.NewEmail("", from),
		timeout: timeout,
	}
}

func (g *gateway) Send(ctx context.Context, email *mailbus.Email) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	message := mail.NewSingleEmail(g.from, email.Subject, mail.NewEmail("", email.To.String()), email.TextBody, email.HTMLBody)
	resp, err := g.client.SendWithContext(ctx, message)
	if err != nil {
		return &mailbus.Error{
			Code: mailbus.ErrEmailDelivery,
			Err:  errors.Wrapf(err, "failed to send mail to %s", email.To),
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &mailbus.Error{
			Code: mailbus.ErrEmailDelivery,
			Err:  fmt.Errorf("failed to send mail to %s: unexpected status %d", email.To, resp.StatusCode),
		}
	}

	return nil
}
