// Package resend delivers emails through the Resend API.
package resend

import (
	"context"
	"time"

	"github.com/pkg/errors"
	rs "github.com/resend/resend-go/v3"

	"github.com/quantonganh/mailbus"
)

type gateway struct {
	client  *rs.Client
	from    string
	timeout time.Duration
}

// NewGateway returns a MailGateway using apiKey
func NewGateway(apiKey, from string, timeout time.Duration) mailbus.MailGateway {
	return &gateway{
		client:  rs.NewClient(apiKey),
		from:    from,
		timeout: timeout,
	}
}

func (g *gateway) Send(ctx context.Context, email *mailbus.Email) error {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := &rs.SendEmailRequest{
		From:    g.from,
		To:      []string{email.To.String()},
		Subject: email.Subject,
		Html:    email.HTMLBody,
		Text:    email.TextBody,
	}
	if _, err := g.client.Emails.SendWithContext(ctx, req); err != nil {
		return &mailbus.Error{
			Code: mailbus.ErrEmailDelivery,
			Err:  errors.Wrapf(err, "resend: failed to send mail to %s", email.To),
		}
	}

	return nil
}
