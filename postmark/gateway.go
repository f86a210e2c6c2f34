// Package postmark delivers emails through the Postmark HTTP API, or any
// service speaking the same "POST /email" dialect.
package postmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/quantonganh/mailbus"
)

const (
	tokenHeader    = "X-Postmark-Server-Token"
	defaultTimeout = 10 * time.Second
)

type gateway struct {
	baseURL string
	sender  mailbus.SubscriberEmail
	token   string
	client  *http.Client
}

// NewGateway returns a MailGateway posting to baseURL. Each request gives up
// after timeout, or after 10s when timeout is not positive.
func NewGateway(baseURL string, sender mailbus.SubscriberEmail, token string, timeout time.Duration) mailbus.MailGateway {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &gateway{
		baseURL: strings.TrimRight(baseURL, "/"),
		sender:  sender,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type sendEmailRequest struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// Send posts email and treats every non-2xx status as a failure
func (g *gateway) Send(ctx context.Context, email *mailbus.Email) error {
	body, err := json.Marshal(&sendEmailRequest{
		From:     g.sender.String(),
		To:       email.To.String(),
		Subject:  email.Subject,
		HtmlBody: email.HTMLBody,
		TextBody: email.TextBody,
	})
	if err != nil {
		return deliveryError(errors.Wrap(err, "failed to encode request"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/email", bytes.NewReader(body))
	if err != nil {
		return deliveryError(errors.Wrap(err, "failed to build request"))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set(tokenHeader, g.token)

	resp, err := g.client.Do(req)
	if err != nil {
		return deliveryError(errors.Wrapf(err, "failed to send mail to %s", email.To))
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return deliveryError(fmt.Errorf("failed to send mail to %s: unexpected status %d", email.To, resp.StatusCode))
	}

	return nil
}

func deliveryError(err error) error {
	return &mailbus.Error{
		Code: mailbus.ErrEmailDelivery,
		Err:  err,
	}
}
