package mailbus

import "context"

// Email is a message to a single recipient. The sender address belongs to
// the gateway configuration.
type Email struct {
	To       SubscriberEmail
	Subject  string
	HTMLBody string
	TextBody string
}

// MailGateway delivers one email. Implementations bound each call with their
// configured timeout and return errors carrying the ErrEmailDelivery code.
type MailGateway interface {
	Send(ctx context.Context, email *Email) error
}
