package mailbus

import (
	"context"

	uuid "github.com/satori/go.uuid"
)

// SubscriptionService is the interface that wraps the subscribe and confirm flows
type SubscriptionService interface {
	// Subscribe stores a pending subscriber with a token and sends the
	// confirmation email, all or nothing.
	Subscribe(ctx context.Context, name, email string) (uuid.UUID, error)
	// Confirm promotes the subscriber owning token to confirmed.
	Confirm(ctx context.Context, token string) error
}

// SubscriptionToken links a confirmation token to its subscriber
type SubscriptionToken struct {
	Token        string
	SubscriberID uuid.UUID
}

// SubscriptionStore persists subscribers and their tokens.
// Every error it returns carries the ErrStorage code, except lookups of
// unknown tokens which carry ErrNotFound.
type SubscriptionStore interface {
	// WithTx runs fn in a transaction. The transaction is committed only
	// when fn returns nil and rolled back on error or panic.
	WithTx(ctx context.Context, fn func(tx SubscriptionTx) error) error
	// ConfirmedEmails returns the stored email of every confirmed subscriber.
	ConfirmedEmails(ctx context.Context) ([]string, error)
}

// SubscriptionTx is the set of statements available inside a transaction.
type SubscriptionTx interface {
	InsertSubscriber(ctx context.Context, s *Subscriber) error
	InsertToken(ctx context.Context, t *SubscriptionToken) error
	SubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error)
	ConfirmSubscriber(ctx context.Context, id uuid.UUID) error
}

type SubscriptionRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type SubscriptionResponse struct {
	Message string `json:"message"`
}
