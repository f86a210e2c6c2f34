package bolt

import (
	"context"
	"time"

	"github.com/asdine/storm/v3"
	"github.com/go-errors/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/quantonganh/mailbus"
)

type subscriberRecord struct {
	ID           string `storm:"id"`
	Email        string
	Name         string
	SubscribedAt time.Time
	Status       string `storm:"index"`
}

type tokenRecord struct {
	Token        string `storm:"id"`
	SubscriberID string `storm:"index"`
}

type subscriptionStore struct {
	db *DB
}

// NewSubscriptionStore returns a SubscriptionStore backed by a bolt file.
// Bolt allows a single writer and WithTx holds it across the confirmation
// email, so concurrent calls are serialized. Use it for development and
// tests; production deployments use postgres.
func NewSubscriptionStore(db *DB) mailbus.SubscriptionStore {
	return &subscriptionStore{
		db: db,
	}
}

// WithTx runs fn inside a writable bolt transaction
func (ss *subscriptionStore) WithTx(ctx context.Context, fn func(tx mailbus.SubscriptionTx) error) error {
	node, err := ss.db.stormDB.Begin(true)
	if err != nil {
		return storageError(errors.Errorf("failed to begin transaction: %v", err))
	}
	defer func() {
		if p := recover(); p != nil {
			_ = node.Rollback()
			panic(p)
		}
	}()

	if err := fn(&subscriptionTx{node: node}); err != nil {
		_ = node.Rollback()
		return err
	}

	if err := node.Commit(); err != nil {
		return storageError(errors.Errorf("failed to commit transaction: %v", err))
	}

	return nil
}

// ConfirmedEmails returns the email of every confirmed subscriber
func (ss *subscriptionStore) ConfirmedEmails(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, storageError(err)
	}

	var records []subscriberRecord
	if err := ss.db.stormDB.Find("Status", mailbus.StatusConfirmed, &records); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return nil, nil
		}
		return nil, storageError(errors.Errorf("failed to find by status: %v", err))
	}

	emails := make([]string, 0, len(records))
	for _, r := range records {
		emails = append(emails, r.Email)
	}

	return emails, nil
}

type subscriptionTx struct {
	node storm.Node
}

// InsertSubscriber saves new subscriber
func (t *subscriptionTx) InsertSubscriber(ctx context.Context, s *mailbus.Subscriber) error {
	if err := ctx.Err(); err != nil {
		return storageError(err)
	}

	record := &subscriberRecord{
		ID:           s.ID.String(),
		Email:        s.Email,
		Name:         s.Name,
		SubscribedAt: s.SubscribedAt,
		Status:       s.Status,
	}
	if err := t.node.Save(record); err != nil {
		return storageError(errors.Errorf("failed to save subscriber: %v", err))
	}

	return nil
}

// InsertToken saves a token, refusing to overwrite an existing one
func (t *subscriptionTx) InsertToken(ctx context.Context, st *mailbus.SubscriptionToken) error {
	if err := ctx.Err(); err != nil {
		return storageError(err)
	}

	var existing tokenRecord
	err := t.node.One("Token", st.Token, &existing)
	if err == nil {
		return storageError(errors.Errorf("subscription token already exists"))
	}
	if !errors.Is(err, storm.ErrNotFound) {
		return storageError(errors.Errorf("failed to find token: %v", err))
	}

	record := &tokenRecord{
		Token:        st.Token,
		SubscriberID: st.SubscriberID.String(),
	}
	if err := t.node.Save(record); err != nil {
		return storageError(errors.Errorf("failed to save token: %v", err))
	}

	return nil
}

// SubscriberIDByToken finds the subscriber owning token
func (t *subscriptionTx) SubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	if err := ctx.Err(); err != nil {
		return uuid.Nil, storageError(err)
	}

	var record tokenRecord
	if err := t.node.One("Token", token, &record); err != nil {
		if errors.Is(err, storm.ErrNotFound) {
			return uuid.Nil, &mailbus.Error{Code: mailbus.ErrNotFound, Message: "Unknown subscription token."}
		}
		return uuid.Nil, storageError(errors.Errorf("failed to find by token: %v", err))
	}

	id, err := uuid.FromString(record.SubscriberID)
	if err != nil {
		return uuid.Nil, storageError(errors.Errorf("invalid subscriber id %q: %v", record.SubscriberID, err))
	}

	return id, nil
}

// ConfirmSubscriber marks the subscriber as confirmed
func (t *subscriptionTx) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	if err := ctx.Err(); err != nil {
		return storageError(err)
	}

	if err := t.node.UpdateField(&subscriberRecord{ID: id.String()}, "Status", mailbus.StatusConfirmed); err != nil {
		return storageError(errors.Errorf("failed to update status: %v", err))
	}

	return nil
}
