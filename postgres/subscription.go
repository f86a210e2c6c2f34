package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	uuid "github.com/satori/go.uuid"

	"github.com/quantonganh/mailbus"
)

type subscriptionStore struct {
	db *DB
}

// NewSubscriptionStore returns a SubscriptionStore backed by Postgres
func NewSubscriptionStore(db *DB) mailbus.SubscriptionStore {
	return &subscriptionStore{
		db: db,
	}
}

// WithTx runs fn inside a read committed transaction. The transaction is
// begun on a context that ignores the caller's cancellation so that an
// abandoned request cannot interrupt a commit; statements still observe ctx.
func (ss *subscriptionStore) WithTx(ctx context.Context, fn func(tx mailbus.SubscriptionTx) error) error {
	tx, err := ss.db.db.BeginTxx(context.WithoutCancel(ctx), &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return storageError(err, "failed to begin transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(&subscriptionTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			ss.db.logger.Error().Err(rbErr).Msg("failed to roll back transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return storageError(err, "failed to commit transaction")
	}

	return nil
}

// ConfirmedEmails returns the email of every confirmed subscriber
func (ss *subscriptionStore) ConfirmedEmails(ctx context.Context) ([]string, error) {
	var emails []string
	err := ss.db.db.SelectContext(ctx, &emails, `SELECT email FROM subscriptions WHERE status = $1`, mailbus.StatusConfirmed)
	if err != nil {
		return nil, storageError(err, "failed to find confirmed subscribers")
	}

	return emails, nil
}

type subscriptionTx struct {
	tx *sqlx.Tx
}

// InsertSubscriber inserts new subscriber
func (t *subscriptionTx) InsertSubscriber(ctx context.Context, s *mailbus.Subscriber) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO subscriptions (id, email, name, subscribed_at, status) VALUES ($1, $2, $3, $4, $5)`,
		s.ID, s.Email, s.Name, s.SubscribedAt, s.Status)
	if err != nil {
		return storageError(err, "failed to insert subscriber")
	}
	return nil
}

// InsertToken stores a confirmation token for a subscriber
func (t *subscriptionTx) InsertToken(ctx context.Context, st *mailbus.SubscriptionToken) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO subscription_tokens (subscription_token, subscriber_id) VALUES ($1, $2)`,
		st.Token, st.SubscriberID)
	if err != nil {
		return storageError(err, "failed to insert subscription token")
	}
	return nil
}

// SubscriberIDByToken finds the subscriber owning token
func (t *subscriptionTx) SubscriberIDByToken(ctx context.Context, token string) (uuid.UUID, error) {
	var id uuid.UUID
	err := t.tx.GetContext(ctx, &id, `SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1`, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, &mailbus.Error{Code: mailbus.ErrNotFound, Message: "Unknown subscription token."}
		}
		return uuid.Nil, storageError(err, "failed to find subscriber by token")
	}
	return id, nil
}

// ConfirmSubscriber marks the subscriber as confirmed
func (t *subscriptionTx) ConfirmSubscriber(ctx context.Context, id uuid.UUID) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE subscriptions SET status = $1 WHERE id = $2`, mailbus.StatusConfirmed, id)
	if err != nil {
		return storageError(err, "failed to update status")
	}
	return nil
}
