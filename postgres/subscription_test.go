package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	uuid "github.com/satori/go.uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantonganh/mailbus"
)

const (
	insertSubscriberQuery = `INSERT INTO subscriptions (id, email, name, subscribed_at, status) VALUES ($1, $2, $3, $4, $5)`
	insertTokenQuery      = `INSERT INTO subscription_tokens (subscription_token, subscriber_id) VALUES ($1, $2)`
	findTokenQuery        = `SELECT subscriber_id FROM subscription_tokens WHERE subscription_token = $1`
	confirmQuery          = `UPDATE subscriptions SET status = $1 WHERE id = $2`
)

func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db := NewDB("postgres://mock", zerolog.Nop())
	db.db = sqlx.NewDb(sqlDB, "postgres")

	return db, mock
}

func newPendingSubscriber(t *testing.T) *mailbus.Subscriber {
	ns, err := mailbus.ParseNewSubscriber("le guin", "ursula_le_guin@gmail.com")
	require.NoError(t, err)
	return mailbus.NewPendingSubscriber(ns, time.Now())
}

func TestWithTx_Commit(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSubscriptionStore(db)
	subscriber := newPendingSubscriber(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertSubscriberQuery)).
		WithArgs(sqlmock.AnyArg(), subscriber.Email, subscriber.Name, sqlmock.AnyArg(), mailbus.StatusPending).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertTokenQuery)).
		WithArgs("aBcDeFgHiJkLmNoPqRsTuVwXy", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx mailbus.SubscriptionTx) error {
		if err := tx.InsertSubscriber(context.Background(), subscriber); err != nil {
			return err
		}
		return tx.InsertToken(context.Background(), &mailbus.SubscriptionToken{
			Token:        "aBcDeFgHiJkLmNoPqRsTuVwXy",
			SubscriberID: subscriber.ID,
		})
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnError(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSubscriptionStore(db)
	subscriber := newPendingSubscriber(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertSubscriberQuery)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	sendErr := &mailbus.Error{Code: mailbus.ErrEmailDelivery, Err: errors.New("timeout")}
	err := store.WithTx(context.Background(), func(tx mailbus.SubscriptionTx) error {
		if err := tx.InsertSubscriber(context.Background(), subscriber); err != nil {
			return err
		}
		return sendErr
	})
	assert.Equal(t, sendErr, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_RollbackOnPanic(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSubscriptionStore(db)

	mock.ExpectBegin()
	mock.ExpectRollback()

	assert.Panics(t, func() {
		_ = store.WithTx(context.Background(), func(tx mailbus.SubscriptionTx) error {
			panic("boom")
		})
	})
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTx_StorageErrors(t *testing.T) {
	t.Run("begin", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

		called := false
		err := NewSubscriptionStore(db).WithTx(context.Background(), func(tx mailbus.SubscriptionTx) error {
			called = true
			return nil
		})
		assert.False(t, called)
		assert.Equal(t, mailbus.ErrStorage, mailbus.ErrorCode(err))
	})

	t.Run("insert", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(insertTokenQuery)).WillReturnError(&pq.Error{Code: uniqueViolation})
		mock.ExpectRollback()

		err := NewSubscriptionStore(db).WithTx(context.Background(), func(tx mailbus.SubscriptionTx) error {
			return tx.InsertToken(context.Background(), &mailbus.SubscriptionToken{Token: "dup", SubscriberID: uuid.NewV4()})
		})
		assert.Equal(t, mailbus.ErrStorage, mailbus.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(errors.New("connection reset by peer"))

		err := NewSubscriptionStore(db).WithTx(context.Background(), func(tx mailbus.SubscriptionTx) error {
			return nil
		})
		assert.Equal(t, mailbus.ErrStorage, mailbus.ErrorCode(err))
	})
}

func TestConfirmSubscriber(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewSubscriptionStore(db)
	id := uuid.NewV4()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(findTokenQuery)).
		WithArgs("aBcDeFgHiJkLmNoPqRsTuVwXy").
		WillReturnRows(sqlmock.NewRows([]string{"subscriber_id"}).AddRow(id.String()))
	mock.ExpectExec(regexp.QuoteMeta(confirmQuery)).
		WithArgs(mailbus.StatusConfirmed, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithTx(context.Background(), func(tx mailbus.SubscriptionTx) error {
		found, err := tx.SubscriberIDByToken(context.Background(), "aBcDeFgHiJkLmNoPqRsTuVwXy")
		if err != nil {
			return err
		}
		assert.Equal(t, id, found)
		return tx.ConfirmSubscriber(context.Background(), found)
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSubscriberIDByToken_NotFound(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(findTokenQuery)).
		WithArgs("unknown").
		WillReturnRows(sqlmock.NewRows([]string{"subscriber_id"}))
	mock.ExpectRollback()

	err := NewSubscriptionStore(db).WithTx(context.Background(), func(tx mailbus.SubscriptionTx) error {
		_, err := tx.SubscriberIDByToken(context.Background(), "unknown")
		return err
	})
	assert.Equal(t, mailbus.ErrNotFound, mailbus.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConfirmedEmails(t *testing.T) {
	db, mock := newMockDB(t)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT email FROM subscriptions WHERE status = $1`)).
		WithArgs(mailbus.StatusConfirmed).
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("a@example.com").AddRow("b@example.com"))

	emails, err := NewSubscriptionStore(db).ConfirmedEmails(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a@example.com", "b@example.com"}, emails)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT email FROM subscriptions`)).WillReturnError(errors.New("relation does not exist"))
	_, err = NewSubscriptionStore(db).ConfirmedEmails(context.Background())
	assert.Equal(t, mailbus.ErrStorage, mailbus.ErrorCode(err))
}

func TestPing(t *testing.T) {
	assert.Equal(t, mailbus.ErrStorage, mailbus.ErrorCode(NewDB("postgres://mock", zerolog.Nop()).Ping(context.Background())))

	sqlDB, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqlDB.Close()

	db := NewDB("postgres://mock", zerolog.Nop())
	db.db = sqlx.NewDb(sqlDB, "postgres")

	mock.ExpectPing()
	assert.NoError(t, db.Ping(context.Background()))

	mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	assert.Equal(t, mailbus.ErrStorage, mailbus.ErrorCode(db.Ping(context.Background())))
}
