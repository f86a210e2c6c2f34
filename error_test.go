package mailbus

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCode(t *testing.T) {
	storage := &Error{Code: ErrStorage, Err: errors.New("connection refused")}

	assert.Equal(t, "", ErrorCode(nil))
	assert.Equal(t, ErrInternal, ErrorCode(errors.New("boom")))
	assert.Equal(t, ErrStorage, ErrorCode(storage))
	assert.Equal(t, ErrStorage, ErrorCode(&Error{Op: "subscription.Subscribe", Err: storage}))
	assert.Equal(t, ErrStorage, ErrorCode(fmt.Errorf("wrapped: %w", storage)))
	assert.Equal(t, ErrInternal, ErrorCode(&Error{Op: "op"}))
}

func TestErrorMessage(t *testing.T) {
	storage := &Error{Code: ErrStorage, Err: errors.New("pq: password authentication failed")}
	invalid := Errorf(ErrInvalid, "Name must not be empty.")

	assert.Equal(t, "", ErrorMessage(nil))
	assert.Equal(t, "An internal error has occurred.", ErrorMessage(storage))
	assert.Equal(t, "An internal error has occurred.", ErrorMessage(&Error{Op: "op", Err: storage}))
	assert.Equal(t, "Name must not be empty.", ErrorMessage(&Error{Op: "op", Err: invalid}))
}

func TestError_Error(t *testing.T) {
	cause := errors.New("connection refused")
	err := &Error{Op: "subscription.Subscribe", Err: &Error{Code: ErrStorage, Err: cause}}

	assert.Equal(t, "subscription.Subscribe: connection refused", err.Error())
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "<invalid> bad input", Errorf(ErrInvalid, "bad input").Error())
}
