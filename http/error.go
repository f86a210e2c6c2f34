package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/mailbus"
)

type appHandler func(w http.ResponseWriter, r *http.Request) error

// codes maps application error codes to HTTP status codes
var codes = map[string]int{
	mailbus.ErrInvalid:       http.StatusBadRequest,
	mailbus.ErrUnauthorized:  http.StatusUnauthorized,
	mailbus.ErrNotFound:      http.StatusNotFound,
	mailbus.ErrConflict:      http.StatusConflict,
	mailbus.ErrStorage:       http.StatusInternalServerError,
	mailbus.ErrEmailDelivery: http.StatusInternalServerError,
	mailbus.ErrInternal:      http.StatusInternalServerError,
}

// ErrorStatusCode returns the HTTP status for an application error code
func ErrorStatusCode(code string) int {
	if v, ok := codes[code]; ok {
		return v
	}
	return http.StatusInternalServerError
}

// Error parse HTTP error and write to header and body
func (s *Server) Error(fn appHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		if err == nil {
			return
		}

		var clientError ClientError
		if errors.As(err, &clientError) {
			hlog.FromRequest(r).Info().Err(err).Msg("Rejected request")
			writeClientError(w, clientError)
			return
		}

		code := mailbus.ErrorCode(err)
		status := ErrorStatusCode(code)
		if status >= http.StatusInternalServerError {
			hlog.FromRequest(r).Error().Err(err).Msg("Request failed")
			sentry.CaptureException(err)
		} else {
			hlog.FromRequest(r).Info().Err(err).Msg("Rejected request")
		}

		writeJSONResponse(w, status, &errorResponse{
			Error:   code,
			Message: mailbus.ErrorMessage(err),
		})
	}
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeClientError(w http.ResponseWriter, clientError ClientError) {
	body, err := clientError.Body()
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	status, headers := clientError.Headers()
	for k, v := range headers {
		w.Header().Set(k, v)
	}

	w.WriteHeader(status)

	_, _ = w.Write(body)
}

// ClientError is the interface that wraps methods related to error on the client side
type ClientError interface {
	Error() string
	Body() ([]byte, error)
	Headers() (int, map[string]string)
}

// Error represents a detail error message
type Error struct {
	Cause   error  `json:"-"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// Body returns response body from error
func (e *Error) Body() ([]byte, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("Error while parsing response body: %v", err)
	}
	return body, nil
}

// Headers returns status and header
func (e *Error) Headers() (int, map[string]string) {
	return e.Status, map[string]string{
		"Content-Type": "application/json; charset=utf-8",
	}
}

// NewError returns new error message
func NewError(err error, status int, message string) error {
	return &Error{
		Cause:   err,
		Message: message,
		Status:  status,
	}
}

func writeJSONResponse(w http.ResponseWriter, statusCode int, response interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	//nolint:errcheck
	json.NewEncoder(w).Encode(response)
}
