package http

import (
	"encoding/json"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/mailbus"
)

const basicAuthRealm = `Basic realm="publish"`

type publishFailure struct {
	errorResponse
	Report *mailbus.DeliveryReport `json:"report"`
}

func (s *Server) publishNewsletterHandler(w http.ResponseWriter, r *http.Request) error {
	username, password, ok := r.BasicAuth()
	if !ok {
		w.Header().Set("WWW-Authenticate", basicAuthRealm)
		return mailbus.Errorf(mailbus.ErrUnauthorized, "Missing credentials.")
	}
	userID, err := s.AuthService.Authenticate(r.Context(), username, password)
	if err != nil {
		if mailbus.ErrorCode(err) == mailbus.ErrUnauthorized {
			w.Header().Set("WWW-Authenticate", basicAuthRealm)
		}
		return err
	}

	var req mailbus.NewsletterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return NewError(err, http.StatusBadRequest, "Invalid JSON body.")
	}
	if req.Title == nil {
		return NewError(nil, http.StatusBadRequest, "Missing the title field.")
	}
	if req.Content == nil {
		return NewError(nil, http.StatusBadRequest, "Missing the content field.")
	}
	if req.Content.Text == nil {
		return NewError(nil, http.StatusBadRequest, "Missing the content.text field.")
	}
	if req.Content.HTML == nil {
		return NewError(nil, http.StatusBadRequest, "Missing the content.html field.")
	}

	logger := hlog.FromRequest(r)
	logger.Info().Str("user_id", userID.String()).Str("title", *req.Title).Msg("Publishing newsletter")

	report, err := s.NewsletterService.Publish(r.Context(), &mailbus.Newsletter{
		Title:    *req.Title,
		HTMLBody: *req.Content.HTML,
		TextBody: *req.Content.Text,
	})
	if err != nil {
		if report == nil {
			return err
		}
		logger.Error().Err(err).Msg("Newsletter was not delivered to every recipient")
		sentry.CaptureException(err)
		writeJSONResponse(w, http.StatusInternalServerError, &publishFailure{
			errorResponse: errorResponse{
				Error:   mailbus.ErrorCode(err),
				Message: mailbus.ErrorMessage(err),
			},
			Report: report,
		})
		return nil
	}

	writeJSONResponse(w, http.StatusOK, report)

	return nil
}
