package http

import (
	"fmt"
	"net/http"

	"github.com/rs/zerolog/hlog"

	"github.com/quantonganh/mailbus"
)

const (
	confirmationMessage = "A confirmation email has been sent to %s. Click the link in the email to confirm and activate your subscription. Check your spam folder if you don't see it within a couple of minutes."
	thankyouMessage     = "Thank you for subscribing to this newsletter."
)

func (s *Server) subscriptionsHandler(w http.ResponseWriter, r *http.Request) error {
	if err := r.ParseForm(); err != nil {
		return NewError(err, http.StatusBadRequest, "Invalid form data.")
	}

	var (
		req mailbus.SubscriptionRequest
		err error
	)
	if req.Name, err = formValue(r, "name"); err != nil {
		return err
	}
	if req.Email, err = formValue(r, "email"); err != nil {
		return err
	}

	id, err := s.SubscriptionService.Subscribe(r.Context(), req.Name, req.Email)
	if err != nil {
		return err
	}

	hlog.FromRequest(r).Info().Str("subscriber_id", id.String()).Msg("New subscriber is pending confirmation")
	writeJSONResponse(w, http.StatusOK, &mailbus.SubscriptionResponse{
		Message: fmt.Sprintf(confirmationMessage, req.Email),
	})

	return nil
}

func (s *Server) confirmHandler(w http.ResponseWriter, r *http.Request) error {
	token := r.URL.Query().Get("subscription_token")
	if len(token) == 0 {
		return NewError(nil, http.StatusBadRequest, "Missing the subscription_token parameter.")
	}

	if err := s.SubscriptionService.Confirm(r.Context(), token); err != nil {
		return err
	}

	writeJSONResponse(w, http.StatusOK, &mailbus.SubscriptionResponse{
		Message: thankyouMessage,
	})

	return nil
}

// formValue returns a required form field. A field that is present but empty
// is left to the validator.
func formValue(r *http.Request, field string) (string, error) {
	values, ok := r.PostForm[field]
	if !ok || len(values) == 0 {
		return "", NewError(nil, http.StatusBadRequest, fmt.Sprintf("Missing the %s field.", field))
	}
	return values[0], nil
}
