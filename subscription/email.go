package subscription

import (
	"fmt"
	"net/url"

	"github.com/matcornic/hermes/v2"
	"github.com/pkg/errors"

	"github.com/quantonganh/mailbus"
)

const confirmationSubject = "Welcome!"

// ConfirmationLink returns the link a subscriber follows to confirm.
func ConfirmationLink(baseURL, token string) string {
	return fmt.Sprintf("%s/subscriptions/confirm?subscription_token=%s", baseURL, url.QueryEscape(token))
}

func (s *Service) confirmationEmail(ns *mailbus.NewSubscriber, link string) (*mailbus.Email, error) {
	h := hermes.Hermes{
		Product: hermes.Product{
			Name: s.product,
			Link: s.baseURL,
		},
	}

	email := hermes.Email{
		Body: hermes.Body{
			Name: ns.Name.String(),
			Intros: []string{
				fmt.Sprintf("Welcome to %s!", s.product),
			},
			Actions: []hermes.Action{
				{
					Instructions: "Click the button below to confirm your subscription:",
					Button: hermes.Button{
						Color: "#22BC66",
						Text:  "Confirm your subscription",
						Link:  link,
					},
				},
			},
		},
	}

	htmlBody, err := h.GenerateHTML(email)
	if err != nil {
		return nil, errors.Errorf("failed to generate HTML email: %v", err)
	}
	textBody, err := h.GeneratePlainText(email)
	if err != nil {
		return nil, errors.Errorf("failed to generate plain text email: %v", err)
	}

	return &mailbus.Email{
		To:       ns.Email,
		Subject:  confirmationSubject,
		HTMLBody: htmlBody,
		TextBody: textBody,
	}, nil
}
