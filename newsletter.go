package mailbus

import "context"

// NewsletterService is the interface that wraps the newsletter fan-out
type NewsletterService interface {
	// Publish delivers the newsletter to every confirmed subscriber. The
	// report is returned even when some deliveries failed.
	Publish(ctx context.Context, n *Newsletter) (*DeliveryReport, error)
}

// Newsletter is an issue ready to be sent
type Newsletter struct {
	Title    string
	HTMLBody string
	TextBody string
}

// DeliveryReport summarizes a Publish call.
type DeliveryReport struct {
	Delivered int               `json:"delivered"`
	Skipped   int               `json:"skipped"`
	Failed    []FailedRecipient `json:"failed"`
}

// FailedRecipient is a recipient whose delivery attempt failed.
type FailedRecipient struct {
	Email string `json:"email"`
	Err   error  `json:"-"`
}

// NewsletterRequest is the body of POST /newsletters. Every field is required;
// pointers tell a missing field from an empty one.
type NewsletterRequest struct {
	Title   *string `json:"title"`
	Content *struct {
		Text *string `json:"text"`
		HTML *string `json:"html"`
	} `json:"content"`
}
