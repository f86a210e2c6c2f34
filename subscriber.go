package mailbus

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/rivo/uniseg"
	uuid "github.com/satori/go.uuid"
)

// Subscriber status
const (
	StatusPending   = "pending_confirmation"
	StatusConfirmed = "confirmed"
)

const maxNameLength = 256

const forbiddenNameCharacters = `/()"<>\{}`

var validate = validator.New()

// SubscriberName is a validated subscriber name.
type SubscriberName struct {
	value string
}

// ParseSubscriberName trims raw and rejects empty names, names longer than
// 256 graphemes and names containing control or forbidden characters.
func ParseSubscriberName(raw string) (SubscriberName, error) {
	if !utf8.ValidString(raw) {
		return SubscriberName{}, Errorf(ErrInvalid, "Name must be valid UTF-8.")
	}
	name := strings.TrimSpace(raw)
	if name == "" {
		return SubscriberName{}, Errorf(ErrInvalid, "Name must not be empty.")
	}
	if uniseg.GraphemeClusterCount(name) > maxNameLength {
		return SubscriberName{}, Errorf(ErrInvalid, "Name must be at most %d characters long.", maxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) || strings.ContainsRune(forbiddenNameCharacters, r) {
			return SubscriberName{}, Errorf(ErrInvalid, "Name contains a forbidden character: %q.", r)
		}
	}

	return SubscriberName{value: name}, nil
}

func (n SubscriberName) String() string {
	return n.value
}

// SubscriberEmail is a syntactically valid email address.
type SubscriberEmail struct {
	value string
}

// ParseSubscriberEmail checks the syntax of raw. No DNS lookup is done.
func ParseSubscriberEmail(raw string) (SubscriberEmail, error) {
	if err := validate.Var(raw, "required,email"); err != nil {
		return SubscriberEmail{}, Errorf(ErrInvalid, "%q is not a valid email address.", raw)
	}

	return SubscriberEmail{value: raw}, nil
}

func (e SubscriberEmail) String() string {
	return e.value
}

// NewSubscriber is a validated subscription request that is not stored yet.
type NewSubscriber struct {
	Name  SubscriberName
	Email SubscriberEmail
}

// ParseNewSubscriber validates the raw form values.
func ParseNewSubscriber(name, email string) (*NewSubscriber, error) {
	n, err := ParseSubscriberName(name)
	if err != nil {
		return nil, err
	}
	e, err := ParseSubscriberEmail(email)
	if err != nil {
		return nil, err
	}

	return &NewSubscriber{Name: n, Email: e}, nil
}

// Subscriber represents a stored subscriber
type Subscriber struct {
	ID           uuid.UUID
	Email        string
	Name         string
	SubscribedAt time.Time
	Status       string
}

// NewPendingSubscriber returns a subscriber with a fresh id, waiting for confirmation.
func NewPendingSubscriber(ns *NewSubscriber, now time.Time) *Subscriber {
	return &Subscriber{
		ID:           uuid.NewV4(),
		Email:        ns.Email.String(),
		Name:         ns.Name.String(),
		SubscribedAt: now.UTC(),
		Status:       StatusPending,
	}
}
