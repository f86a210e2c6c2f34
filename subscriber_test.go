package mailbus

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSubscriberName(t *testing.T) {
	t.Run("valid names are trimmed", func(t *testing.T) {
		name, err := ParseSubscriberName("  Ursula Le Guin  ")
		require.NoError(t, err)
		assert.Equal(t, "Ursula Le Guin", name.String())
	})

	t.Run("a 256 grapheme long name is valid", func(t *testing.T) {
		_, err := ParseSubscriberName(strings.Repeat("ё", 256))
		assert.NoError(t, err)
	})

	tests := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"whitespace only", "   \t "},
		{"longer than 256 graphemes", strings.Repeat("a", 257)},
		{"control character", "bn\u0007"},
		{"tab inside", "b\tn"},
		{"invalid UTF-8", "le \xff\xfe guin"},
	}
	for _, c := range forbiddenNameCharacters {
		tests = append(tests, struct {
			name string
			raw  string
		}{"forbidden " + string(c), "bn" + string(c)})
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSubscriberName(tt.raw)
			require.Error(t, err)
			assert.Equal(t, ErrInvalid, ErrorCode(err))
			assert.NotEmpty(t, ErrorMessage(err))
		})
	}
}

func TestParseSubscriberEmail(t *testing.T) {
	valid := []string{"tdnb@hello.com", "ursula.le.guin@domain.com", "first+tag@sub.example.org"}
	for _, raw := range valid {
		email, err := ParseSubscriberEmail(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, raw, email.String())
	}

	invalid := []string{"", "ursuladomain.com", "@domain.com", "ursula@", "ursula le guin@domain.com"}
	for _, raw := range invalid {
		_, err := ParseSubscriberEmail(raw)
		require.Error(t, err, raw)
		assert.Equal(t, ErrInvalid, ErrorCode(err), raw)
	}
}

func TestParseNewSubscriber(t *testing.T) {
	ns, err := ParseNewSubscriber("bn", "tdnb@hello.com")
	require.NoError(t, err)
	assert.Equal(t, "bn", ns.Name.String())
	assert.Equal(t, "tdnb@hello.com", ns.Email.String())

	_, err = ParseNewSubscriber("", "tdnb@hello.com")
	assert.Equal(t, ErrInvalid, ErrorCode(err))

	_, err = ParseNewSubscriber("bn", "not-an-email")
	assert.Equal(t, ErrInvalid, ErrorCode(err))
}

func TestNewPendingSubscriber(t *testing.T) {
	ns, err := ParseNewSubscriber("bn", "tdnb@hello.com")
	require.NoError(t, err)

	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("ICT", 7*3600))
	s1 := NewPendingSubscriber(ns, now)
	s2 := NewPendingSubscriber(ns, now)

	assert.Equal(t, StatusPending, s1.Status)
	assert.Equal(t, "bn", s1.Name)
	assert.Equal(t, "tdnb@hello.com", s1.Email)
	assert.True(t, s1.SubscribedAt.Equal(now))
	assert.Equal(t, time.UTC, s1.SubscribedAt.Location())
	assert.NotEqual(t, s1.ID, s2.ID)
}
