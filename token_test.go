package mailbus

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewSubscriptionToken(t *testing.T) {
	alphanumeric := regexp.MustCompile(`^[A-Za-z0-9]{25}$`)

	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		token := NewSubscriptionToken()
		assert.Regexp(t, alphanumeric, token)
		_, dup := seen[token]
		assert.False(t, dup, "duplicate token %s", token)
		seen[token] = struct{}{}
	}
}
