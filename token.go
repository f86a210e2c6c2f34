package mailbus

import (
	"crypto/rand"
	"math/big"
)

// SubscriptionTokenLength is the number of characters in a confirmation token.
const SubscriptionTokenLength = 25

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewSubscriptionToken returns a random token drawn uniformly from [A-Za-z0-9].
func NewSubscriptionToken() string {
	max := big.NewInt(int64(len(tokenAlphabet)))
	b := make([]byte, SubscriptionTokenLength)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			panic(err)
		}
		b[i] = tokenAlphabet[n.Int64()]
	}

	return string(b)
}
