package payment

import (
	"crypto/rand"
	"math/big"
)

const (
	orderCodeMin  = 100_000_000
	orderCodeSpan = 900_000_000
)

// NewOrderCode returns a random 9-digit order code.  Uniqueness is enforced
// by the tickets table; a collision surfaces as a retryable conflict.
func NewOrderCode() (int64, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(orderCodeSpan))
	if err != nil {
		return 0, err
	}
	return orderCodeMin + n.Int64(), nil
}
