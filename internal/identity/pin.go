package identity

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// maxPINBytes is the bcrypt input limit.
const maxPINBytes = 72

// PINHasher hashes and verifies PINs. Digests are opaque to callers.
type PINHasher interface {
	Hash(pin string) ([]byte, error)
	Verify(pin string, digest []byte) bool
}

// BcryptHasher implements PINHasher with salted bcrypt digests.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher at the given cost, clamped to bcrypt's range.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns a salted bcrypt digest of pin.
func (h *BcryptHasher) Hash(pin string) ([]byte, error) {
	if len(pin) > maxPINBytes {
		return nil, fmt.Errorf("%w: PIN must be at most %d bytes", ErrInvalidInput, maxPINBytes)
	}
	return bcrypt.GenerateFromPassword([]byte(pin), h.cost)
}

// Verify reports whether pin matches digest. The comparison inside bcrypt is constant time.
func (h *BcryptHasher) Verify(pin string, digest []byte) bool {
	if len(digest) == 0 {
		return false
	}
	return bcrypt.CompareHashAndPassword(digest, []byte(pin)) == nil
}
