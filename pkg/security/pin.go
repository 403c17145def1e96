package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrHashingFailed = errors.New("pin hashing failed")
	MinPINLen        = 4
)

// PINHasher provides interface for practitioner PIN operations
type PINHasher interface {
	Hash(pin string) (string, error)
	Compare(hashedPIN, pin string) error
}

type bcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a new PIN hasher using bcrypt
func NewBcryptHasher(cost int) PINHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &bcryptHasher{cost: cost}
}

func (b *bcryptHasher) Hash(pin string) (string, error) {
	if len(pin) < MinPINLen {
		return "", errors.New("pin too short")
	}

	bytes, err := bcrypt.GenerateFromPassword([]byte(pin), b.cost)
	if err != nil {
		return "", ErrHashingFailed
	}
	return string(bytes), nil
}

func (b *bcryptHasher) Compare(hashedPIN, pin string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashedPIN), []byte(pin))
}
