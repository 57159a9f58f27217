// Package hasher wraps bcrypt for one-way password hashing.
package hasher

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when an empty password is about to be hashed.
var ErrEmptyPassword = errors.New("password must not be empty")

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash.
var ErrPasswordTooLong = errors.New("password must not exceed 72 bytes")

// MaxPasswordLength is the bcrypt input limit in bytes.
const MaxPasswordLength = 72

// ErrMismatchedHashAndPassword is returned when the password does not match the hash.
var ErrMismatchedHashAndPassword = errors.New("hashed password does not match the given password")

// Hasher hashes and checks passwords with a fixed bcrypt cost.
type Hasher struct {
	cost int
}

// New creates a Hasher. A cost outside bcrypt's bounds falls back to bcrypt.DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	return &Hasher{cost: cost}
}

// HashPassword returns the bcrypt hash of password.
func (h *Hasher) HashPassword(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// ComparePasswordAndHash checks that password matches hash.
// The comparison itself is constant time.
func (h *Hasher) ComparePasswordAndHash(password, hash string) error {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return ErrMismatchedHashAndPassword
	}

	return err
}
