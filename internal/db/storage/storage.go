// Package storage declares the user storage contract shared by
// the postgres, JSON-file and in-memory implementations.
package storage

import (
	"context"
	"errors"

	"github.com/patric-chuzhbe/userauth/internal/user"
)

// ErrUserNotFound is returned by lookups that match no user.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailAlreadyExists is returned when a user with the same email is already stored.
var ErrEmailAlreadyExists = errors.New("email already exists")

// Storage persists users. Implementations must be safe for concurrent use.
type Storage interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)

	GetUserByID(ctx context.Context, userID string) (*user.User, error)

	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)

	SaveUser(ctx context.Context, usr *user.User) error

	GetNumberOfUsers(ctx context.Context) (int64, error)

	Ping(ctx context.Context) error

	Close() error
}
