// Package service implements the user use cases: registration,
// authentication and avatar replacement.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userauth/internal/apperror"
	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/hasher"
	"github.com/patric-chuzhbe/userauth/internal/logger"
	"github.com/patric-chuzhbe/userauth/internal/models"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

type userKeeper interface {
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	GetUserByID(ctx context.Context, userID string) (*user.User, error)
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)
	SaveUser(ctx context.Context, usr *user.User) error
	GetNumberOfUsers(ctx context.Context) (int64, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

type storageKeeper interface {
	userKeeper
	pinger
}

type passwordHasher interface {
	HashPassword(password string) (string, error)
	ComparePasswordAndHash(password, hash string) error
}

type tokenIssuer interface {
	BuildJWTString(userID string) (string, error)
}

type blobRemover interface {
	Delete(ctx context.Context, name string) error
}

// timingPassword is hashed once and compared against for unknown emails,
// so a login for a missing account costs as much as one for an existing account.
const timingPassword = "unknown-user-timing-password"

// Service ties the user storage, the password hasher, the token issuer
// and the blob remover into the user use cases.
type Service struct {
	db          storageKeeper
	hasher      passwordHasher
	tokenIssuer tokenIssuer
	blobRemover blobRemover

	timingHashOnce sync.Once
	timingHash     string
}

// New creates a Service. blobRemover receives the names of replaced avatars.
func New(
	db storageKeeper,
	hasher passwordHasher,
	tokenIssuer tokenIssuer,
	blobRemover blobRemover,
) *Service {
	return &Service{
		db:          db,
		hasher:      hasher,
		tokenIssuer: tokenIssuer,
		blobRemover: blobRemover,
	}
}

// CreateUser registers a user, storing only the password hash.
func (s *Service) CreateUser(ctx context.Context, name, email, password string) (*user.User, error) {
	_, err := s.db.GetUserByEmail(ctx, email)
	if err == nil {
		return nil, apperror.ErrEmailAlreadyUsed
	}
	if !errors.Is(err, storage.ErrUserNotFound) {
		return nil, storageFailure(err)
	}

	passwordHash, err := s.hasher.HashPassword(password)
	if err != nil {
		if errors.Is(err, hasher.ErrPasswordTooLong) || errors.Is(err, hasher.ErrEmptyPassword) {
			return nil, apperror.ErrInvalidPassword
		}
		return nil, fmt.Errorf(
			"in internal/service/service.go/CreateUser(): error while `s.hasher.HashPassword()` calling: %w",
			err,
		)
	}

	usr, err := s.db.CreateUser(ctx, &user.User{
		Name:     name,
		Email:    email,
		Password: passwordHash,
	})
	if err != nil {
		if errors.Is(err, storage.ErrEmailAlreadyExists) {
			return nil, apperror.ErrEmailAlreadyUsed
		}
		return nil, storageFailure(err)
	}

	return usr, nil
}

// AuthenticateUser checks the credentials and issues a session token.
// An unknown email and a wrong password fail with the same error.
func (s *Service) AuthenticateUser(ctx context.Context, email, password string) (*user.User, string, error) {
	usr, err := s.db.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			_ = s.hasher.ComparePasswordAndHash(password, s.getTimingHash())
			return nil, "", apperror.ErrInvalidCredentials
		}
		return nil, "", storageFailure(err)
	}

	if err := s.hasher.ComparePasswordAndHash(password, usr.Password); err != nil {
		return nil, "", apperror.ErrInvalidCredentials
	}

	token, err := s.tokenIssuer.BuildJWTString(usr.ID)
	if err != nil {
		return nil, "", fmt.Errorf(
			"in internal/service/service.go/AuthenticateUser(): error while `s.tokenIssuer.BuildJWTString()` calling: %w",
			err,
		)
	}

	return usr, token, nil
}

// UpdateUserAvatar points the user's avatar at avatarFileName and
// drops the previous avatar blob on a best-effort basis.
func (s *Service) UpdateUserAvatar(ctx context.Context, userID, avatarFileName string) (*user.User, error) {
	usr, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return nil, apperror.ErrUserNotFound
		}
		return nil, storageFailure(err)
	}

	if usr.HasAvatar() {
		// The old file may be gone already or not be deletable;
		// neither must stop the new avatar from being saved.
		_ = s.blobRemover.Delete(context.WithoutCancel(ctx), *usr.Avatar)
	}

	usr.Avatar = &avatarFileName

	if err := s.db.SaveUser(ctx, usr); err != nil {
		return nil, storageFailure(err)
	}

	return usr, nil
}

// Ping checks the health of the storage layer.
func (s *Service) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// GetInternalStats returns service-wide counters.
func (s *Service) GetInternalStats(ctx context.Context) (models.InternalStatsResponse, error) {
	users, err := s.db.GetNumberOfUsers(ctx)
	if err != nil {
		return models.InternalStatsResponse{}, storageFailure(err)
	}

	return models.InternalStatsResponse{
		Users: users,
	}, nil
}

func (s *Service) getTimingHash() string {
	s.timingHashOnce.Do(func() {
		hash, err := s.hasher.HashPassword(timingPassword)
		if err != nil {
			logger.Log.Debugln("Error calling the `s.hasher.HashPassword()`: ", zap.Error(err))
			return
		}
		s.timingHash = hash
	})

	return s.timingHash
}

func storageFailure(err error) error {
	return fmt.Errorf("%w: %w", apperror.ErrStorageFailure, err)
}
