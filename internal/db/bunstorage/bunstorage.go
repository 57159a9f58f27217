// Package bunstorage implements the user storage on top of the bun ORM.
// It does not care about the SQL dialect: postgresdb wraps it with the
// postgres dialect, tests run it against an in-memory SQLite database.
package bunstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/uptrace/bun"

	"github.com/patric-chuzhbe/userauth/internal/db/storage"
	"github.com/patric-chuzhbe/userauth/internal/user"
)

const pgUniqueViolationCode = "23505"

// Storage is a bun-backed users repository.
type Storage struct {
	db                *bun.DB
	connectionTimeout time.Duration
}

// New wraps an opened bun database.
func New(db *bun.DB, connectionTimeout time.Duration) *Storage {
	return &Storage{
		db:                db,
		connectionTimeout: connectionTimeout,
	}
}

// CreateSchema creates the users table if it does not exist yet.
// Postgres deployments get their schema from goose migrations instead.
func (s *Storage) CreateSchema(ctx context.Context) error {
	_, err := s.db.NewCreateTable().
		Model((*user.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/bunstorage/bunstorage.go/CreateSchema(): error while `s.db.NewCreateTable()` calling: %w",
			err,
		)
	}

	return nil
}

// GetUserByEmail finds a user by the exact email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	usr := new(user.User)
	err := s.db.NewSelect().
		Model(usr).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}

		return nil, fmt.Errorf(
			"in internal/db/bunstorage/bunstorage.go/GetUserByEmail(): error while `s.db.NewSelect()` calling: %w",
			err,
		)
	}

	return usr, nil
}

// GetUserByID finds a user by ID. Malformed IDs never match.
func (s *Storage) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	if _, err := uuid.Parse(userID); err != nil {
		return nil, storage.ErrUserNotFound
	}

	usr := new(user.User)
	err := s.db.NewSelect().
		Model(usr).
		Where("?TableAlias.id = ?", userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrUserNotFound
		}

		return nil, fmt.Errorf(
			"in internal/db/bunstorage/bunstorage.go/GetUserByID(): error while `s.db.NewSelect()` calling: %w",
			err,
		)
	}

	return usr, nil
}

// CreateUser inserts a new user, generating its ID when empty.
func (s *Storage) CreateUser(ctx context.Context, usr *user.User) (*user.User, error) {
	if usr.ID == "" {
		usr.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	usr.CreatedAt = now
	usr.UpdatedAt = now

	_, err := s.db.NewInsert().Model(usr).Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, storage.ErrEmailAlreadyExists
		}

		return nil, fmt.Errorf(
			"in internal/db/bunstorage/bunstorage.go/CreateUser(): error while `s.db.NewInsert()` calling: %w",
			err,
		)
	}

	return usr, nil
}

// SaveUser updates every column of an existing user.
func (s *Storage) SaveUser(ctx context.Context, usr *user.User) error {
	usr.UpdatedAt = time.Now().UTC()

	result, err := s.db.NewUpdate().
		Model(usr).
		WherePK().
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrEmailAlreadyExists
		}

		return fmt.Errorf(
			"in internal/db/bunstorage/bunstorage.go/SaveUser(): error while `s.db.NewUpdate()` calling: %w",
			err,
		)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf(
			"in internal/db/bunstorage/bunstorage.go/SaveUser(): error while `result.RowsAffected()` calling: %w",
			err,
		)
	}
	if affected == 0 {
		return storage.ErrUserNotFound
	}

	return nil
}

// GetNumberOfUsers returns the total count of stored users.
func (s *Storage) GetNumberOfUsers(ctx context.Context) (int64, error) {
	count, err := s.db.NewSelect().Model((*user.User)(nil)).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf(
			"in internal/db/bunstorage/bunstorage.go/GetNumberOfUsers(): error while `s.db.NewSelect().Count()` calling: %w",
			err,
		)
	}

	return int64(count), nil
}

// Ping verifies connectivity within the configured timeout.
func (s *Storage) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, s.connectionTimeout)
	defer cancel()

	return s.db.PingContext(ctxWithTimeout)
}

// Close closes the underlying database.
func (s *Storage) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}

	// SQLite drivers do not share an error type.
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
