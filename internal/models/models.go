// Package models holds the request and response bodies of the HTTP API
// and the storage type constants.
package models

import "github.com/patric-chuzhbe/userauth/internal/user"

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// LoginRequest only checks presence: a malformed email must fail the
// same way an unknown one does.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// UserResponse is the public view of a user: no password, plus the avatar URL.
type UserResponse struct {
	*user.User
	AvatarURL *string `json:"avatar_url"`
}

// UserEnvelope wraps a single user as {"user": ...}.
type UserEnvelope struct {
	User UserResponse `json:"user"`
}

// LoginResponse is the body returned by POST /sessions.
type LoginResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}

// InternalStatsResponse is the body of GET /api/internal/stats.
type InternalStatsResponse struct {
	Users int64 `json:"users"`
}

// Storage types, picked by app from the configuration.
const (
	StorageTypeUnknown = iota
	StorageTypePostgresql
	StorageTypeFile
	StorageTypeMemory
)

// Blob storage types.
const (
	BlobStorageTypeDisk = iota
	BlobStorageTypeS3
)
