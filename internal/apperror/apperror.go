// Package apperror defines client-facing application errors that carry
// an HTTP status code next to a human-readable message, so the transport
// layer can map them without inspecting error strings.
package apperror

import (
	"encoding/json"
	"errors"
	"net/http"
)

// AppError is an error that is safe to show to the client as is.
type AppError struct {
	// Message is the text returned to the client.
	Message string

	// StatusCode is the HTTP status the error maps to.
	StatusCode int
}

// New creates an AppError with the given message and status code.
func New(message string, statusCode int) *AppError {
	return &AppError{
		Message:    message,
		StatusCode: statusCode,
	}
}

func (e *AppError) Error() string {
	return e.Message
}

var (
	ErrMissingToken       = New("JWT token is missing.", http.StatusUnauthorized)
	ErrInvalidToken       = New("Invalid JWT token.", http.StatusUnauthorized)
	ErrInvalidCredentials = New("Incorrect email/password combination.", http.StatusUnauthorized)
	ErrUserNotFound       = New("Only authenticated users can change avatar.", http.StatusUnauthorized)
	ErrEmailAlreadyUsed   = New("Email address already used.", http.StatusBadRequest)
	ErrInvalidRequest     = New("Invalid request body.", http.StatusBadRequest)
	ErrInvalidPassword    = New("Invalid password.", http.StatusBadRequest)
	ErrAvatarRequired     = New("Avatar file is required.", http.StatusBadRequest)
	ErrBlobNotFound       = New("File not found.", http.StatusNotFound)
	ErrForbidden          = New("Forbidden.", http.StatusForbidden)
)

// ErrStorageFailure marks persistence or blob errors that are not otherwise classified.
// It is never shown to the client.
var ErrStorageFailure = errors.New("storage failure")

// StatusCode returns the status code carried by the first AppError in err's chain,
// or http.StatusInternalServerError if there is none.
func StatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	return http.StatusInternalServerError
}

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Respond writes err as a JSON error body. Errors without a status code
// are reported as a generic internal error so their details do not leak.
func Respond(response http.ResponseWriter, err error) {
	body := errorResponse{
		Status:  "error",
		Message: "Internal server error",
	}
	statusCode := http.StatusInternalServerError

	var appErr *AppError
	if errors.As(err, &appErr) {
		body.Message = appErr.Message
		statusCode = appErr.StatusCode
	}

	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	_ = json.NewEncoder(response).Encode(body)
}
