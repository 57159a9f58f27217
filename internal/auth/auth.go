// Package auth issues and verifies the JWT session tokens and provides
// the middleware that guards protected routes.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"

	"github.com/patric-chuzhbe/userauth/internal/apperror"
	"github.com/patric-chuzhbe/userauth/internal/logger"
)

// Auth signs and verifies session tokens with a shared HMAC secret.
type Auth struct {
	// secretKey is the key used to sign and verify JWTs.
	secretKey []byte

	// expiresIn is the lifetime of an issued token.
	expiresIn time.Duration

	now func() time.Time
}

// Claims represents the JWT claims used by the system.
// The subject holds the user ID.
type Claims struct {
	jwt.RegisteredClaims
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// UserIDKey is the context key used to store and retrieve the authenticated user's ID.
const UserIDKey ContextKey = "userID"

// ErrInvalidTokenOrJwtParsing is returned for tokens that fail parsing or validation.
var ErrInvalidTokenOrJwtParsing = errors.New("invalid token or JWT parsing error")

// Option configures Auth.
type Option func(*Auth)

// WithClock replaces the time source used when issuing tokens.
func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

// New creates an Auth with the signing secret and token lifetime.
func New(secretKey []byte, expiresIn time.Duration, options ...Option) *Auth {
	a := &Auth{
		secretKey: secretKey,
		expiresIn: expiresIn,
		now:       time.Now,
	}
	for _, option := range options {
		option(a)
	}

	return a
}

// BuildJWTString issues a signed token whose subject is userID.
func (a *Auth) BuildJWTString(userID string) (string, error) {
	issuedAt := a.now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(a.expiresIn)),
		},
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secretKey)
	if err != nil {
		return "", fmt.Errorf(
			"in internal/auth/auth.go/BuildJWTString(): error while `token.SignedString()` calling: %w",
			err,
		)
	}

	return tokenString, nil
}

// GetUserIDFromToken verifies tokenString and returns its subject.
func (a *Auth) GetUserIDFromToken(tokenString string) (string, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.secretKey, nil
		},
	)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidTokenOrJwtParsing, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidTokenOrJwtParsing
	}

	return claims.Subject, nil
}

// EnsureAuthenticated is an HTTP middleware that lets the request through only
// with a valid `Authorization: <scheme> <token>` header, putting the token's
// user ID into the request context. The scheme word itself is not checked.
func (a *Auth) EnsureAuthenticated(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		authHeader := request.Header.Get("Authorization")
		if authHeader == "" {
			apperror.Respond(response, apperror.ErrMissingToken)
			return
		}

		userID, err := a.GetUserIDFromToken(tokenFromAuthorizationHeader(authHeader))
		if err != nil {
			logger.Log.Debugln("Error calling the `a.GetUserIDFromToken()`: ", zap.Error(err))
			apperror.Respond(response, apperror.ErrInvalidToken)
			return
		}

		ctx := context.WithValue(request.Context(), UserIDKey, userID)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// UserIDFromContext returns the user ID put by EnsureAuthenticated.
func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

func tokenFromAuthorizationHeader(authHeader string) string {
	parts := strings.Fields(authHeader)
	if len(parts) < 2 {
		return ""
	}

	return parts[1]
}
