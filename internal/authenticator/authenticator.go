// Package authenticator declares the request guard the router puts in
// front of protected routes.
package authenticator

import "net/http"

// Authenticator rejects requests without a valid session token and
// passes the rest on with the user ID in the request context.
type Authenticator interface {
	// EnsureAuthenticated lets the request through only with a valid
	// bearer token and stores the token subject in the request context.
	EnsureAuthenticated(h http.Handler) http.Handler
}
