// Error taxonomy shared by both store implementations.  Handlers translate
// these sentinels into HTTP statuses with errors.Is; anything unmatched is
// logged in full server-side and surfaced as a generic 500.
package auth

import (
	"errors"
	"net/http"
)

var (
	// ErrInvalidCredentials covers both "no such account" and "wrong
	// password" so the response never reveals whether an email exists.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken means the external issuer rejected the identity token.
	ErrInvalidToken = errors.New("invalid token")

	// ErrEmailMismatch means the token verified but its email claim does
	// not match the email in the request.
	ErrEmailMismatch = errors.New("token email mismatch")

	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrDuplicateEmail  = errors.New("email already registered")
	ErrAccountDisabled = errors.New("account disabled")

	// ErrUnsupportedForProvider is returned when a password change is
	// attempted on a social-provider account.
	ErrUnsupportedForProvider = errors.New("operation not supported for this provider")
)

// HTTPStatus maps a taxonomy error to its response status.  Unknown errors
// map to 500.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	// AccountDisabled deliberately shares the status (and, below, the
	// message) of InvalidCredentials: the response body must not reveal
	// which of the two happened.  Server-side logs keep the distinction.
	case errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrAccountDisabled),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrEmailMismatch),
		errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden),
		errors.Is(err, ErrUnsupportedForProvider):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateEmail):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// PublicMessage returns the client-safe message for an error.  Credential
// and identity failures collapse to fixed strings; unexpected errors never
// leak their detail.
func PublicMessage(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials), errors.Is(err, ErrAccountDisabled):
		return "invalid credentials"
	case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrEmailMismatch):
		return "invalid token"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrUnsupportedForProvider):
		return "password change is not available for this account"
	case errors.Is(err, ErrNotFound):
		return "not found"
	case errors.Is(err, ErrDuplicateEmail):
		return "email already registered"
	case errors.Is(err, ErrValidation):
		return err.Error()
	default:
		return "internal error"
	}
}
