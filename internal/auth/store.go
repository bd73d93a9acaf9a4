// Package auth defines the backend-agnostic contract of the authentication
// layer.  Exactly one Store implementation is active per process: the SQL
// store in development deployments, the document store in production.  The
// choice is made once at startup from config and injected; nothing below
// this package re-reads the environment.
package auth

import (
	"context"
	"time"

	"github.com/kasraf/reelbase/internal/model"
)

// LoginInput carries either a password (relational mode) or an identity
// token issued by the external provider (document mode).  Email is required
// in both modes; in document mode it is cross-checked against the token.
type LoginInput struct {
	Email         string
	Password      string
	IdentityToken string
	IP            string
}

// RegisterInput mirrors LoginInput for account creation.
type RegisterInput struct {
	Name          string
	Email         string
	Password      string
	IdentityToken string
	IP            string
}

// SocialLoginInput is a provider sign-in.  Profile fields are hints from the
// client; the verified token claims win on conflict.
type SocialLoginInput struct {
	Provider model.Provider
	Token    string
	Name     string
	Avatar   string
	IP       string
}

// ProfileUpdate holds the editable profile fields.  Nil pointers mean
// "leave unchanged".  A non-nil Password makes the password change part of
// the same update: either everything applies or nothing does.
type ProfileUpdate struct {
	Name     *string
	Email    *string
	Avatar   *string
	Password *PasswordChange
}

// PasswordChange requires the current password before accepting a new one.
type PasswordChange struct {
	Current string
	New     string
}

// Session is the credential handed back to the client after login.  In
// relational mode Token is a signed JWT that the handler also sets as an
// HTTP-only cookie (Cookie=true) and Refresh is an opaque rotation token
// recorded server-side.  In document mode Token is the caller's identity
// token echoed back, no cookie is set and Refresh is empty.
type Session struct {
	Token     string
	Refresh   string
	ExpiresAt time.Time
	Cookie    bool
}

// Store is the authentication facade.  Both backends return the normalized
// model.User shape and the shared error taxonomy from this package.
type Store interface {
	// Login authenticates and returns the user plus a session credential.
	Login(ctx context.Context, in LoginInput) (model.User, Session, error)

	// Register creates an account.  The returned session is nil in
	// relational mode (the caller logs in separately) and non-nil in
	// document mode, where the verified token already is the session.
	Register(ctx context.Context, in RegisterInput) (model.User, *Session, error)

	// SocialLogin upserts an account from a verified provider token,
	// linking by provider+subject first and by email second.
	SocialLogin(ctx context.Context, in SocialLoginInput) (model.User, Session, error)

	// CurrentUser resolves a raw credential (cookie JWT or bearer token)
	// to the user it belongs to.  Document mode re-verifies the token on
	// every call; nothing is cached between calls.
	CurrentUser(ctx context.Context, credential string) (model.User, error)

	// UpdateProfile edits name/email/avatar for the given user id.  When
	// upd.Password is set the password change applies in the same write;
	// a failing password check leaves the profile fields untouched.
	UpdateProfile(ctx context.Context, userID string, upd ProfileUpdate) (model.User, error)

	// ChangePassword verifies the current password and stores a new hash.
	ChangePassword(ctx context.Context, userID string, ch PasswordChange) error

	// Logout invalidates the credential where the backend keeps session
	// state; a no-op success where it does not.
	Logout(ctx context.Context, credential string) error
}

// IdentityClaims are the decoded claims of an externally issued identity
// token: the subject id the document store keys users by, plus profile
// fields used to seed new accounts.
type IdentityClaims struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// IdentityVerifier checks an externally issued identity token against the
// issuer and returns its claims.  Implemented in internal/utils; mocked in
// tests.
type IdentityVerifier interface {
	Verify(ctx context.Context, raw string) (IdentityClaims, error)
}
