package model

import "time"

// Role is the authorization level stored on a user record.
type Role string

const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// Provider identifies how an account was created and how it signs in.
type Provider string

const (
	ProviderLocal    Provider = "local"
	ProviderGoogle   Provider = "google"
	ProviderFacebook Provider = "facebook"
	ProviderEmail    Provider = "email"
)

// User is the normalized user record every caller sees regardless of which
// backend produced it.  ID is an opaque string: the decimal primary key in
// relational mode, the hex document id in document mode.  Callers must not
// parse it.
//
// Timestamps marshal as RFC 3339 at the HTTP boundary.  LastLoginAt is nil
// for accounts that have never signed in.
type User struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Avatar        string     `json:"avatar,omitempty"`
	Role          Role       `json:"role"`
	Provider      Provider   `json:"provider"`
	IsActive      bool       `json:"is_active"`
	EmailVerified bool       `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastLoginAt   *time.Time `json:"last_login_at,omitempty"`
}
