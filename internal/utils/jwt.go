// Package utils provides token creation/verification and hashing helpers
// shared by both store backends.
package utils

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/kasraf/reelbase/internal/auth"
)

// SessionToken is the signed JWT minted after a relational-mode login,
// together with its id and expiry.  The ID (jti claim) keys the session row
// so the token can be revoked server-side even though it is self-contained.
type SessionToken struct {
	Token string
	ID    string
	Exp   time.Time
}

// SessionClaims are the decoded claims of a session token.
type SessionClaims struct {
	UserID string
	Email  string
	Role   string
	ID     string
}

// NewSessionToken builds and signs an HS256 JWT carrying the user id, email
// and role, valid for ttlDays days.
func NewSessionToken(secret, userID, email, role string, ttlDays int) (SessionToken, error) {
	jti, err := randomHex(16)
	if err != nil {
		return SessionToken{}, err
	}
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"role":  role,
		"jti":   jti,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return SessionToken{}, err
	}
	return SessionToken{Token: signed, ID: jti, Exp: exp}, nil
}

// ParseSessionToken verifies signature and expiry and returns the claims.
func ParseSessionToken(secret, raw string) (SessionClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return SessionClaims{}, auth.ErrUnauthorized
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, auth.ErrUnauthorized
	}
	out := SessionClaims{}
	out.UserID, _ = claims["sub"].(string)
	out.Email, _ = claims["email"].(string)
	out.Role, _ = claims["role"].(string)
	out.ID, _ = claims["jti"].(string)
	if out.UserID == "" || out.ID == "" {
		return SessionClaims{}, auth.ErrUnauthorized
	}
	return out, nil
}

// IdentityVerifier verifies externally issued identity tokens (HS256 against
// the issuer secret) and implements auth.IdentityVerifier.
type IdentityVerifier struct {
	Secret string
}

func NewIdentityVerifier(secret string) *IdentityVerifier {
	return &IdentityVerifier{Secret: secret}
}

// Verify decodes the token and extracts the subject id plus the profile
// claims used to seed new accounts.  Any parse/signature/expiry failure maps
// to auth.ErrInvalidToken; the caller never learns which.
func (v *IdentityVerifier) Verify(_ context.Context, raw string) (auth.IdentityClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(v.Secret), nil
	})
	if err != nil || !tok.Valid {
		return auth.IdentityClaims{}, auth.ErrInvalidToken
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return auth.IdentityClaims{}, auth.ErrInvalidToken
	}
	out := auth.IdentityClaims{}
	out.Subject, _ = claims["sub"].(string)
	out.Email, _ = claims["email"].(string)
	out.EmailVerified, _ = claims["email_verified"].(bool)
	out.Name, _ = claims["name"].(string)
	out.Picture, _ = claims["picture"].(string)
	if out.Subject == "" {
		return auth.IdentityClaims{}, auth.ErrInvalidToken
	}
	return out, nil
}

// HashRefreshRaw returns the SHA-256 hex digest of a raw refresh token.
// Only the hash is stored, so a leaked sessions table cannot be replayed.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// NewRefreshToken returns a cryptographically random opaque token.
func NewRefreshToken() (string, error) {
	return randomHex(48)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
