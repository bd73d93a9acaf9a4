// Package sqlstore is the relational credential backend: MySQL users,
// preferences and a sessions table that makes the self-contained session
// JWT revocable server-side.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/model"
	"github.com/kasraf/reelbase/internal/utils"
)

// Store implements auth.Store against MySQL.
type Store struct {
	db       *sql.DB
	verifier auth.IdentityVerifier
	secret   string
	ttlDays  int
	cost     int
}

// New builds a Store.  secret signs session tokens, ttlDays is the session
// lifetime, cost is the bcrypt work factor.
func New(db *sql.DB, verifier auth.IdentityVerifier, secret string, ttlDays, cost int) *Store {
	return &Store{db: db, verifier: verifier, secret: secret, ttlDays: ttlDays, cost: cost}
}

const userColumns = "id, email, name, avatar, role, provider, provider_subject, password_hash, is_active, email_verified, login_attempts, created_at, updated_at, last_login_at"

// userRow mirrors the users table.
type userRow struct {
	ID            uint64
	Email         string
	Name          string
	Avatar        sql.NullString
	Role          string
	Provider      string
	Subject       sql.NullString
	PasswordHash  sql.NullString
	IsActive      bool
	EmailVerified bool
	LoginAttempts int
	CreatedAt     time.Time
	UpdatedAt     time.Time
	LastLoginAt   sql.NullTime
}

func (r userRow) normalize() model.User {
	u := model.User{
		ID:            strconv.FormatUint(r.ID, 10),
		Email:         r.Email,
		Name:          r.Name,
		Avatar:        r.Avatar.String,
		Role:          model.Role(r.Role),
		Provider:      model.Provider(r.Provider),
		IsActive:      r.IsActive,
		EmailVerified: r.EmailVerified,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
	}
	if r.LastLoginAt.Valid {
		t := r.LastLoginAt.Time
		u.LastLoginAt = &t
	}
	return u
}

func scanUser(row *sql.Row) (userRow, error) {
	var r userRow
	err := row.Scan(&r.ID, &r.Email, &r.Name, &r.Avatar, &r.Role, &r.Provider,
		&r.Subject, &r.PasswordHash, &r.IsActive, &r.EmailVerified,
		&r.LoginAttempts, &r.CreatedAt, &r.UpdatedAt, &r.LastLoginAt)
	return r, err
}

func (s *Store) getByEmail(ctx context.Context, email string) (userRow, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
}

func (s *Store) getByID(ctx context.Context, id uint64) (userRow, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// isDuplicate reports a MySQL unique-key violation (error 1062).
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}

func parseID(id string) (uint64, error) {
	n, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return 0, auth.ErrNotFound
	}
	return n, nil
}

// Login authenticates by email+password.  A missing account and a wrong
// password are indistinguishable to the caller; a wrong password also bumps
// the advisory login_attempts counter.
func (s *Store) Login(ctx context.Context, in auth.LoginInput) (model.User, auth.Session, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return model.User{}, auth.Session{}, fmt.Errorf("%w: email and password are required", auth.ErrValidation)
	}

	r, err := s.getByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, auth.Session{}, auth.ErrInvalidCredentials
		}
		return model.User{}, auth.Session{}, err
	}
	if !r.IsActive {
		return model.User{}, auth.Session{}, auth.ErrAccountDisabled
	}
	if !utils.VerifyPassword(r.PasswordHash.String, in.Password) {
		// Advisory counter only; a racing lost update is tolerated.
		if _, err := s.db.ExecContext(ctx,
			"UPDATE users SET login_attempts=login_attempts+1 WHERE id=?", r.ID); err != nil {
			log.Printf("sqlstore: bump login_attempts for user %d: %v", r.ID, err)
		}
		return model.User{}, auth.Session{}, auth.ErrInvalidCredentials
	}

	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		"UPDATE users SET login_attempts=0, last_login_at=? WHERE id=?", now, r.ID); err != nil {
		return model.User{}, auth.Session{}, err
	}
	r.LoginAttempts = 0
	r.LastLoginAt = sql.NullTime{Time: now, Valid: true}

	sess, err := s.mintSession(ctx, r)
	if err != nil {
		return model.User{}, auth.Session{}, err
	}
	return r.normalize(), sess, nil
}

// mintSession signs a session JWT and records its id plus a hashed refresh
// token so the session can be listed and revoked server-side.
func (s *Store) mintSession(ctx context.Context, r userRow) (auth.Session, error) {
	tok, err := utils.NewSessionToken(s.secret, strconv.FormatUint(r.ID, 10), r.Email, r.Role, s.ttlDays)
	if err != nil {
		return auth.Session{}, err
	}
	refresh, err := utils.NewRefreshToken()
	if err != nil {
		return auth.Session{}, err
	}
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO sessions (token_id, user_id, refresh_token_hash, expires_at) VALUES (?,?,?,?)",
		tok.ID, r.ID, utils.HashRefreshRaw(refresh), tok.Exp); err != nil {
		return auth.Session{}, err
	}
	return auth.Session{Token: tok.Token, Refresh: refresh, ExpiresAt: tok.Exp, Cookie: true}, nil
}

// Register creates the user row and its default preferences row in one
// transaction.  The caller logs in separately.
func (s *Store) Register(ctx context.Context, in auth.RegisterInput) (model.User, *auth.Session, error) {
	email := normalizeEmail(in.Email)
	name := strings.TrimSpace(in.Name)
	switch {
	case name == "":
		return model.User{}, nil, fmt.Errorf("%w: name is required", auth.ErrValidation)
	case email == "":
		return model.User{}, nil, fmt.Errorf("%w: email is required", auth.ErrValidation)
	case len(in.Password) < 8:
		return model.User{}, nil, fmt.Errorf("%w: password must be at least 8 characters", auth.ErrValidation)
	}

	hash, err := utils.HashPassword(in.Password, s.cost)
	if err != nil {
		return model.User{}, nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, name, role, provider, password_hash, is_active, email_verified) VALUES (?,?,?,?,?,1,0)",
		email, name, string(model.RoleUser), string(model.ProviderLocal), hash)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, nil, auth.ErrDuplicateEmail
		}
		return model.User{}, nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.User{}, nil, err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO user_preferences (user_id) VALUES (?)", id); err != nil {
		return model.User{}, nil, err
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, nil, err
	}

	r, err := s.getByID(ctx, uint64(id))
	if err != nil {
		return model.User{}, nil, err
	}
	return r.normalize(), nil, nil
}

// SocialLogin upserts by provider+subject, falling back to linking by email
// so a returning user never ends up with two accounts.
func (s *Store) SocialLogin(ctx context.Context, in auth.SocialLoginInput) (model.User, auth.Session, error) {
	claims, err := s.verifier.Verify(ctx, in.Token)
	if err != nil {
		return model.User{}, auth.Session{}, auth.ErrInvalidToken
	}
	email := normalizeEmail(claims.Email)
	if email == "" {
		return model.User{}, auth.Session{}, auth.ErrInvalidToken
	}
	now := time.Now().UTC()

	r, err := scanUser(s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE provider=? AND provider_subject=? LIMIT 1",
		string(in.Provider), claims.Subject))
	switch {
	case err == nil:
		// Known provider identity: stamp last login only.
		if _, err := s.db.ExecContext(ctx,
			"UPDATE users SET last_login_at=? WHERE id=?", now, r.ID); err != nil {
			return model.User{}, auth.Session{}, err
		}
		r.LastLoginAt = sql.NullTime{Time: now, Valid: true}
	case errors.Is(err, sql.ErrNoRows):
		r, err = s.linkOrCreateSocial(ctx, in, claims, email, now)
		if err != nil {
			return model.User{}, auth.Session{}, err
		}
	default:
		return model.User{}, auth.Session{}, err
	}

	if !r.IsActive {
		return model.User{}, auth.Session{}, auth.ErrAccountDisabled
	}
	sess, err := s.mintSession(ctx, r)
	if err != nil {
		return model.User{}, auth.Session{}, err
	}
	return r.normalize(), sess, nil
}

func (s *Store) linkOrCreateSocial(ctx context.Context, in auth.SocialLoginInput, claims auth.IdentityClaims, email string, now time.Time) (userRow, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = claims.Name
	}
	avatar := in.Avatar
	if avatar == "" {
		avatar = claims.Picture
	}

	existing, err := s.getByEmail(ctx, email)
	switch {
	case err == nil:
		// Prior account under a different provider: attach the provider
		// identity to it instead of creating a duplicate.
		if _, err := s.db.ExecContext(ctx,
			`UPDATE users SET provider=?, provider_subject=?,
			        avatar=COALESCE(NULLIF(avatar,''), ?),
			        email_verified=email_verified OR ?,
			        last_login_at=?, updated_at=? WHERE id=?`,
			string(in.Provider), claims.Subject, avatar, claims.EmailVerified, now, now, existing.ID); err != nil {
			return userRow{}, err
		}
		return s.getByID(ctx, existing.ID)
	case errors.Is(err, sql.ErrNoRows):
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO users (email, name, avatar, role, provider, provider_subject, is_active, email_verified, last_login_at)
			 VALUES (?,?,?,?,?,?,1,?,?)`,
			email, name, avatar, string(model.RoleUser), string(in.Provider), claims.Subject, claims.EmailVerified, now)
		if err != nil {
			if isDuplicate(err) {
				return userRow{}, auth.ErrDuplicateEmail
			}
			return userRow{}, err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return userRow{}, err
		}
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO user_preferences (user_id) VALUES (?)", id); err != nil {
			log.Printf("sqlstore: default preferences for user %d: %v", id, err)
		}
		return s.getByID(ctx, uint64(id))
	default:
		return userRow{}, err
	}
}

// CurrentUser resolves a session JWT.  The signature alone is not enough: the
// session row must still exist and be unexpired, which is what makes logout
// and server-side revocation effective.
func (s *Store) CurrentUser(ctx context.Context, credential string) (model.User, error) {
	claims, err := utils.ParseSessionToken(s.secret, credential)
	if err != nil {
		return model.User{}, auth.ErrUnauthorized
	}
	var expires time.Time
	err = s.db.QueryRowContext(ctx,
		"SELECT expires_at FROM sessions WHERE token_id=? LIMIT 1", claims.ID).Scan(&expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, auth.ErrUnauthorized
		}
		return model.User{}, err
	}
	if time.Now().UTC().After(expires) {
		return model.User{}, auth.ErrUnauthorized
	}
	id, err := parseID(claims.UserID)
	if err != nil {
		return model.User{}, auth.ErrUnauthorized
	}
	r, err := s.getByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, auth.ErrUnauthorized
		}
		return model.User{}, err
	}
	if !r.IsActive {
		return model.User{}, auth.ErrAccountDisabled
	}
	return r.normalize(), nil
}

// UpdateProfile edits name/email/avatar inside one transaction.  A combined
// password change is verified and written in the same transaction, so a
// failure on either leg rolls back both.
func (s *Store) UpdateProfile(ctx context.Context, userID string, upd auth.ProfileUpdate) (model.User, error) {
	id, err := parseID(userID)
	if err != nil {
		return model.User{}, err
	}
	if upd.Name == nil && upd.Email == nil && upd.Avatar == nil && upd.Password == nil {
		return model.User{}, fmt.Errorf("%w: nothing to update", auth.ErrValidation)
	}

	sets := make([]string, 0, 5)
	args := make([]any, 0, 6)
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return model.User{}, fmt.Errorf("%w: name cannot be empty", auth.ErrValidation)
		}
		sets, args = append(sets, "name=?"), append(args, name)
	}
	if upd.Email != nil {
		email := normalizeEmail(*upd.Email)
		if email == "" {
			return model.User{}, fmt.Errorf("%w: email cannot be empty", auth.ErrValidation)
		}
		sets, args = append(sets, "email=?"), append(args, email)
	}
	if upd.Avatar != nil {
		sets, args = append(sets, "avatar=?"), append(args, *upd.Avatar)
	}
	if upd.Password != nil && len(upd.Password.New) < 8 {
		return model.User{}, fmt.Errorf("%w: password must be at least 8 characters", auth.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.User{}, err
	}
	defer tx.Rollback()

	if upd.Password != nil {
		var hash sql.NullString
		err = tx.QueryRowContext(ctx,
			"SELECT password_hash FROM users WHERE id=? FOR UPDATE", id).Scan(&hash)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return model.User{}, auth.ErrNotFound
			}
			return model.User{}, err
		}
		if !utils.VerifyPassword(hash.String, upd.Password.Current) {
			return model.User{}, auth.ErrInvalidCredentials
		}
		newHash, err := utils.HashPassword(upd.Password.New, s.cost)
		if err != nil {
			return model.User{}, err
		}
		sets, args = append(sets, "password_hash=?"), append(args, newHash)
	}
	sets = append(sets, "updated_at=?")
	args = append(args, time.Now().UTC(), id)

	res, err := tx.ExecContext(ctx, "UPDATE users SET "+strings.Join(sets, ", ")+" WHERE id=?", args...)
	if err != nil {
		if isDuplicate(err) {
			return model.User{}, auth.ErrDuplicateEmail
		}
		return model.User{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// RowsAffected is 0 both for a missing row and for a no-op update;
		// distinguish by probing for the row.
		var one int
		if err := tx.QueryRowContext(ctx, "SELECT 1 FROM users WHERE id=?", id).Scan(&one); err != nil {
			return model.User{}, auth.ErrNotFound
		}
	}
	if err := tx.Commit(); err != nil {
		return model.User{}, err
	}

	r, err := s.getByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	return r.normalize(), nil
}

// ChangePassword verifies the current password and swaps the hash inside one
// transaction; on a wrong current password nothing is written.
func (s *Store) ChangePassword(ctx context.Context, userID string, ch auth.PasswordChange) error {
	id, err := parseID(userID)
	if err != nil {
		return err
	}
	if len(ch.New) < 8 {
		return fmt.Errorf("%w: password must be at least 8 characters", auth.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var hash sql.NullString
	err = tx.QueryRowContext(ctx,
		"SELECT password_hash FROM users WHERE id=? FOR UPDATE", id).Scan(&hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.ErrNotFound
		}
		return err
	}
	if !utils.VerifyPassword(hash.String, ch.Current) {
		return auth.ErrInvalidCredentials
	}
	newHash, err := utils.HashPassword(ch.New, s.cost)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET password_hash=?, updated_at=? WHERE id=?",
		newHash, time.Now().UTC(), id); err != nil {
		return err
	}
	return tx.Commit()
}

// Logout deletes the session row for the presented token.  The JWT keeps
// verifying until expiry but CurrentUser will reject it once the row is gone.
func (s *Store) Logout(ctx context.Context, credential string) error {
	claims, err := utils.ParseSessionToken(s.secret, credential)
	if err != nil {
		return auth.ErrUnauthorized
	}
	_, err = s.db.ExecContext(ctx, "DELETE FROM sessions WHERE token_id=?", claims.ID)
	return err
}
