// Package docstore is the production credential backend: user documents in
// Mongo keyed by the identity issuer's subject id.  No session state is kept
// here; every request re-verifies the bearer token against the issuer.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/model"
	"github.com/kasraf/reelbase/internal/utils"
)

// Store implements auth.Store against the users collection.
type Store struct {
	users    *mongo.Collection
	verifier auth.IdentityVerifier
	cost     int
}

func New(db *mongo.Database, verifier auth.IdentityVerifier, cost int) *Store {
	return &Store{users: db.Collection("users"), verifier: verifier, cost: cost}
}

// userDoc mirrors a document in the users collection.  The _id is the
// issuer's opaque subject id and is used verbatim as the normalized user id.
type userDoc struct {
	ID            string     `bson:"_id"`
	Email         string     `bson:"email"`
	Name          string     `bson:"name"`
	Avatar        string     `bson:"avatar,omitempty"`
	Role          string     `bson:"role"`
	Provider      string     `bson:"provider"`
	PasswordHash  string     `bson:"password_hash,omitempty"`
	IsActive      bool       `bson:"is_active"`
	EmailVerified bool       `bson:"email_verified"`
	CreatedAt     time.Time  `bson:"created_at"`
	UpdatedAt     time.Time  `bson:"updated_at"`
	LastLoginAt   *time.Time `bson:"last_login_at,omitempty"`
}

func (d userDoc) normalize() model.User {
	return model.User{
		ID:            d.ID,
		Email:         d.Email,
		Name:          d.Name,
		Avatar:        d.Avatar,
		Role:          model.Role(d.Role),
		Provider:      model.Provider(d.Provider),
		IsActive:      d.IsActive,
		EmailVerified: d.EmailVerified,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
		LastLoginAt:   d.LastLoginAt,
	}
}

func (s *Store) bySubject(ctx context.Context, subject string) (userDoc, error) {
	var d userDoc
	err := s.users.FindOne(ctx, bson.M{"_id": subject}).Decode(&d)
	return d, err
}

// verifyForEmail verifies the token and cross-checks its email claim against
// the email the caller asked to act as.
func (s *Store) verifyForEmail(ctx context.Context, token, email string) (auth.IdentityClaims, error) {
	claims, err := s.verifier.Verify(ctx, token)
	if err != nil {
		return auth.IdentityClaims{}, auth.ErrInvalidToken
	}
	if !strings.EqualFold(strings.TrimSpace(email), claims.Email) {
		return auth.IdentityClaims{}, auth.ErrEmailMismatch
	}
	return claims, nil
}

// Login verifies the supplied identity token, loads the user document and
// stamps last_login_at.  The token itself is the session: it is returned
// as-is and no separate artifact is minted.
func (s *Store) Login(ctx context.Context, in auth.LoginInput) (model.User, auth.Session, error) {
	if in.IdentityToken == "" {
		return model.User{}, auth.Session{}, auth.ErrInvalidToken
	}
	claims, err := s.verifyForEmail(ctx, in.IdentityToken, in.Email)
	if err != nil {
		return model.User{}, auth.Session{}, err
	}
	d, err := s.bySubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, auth.Session{}, auth.ErrNotFound
		}
		return model.User{}, auth.Session{}, err
	}
	if !d.IsActive {
		return model.User{}, auth.Session{}, auth.ErrAccountDisabled
	}
	now := time.Now().UTC()
	if _, err := s.users.UpdateByID(ctx, d.ID,
		bson.M{"$set": bson.M{"last_login_at": now}}); err != nil {
		return model.User{}, auth.Session{}, err
	}
	d.LastLoginAt = &now
	return d.normalize(), auth.Session{Token: in.IdentityToken}, nil
}

// Register creates the user document for a verified token.  The caller is
// already holding a valid token, so it comes back logged in.
func (s *Store) Register(ctx context.Context, in auth.RegisterInput) (model.User, *auth.Session, error) {
	if in.IdentityToken == "" {
		return model.User{}, nil, auth.ErrInvalidToken
	}
	claims, err := s.verifyForEmail(ctx, in.IdentityToken, in.Email)
	if err != nil {
		return model.User{}, nil, err
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = claims.Name
	}
	if name == "" {
		return model.User{}, nil, fmt.Errorf("%w: name is required", auth.ErrValidation)
	}

	now := time.Now().UTC()
	d := userDoc{
		ID:            claims.Subject,
		Email:         strings.ToLower(claims.Email),
		Name:          name,
		Avatar:        claims.Picture,
		Role:          string(model.RoleUser),
		Provider:      string(model.ProviderEmail),
		IsActive:      true,
		EmailVerified: claims.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastLoginAt:   &now,
	}
	if in.Password != "" {
		hash, err := utils.HashPassword(in.Password, s.cost)
		if err != nil {
			return model.User{}, nil, err
		}
		d.PasswordHash = hash
	}
	if _, err := s.users.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, nil, auth.ErrDuplicateEmail
		}
		return model.User{}, nil, err
	}
	return d.normalize(), &auth.Session{Token: in.IdentityToken}, nil
}

// SocialLogin upserts by subject id, linking by email when the account was
// first created under a different provider.
func (s *Store) SocialLogin(ctx context.Context, in auth.SocialLoginInput) (model.User, auth.Session, error) {
	claims, err := s.verifier.Verify(ctx, in.Token)
	if err != nil {
		return model.User{}, auth.Session{}, auth.ErrInvalidToken
	}
	email := strings.ToLower(strings.TrimSpace(claims.Email))
	if email == "" {
		return model.User{}, auth.Session{}, auth.ErrInvalidToken
	}
	now := time.Now().UTC()

	d, err := s.bySubject(ctx, claims.Subject)
	switch {
	case err == nil:
		// Known subject: stamp last login only.
		if _, err := s.users.UpdateByID(ctx, d.ID,
			bson.M{"$set": bson.M{"last_login_at": now}}); err != nil {
			return model.User{}, auth.Session{}, err
		}
		d.LastLoginAt = &now
	case errors.Is(err, mongo.ErrNoDocuments):
		d, err = s.linkOrCreateSocial(ctx, in, claims, email, now)
		if err != nil {
			return model.User{}, auth.Session{}, err
		}
	default:
		return model.User{}, auth.Session{}, err
	}

	if !d.IsActive {
		return model.User{}, auth.Session{}, auth.ErrAccountDisabled
	}
	return d.normalize(), auth.Session{Token: in.Token}, nil
}

func (s *Store) linkOrCreateSocial(ctx context.Context, in auth.SocialLoginInput, claims auth.IdentityClaims, email string, now time.Time) (userDoc, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		name = claims.Name
	}
	avatar := in.Avatar
	if avatar == "" {
		avatar = claims.Picture
	}

	// A prior account under a different provider keeps its document (and
	// id); the new provider fields are merged onto it.
	set := bson.M{
		"provider":      string(in.Provider),
		"last_login_at": now,
		"updated_at":    now,
	}
	if avatar != "" {
		set["avatar"] = avatar
	}
	if claims.EmailVerified {
		set["email_verified"] = true
	}
	after := options.After
	var d userDoc
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"email": email},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(after)).Decode(&d)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return userDoc{}, err
	}

	d = userDoc{
		ID:            claims.Subject,
		Email:         email,
		Name:          name,
		Avatar:        avatar,
		Role:          string(model.RoleUser),
		Provider:      string(in.Provider),
		IsActive:      true,
		EmailVerified: claims.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastLoginAt:   &now,
	}
	if _, err := s.users.InsertOne(ctx, d); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return userDoc{}, auth.ErrDuplicateEmail
		}
		return userDoc{}, err
	}
	return d, nil
}

// CurrentUser re-verifies the bearer token on every call.  Nothing is cached
// between calls, so issuer-side revocation takes effect immediately.
func (s *Store) CurrentUser(ctx context.Context, credential string) (model.User, error) {
	claims, err := s.verifier.Verify(ctx, credential)
	if err != nil {
		return model.User{}, auth.ErrUnauthorized
	}
	d, err := s.bySubject(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, auth.ErrUnauthorized
		}
		return model.User{}, err
	}
	if !d.IsActive {
		return model.User{}, auth.ErrAccountDisabled
	}
	return d.normalize(), nil
}

// UpdateProfile edits name/email/avatar on the document.  A combined
// password change is checked up front and lands in the same single-document
// $set, so the write stays all-or-nothing.
func (s *Store) UpdateProfile(ctx context.Context, userID string, upd auth.ProfileUpdate) (model.User, error) {
	if upd.Name == nil && upd.Email == nil && upd.Avatar == nil && upd.Password == nil {
		return model.User{}, fmt.Errorf("%w: nothing to update", auth.ErrValidation)
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.Name != nil {
		name := strings.TrimSpace(*upd.Name)
		if name == "" {
			return model.User{}, fmt.Errorf("%w: name cannot be empty", auth.ErrValidation)
		}
		set["name"] = name
	}
	if upd.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*upd.Email))
		if email == "" {
			return model.User{}, fmt.Errorf("%w: email cannot be empty", auth.ErrValidation)
		}
		set["email"] = email
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	if upd.Password != nil {
		hash, err := s.checkedPasswordHash(ctx, userID, *upd.Password)
		if err != nil {
			return model.User{}, err
		}
		set["password_hash"] = hash
	}

	after := options.After
	var d userDoc
	err := s.users.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(after)).Decode(&d)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return model.User{}, auth.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return model.User{}, auth.ErrDuplicateEmail
		}
		return model.User{}, err
	}
	return d.normalize(), nil
}

// checkedPasswordHash verifies the current password and hashes the new one.
// Only provider=email accounts qualify; social accounts have no stored hash
// to compare against.
func (s *Store) checkedPasswordHash(ctx context.Context, userID string, ch auth.PasswordChange) (string, error) {
	d, err := s.bySubject(ctx, userID)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", auth.ErrNotFound
		}
		return "", err
	}
	if model.Provider(d.Provider) != model.ProviderEmail || d.PasswordHash == "" {
		return "", auth.ErrUnsupportedForProvider
	}
	if !utils.VerifyPassword(d.PasswordHash, ch.Current) {
		return "", auth.ErrInvalidCredentials
	}
	if len(ch.New) < 8 {
		return "", fmt.Errorf("%w: password must be at least 8 characters", auth.ErrValidation)
	}
	return utils.HashPassword(ch.New, s.cost)
}

// ChangePassword verifies the current password and swaps the stored hash.
func (s *Store) ChangePassword(ctx context.Context, userID string, ch auth.PasswordChange) error {
	hash, err := s.checkedPasswordHash(ctx, userID, ch)
	if err != nil {
		return err
	}
	_, err = s.users.UpdateByID(ctx, userID, bson.M{"$set": bson.M{
		"password_hash": hash,
		"updated_at":    time.Now().UTC(),
	}})
	return err
}

// Logout is a success no-op: statelessness is delegated to the token issuer
// and there is no server-side session to tear down.
func (s *Store) Logout(_ context.Context, _ string) error {
	return nil
}
