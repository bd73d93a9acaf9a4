package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/model"
)

type mockStore struct {
	currentUserFunc func(ctx context.Context, credential string) (model.User, error)
}

func (m *mockStore) Login(context.Context, auth.LoginInput) (model.User, auth.Session, error) {
	return model.User{}, auth.Session{}, errors.New("not implemented")
}
func (m *mockStore) Register(context.Context, auth.RegisterInput) (model.User, *auth.Session, error) {
	return model.User{}, nil, errors.New("not implemented")
}
func (m *mockStore) SocialLogin(context.Context, auth.SocialLoginInput) (model.User, auth.Session, error) {
	return model.User{}, auth.Session{}, errors.New("not implemented")
}
func (m *mockStore) CurrentUser(ctx context.Context, credential string) (model.User, error) {
	return m.currentUserFunc(ctx, credential)
}
func (m *mockStore) UpdateProfile(context.Context, string, auth.ProfileUpdate) (model.User, error) {
	return model.User{}, errors.New("not implemented")
}
func (m *mockStore) ChangePassword(context.Context, string, auth.PasswordChange) error {
	return errors.New("not implemented")
}
func (m *mockStore) Logout(context.Context, string) error { return nil }

func run(t *testing.T, store auth.Store, decorate func(*http.Request)) (*httptest.ResponseRecorder, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if decorate != nil {
		decorate(req)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := Session(store)(func(c echo.Context) error {
		reached = true
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, h(c))
	return rec, reached
}

func TestSessionMissingCredential(t *testing.T) {
	rec, reached := run(t, &mockStore{}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestSessionResolvesCookie(t *testing.T) {
	store := &mockStore{currentUserFunc: func(_ context.Context, cred string) (model.User, error) {
		assert.Equal(t, "signed.jwt", cred)
		return model.User{ID: "7", Role: model.RoleUser}, nil
	}}
	rec, reached := run(t, store, func(r *http.Request) {
		r.AddCookie(&http.Cookie{Name: CookieName, Value: "signed.jwt"})
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestSessionResolvesBearer(t *testing.T) {
	store := &mockStore{currentUserFunc: func(_ context.Context, cred string) (model.User, error) {
		assert.Equal(t, "issuer-token", cred)
		return model.User{ID: "uid-1", Role: model.RoleUser}, nil
	}}
	rec, reached := run(t, store, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer issuer-token")
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, reached)
}

func TestSessionRejectedCredential(t *testing.T) {
	store := &mockStore{currentUserFunc: func(context.Context, string) (model.User, error) {
		return model.User{}, auth.ErrUnauthorized
	}}
	rec, reached := run(t, store, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer expired")
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, reached)
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	allow := RequireRole(model.RoleAdmin)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})

	t.Run("admin passes", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.Set("user", model.User{ID: "1", Role: model.RoleAdmin})
		require.NoError(t, allow(c))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("user forbidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		c.Set("user", model.User{ID: "1", Role: model.RoleUser})
		require.NoError(t, allow(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no session forbidden", func(t *testing.T) {
		rec := httptest.NewRecorder()
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
		require.NoError(t, allow(c))
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}
