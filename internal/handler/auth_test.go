package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kasraf/reelbase/internal/activity"
	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/middleware"
	"github.com/kasraf/reelbase/internal/model"
)

type mockStore struct {
	loginFunc          func(ctx context.Context, in auth.LoginInput) (model.User, auth.Session, error)
	registerFunc       func(ctx context.Context, in auth.RegisterInput) (model.User, *auth.Session, error)
	socialLoginFunc    func(ctx context.Context, in auth.SocialLoginInput) (model.User, auth.Session, error)
	currentUserFunc    func(ctx context.Context, credential string) (model.User, error)
	updateProfileFunc  func(ctx context.Context, userID string, upd auth.ProfileUpdate) (model.User, error)
	changePasswordFunc func(ctx context.Context, userID string, ch auth.PasswordChange) error
	logoutFunc         func(ctx context.Context, credential string) error
}

func (m *mockStore) Login(ctx context.Context, in auth.LoginInput) (model.User, auth.Session, error) {
	return m.loginFunc(ctx, in)
}
func (m *mockStore) Register(ctx context.Context, in auth.RegisterInput) (model.User, *auth.Session, error) {
	return m.registerFunc(ctx, in)
}
func (m *mockStore) SocialLogin(ctx context.Context, in auth.SocialLoginInput) (model.User, auth.Session, error) {
	return m.socialLoginFunc(ctx, in)
}
func (m *mockStore) CurrentUser(ctx context.Context, credential string) (model.User, error) {
	return m.currentUserFunc(ctx, credential)
}
func (m *mockStore) UpdateProfile(ctx context.Context, userID string, upd auth.ProfileUpdate) (model.User, error) {
	return m.updateProfileFunc(ctx, userID, upd)
}
func (m *mockStore) ChangePassword(ctx context.Context, userID string, ch auth.PasswordChange) error {
	return m.changePasswordFunc(ctx, userID, ch)
}
func (m *mockStore) Logout(ctx context.Context, credential string) error {
	return m.logoutFunc(ctx, credential)
}

// recordingSink collects entries so tests can assert on audit behavior.
type recordingSink struct {
	entries []model.ActivityEntry
}

func (r *recordingSink) Append(_ context.Context, e model.ActivityEntry) error {
	r.entries = append(r.entries, e)
	return nil
}

func testUser() model.User {
	now := time.Now().UTC()
	return model.User{
		ID: "7", Email: "ann@x.com", Name: "Ann",
		Role: model.RoleUser, Provider: model.ProviderLocal,
		IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, path, body string) (*httptest.ResponseRecorder, echo.Context) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	require.NoError(t, h(c))
	return rec, c
}

func TestLoginSetsCookieInRelationalMode(t *testing.T) {
	sink := &recordingSink{}
	h := NewAuthHandler(&mockStore{
		loginFunc: func(_ context.Context, in auth.LoginInput) (model.User, auth.Session, error) {
			assert.Equal(t, "ann@x.com", in.Email)
			assert.Equal(t, "Secret123", in.Password)
			return testUser(), auth.Session{
				Token: "signed.jwt", Refresh: "refresh-raw",
				ExpiresAt: time.Now().Add(7 * 24 * time.Hour), Cookie: true,
			}, nil
		},
	}, activity.NewLogger(sink), false)

	rec, _ := doJSON(t, h.Login, http.MethodPost, "/auth/login",
		`{"email":"ann@x.com","password":"Secret123"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"token":"signed.jwt"`)
	assert.Contains(t, rec.Body.String(), `"ann@x.com"`)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, middleware.CookieName, cookies[0].Name)
	assert.Equal(t, "signed.jwt", cookies[0].Value)
	assert.True(t, cookies[0].HttpOnly)
	assert.Equal(t, http.SameSiteLaxMode, cookies[0].SameSite)

	require.Len(t, sink.entries, 1)
	assert.Equal(t, "login", sink.entries[0].Action)
	assert.Equal(t, "7", sink.entries[0].ActorID)
}

func TestLoginNoCookieInDocumentMode(t *testing.T) {
	h := NewAuthHandler(&mockStore{
		loginFunc: func(_ context.Context, in auth.LoginInput) (model.User, auth.Session, error) {
			assert.Equal(t, "issuer-token", in.IdentityToken)
			return testUser(), auth.Session{Token: "issuer-token"}, nil
		},
	}, activity.NewLogger(&recordingSink{}), true)

	rec, _ := doJSON(t, h.Login, http.MethodPost, "/auth/login",
		`{"email":"ann@x.com","externalToken":"issuer-token"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Result().Cookies())
}

func TestLoginFailureIsGeneric(t *testing.T) {
	for name, storeErr := range map[string]error{
		"invalid credentials": auth.ErrInvalidCredentials,
		"disabled account":    auth.ErrAccountDisabled,
	} {
		t.Run(name, func(t *testing.T) {
			h := NewAuthHandler(&mockStore{
				loginFunc: func(context.Context, auth.LoginInput) (model.User, auth.Session, error) {
					return model.User{}, auth.Session{}, storeErr
				},
			}, activity.NewLogger(&recordingSink{}), false)

			rec, _ := doJSON(t, h.Login, http.MethodPost, "/auth/login",
				`{"email":"ann@x.com","password":"wrong"}`)

			// Both failures produce the identical response.
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.JSONEq(t, `{"error":"invalid credentials"}`, rec.Body.String())
		})
	}
}

func TestRegisterRelationalMode(t *testing.T) {
	h := NewAuthHandler(&mockStore{
		registerFunc: func(_ context.Context, in auth.RegisterInput) (model.User, *auth.Session, error) {
			assert.Equal(t, "Ann", in.Name)
			return testUser(), nil, nil
		},
	}, activity.NewLogger(&recordingSink{}), false)

	rec, _ := doJSON(t, h.Register, http.MethodPost, "/auth/register",
		`{"name":"Ann","email":"ann@x.com","password":"Secret123"}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	// No session token: the caller logs in separately in relational mode.
	assert.NotContains(t, rec.Body.String(), `"token"`)
}

func TestRegisterConflict(t *testing.T) {
	h := NewAuthHandler(&mockStore{
		registerFunc: func(context.Context, auth.RegisterInput) (model.User, *auth.Session, error) {
			return model.User{}, nil, auth.ErrDuplicateEmail
		},
	}, activity.NewLogger(&recordingSink{}), false)

	rec, _ := doJSON(t, h.Register, http.MethodPost, "/auth/register",
		`{"name":"Ann","email":"ann@x.com","password":"Secret123"}`)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSocialLoginUnknownProvider(t *testing.T) {
	h := NewAuthHandler(&mockStore{}, activity.NewLogger(&recordingSink{}), false)

	rec, _ := doJSON(t, h.SocialLogin, http.MethodPost, "/auth/social-login",
		`{"provider":"myspace","token":"tok"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSocialLoginPassesProfileHint(t *testing.T) {
	h := NewAuthHandler(&mockStore{
		socialLoginFunc: func(_ context.Context, in auth.SocialLoginInput) (model.User, auth.Session, error) {
			assert.Equal(t, model.ProviderGoogle, in.Provider)
			assert.Equal(t, "Ann", in.Name)
			u := testUser()
			u.Provider = model.ProviderGoogle
			return u, auth.Session{Token: "signed.jwt", Cookie: true, ExpiresAt: time.Now().Add(time.Hour)}, nil
		},
	}, activity.NewLogger(&recordingSink{}), false)

	rec, _ := doJSON(t, h.SocialLogin, http.MethodPost, "/auth/social-login",
		`{"provider":"google","token":"tok","user":{"name":"Ann"}}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"google"`)
}

func TestMe(t *testing.T) {
	h := NewAuthHandler(&mockStore{}, activity.NewLogger(&recordingSink{}), false)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("user", testUser())

	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ann@x.com"`)
}

func TestMeWithoutSession(t *testing.T) {
	h := NewAuthHandler(&mockStore{}, activity.NewLogger(&recordingSink{}), false)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.Me(e.NewContext(req, rec)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogoutClearsCookie(t *testing.T) {
	h := NewAuthHandler(&mockStore{
		logoutFunc: func(_ context.Context, credential string) error {
			assert.Equal(t, "signed.jwt", credential)
			return nil
		},
	}, activity.NewLogger(&recordingSink{}), false)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.AddCookie(&http.Cookie{Name: middleware.CookieName, Value: "signed.jwt"})
	rec := httptest.NewRecorder()
	require.NoError(t, h.Logout(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
