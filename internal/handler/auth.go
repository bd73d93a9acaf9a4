// Package handler implements the HTTP boundary.  Handlers are mode-agnostic:
// they talk to the injected auth.Store and never inspect the environment.
package handler

import (
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/kasraf/reelbase/internal/activity"
	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/middleware"
	"github.com/kasraf/reelbase/internal/model"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Store        auth.Store
	Activity     *activity.Logger
	SecureCookie bool // Secure flag on the session cookie (production only)
}

func NewAuthHandler(store auth.Store, logger *activity.Logger, secureCookie bool) *AuthHandler {
	return &AuthHandler{Store: store, Activity: logger, SecureCookie: secureCookie}
}

// ----- DTOs -----

type loginReq struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	ExternalToken string `json:"externalToken"`
}

type registerReq struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	ExternalToken string `json:"externalToken"`
}

type socialLoginReq struct {
	Provider string `json:"provider"`
	Token    string `json:"token"`
	User     struct {
		Name   string `json:"name"`
		Avatar string `json:"avatar"`
	} `json:"user"`
}

type sessionResp struct {
	User         model.User `json:"user"`
	Token        string     `json:"token,omitempty"`
	RefreshToken string     `json:"refresh_token,omitempty"`
}

// respondError logs the full error server-side and sends the client-safe
// shape.  Credential failures deliberately come out generic.
func respondError(c echo.Context, op string, err error) error {
	log.Printf("handler: %s: %v", op, err)
	return c.JSON(auth.HTTPStatus(err), echo.Map{"error": auth.PublicMessage(err)})
}

func (h *AuthHandler) setSessionCookie(c echo.Context, token string, exp time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.SecureCookie,
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
	})
}

func (h *AuthHandler) clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     middleware.CookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   h.SecureCookie,
		MaxAge:   -1,
	})
}

// Login authenticates by password (relational) or external token (document)
// and hands back the normalized user plus the session credential.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	u, sess, err := h.Store.Login(c.Request().Context(), auth.LoginInput{
		Email:         req.Email,
		Password:      req.Password,
		IdentityToken: req.ExternalToken,
		IP:            c.RealIP(),
	})
	if err != nil {
		return respondError(c, "login", err)
	}
	if sess.Cookie {
		h.setSessionCookie(c, sess.Token, sess.ExpiresAt)
	}
	h.Activity.Log(c.Request().Context(), model.ActivityEntry{
		ActorID: u.ID, Action: "login", IP: c.RealIP(),
	})
	return c.JSON(http.StatusOK, sessionResp{User: u, Token: sess.Token, RefreshToken: sess.Refresh})
}

// Register creates an account.  In relational mode the caller logs in
// afterwards; in document mode the verified token already is the session.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	u, sess, err := h.Store.Register(c.Request().Context(), auth.RegisterInput{
		Name:          req.Name,
		Email:         req.Email,
		Password:      req.Password,
		IdentityToken: req.ExternalToken,
		IP:            c.RealIP(),
	})
	if err != nil {
		return respondError(c, "register", err)
	}
	h.Activity.Log(c.Request().Context(), model.ActivityEntry{
		ActorID: u.ID, Action: "register", IP: c.RealIP(),
	})
	resp := sessionResp{User: u}
	if sess != nil {
		resp.Token = sess.Token
	}
	return c.JSON(http.StatusCreated, resp)
}

// SocialLogin upserts an account from a verified provider token.
func (h *AuthHandler) SocialLogin(c echo.Context) error {
	var req socialLoginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	provider := model.Provider(strings.ToLower(strings.TrimSpace(req.Provider)))
	switch provider {
	case model.ProviderGoogle, model.ProviderFacebook:
	default:
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown provider"})
	}
	u, sess, err := h.Store.SocialLogin(c.Request().Context(), auth.SocialLoginInput{
		Provider: provider,
		Token:    req.Token,
		Name:     req.User.Name,
		Avatar:   req.User.Avatar,
		IP:       c.RealIP(),
	})
	if err != nil {
		return respondError(c, "social-login", err)
	}
	if sess.Cookie {
		h.setSessionCookie(c, sess.Token, sess.ExpiresAt)
	}
	h.Activity.Log(c.Request().Context(), model.ActivityEntry{
		ActorID: u.ID, Action: "social_login",
		Metadata: map[string]any{"provider": string(provider)},
		IP:       c.RealIP(),
	})
	return c.JSON(http.StatusOK, sessionResp{User: u, Token: sess.Token, RefreshToken: sess.Refresh})
}

// Me returns the session user resolved by the Session middleware.
func (h *AuthHandler) Me(c echo.Context) error {
	u, ok := middleware.UserFrom(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	return c.JSON(http.StatusOK, echo.Map{"user": u})
}

// Logout tears down the server-side session where one exists and expires the
// cookie either way.
func (h *AuthHandler) Logout(c echo.Context) error {
	cred := middleware.Credential(c)
	if cred == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	}
	if err := h.Store.Logout(c.Request().Context(), cred); err != nil {
		return respondError(c, "logout", err)
	}
	h.clearSessionCookie(c)
	return c.NoContent(http.StatusNoContent)
}
