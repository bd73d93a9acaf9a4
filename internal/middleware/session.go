// Package middleware provides request-level session resolution, role
// enforcement and rate limiting for the HTTP boundary.
package middleware

import (
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/kasraf/reelbase/internal/auth"
	"github.com/kasraf/reelbase/internal/model"
)

// CookieName is the session cookie set in relational mode.
const CookieName = "token"

const userKey = "user"

// Credential extracts the raw session credential from the request: the
// session cookie if present, otherwise the Authorization bearer token.
// Which one a given deployment uses follows from the active backend, but
// the middleware accepts either so the handlers stay mode-agnostic.
func Credential(c echo.Context) string {
	if ck, err := c.Cookie(CookieName); err == nil && ck.Value != "" {
		return ck.Value
	}
	if h := c.Request().Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// Session resolves the credential through the active store and stores the
// normalized user on the context.  Document mode re-verifies the token on
// every request here; nothing is cached across requests.
func Session(store auth.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cred := Credential(c)
			if cred == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
			}
			u, err := store.CurrentUser(c.Request().Context(), cred)
			if err != nil {
				if auth.HTTPStatus(err) == http.StatusInternalServerError {
					log.Printf("middleware: resolve session: %v", err)
				}
				return c.JSON(auth.HTTPStatus(err), echo.Map{"error": auth.PublicMessage(err)})
			}
			c.Set(userKey, u)
			return next(c)
		}
	}
}

// UserFrom returns the user stored by Session.
func UserFrom(c echo.Context) (model.User, bool) {
	u, ok := c.Get(userKey).(model.User)
	return u, ok
}
