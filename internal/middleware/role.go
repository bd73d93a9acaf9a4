package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/kasraf/reelbase/internal/model"
)

// RequireRole aborts with 403 unless the session user holds one of the given
// roles.  Must run after Session.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := UserFrom(c)
			if !ok || !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
