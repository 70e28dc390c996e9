package middleware

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bizguardian/manager/internal/core/domain"
)

// RBAC lets the request through only when the session injected by Auth
// belongs to one of allowedRoles. Refusals surface as domain.ErrForbidden.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, ok := c.Get("session").(*domain.Session)
			if !ok || sess == nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
			}
			if _, ok := allowed[sess.Profile.Role]; !ok {
				return fmt.Errorf("%w: role %q may not call %s %s", domain.ErrForbidden, sess.Profile.Role, c.Request().Method, c.Path())
			}
			return next(c)
		}
	}
}
