package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bizguardian/manager/internal/core/domain"
)

// ctxSession returns the session injected by the Auth middleware under
// "session". Its absence means the route was mounted without the middleware.
func ctxSession(c echo.Context) (*domain.Session, error) {
	sess, ok := c.Get("session").(*domain.Session)
	if !ok || sess == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication")
	}
	return sess, nil
}
