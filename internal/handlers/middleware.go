package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ytakahashi/todo-app/internal/auth"
	"github.com/ytakahashi/todo-app/internal/models"
)

const userContextKey = "user"

// bearerToken extracts the token from "Authorization: Bearer <token>".
func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	const prefix = "Bearer "
	if len(header) > len(prefix) && strings.EqualFold(header[:len(prefix)], prefix) {
		return strings.TrimSpace(header[len(prefix):])
	}
	return ""
}

// RequireAuth verifies the bearer token and stores the resolved user in the
// request context. Every todo route sits behind it.
func RequireAuth(authService *auth.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, err := authService.VerifyToken(c.Request().Context(), bearerToken(c))
			if err != nil {
				return err
			}
			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) *models.User {
	u, _ := c.Get(userContextKey).(*models.User)
	return u
}
