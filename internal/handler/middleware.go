package handler

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sumire/storefront/internal/domain"
	"github.com/sumire/storefront/internal/service"
)

const (
	contextKeyUser = "user"
)

// RequestLogger logs each HTTP request with structured fields.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				// Run the error handler now so the logged status is the one sent.
				c.Error(err)
			}

			slog.Info("http request",
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", c.Response().Status,
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", c.Response().Header().Get(echo.HeaderXRequestID),
			)

			return nil
		}
	}
}

// Authenticate resolves the current user from the session cookie or a Bearer
// token and injects it into the echo context.
func Authenticate(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var sessionToken string
			if cookie, err := c.Cookie(SessionCookieName); err == nil {
				sessionToken = cookie.Value
			}

			user, err := auth.ResolveCurrentUser(c.Request().Context(), sessionToken, c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			c.Set(contextKeyUser, user)
			return next(c)
		}
	}
}

// RequireAdmin rejects non-admin users. It must run after Authenticate.
func RequireAdmin() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			user, _ := CurrentUser(c)
			if err := service.RequireAdmin(user); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// CurrentUser extracts the authenticated user from echo context.
func CurrentUser(c echo.Context) (*domain.User, bool) {
	user, ok := c.Get(contextKeyUser).(*domain.User)
	return user, ok
}
