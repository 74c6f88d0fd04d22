package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/storefront/internal/bridge"
	"github.com/sumire/storefront/internal/domain"
	"github.com/sumire/storefront/internal/service"
)

// Routes holds everything needed to mount the API.
type Routes struct {
	Auth            *service.AuthService
	Users           *service.UserService
	SecureCookies   bool
	BridgeProviders []domain.AuthProvider
	LoginLimiter    *RateLimiter
	Metrics         http.Handler
}

// Register mounts all routes on e.
func Register(e *echo.Echo, r Routes) {
	authHandler := NewAuthHandler(r.Auth, r.SecureCookies)
	userHandler := NewUserHandler(r.Users)
	authenticate := Authenticate(r.Auth)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if r.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(r.Metrics))
	}

	var limited []echo.MiddlewareFunc
	if r.LoginLimiter != nil {
		limited = append(limited, r.LoginLimiter.Middleware())
	}

	auth := e.Group("/api/auth")
	auth.POST("/register", authHandler.Register, limited...)
	auth.POST("/login", authHandler.Login, limited...)
	auth.POST("/logout", authHandler.Logout)
	auth.GET("/me", authHandler.Me, authenticate)

	if r.Auth.GoogleEnabled() {
		auth.GET("/google", authHandler.GoogleRedirect)
		auth.GET("/google/callback", authHandler.GoogleCallback)
	}

	for _, provider := range r.BridgeProviders {
		e.GET(bridge.CallbackPath(provider), authHandler.BridgeCallback(provider))
	}

	users := e.Group("/api/users")
	users.GET("", userHandler.List, authenticate, RequireAdmin())
	users.POST("", userHandler.Create, authenticate, RequireAdmin())
	users.GET("/:id", userHandler.Get)
	users.PUT("/:id", userHandler.Update, authenticate)
	users.DELETE("/:id", userHandler.Delete, authenticate, RequireAdmin())
}
