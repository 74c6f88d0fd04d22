package handler

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sumire/storefront/internal/domain"
	"github.com/sumire/storefront/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	cookies CookieOptions
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(auth *service.AuthService, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		cookies: CookieOptions{Secure: secureCookies, SessionTTL: auth.SessionTTL()},
	}
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,max=72"`
}

// Register creates a credentials account.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.auth.Register(c.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"user":    user,
	})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login verifies credentials, sets the session cookie and returns the token.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, token, err := h.auth.LoginWithCredentials(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.cookies.setSession(c, token)
	return c.JSON(http.StatusOK, map[string]any{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// Logout clears the session cookie. Issued tokens stay valid until they expire.
func (h *AuthHandler) Logout(c echo.Context) error {
	h.cookies.clearSession(c)
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me returns the currently authenticated user.
func (h *AuthHandler) Me(c echo.Context) error {
	user, ok := CurrentUser(c)
	if !ok {
		return domain.ErrUnauthorized
	}
	return c.JSON(http.StatusOK, map[string]any{"user": user})
}

// GoogleRedirect redirects the user to Google's OAuth consent page.
func (h *AuthHandler) GoogleRedirect(c echo.Context) error {
	state, err := generateState()
	if err != nil {
		return fmt.Errorf("generate oauth state: %w", err)
	}
	h.cookies.setState(c, state)
	return c.Redirect(http.StatusTemporaryRedirect, h.auth.GoogleAuthURL(state))
}

// GoogleCallback handles the OAuth callback from Google.
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	stateOK := validOAuthState(c)
	h.cookies.clearState(c)

	var r service.Redirect
	switch {
	case !stateOK:
		r = h.auth.RejectLogin(domain.AuthProviderGoogle, domain.ErrStateMismatch)
	case c.QueryParam("error") != "":
		r = h.auth.RejectLogin(domain.AuthProviderGoogle, &domain.ExchangeError{
			Stage: domain.ErrTokenExchangeFailed,
			Err:   fmt.Errorf("provider returned %q", c.QueryParam("error")),
		})
	default:
		r = h.auth.CompleteGoogleLogin(c.Request().Context(), c.QueryParam("code"))
	}

	return h.redirect(c, r)
}

// BridgeCallback accepts the handoff token an OAuth bridge issues for provider.
func (h *AuthHandler) BridgeCallback(provider domain.AuthProvider) echo.HandlerFunc {
	return func(c echo.Context) error {
		r := h.auth.CompleteExternalLogin(c.Request().Context(), provider, c.QueryParam("token"))
		return h.redirect(c, r)
	}
}

func (h *AuthHandler) redirect(c echo.Context, r service.Redirect) error {
	if r.SessionToken != "" {
		h.cookies.setSession(c, r.SessionToken)
	} else {
		slog.Debug("login redirect without session", "location", r.Location)
	}
	return c.Redirect(http.StatusFound, r.Location)
}
