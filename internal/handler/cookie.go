package handler

import (
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// SessionCookieName is the cookie carrying the session token.
const SessionCookieName = "next-auth.session-token"

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 10 * time.Minute
)

// CookieOptions controls attributes shared by the cookies the server sets.
type CookieOptions struct {
	Secure     bool
	SessionTTL time.Duration
}

func (o CookieOptions) setSession(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(o.SessionTTL.Seconds()),
	})
}

func (o CookieOptions) clearSession(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (o CookieOptions) setState(c echo.Context, state string) {
	c.SetCookie(&http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		HttpOnly: true,
		Secure:   o.Secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(stateCookieTTL.Seconds()),
	})
}

func (o CookieOptions) clearState(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:   stateCookieName,
		Path:   "/",
		MaxAge: -1,
	})
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// validOAuthState reports whether the state query parameter matches the state cookie.
func validOAuthState(c echo.Context) bool {
	cookie, err := c.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	queryState := c.QueryParam("state")
	return queryState != "" && queryState == cookie.Value
}
