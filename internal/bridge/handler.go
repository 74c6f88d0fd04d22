package bridge

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/sumire/storefront/internal/domain"
)

// Exchanger performs a provider's two-step code exchange.
type Exchanger interface {
	AuthorizeURL() string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*domain.ExternalIdentity, error)
}

// Handler serves the bridge entry point.
type Handler struct {
	exchanger  Exchanger
	provider   domain.AuthProvider
	mainAppURL string
}

// NewHandler creates a bridge Handler that hands identities from provider
// over to the application at mainAppURL.
func NewHandler(exchanger Exchanger, provider domain.AuthProvider, mainAppURL string) *Handler {
	return &Handler{exchanger: exchanger, provider: provider, mainAppURL: mainAppURL}
}

// Register mounts the bridge routes.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/", h.Entry)
}

// Entry dispatches on the query string: ?code= completes a login,
// ?action=login starts one, anything else gets a short notice.
func (h *Handler) Entry(c echo.Context) error {
	if code := c.QueryParam("code"); code != "" {
		return h.complete(c, code)
	}
	if c.QueryParam("action") == "login" {
		return c.Redirect(http.StatusFound, h.exchanger.AuthorizeURL())
	}
	return c.String(http.StatusOK, string(h.provider)+" OAuth bridge. Start a login with ?action=login.")
}

func (h *Handler) complete(c echo.Context, code string) error {
	ctx := c.Request().Context()
	flow := domain.NewLoginFlow(h.provider)

	if err := flow.Advance(domain.StageExchangingToken); err != nil {
		return h.fail(c, flow, err)
	}
	accessToken, err := h.exchanger.ExchangeCode(ctx, code)
	if err != nil {
		return h.fail(c, flow, err)
	}

	if err := flow.Advance(domain.StageFetchingProfile); err != nil {
		return h.fail(c, flow, err)
	}
	identity, err := h.exchanger.FetchProfile(ctx, accessToken)
	if err != nil {
		return h.fail(c, flow, err)
	}

	token, err := PayloadFromIdentity(*identity).Encode()
	if err != nil {
		return h.fail(c, flow, err)
	}

	if err := flow.Advance(domain.StageRedirected); err != nil {
		return h.fail(c, flow, err)
	}
	slog.Info("bridge handoff", "provider", h.provider, "provider_user", identity.ProviderSubjectID)
	return c.Redirect(http.StatusFound, CallbackURL(h.mainAppURL, h.provider, token))
}

func (h *Handler) fail(c echo.Context, flow *domain.LoginFlow, err error) error {
	var exErr *domain.ExchangeError
	if errors.As(err, &exErr) && exErr.Raw != "" {
		slog.Warn("provider response", "provider", h.provider, "body", exErr.Raw)
	}
	code := flow.Fail(err)
	return c.Redirect(http.StatusFound, h.mainAppURL+"/auth/signin?"+url.Values{"error": {code}}.Encode())
}

// CallbackURL is the main application route that accepts a handoff token.
func CallbackURL(mainAppURL string, provider domain.AuthProvider, token string) string {
	return mainAppURL + CallbackPath(provider) + "?" + url.Values{"token": {token}}.Encode()
}

// CallbackPath is the route path of provider's handoff endpoint.
func CallbackPath(provider domain.AuthProvider) string {
	return "/api/auth/" + string(provider) + "-callback"
}
