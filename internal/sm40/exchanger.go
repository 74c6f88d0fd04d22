// Package sm40 talks to the SM40 community OAuth endpoints.
//
// SM40 is not a standard OAuth 2.0 provider: the token endpoint takes the app
// credentials and the code as GET query parameters, and both the token and
// the profile responses come in more than one JSON layout.
package sm40

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/sumire/storefront/internal/domain"
)

const (
	// DefaultBaseURL is the public SM40 site.
	DefaultBaseURL = "https://sm40.com"

	defaultTimeout  = 10 * time.Second
	maxResponseSize = 1 << 20
)

// Config holds SM40 application credentials.
type Config struct {
	AppID     string
	AppSecret string
	BaseURL   string

	// HTTPClient overrides the client used for provider calls. Its timeout
	// bounds each call.
	HTTPClient *http.Client
}

// Exchanger turns an SM40 authorization code into a normalized identity.
type Exchanger struct {
	cfg    Config
	client *http.Client
}

// NewExchanger creates a new Exchanger.
func NewExchanger(cfg Config) *Exchanger {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: defaultTimeout}
	}
	return &Exchanger{cfg: cfg, client: client}
}

// AuthorizeURL returns the SM40 consent page for this application.
func (e *Exchanger) AuthorizeURL() string {
	return e.cfg.BaseURL + "/oauth?" + url.Values{"app_id": {e.cfg.AppID}}.Encode()
}

// Exchange runs the full code → token → profile exchange. Each call is made
// once; there are no retries.
func (e *Exchanger) Exchange(ctx context.Context, code string) (*domain.ExternalIdentity, error) {
	accessToken, err := e.ExchangeCode(ctx, code)
	if err != nil {
		return nil, err
	}
	return e.FetchProfile(ctx, accessToken)
}

// ExchangeCode trades an authorization code for an access token.
func (e *Exchanger) ExchangeCode(ctx context.Context, code string) (string, error) {
	body, err := e.get(ctx, "/authorize", url.Values{
		"app_id":     {e.cfg.AppID},
		"app_secret": {e.cfg.AppSecret},
		"code":       {code},
	})
	if err != nil {
		return "", &domain.ExchangeError{Stage: domain.ErrTokenExchangeFailed, Raw: string(body), Err: err}
	}

	token, shape, ok := tokenShapes.lookup(body, isToken)
	if !ok {
		return "", &domain.ExchangeError{
			Stage: domain.ErrTokenExchangeFailed,
			Raw:   string(body),
			Err:   errors.New("access_token not present in response"),
		}
	}

	slog.Debug("sm40 access token obtained", "shape", shape)
	return token.String(), nil
}

// FetchProfile loads the user behind accessToken and normalizes it.
func (e *Exchanger) FetchProfile(ctx context.Context, accessToken string) (*domain.ExternalIdentity, error) {
	body, err := e.get(ctx, "/app_api", url.Values{
		"access_token": {accessToken},
		"type":         {"get_user_data"},
	})
	if err != nil {
		return nil, &domain.ExchangeError{Stage: domain.ErrProfileFetchFailed, Raw: string(body), Err: err}
	}

	user, shape, ok := profileShapes.lookup(body, isObject)
	if !ok {
		return nil, &domain.ExchangeError{
			Stage: domain.ErrProfileFetchFailed,
			Raw:   string(body),
			Err:   errors.New("user_data not present in response"),
		}
	}
	slog.Debug("sm40 profile fetched", "shape", shape)

	identity := normalize(user)
	if !identity.Complete() {
		return nil, fmt.Errorf("%w: sm40 profile lacks email or username", domain.ErrIncompleteProfile)
	}
	return &identity, nil
}

func normalize(user gjson.Result) domain.ExternalIdentity {
	return domain.ExternalIdentity{
		Provider:          domain.AuthProviderSM40,
		ProviderSubjectID: user.Get("username").String(),
		DisplayName:       user.Get("name").String(),
		Email:             user.Get("email").String(),
		AvatarURL:         user.Get("avatar").String(),
	}
}

// get performs a GET against the provider and returns the body. The body is
// returned alongside an error when one was read, for diagnostics.
func (e *Exchanger) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.BaseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return body, fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if !gjson.ValidBytes(body) {
		return body, fmt.Errorf("%s returned a non-JSON body", path)
	}
	return body, nil
}
