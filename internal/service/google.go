package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleOAuth "golang.org/x/oauth2/google"

	"github.com/sumire/storefront/internal/domain"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleConfig holds Google OAuth client settings. Endpoint and UserInfoURL
// default to Google's production endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	HTTPClient   *http.Client
}

// GoogleProvider runs the authorization-code flow against Google.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// NewGoogleProvider creates a GoogleProvider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	endpoint := cfg.Endpoint
	if endpoint.TokenURL == "" {
		endpoint = googleOAuth.Endpoint
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = googleUserInfoURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     endpoint,
			Scopes:       []string{"openid", "profile", "email"},
			RedirectURL:  cfg.RedirectURL,
		},
		userInfoURL: userInfoURL,
		client:      client,
	}
}

// AuthCodeURL returns the Google consent page URL for state.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// ExchangeCode trades an authorization code for an access token.
func (p *GoogleProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		exErr := &domain.ExchangeError{Stage: domain.ErrTokenExchangeFailed, Err: err}
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			exErr.Raw = string(retrieveErr.Body)
		}
		return "", exErr
	}
	return token.AccessToken, nil
}

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// FetchProfile loads the user's Google profile.
func (p *GoogleProvider) FetchProfile(ctx context.Context, accessToken string) (*domain.ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, profileError("", fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, profileError("", fmt.Errorf("fetch user info: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, profileError("", fmt.Errorf("read user info: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return nil, profileError(string(body), fmt.Errorf("google user info returned status %d", resp.StatusCode))
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, profileError(string(body), fmt.Errorf("decode user info: %w", err))
	}

	identity := &domain.ExternalIdentity{
		Provider:          domain.AuthProviderGoogle,
		ProviderSubjectID: info.ID,
		DisplayName:       info.Name,
		Email:             info.Email,
		AvatarURL:         info.Picture,
	}
	if !identity.Complete() {
		return nil, domain.ErrIncompleteProfile
	}
	return identity, nil
}

func profileError(raw string, err error) error {
	return &domain.ExchangeError{Stage: domain.ErrProfileFetchFailed, Raw: raw, Err: err}
}
