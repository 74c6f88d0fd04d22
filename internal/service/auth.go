package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sumire/storefront/internal/bridge"
	"github.com/sumire/storefront/internal/domain"
)

const methodCredentials = "credentials"

// ExternalProvider is an OAuth provider the main application talks to directly.
type ExternalProvider interface {
	AuthCodeURL(state string) string
	ExchangeCode(ctx context.Context, code string) (string, error)
	FetchProfile(ctx context.Context, accessToken string) (*domain.ExternalIdentity, error)
}

// AuthConfig holds the collaborators of AuthService. Google may be nil when
// Google sign-in is not configured; Metrics may be nil.
type AuthConfig struct {
	Codec   *TokenCodec
	Hasher  *PasswordHasher
	Google  ExternalProvider
	Metrics MetricsRecorder
}

// Redirect is the outcome of a browser login: where to send the user and,
// on success, the session token to set as a cookie.
type Redirect struct {
	Location     string
	SessionToken string
}

// SignInErrorLocation is the sign-in page URL reporting code.
func SignInErrorLocation(code string) string {
	return "/auth/signin?" + url.Values{"error": {code}}.Encode()
}

// AuthService handles authentication logic.
type AuthService struct {
	users    UserStore
	verifier *CredentialVerifier
	linker   *AccountLinker
	codec    *TokenCodec
	hasher   *PasswordHasher
	google   ExternalProvider
	metrics  MetricsRecorder
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserStore, accounts AccountStore, cfg AuthConfig) *AuthService {
	hasher := cfg.Hasher
	if hasher == nil {
		hasher = NewPasswordHasher(DefaultBcryptCost)
	}
	codec := cfg.Codec
	if codec == nil {
		codec = NewTokenCodec("", DefaultSessionTTL)
	}
	var m MetricsRecorder = nopMetrics{}
	if cfg.Metrics != nil {
		m = cfg.Metrics
	}

	return &AuthService{
		users:    users,
		verifier: NewCredentialVerifier(users, hasher),
		linker:   NewAccountLinker(users, accounts),
		codec:    codec,
		hasher:   hasher,
		google:   cfg.Google,
		metrics:  m,
	}
}

// SessionTTL returns the lifetime of issued session tokens.
func (s *AuthService) SessionTTL() time.Duration {
	return s.codec.TTL()
}

// Register creates a credentials user with role USER.
func (s *AuthService) Register(ctx context.Context, name, email, password string) (*domain.User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, &domain.ValidationError{Field: "email", Message: "is required"}
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, domain.ErrUserAlreadyExists
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	user, err := s.users.Create(ctx, domain.User{
		ID:           uuid.NewString(),
		Name:         strPtr(strings.TrimSpace(name)),
		Email:        email,
		Role:         domain.RoleUser,
		PasswordHash: &hash,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	slog.Info("user registered", "user_id", user.ID)
	return user, nil
}

// LoginWithCredentials verifies email and password and issues a session token.
func (s *AuthService) LoginWithCredentials(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.verifier.Verify(ctx, email, password)
	if err != nil {
		s.metrics.RecordLogin(methodCredentials, "failure")
		return nil, "", err
	}

	token, err := s.codec.Encode(ClaimsForUser(user))
	if err != nil {
		s.metrics.RecordLogin(methodCredentials, "failure")
		return nil, "", err
	}

	s.metrics.RecordLogin(methodCredentials, "success")
	return user, token, nil
}

// CompleteExternalLogin finishes a login handed over by the bridge for
// provider. An undecodable payload fails before anything is written.
func (s *AuthService) CompleteExternalLogin(ctx context.Context, provider domain.AuthProvider, rawPayload string) Redirect {
	flow := domain.NewLoginFlow(provider)

	payload, err := bridge.DecodePayload(rawPayload)
	if err != nil {
		return s.fail(flow, err)
	}

	return s.linkAndIssue(ctx, flow, payload.Identity(provider))
}

// GoogleEnabled reports whether Google sign-in is configured.
func (s *AuthService) GoogleEnabled() bool {
	return s.google != nil
}

// GoogleAuthURL returns the Google consent page URL for state.
func (s *AuthService) GoogleAuthURL(state string) string {
	return s.google.AuthCodeURL(state)
}

// CompleteGoogleLogin exchanges a Google authorization code and signs the user in.
func (s *AuthService) CompleteGoogleLogin(ctx context.Context, code string) Redirect {
	flow := domain.NewLoginFlow(domain.AuthProviderGoogle)

	if err := flow.Advance(domain.StageExchangingToken); err != nil {
		return s.fail(flow, err)
	}
	if code == "" {
		return s.fail(flow, &domain.ExchangeError{
			Stage: domain.ErrTokenExchangeFailed,
			Err:   errors.New("missing code parameter"),
		})
	}
	accessToken, err := s.google.ExchangeCode(ctx, code)
	if err != nil {
		return s.fail(flow, err)
	}

	if err := flow.Advance(domain.StageFetchingProfile); err != nil {
		return s.fail(flow, err)
	}
	identity, err := s.google.FetchProfile(ctx, accessToken)
	if err != nil {
		return s.fail(flow, err)
	}

	return s.linkAndIssue(ctx, flow, *identity)
}

// RejectLogin records a browser login for provider that failed before the
// service was involved, such as a state mismatch or a denied consent.
func (s *AuthService) RejectLogin(provider domain.AuthProvider, err error) Redirect {
	return s.fail(domain.NewLoginFlow(provider), err)
}

func (s *AuthService) linkAndIssue(ctx context.Context, flow *domain.LoginFlow, identity domain.ExternalIdentity) Redirect {
	if err := flow.Advance(domain.StageLinking); err != nil {
		return s.fail(flow, err)
	}
	user, err := s.linker.Link(ctx, identity)
	if err != nil {
		return s.fail(flow, err)
	}

	if err := flow.Advance(domain.StageIssuingSession); err != nil {
		return s.fail(flow, err)
	}
	token, err := s.codec.Encode(ClaimsForUser(user))
	if err != nil {
		return s.fail(flow, err)
	}

	if err := flow.Advance(domain.StageRedirected); err != nil {
		return s.fail(flow, err)
	}
	s.metrics.RecordLogin(string(flow.Provider), "success")
	slog.Info("external login completed", "user_id", user.ID, "provider", flow.Provider)
	return Redirect{Location: "/", SessionToken: token}
}

func (s *AuthService) fail(flow *domain.LoginFlow, err error) Redirect {
	var exErr *domain.ExchangeError
	if errors.As(err, &exErr) && exErr.Raw != "" {
		slog.Warn("provider response", "provider", flow.Provider, "body", exErr.Raw)
	}
	code := flow.Fail(err)
	s.metrics.RecordLogin(string(flow.Provider), "failure")
	return Redirect{Location: SignInErrorLocation(code)}
}

// ResolveCurrentUser returns the user behind a request. The session cookie is
// tried first, then an "Authorization: Bearer" header. The user is always
// re-read from the store, so role changes apply to existing tokens.
func (s *AuthService) ResolveCurrentUser(ctx context.Context, sessionCookie, authorization string) (*domain.User, error) {
	for _, token := range []string{sessionCookie, bearerToken(authorization)} {
		if token == "" {
			continue
		}

		claims, err := s.codec.Decode(token)
		if err != nil {
			continue
		}

		user, err := s.users.FindByID(ctx, claims.Subject)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("resolve current user: %w", err)
		}
		return user, nil
	}

	return nil, domain.ErrUnauthorized
}

func bearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
