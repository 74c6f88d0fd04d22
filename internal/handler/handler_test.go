package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sumire/storefront/internal/domain"
	"github.com/sumire/storefront/internal/service"
)

type memUsers struct {
	mu   sync.Mutex
	byID map[string]domain.User
}

func (s *memUsers) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *memUsers) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memUsers) List(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (s *memUsers) Create(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.byID {
		if u.Email == user.Email {
			return nil, domain.ErrUserAlreadyExists
		}
	}
	user.CreatedAt = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	s.byID[user.ID] = user
	return &user, nil
}

func (s *memUsers) UpdateProfile(_ context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if upd.Name != nil {
		u.Name = upd.Name
	}
	if upd.Image != nil {
		u.Image = upd.Image
		if *upd.Image == "" {
			u.Image = nil
		}
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	s.byID[id] = u
	return &u, nil
}

func (s *memUsers) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	return nil
}

type memAccounts struct {
	mu       sync.Mutex
	accounts []domain.LinkedAccount
}

func (s *memAccounts) FindByUserAndProvider(_ context.Context, userID string, provider domain.AuthProvider) (*domain.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == userID && a.Provider == provider {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memAccounts) Create(_ context.Context, account domain.LinkedAccount) (*domain.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = append(s.accounts, account)
	return &account, nil
}

type stubGoogle struct{}

func (stubGoogle) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (stubGoogle) ExchangeCode(context.Context, string) (string, error) {
	return "gtok", nil
}

func (stubGoogle) FetchProfile(context.Context, string) (*domain.ExternalIdentity, error) {
	return &domain.ExternalIdentity{
		Provider:          domain.AuthProviderGoogle,
		ProviderSubjectID: "g-1",
		DisplayName:       "Jane",
		Email:             "jane@x.com",
	}, nil
}

type testServer struct {
	e        *echo.Echo
	users    *memUsers
	accounts *memAccounts
	codec    *service.TokenCodec
	hasher   *service.PasswordHasher
}

type serverOptions struct {
	secure  bool
	limiter *RateLimiter
}

func newTestServer(t *testing.T, opts serverOptions) *testServer {
	t.Helper()
	ts := &testServer{
		users:    &memUsers{byID: make(map[string]domain.User)},
		accounts: &memAccounts{},
		codec:    service.NewTokenCodec("s3cret", 0),
		hasher:   service.NewPasswordHasher(bcrypt.MinCost),
	}
	auth := service.NewAuthService(ts.users, ts.accounts, service.AuthConfig{
		Codec:  ts.codec,
		Hasher: ts.hasher,
		Google: stubGoogle{},
	})

	e := echo.New()
	e.Validator = NewAppValidator()
	e.HTTPErrorHandler = HTTPErrorHandler
	Register(e, Routes{
		Auth:            auth,
		Users:           service.NewUserService(ts.users),
		SecureCookies:   opts.secure,
		BridgeProviders: []domain.AuthProvider{domain.AuthProviderSM40},
		LoginLimiter:    opts.limiter,
	})
	ts.e = e
	return ts
}

func (ts *testServer) addUser(t *testing.T, id, email, password string, role domain.Role) domain.User {
	t.Helper()
	u := domain.User{ID: id, Email: email, Role: role, Name: &id}
	if password != "" {
		hash, err := ts.hasher.Hash(password)
		require.NoError(t, err)
		u.PasswordHash = &hash
	}
	ts.users.byID[id] = u
	return u
}

func (ts *testServer) tokenFor(t *testing.T, u domain.User) string {
	t.Helper()
	token, err := ts.codec.Encode(service.ClaimsForUser(&u))
	require.NoError(t, err)
	return token
}

func (ts *testServer) do(method, target, body string, mutate ...func(*http.Request)) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, m := range mutate {
		m(req)
	}
	rec := httptest.NewRecorder()
	ts.e.ServeHTTP(rec, req)
	return rec
}

func bearer(token string) func(*http.Request) {
	return func(r *http.Request) {
		r.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
}

func withCookie(c *http.Cookie) func(*http.Request) {
	return func(r *http.Request) {
		r.AddCookie(c)
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
