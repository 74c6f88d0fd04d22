package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sumire/storefront/internal/domain"
)

// memUserStore is an in-memory UserStore. Setting err makes every call fail.
type memUserStore struct {
	mu     sync.Mutex
	byID   map[string]domain.User
	writes int
	err    error
}

func newMemUserStore(users ...domain.User) *memUserStore {
	s := &memUserStore{byID: make(map[string]domain.User)}
	for _, u := range users {
		s.byID[u.ID] = u
	}
	return s
}

func (s *memUserStore) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	u, ok := s.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &u, nil
}

func (s *memUserStore) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.byID {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memUserStore) List(_ context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	users := make([]domain.User, 0, len(s.byID))
	for _, u := range s.byID {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return users, nil
}

func (s *memUserStore) Create(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.byID {
		if u.Email == user.Email {
			return nil, domain.ErrUserAlreadyExists
		}
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	s.byID[user.ID] = user
	s.writes++
	return &user, nil
}

func (s *memUserStore) UpdateProfile(_ context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
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
	u.UpdatedAt = time.Now()
	s.byID[id] = u
	s.writes++
	return &u, nil
}

func (s *memUserStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.byID[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.byID, id)
	s.writes++
	return nil
}

func (s *memUserStore) setRole(id string, role domain.Role) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byID[id]
	u.Role = role
	s.byID[id] = u
}

func (s *memUserStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byID)
}

type memAccountStore struct {
	mu       sync.Mutex
	accounts []domain.LinkedAccount
}

func (s *memAccountStore) FindByUserAndProvider(_ context.Context, userID string, provider domain.AuthProvider) (*domain.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.UserID == userID && a.Provider == provider {
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *memAccountStore) Create(_ context.Context, account domain.LinkedAccount) (*domain.LinkedAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	account.CreatedAt = time.Now()
	s.accounts = append(s.accounts, account)
	return &account, nil
}

func (s *memAccountStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.accounts)
}

type fakeProvider struct {
	exchangeCodeFn func(ctx context.Context, code string) (string, error)
	fetchProfileFn func(ctx context.Context, accessToken string) (*domain.ExternalIdentity, error)
}

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://accounts.example/auth?state=" + state
}

func (p *fakeProvider) ExchangeCode(ctx context.Context, code string) (string, error) {
	return p.exchangeCodeFn(ctx, code)
}

func (p *fakeProvider) FetchProfile(ctx context.Context, accessToken string) (*domain.ExternalIdentity, error) {
	return p.fetchProfileFn(ctx, accessToken)
}

type recordedLogin struct {
	method  string
	outcome string
}

type fakeMetrics struct {
	logins []recordedLogin
}

func (m *fakeMetrics) RecordLogin(method, outcome string) {
	m.logins = append(m.logins, recordedLogin{method, outcome})
}

func ptr[T any](v T) *T {
	return &v
}

func subject(id string) jwt.RegisteredClaims {
	return jwt.RegisteredClaims{Subject: id}
}
