package service

import (
	"context"

	"github.com/sumire/storefront/internal/domain"
)

// UserStore defines the user data access interface consumed by the services.
// Lookups return domain.ErrNotFound when no user matches.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
	Create(ctx context.Context, user domain.User) (*domain.User, error)
	UpdateProfile(ctx context.Context, id string, upd domain.ProfileUpdate) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// AccountStore defines the linked-account data access interface.
type AccountStore interface {
	FindByUserAndProvider(ctx context.Context, userID string, provider domain.AuthProvider) (*domain.LinkedAccount, error)
	Create(ctx context.Context, account domain.LinkedAccount) (*domain.LinkedAccount, error)
}

// MetricsRecorder receives authentication outcomes.
type MetricsRecorder interface {
	RecordLogin(method, outcome string)
}

type nopMetrics struct{}

func (nopMetrics) RecordLogin(string, string) {}
