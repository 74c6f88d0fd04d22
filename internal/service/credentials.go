package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sumire/storefront/internal/domain"
)

// CredentialVerifier checks email/password pairs against stored hashes.
type CredentialVerifier struct {
	users  UserStore
	hasher *PasswordHasher
}

// NewCredentialVerifier creates a new CredentialVerifier.
func NewCredentialVerifier(users UserStore, hasher *PasswordHasher) *CredentialVerifier {
	return &CredentialVerifier{users: users, hasher: hasher}
}

// Verify returns the user owning email if password matches. An unknown
// email, an account without a password and a wrong password all return
// domain.ErrInvalidCredentials.
func (v *CredentialVerifier) Verify(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := v.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify credentials: %w", err)
	}

	if !user.HasPassword() || !v.hasher.Matches(*user.PasswordHash, password) {
		return nil, domain.ErrInvalidCredentials
	}

	return user, nil
}
