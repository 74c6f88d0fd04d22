package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sumire/storefront/internal/domain"
)

// AccountLinker reconciles external identities with local users.
//
// Lookups and writes are not wrapped in a transaction: two concurrent first
// logins for the same email can both miss and both create. The users.email
// unique index turns the losing user insert into an error; a duplicate
// (user, provider) account is not prevented.
type AccountLinker struct {
	users    UserStore
	accounts AccountStore
}

// NewAccountLinker creates a new AccountLinker.
func NewAccountLinker(users UserStore, accounts AccountStore) *AccountLinker {
	return &AccountLinker{users: users, accounts: accounts}
}

// Link finds or creates the user owning identity.Email, refreshes its name
// and image from the provider, and makes sure a linked account exists for
// (user, identity.Provider). The user's role is never changed here.
func (l *AccountLinker) Link(ctx context.Context, identity domain.ExternalIdentity) (*domain.User, error) {
	if !identity.Complete() {
		return nil, domain.ErrIncompleteProfile
	}

	user, err := l.upsertUser(ctx, identity)
	if err != nil {
		return nil, err
	}

	_, err = l.accounts.FindByUserAndProvider(ctx, user.ID, identity.Provider)
	switch {
	case err == nil:
		return user, nil
	case !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("find linked account: %w", err)
	}

	_, err = l.accounts.Create(ctx, domain.LinkedAccount{
		ID:                uuid.NewString(),
		UserID:            user.ID,
		Type:              domain.AccountTypeOAuth,
		Provider:          identity.Provider,
		ProviderAccountID: identity.ProviderSubjectID,
	})
	if err != nil {
		return nil, fmt.Errorf("create linked account: %w", err)
	}

	slog.Info("external account linked",
		"user_id", user.ID,
		"provider", identity.Provider,
	)
	return user, nil
}

func (l *AccountLinker) upsertUser(ctx context.Context, identity domain.ExternalIdentity) (*domain.User, error) {
	existing, err := l.users.FindByEmail(ctx, identity.Email)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}

	if existing == nil {
		user, err := l.users.Create(ctx, domain.User{
			ID:    uuid.NewString(),
			Name:  strPtr(identity.DisplayName),
			Email: identity.Email,
			Image: strPtr(identity.AvatarURL),
			Role:  domain.RoleUser,
		})
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		slog.Info("new user created",
			"user_id", user.ID,
			"provider", identity.Provider,
		)
		return user, nil
	}

	user, err := l.users.UpdateProfile(ctx, existing.ID, domain.ProfileUpdate{
		Name:  strPtr(identity.DisplayName),
		Image: strPtr(identity.AvatarURL),
	})
	if err != nil {
		return nil, fmt.Errorf("refresh user profile: %w", err)
	}
	return user, nil
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
