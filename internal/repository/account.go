package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/sumire/storefront/internal/domain"
)

// AccountRepository handles linked-account data access operations.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByUserAndProvider retrieves the account a user has linked at provider.
func (r *AccountRepository) FindByUserAndProvider(ctx context.Context, userID string, provider domain.AuthProvider) (*domain.LinkedAccount, error) {
	var account domain.LinkedAccount
	err := r.db.GetContext(ctx, &account,
		`SELECT id, user_id, type, provider, provider_account_id, created_at
		 FROM accounts WHERE user_id = $1 AND provider = $2
		 ORDER BY created_at LIMIT 1`, userID, string(provider))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("find account %s/%s: %w", userID, provider, err)
	}
	return &account, nil
}

// Create inserts a linked account.
func (r *AccountRepository) Create(ctx context.Context, account domain.LinkedAccount) (*domain.LinkedAccount, error) {
	var result domain.LinkedAccount
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO accounts (id, user_id, type, provider, provider_account_id)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, type, provider, provider_account_id, created_at`,
		account.ID, account.UserID, account.Type, string(account.Provider), account.ProviderAccountID,
	).StructScan(&result)
	if err != nil {
		return nil, fmt.Errorf("create account %s/%s: %w", account.UserID, account.Provider, err)
	}
	return &result, nil
}
