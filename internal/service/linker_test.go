package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumire/storefront/internal/domain"
)

func janeIdentity() domain.ExternalIdentity {
	return domain.ExternalIdentity{
		Provider:          domain.AuthProviderSM40,
		ProviderSubjectID: "u1",
		DisplayName:       "Jane",
		Email:             "jane@x.com",
		AvatarURL:         "http://a",
	}
}

func TestAccountLinker_CreatesUserAndAccount(t *testing.T) {
	users := newMemUserStore()
	accounts := &memAccountStore{}

	user, err := NewAccountLinker(users, accounts).Link(context.Background(), janeIdentity())
	require.NoError(t, err)

	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "jane@x.com", user.Email)
	assert.Equal(t, "Jane", *user.Name)
	assert.Equal(t, "http://a", *user.Image)
	assert.Equal(t, domain.RoleUser, user.Role)
	assert.False(t, user.HasPassword())

	require.Equal(t, 1, accounts.count())
	acct := accounts.accounts[0]
	assert.Equal(t, user.ID, acct.UserID)
	assert.Equal(t, domain.AccountTypeOAuth, acct.Type)
	assert.Equal(t, domain.AuthProviderSM40, acct.Provider)
	assert.Equal(t, "u1", acct.ProviderAccountID)
}

func TestAccountLinker_Idempotent(t *testing.T) {
	users := newMemUserStore()
	accounts := &memAccountStore{}
	linker := NewAccountLinker(users, accounts)

	first, err := linker.Link(context.Background(), janeIdentity())
	require.NoError(t, err)
	second, err := linker.Link(context.Background(), janeIdentity())
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, users.count())
	assert.Equal(t, 1, accounts.count())
}

func TestAccountLinker_RefreshesProfileKeepsRole(t *testing.T) {
	users := newMemUserStore(domain.User{
		ID:    "existing",
		Name:  ptr("Old Name"),
		Email: "jane@x.com",
		Image: ptr("http://old"),
		Role:  domain.RoleAdmin,
	})
	accounts := &memAccountStore{}

	user, err := NewAccountLinker(users, accounts).Link(context.Background(), janeIdentity())
	require.NoError(t, err)

	assert.Equal(t, "existing", user.ID)
	assert.Equal(t, "Jane", *user.Name)
	assert.Equal(t, "http://a", *user.Image)
	assert.Equal(t, domain.RoleAdmin, user.Role)
}

func TestAccountLinker_SecondProviderAddsAccount(t *testing.T) {
	users := newMemUserStore()
	accounts := &memAccountStore{}
	linker := NewAccountLinker(users, accounts)

	first, err := linker.Link(context.Background(), janeIdentity())
	require.NoError(t, err)

	google := janeIdentity()
	google.Provider = domain.AuthProviderGoogle
	google.ProviderSubjectID = "g-123"
	second, err := linker.Link(context.Background(), google)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 2, accounts.count())
}

func TestAccountLinker_EmptyProviderFieldsKeepStoredValues(t *testing.T) {
	users := newMemUserStore(domain.User{ID: "existing", Name: ptr("Jane"), Email: "jane@x.com", Role: domain.RoleUser})

	identity := janeIdentity()
	identity.DisplayName = ""
	identity.AvatarURL = ""
	user, err := NewAccountLinker(users, &memAccountStore{}).Link(context.Background(), identity)
	require.NoError(t, err)

	assert.Equal(t, "Jane", *user.Name)
	assert.Nil(t, user.Image)
}

func TestAccountLinker_IncompleteIdentity(t *testing.T) {
	users := newMemUserStore()
	accounts := &memAccountStore{}

	identity := janeIdentity()
	identity.Email = ""
	_, err := NewAccountLinker(users, accounts).Link(context.Background(), identity)

	assert.ErrorIs(t, err, domain.ErrIncompleteProfile)
	assert.Zero(t, users.writes)
	assert.Zero(t, accounts.count())
}
