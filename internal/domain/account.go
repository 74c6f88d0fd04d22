package domain

import "time"

// AuthProvider names an external identity provider.
type AuthProvider string

const (
	AuthProviderGoogle AuthProvider = "google"
	AuthProviderSM40   AuthProvider = "sm40"
)

// AccountTypeOAuth is the only account type created by the linker.
const AccountTypeOAuth = "oauth"

// LinkedAccount associates a User with an identity at an external provider.
type LinkedAccount struct {
	ID                string       `json:"id" db:"id"`
	UserID            string       `json:"userId" db:"user_id"`
	Type              string       `json:"type" db:"type"`
	Provider          AuthProvider `json:"provider" db:"provider"`
	ProviderAccountID string       `json:"providerAccountId" db:"provider_account_id"`
	CreatedAt         time.Time    `json:"createdAt" db:"created_at"`
}

// ExternalIdentity is a provider profile normalized into one shape,
// independent of how the provider laid out its responses.
type ExternalIdentity struct {
	Provider          AuthProvider
	ProviderSubjectID string
	DisplayName       string
	Email             string
	AvatarURL         string
}

// Complete reports whether the identity carries everything needed for linking.
func (i ExternalIdentity) Complete() bool {
	return i.Email != "" && i.ProviderSubjectID != ""
}
