package service

import "github.com/sumire/storefront/internal/domain"

// AuthorizeOwnerOrAdmin allows actor to act on a resource owned by ownerID
// when actor is that owner or an admin.
func AuthorizeOwnerOrAdmin(actor *domain.User, ownerID string) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	if actor.ID != ownerID && !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}

// RequireAdmin allows only admins.
func RequireAdmin(actor *domain.User) error {
	if actor == nil {
		return domain.ErrUnauthorized
	}
	if !actor.IsAdmin() {
		return domain.ErrForbidden
	}
	return nil
}
