package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/sumire/storefront/internal/domain"
)

// UserService manages user profiles on behalf of an authenticated actor.
type UserService struct {
	users UserStore
}

// NewUserService creates a new UserService.
func NewUserService(users UserStore) *UserService {
	return &UserService{users: users}
}

// GetUser returns the user with id.
func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	return s.users.FindByID(ctx, id)
}

// ListUsers returns every user, newest first. Only admins may list users.
func (s *UserService) ListUsers(ctx context.Context, actor *domain.User) ([]domain.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// NewUser describes an account provisioned by an admin. Provisioned users
// have no password and sign in through a linked provider.
type NewUser struct {
	Name  string
	Email string
	Image string
	Role  domain.Role
}

// CreateUser provisions a user. Only admins may create users; the role
// defaults to USER.
func (s *UserService) CreateUser(ctx context.Context, actor *domain.User, in NewUser) (*domain.User, error) {
	if err := RequireAdmin(actor); err != nil {
		return nil, err
	}

	email := strings.TrimSpace(in.Email)
	if email == "" {
		return nil, &domain.ValidationError{Field: "email", Message: "is required"}
	}
	role := in.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.Valid() {
		return nil, &domain.ValidationError{Field: "role", Message: "must be USER or ADMIN"}
	}

	user, err := s.users.Create(ctx, domain.User{
		ID:    uuid.NewString(),
		Name:  strPtr(strings.TrimSpace(in.Name)),
		Email: email,
		Image: strPtr(in.Image),
		Role:  role,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.Info("user provisioned", "actor_id", actor.ID, "user_id", user.ID, "role", role)
	return user, nil
}

// UpdateUser applies upd to user id. The actor must be that user or an admin.
// A role change requested by a non-admin is ignored.
func (s *UserService) UpdateUser(ctx context.Context, actor *domain.User, id string, upd domain.ProfileUpdate) (*domain.User, error) {
	if err := AuthorizeOwnerOrAdmin(actor, id); err != nil {
		return nil, err
	}

	if upd.Role != nil {
		switch {
		case !actor.IsAdmin():
			slog.Warn("role change ignored for non-admin", "actor_id", actor.ID, "user_id", id)
			upd.Role = nil
		case !upd.Role.Valid():
			return nil, &domain.ValidationError{Field: "role", Message: "must be USER or ADMIN"}
		}
	}

	user, err := s.users.UpdateProfile(ctx, id, upd)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	if upd.Role != nil {
		slog.Info("user role changed", "actor_id", actor.ID, "user_id", id, "role", *upd.Role)
	}
	return user, nil
}

// DeleteUser removes user id. Only admins may delete users.
func (s *UserService) DeleteUser(ctx context.Context, actor *domain.User, id string) error {
	if err := RequireAdmin(actor); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	slog.Info("user deleted", "actor_id", actor.ID, "user_id", id)
	return nil
}
