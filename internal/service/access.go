package service

import (
	"context"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
)

// HasPermission reports whether actual is at least required in the role hierarchy.
func HasPermission(actual, required model.Role) bool {
	return actual.Valid() && actual.Rank() >= required.Rank()
}

// AccessGuard decides whether a user may perform an action or view a page.
type AccessGuard struct {
	roles *RoleService
}

// NewAccessGuard creates a new AccessGuard instance.
func NewAccessGuard(roles *RoleService) *AccessGuard {
	return &AccessGuard{roles: roles}
}

// CanAccessPage reports whether userID may view path.
func (g *AccessGuard) CanAccessPage(ctx context.Context, userID, path string) (bool, error) {
	role, err := g.roles.RoleOf(ctx, userID)
	if err != nil {
		return false, err
	}
	required, err := g.roles.RequiredRole(ctx, path)
	if err != nil {
		return false, err
	}
	return HasPermission(role, required), nil
}

// GuestCanAccessPage reports whether a visitor without a session may view path.
func (g *AccessGuard) GuestCanAccessPage(ctx context.Context, path string) (bool, error) {
	required, err := g.roles.RequiredRole(ctx, path)
	if err != nil {
		return false, err
	}
	return HasPermission(model.RoleGuest, required), nil
}

// Require returns the role of userID, or an ErrForbidden error when it is below required.
func (g *AccessGuard) Require(ctx context.Context, userID string, required model.Role) (model.Role, error) {
	role, err := g.roles.RoleOf(ctx, userID)
	if err != nil {
		return role, err
	}
	if !HasPermission(role, required) {
		return role, &apperrors.Error{Kind: apperrors.ErrForbidden, Msg: "접근 권한이 없습니다."}
	}
	return role, nil
}
