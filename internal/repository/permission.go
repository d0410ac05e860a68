package repository

import (
	"context"
	"fmt"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/store"
)

// PermissionKey is the record key of the permission table.
const PermissionKey = "web_permissions"

// PermissionRepository handles the role and page permission table.
type PermissionRepository struct {
	store *store.Store
}

// NewPermissionRepository creates a new PermissionRepository instance.
func NewPermissionRepository(s *store.Store) *PermissionRepository {
	return &PermissionRepository{store: s}
}

// Load reads the permission table. found is false on a fresh install.
func (r *PermissionRepository) Load(ctx context.Context) (*model.PermissionRecord, bool, error) {
	var rec model.PermissionRecord
	found, err := r.store.Get(ctx, PermissionKey, &rec)
	if err != nil {
		return nil, false, apperrors.Unavailable(fmt.Errorf("failed to load permissions: %w", err))
	}
	if !found {
		return nil, false, nil
	}
	if rec.UserRoles == nil {
		rec.UserRoles = make(map[string]model.Role)
	}
	if rec.PagePermissions == nil {
		rec.PagePermissions = model.DefaultPagePermissions()
	}
	return &rec, true, nil
}

// Save writes the permission table.
func (r *PermissionRepository) Save(ctx context.Context, rec *model.PermissionRecord) error {
	rec.SchemaVersion = model.SchemaVersion
	if err := r.store.Set(ctx, PermissionKey, rec); err != nil {
		return apperrors.Unavailable(fmt.Errorf("failed to save permissions: %w", err))
	}
	return nil
}
