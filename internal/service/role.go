// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/repository"
)

// DefaultRoleCacheTTL is used when no cache TTL is configured.
const DefaultRoleCacheTTL = 5 * time.Minute

type cachedRole struct {
	role    model.Role
	expires time.Time
}

// RoleStats counts stored role assignments.
type RoleStats struct {
	Total   int `json:"total"`
	Admins  int `json:"admins"`
	Members int `json:"members"`
	Guests  int `json:"guests"`
}

// UserWithRole is a user record annotated with its resolved role.
type UserWithRole struct {
	*model.UserRecord
	Role model.Role `json:"role"`
}

// RoleService resolves and assigns web roles.
// Resolution order: admin allow-list, stored assignment, guest.
type RoleService struct {
	perms   *repository.PermissionRepository
	users   *repository.UserRepository
	isAdmin func(userID string) bool
	ttl     time.Duration
	now     func() time.Time

	// writeMu serializes rewrites of the permission record.
	writeMu sync.Mutex

	cacheMu sync.RWMutex
	cache   map[string]cachedRole
	gen     uint64
}

// NewRoleService creates a new RoleService instance.
// isAdmin is the allow-list check, typically config.Config.IsAdmin.
func NewRoleService(
	perms *repository.PermissionRepository,
	users *repository.UserRepository,
	isAdmin func(userID string) bool,
	ttl time.Duration,
) *RoleService {
	if ttl <= 0 {
		ttl = DefaultRoleCacheTTL
	}
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &RoleService{
		perms:   perms,
		users:   users,
		isAdmin: isAdmin,
		ttl:     ttl,
		now:     time.Now,
		cache:   make(map[string]cachedRole),
	}
}

// Init writes the default permission table on a fresh install.
func (s *RoleService) Init(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_, found, err := s.perms.Load(ctx)
	if err != nil {
		return err
	}
	if found {
		return nil
	}

	if err := s.perms.Save(ctx, model.NewPermissionRecord(s.now())); err != nil {
		return err
	}
	log.Info().Msg("Default permission table created")
	return nil
}

// load returns the stored permission table or an unsaved default one.
func (s *RoleService) load(ctx context.Context) (*model.PermissionRecord, error) {
	rec, found, err := s.perms.Load(ctx)
	if err != nil {
		return nil, err
	}
	if !found {
		return model.NewPermissionRecord(s.now()), nil
	}
	return rec, nil
}

// RoleOf resolves the role of userID.
func (s *RoleService) RoleOf(ctx context.Context, userID string) (model.Role, error) {
	if s.isAdmin(userID) {
		return model.RoleAdmin, nil
	}

	s.cacheMu.RLock()
	entry, ok := s.cache[userID]
	gen := s.gen
	s.cacheMu.RUnlock()
	if ok && s.now().Before(entry.expires) {
		return entry.role, nil
	}

	rec, err := s.load(ctx)
	if err != nil {
		return model.RoleGuest, err
	}

	role, ok := rec.UserRoles[userID]
	if !ok || !role.Valid() {
		role = model.RoleGuest
	}

	// Skip caching if the table was rewritten while we were reading it.
	s.cacheMu.Lock()
	if s.gen == gen {
		s.cache[userID] = cachedRole{role: role, expires: s.now().Add(s.ttl)}
	}
	s.cacheMu.Unlock()

	return role, nil
}

// SetRole assigns role to userID.
func (s *RoleService) SetRole(ctx context.Context, userID string, role model.Role) error {
	if !role.Valid() {
		return apperrors.ErrInvalidRole
	}

	err := s.update(ctx, func(rec *model.PermissionRecord) {
		rec.UserRoles[userID] = role
	})
	if err != nil {
		return fmt.Errorf("failed to set role: %w", err)
	}

	log.Info().Str("user_id", userID).Str("role", string(role)).Msg("User role changed")
	return nil
}

// EnsureKnown records userID as a guest if it has no stored role yet.
func (s *RoleService) EnsureKnown(ctx context.Context, userID string) error {
	rec, err := s.load(ctx)
	if err != nil {
		return err
	}
	if _, ok := rec.UserRoles[userID]; ok {
		return nil
	}

	return s.update(ctx, func(rec *model.PermissionRecord) {
		if _, ok := rec.UserRoles[userID]; !ok {
			rec.UserRoles[userID] = model.RoleGuest
		}
	})
}

// SetPagePermission sets the role required to view path.
func (s *RoleService) SetPagePermission(ctx context.Context, path string, role model.Role) error {
	if !role.Valid() {
		return apperrors.ErrInvalidRole
	}
	if !strings.HasPrefix(path, "/") {
		return apperrors.ErrInvalidRequest
	}

	err := s.update(ctx, func(rec *model.PermissionRecord) {
		rec.PagePermissions[path] = role
	})
	if err != nil {
		return fmt.Errorf("failed to set page permission: %w", err)
	}

	log.Info().Str("path", path).Str("role", string(role)).Msg("Page permission changed")
	return nil
}

// update applies fn to the permission table, saves it and drops every cached role.
func (s *RoleService) update(ctx context.Context, fn func(rec *model.PermissionRecord)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rec, err := s.load(ctx)
	if err != nil {
		return err
	}

	fn(rec)
	rec.UpdatedAt = s.now()

	if err := s.perms.Save(ctx, rec); err != nil {
		return err
	}

	s.InvalidateCache()
	return nil
}

// InvalidateCache drops every cached role.
func (s *RoleService) InvalidateCache() {
	s.cacheMu.Lock()
	s.cache = make(map[string]cachedRole)
	s.gen++
	s.cacheMu.Unlock()
}

// RequiredRole returns the role needed to view path. Unmapped paths need guest.
func (s *RoleService) RequiredRole(ctx context.Context, path string) (model.Role, error) {
	rec, err := s.load(ctx)
	if err != nil {
		return model.RoleGuest, err
	}
	if role, ok := rec.PagePermissions[path]; ok && role.Valid() {
		return role, nil
	}
	return model.RoleGuest, nil
}

// PagePermissions returns a copy of the page permission table.
func (s *RoleService) PagePermissions(ctx context.Context) (map[string]model.Role, error) {
	rec, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]model.Role, len(rec.PagePermissions))
	for path, role := range rec.PagePermissions {
		out[path] = role
	}
	return out, nil
}

// Stats counts stored role assignments by role.
func (s *RoleService) Stats(ctx context.Context) (RoleStats, error) {
	rec, err := s.load(ctx)
	if err != nil {
		return RoleStats{}, err
	}

	stats := RoleStats{Total: len(rec.UserRoles)}
	for _, role := range rec.UserRoles {
		switch role {
		case model.RoleAdmin:
			stats.Admins++
		case model.RoleMember:
			stats.Members++
		case model.RoleGuest:
			stats.Guests++
		}
	}
	return stats, nil
}

// ListUsers returns every known user with its resolved role, ordered by id.
func (s *RoleService) ListUsers(ctx context.Context) ([]UserWithRole, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]UserWithRole, 0, len(users))
	for _, u := range users {
		role, err := s.RoleOf(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, UserWithRole{UserRecord: u, Role: role})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
