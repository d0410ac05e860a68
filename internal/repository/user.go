package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/store"
)

const userKeyPrefix = "user_"

// UserKey returns the record key of a user.
func UserKey(id string) string {
	return userKeyPrefix + id
}

// UserRepository handles user identity and statistics persistence.
type UserRepository struct {
	store *store.Store
}

// NewUserRepository creates a new UserRepository instance.
func NewUserRepository(s *store.Store) *UserRepository {
	return &UserRepository{store: s}
}

// Get loads a user record. found is false when the user has no record.
func (r *UserRepository) Get(ctx context.Context, id string) (*model.UserRecord, bool, error) {
	if !store.ValidKey(UserKey(id)) {
		return nil, false, apperrors.ErrUserNotFound
	}

	var user model.UserRecord
	found, err := r.store.Get(ctx, UserKey(id), &user)
	if errors.Is(err, store.ErrDecode) {
		return nil, false, fmt.Errorf("failed to read user: %w", err)
	}
	if err != nil {
		return nil, false, apperrors.Unavailable(fmt.Errorf("failed to get user: %w", err))
	}
	if !found {
		return nil, false, nil
	}
	return &user, true, nil
}

// GetOrDefault loads a user record, returning a zeroed record for unknown users.
func (r *UserRepository) GetOrDefault(ctx context.Context, id string) (*model.UserRecord, error) {
	user, found, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return &model.UserRecord{
			SchemaVersion: model.SchemaVersion,
			ID:            id,
			Matches:       []model.MatchResult{},
		}, nil
	}
	return user, nil
}

// Save writes the whole user record.
func (r *UserRepository) Save(ctx context.Context, user *model.UserRecord) error {
	user.SchemaVersion = model.SchemaVersion
	if user.Matches == nil {
		user.Matches = []model.MatchResult{}
	}
	if err := r.store.Set(ctx, UserKey(user.ID), user); err != nil {
		return apperrors.Unavailable(fmt.Errorf("failed to save user: %w", err))
	}
	return nil
}

// List loads every stored user record. Records that fail to decode or vanish
// while listing are skipped; backend failures are returned.
func (r *UserRepository) List(ctx context.Context) ([]*model.UserRecord, error) {
	keys, err := r.store.Keys(ctx, userKeyPrefix)
	if err != nil {
		return nil, apperrors.Unavailable(fmt.Errorf("failed to list users: %w", err))
	}

	users := make([]*model.UserRecord, 0, len(keys))
	for _, key := range keys {
		user, found, err := r.Get(ctx, strings.TrimPrefix(key, userKeyPrefix))
		if errors.Is(err, store.ErrDecode) {
			log.Warn().Err(err).Str("key", key).Msg("Skipping unreadable user record")
			continue
		}
		if err != nil {
			return nil, err
		}
		if !found {
			continue
		}
		users = append(users, user)
	}
	return users, nil
}
