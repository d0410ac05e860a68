// Package repository maps domain records onto the record store.
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

const partyKeyPrefix = "party_"

// PartyKey returns the record key of a party.
func PartyKey(id string) string {
	return partyKeyPrefix + id
}

// PartyRepository handles party persistence.
type PartyRepository struct {
	store *store.Store
}

// NewPartyRepository creates a new PartyRepository instance.
func NewPartyRepository(s *store.Store) *PartyRepository {
	return &PartyRepository{store: s}
}

// Get loads a party. Returns apperrors.ErrPartyNotFound if it does not exist.
func (r *PartyRepository) Get(ctx context.Context, id string) (*model.Party, error) {
	if !store.ValidKey(PartyKey(id)) {
		return nil, apperrors.ErrPartyNotFound
	}

	var party model.Party
	found, err := r.store.Get(ctx, PartyKey(id), &party)
	if errors.Is(err, store.ErrDecode) {
		return nil, fmt.Errorf("failed to read party: %w", err)
	}
	if err != nil {
		return nil, apperrors.Unavailable(fmt.Errorf("failed to get party: %w", err))
	}
	if !found {
		return nil, apperrors.ErrPartyNotFound
	}
	if party.Members == nil {
		party.Members = []model.Member{}
	}
	return &party, nil
}

// Save writes the whole party record.
func (r *PartyRepository) Save(ctx context.Context, party *model.Party) error {
	party.SchemaVersion = model.SchemaVersion
	if err := r.store.Set(ctx, PartyKey(party.ID), party); err != nil {
		return apperrors.Unavailable(fmt.Errorf("failed to save party: %w", err))
	}
	return nil
}

// Exists reports whether a party with id is stored.
func (r *PartyRepository) Exists(ctx context.Context, id string) (bool, error) {
	ok, err := r.store.Exists(ctx, PartyKey(id))
	if err != nil {
		return false, apperrors.Unavailable(err)
	}
	return ok, nil
}

// List loads every stored party. Records that fail to decode or vanish while
// listing are skipped; backend failures are returned.
func (r *PartyRepository) List(ctx context.Context) ([]*model.Party, error) {
	keys, err := r.store.Keys(ctx, partyKeyPrefix)
	if err != nil {
		return nil, apperrors.Unavailable(fmt.Errorf("failed to list parties: %w", err))
	}

	parties := make([]*model.Party, 0, len(keys))
	for _, key := range keys {
		party, err := r.Get(ctx, strings.TrimPrefix(key, partyKeyPrefix))
		switch {
		case errors.Is(err, store.ErrDecode):
			log.Warn().Err(err).Str("key", key).Msg("Skipping unreadable party record")
			continue
		case errors.Is(err, apperrors.ErrPartyNotFound):
			continue
		case err != nil:
			return nil, err
		}
		parties = append(parties, party)
	}
	return parties, nil
}
