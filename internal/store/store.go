// Package store provides the key/value record store with a read-through
// in-memory cache over a pluggable durable backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Errors returned by backends and the store.
var (
	// ErrNotExist is returned by a Backend when the key has no record.
	ErrNotExist = errors.New("record does not exist")
	// ErrInvalidKey is returned for keys that cannot be mapped to a location.
	ErrInvalidKey = errors.New("invalid record key")
	// ErrDecode is returned by Get when a stored record is not valid for dst.
	ErrDecode = errors.New("record cannot be decoded")
)

var keyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ValidKey reports whether key may be used as a record key.
func ValidKey(key string) bool {
	return keyPattern.MatchString(key)
}

// Backend is durable key/value storage for JSON documents.
type Backend interface {
	// Name identifies the backend in logs and stats.
	Name() string
	// Load returns the stored bytes or ErrNotExist.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save stores data under key, replacing any previous value.
	Save(ctx context.Context, key string, data []byte) error
	// Remove deletes key and reports whether it existed.
	Remove(ctx context.Context, key string) (bool, error)
	// Has reports whether key exists.
	Has(ctx context.Context, key string) (bool, error)
	// Keys lists stored keys starting with prefix.
	Keys(ctx context.Context, prefix string) ([]string, error)
}

// Stats describes the store contents.
type Stats struct {
	Backend string `json:"backend"`
	Records int    `json:"records"`
	Cached  int    `json:"cached"`
	Parties int    `json:"parties"`
	Users   int    `json:"users"`
}

// Store is the record store. Reads populate an unbounded process-lifetime
// cache, writes go to the backend first and then replace the cached copy.
// Cached values are kept encoded so callers never share decoded state.
type Store struct {
	backend Backend

	mu    sync.RWMutex
	cache map[string][]byte
	// writes counts completed Sets and Deletes. A load only fills the cache
	// if no write finished while it was in flight.
	writes uint64
}

// New creates a Store over backend.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		cache:   make(map[string][]byte),
	}
}

// Backend returns the durable backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Get decodes the record stored under key into dst.
// A missing record returns found=false and no error.
func (s *Store) Get(ctx context.Context, key string, dst any) (bool, error) {
	if !ValidKey(key) {
		return false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	s.mu.RLock()
	data, ok := s.cache[key]
	writes := s.writes
	s.mu.RUnlock()

	if !ok {
		var err error
		data, err = s.backend.Load(ctx, key)
		if errors.Is(err, ErrNotExist) {
			return false, nil
		}
		if err != nil {
			return false, fmt.Errorf("failed to load %s: %w", key, err)
		}

		s.mu.Lock()
		if _, cached := s.cache[key]; !cached && s.writes == writes {
			s.cache[key] = data
		}
		s.mu.Unlock()
	}

	if err := json.Unmarshal(data, dst); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrDecode, key, err)
	}
	return true, nil
}

// Set encodes value and stores it under key.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	if !ValidKey(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}

	if err := s.backend.Save(ctx, key, data); err != nil {
		return fmt.Errorf("failed to save %s: %w", key, err)
	}

	s.mu.Lock()
	s.cache[key] = data
	s.writes++
	s.mu.Unlock()

	log.Debug().Str("key", key).Str("backend", s.backend.Name()).Msg("Record saved")
	return nil
}

// Delete removes key from the backend and the cache.
func (s *Store) Delete(ctx context.Context, key string) (bool, error) {
	if !ValidKey(key) {
		return false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	existed, err := s.backend.Remove(ctx, key)

	// Evict even on failure: the backend state is unknown.
	s.mu.Lock()
	delete(s.cache, key)
	s.writes++
	s.mu.Unlock()

	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return existed, nil
}

// Exists reports whether key has a record.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if !ValidKey(key) {
		return false, fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	s.mu.RLock()
	_, ok := s.cache[key]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}

	return s.backend.Has(ctx, key)
}

// Keys lists stored keys that start with prefix.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	keys, err := s.backend.Keys(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	return keys, nil
}

// ClearCache drops every cached record.
func (s *Store) ClearCache() {
	s.mu.Lock()
	s.cache = make(map[string][]byte)
	s.mu.Unlock()
}

// CacheLen returns the number of cached records.
func (s *Store) CacheLen() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cache)
}

// Ping checks that the backend is reachable. Backends without a connection
// are always reachable.
func (s *Store) Ping(ctx context.Context) error {
	p, ok := s.backend.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	if err := p.Ping(ctx); err != nil {
		return fmt.Errorf("failed to reach %s backend: %w", s.backend.Name(), err)
	}
	return nil
}

// Stats counts stored records by kind.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	keys, err := s.Keys(ctx, "")
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		Backend: s.backend.Name(),
		Records: len(keys),
		Cached:  s.CacheLen(),
	}
	for _, k := range keys {
		switch {
		case strings.HasPrefix(k, "party_"):
			stats.Parties++
		case strings.HasPrefix(k, "user_"):
			stats.Users++
		}
	}
	return stats, nil
}
