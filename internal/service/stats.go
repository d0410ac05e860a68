package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/pkg/lock"
	"discord-party-bot/internal/repository"
)

// maxMatchHistory caps the number of matches kept per user.
const maxMatchHistory = 100

// MatchInput is the outcome of one match for one user.
type MatchInput struct {
	PartyID string `json:"partyId"`
	Won     bool   `json:"won"`
	Kills   int    `json:"kills"`
}

// StatsService maintains user identity snapshots and match statistics.
type StatsService struct {
	users       *repository.UserRepository
	locks       *lock.KeyLock
	lockTimeout time.Duration
	now         func() time.Time
}

// NewStatsService creates a new StatsService instance.
func NewStatsService(users *repository.UserRepository, locks *lock.KeyLock) *StatsService {
	return &StatsService{
		users:       users,
		locks:       locks,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
}

// GetStats returns the derived statistics of userID. Unknown users have zero stats.
func (s *StatsService) GetStats(ctx context.Context, userID string) (model.UserStats, error) {
	user, err := s.users.GetOrDefault(ctx, userID)
	if err != nil {
		return model.UserStats{}, err
	}
	return user.Stats(), nil
}

// GetUser returns the stored record of userID.
func (s *StatsService) GetUser(ctx context.Context, userID string) (*model.UserRecord, error) {
	user, found, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperrors.ErrUserNotFound
	}
	return user, nil
}

// RankedUser is one leaderboard entry.
type RankedUser struct {
	Rank     int             `json:"rank"`
	UserID   string          `json:"userId"`
	Username string          `json:"username"`
	Stats    model.UserStats `json:"stats"`
}

// Leaderboard returns up to limit users who played at least one match,
// ordered by points, then wins, then id.
func (s *StatsService) Leaderboard(ctx context.Context, limit int) ([]RankedUser, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedUser, 0, len(users))
	for _, u := range users {
		stats := u.Stats()
		if stats.TotalGames == 0 {
			continue
		}
		ranked = append(ranked, RankedUser{UserID: u.ID, Username: u.Username, Stats: stats})
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i].Stats, ranked[j].Stats
		if a.Points != b.Points {
			return a.Points > b.Points
		}
		if a.Wins != b.Wins {
			return a.Wins > b.Wins
		}
		return ranked[i].UserID < ranked[j].UserID
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for i := range ranked {
		ranked[i].Rank = i + 1
	}
	return ranked, nil
}

// RecordMatch adds a match result to userID's counters and history.
func (s *StatsService) RecordMatch(ctx context.Context, userID string, in MatchInput) (model.UserStats, error) {
	if in.Kills < 0 {
		return model.UserStats{}, apperrors.ErrInvalidRequest
	}

	var stats model.UserStats
	err := s.withUser(ctx, userID, func(user *model.UserRecord) {
		if in.Won {
			user.Wins++
		} else {
			user.Losses++
		}
		user.TotalKills += in.Kills

		user.Matches = append(user.Matches, model.MatchResult{
			PartyID:    in.PartyID,
			Won:        in.Won,
			Kills:      in.Kills,
			RecordedAt: s.now().UTC(),
		})
		if n := len(user.Matches); n > maxMatchHistory {
			user.Matches = append([]model.MatchResult(nil), user.Matches[n-maxMatchHistory:]...)
		}
		stats = user.Stats()
	})
	if err != nil {
		return model.UserStats{}, fmt.Errorf("failed to record match: %w", err)
	}

	log.Info().
		Str("user_id", userID).
		Bool("won", in.Won).
		Int("kills", in.Kills).
		Int("points", stats.Points).
		Msg("Match recorded")
	return stats, nil
}

// TouchIdentity refreshes the identity snapshot of userID after a login.
func (s *StatsService) TouchIdentity(ctx context.Context, userID, username, avatar string) error {
	return s.withUser(ctx, userID, func(user *model.UserRecord) {
		now := s.now().UTC()
		user.Username = username
		user.Avatar = avatar
		user.LastLogin = &now
	})
}

func (s *StatsService) withUser(ctx context.Context, userID string, fn func(user *model.UserRecord)) error {
	err := s.locks.WithLockContext(ctx, repository.UserKey(userID), s.lockTimeout, func() error {
		user, err := s.users.GetOrDefault(ctx, userID)
		if err != nil {
			return err
		}
		fn(user)
		return s.users.Save(ctx, user)
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return apperrors.Unavailable(err)
	}
	return err
}
