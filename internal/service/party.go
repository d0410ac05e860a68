package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/apperrors"
	"discord-party-bot/internal/event"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/pkg/lock"
	"discord-party-bot/internal/repository"
)

// DefaultLockTimeout bounds how long an operation waits for a busy party.
const DefaultLockTimeout = 10 * time.Second

// CreatePartyInput holds the fields of a new party.
type CreatePartyInput struct {
	CreatorID    string
	CreatorName  string
	Type         string
	Title        string
	Description  string
	StartTime    string
	Requirements string
	MinScore     int
}

// JoinPartyInput holds the fields of a join request.
type JoinPartyInput struct {
	PartyID        string
	UserID         string
	Username       string
	SelectedClass  string
	SelectedNation string
}

// ActiveParty is a recruiting party enriched with display metadata.
type ActiveParty struct {
	model.Party
	Icon           string `json:"icon"`
	TypeName       string `json:"typeName"`
	CurrentMembers int    `json:"currentMembers"`
}

// PartyView is a party split into teams for display.
type PartyView struct {
	Party       *model.Party           `json:"party"`
	Type        model.PartyType        `json:"partyType"`
	Teams       map[int][]model.Member `json:"teams"`
	WaitingRoom []model.Member         `json:"waitingRoom"`
}

// PartyService implements the party lifecycle. Every mutation of a party runs
// under that party's lock; events are published after the lock is released.
type PartyService struct {
	parties     *repository.PartyRepository
	users       *repository.UserRepository
	bus         *event.Bus
	locks       *lock.KeyLock
	lockTimeout time.Duration
	now         func() time.Time

	idMu   sync.Mutex
	lastID int64
}

// NewPartyService creates a new PartyService instance.
func NewPartyService(
	parties *repository.PartyRepository,
	users *repository.UserRepository,
	bus *event.Bus,
	locks *lock.KeyLock,
) *PartyService {
	return &PartyService{
		parties:     parties,
		users:       users,
		bus:         bus,
		locks:       locks,
		lockTimeout: DefaultLockTimeout,
		now:         time.Now,
	}
}

// nextID returns the creation time in milliseconds, bumped to stay unique.
func (s *PartyService) nextID() string {
	s.idMu.Lock()
	defer s.idMu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return strconv.FormatInt(id, 10)
}

// Create creates a recruiting party and returns its id.
func (s *PartyService) Create(ctx context.Context, in CreatePartyInput) (string, error) {
	pt, ok := model.LookupPartyType(in.Type)
	if !ok {
		return "", apperrors.ErrUnknownPartyType
	}
	if in.MinScore < 0 {
		return "", apperrors.ErrInvalidRequest
	}

	party := &model.Party{
		ID:            s.nextID(),
		Type:          pt.Key,
		Title:         in.Title,
		Description:   in.Description,
		Requirements:  in.Requirements,
		StartTime:     in.StartTime,
		MinScore:      in.MinScore,
		MaxMembers:    pt.MaxMembers(),
		CreatedBy:     in.CreatorID,
		CreatedByName: in.CreatorName,
		CreatedAt:     s.now().UTC(),
		Status:        model.StatusRecruiting,
		Members:       []model.Member{},
	}

	err := s.locks.WithLock(repository.PartyKey(party.ID), func() error {
		return s.parties.Save(ctx, party)
	})
	if err != nil {
		return "", fmt.Errorf("failed to create party: %w", err)
	}

	log.Info().
		Str("party_id", party.ID).
		Str("type", party.Type).
		Str("creator", in.CreatorName).
		Msg("Party created")

	s.bus.Publish(ctx, event.PartyEvent{Kind: event.PartyCreated, Party: party})
	return party.ID, nil
}

// mutate loads a party under its lock, applies fn and saves the result.
// fn returns the event to publish, or "" to leave the party untouched.
func (s *PartyService) mutate(ctx context.Context, partyID string, fn func(p *model.Party) (event.Kind, error)) error {
	var (
		kind     event.Kind
		snapshot *model.Party
	)

	err := s.locks.WithLockContext(ctx, repository.PartyKey(partyID), s.lockTimeout, func() error {
		party, err := s.parties.Get(ctx, partyID)
		if err != nil {
			return err
		}

		kind, err = fn(party)
		if err != nil || kind == "" {
			return err
		}

		if err := s.parties.Save(ctx, party); err != nil {
			return err
		}
		snapshot = party
		return nil
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return apperrors.Unavailable(err)
	}
	if err != nil {
		return err
	}

	if snapshot != nil {
		s.bus.Publish(ctx, event.PartyEvent{Kind: kind, Party: snapshot})
	}
	return nil
}

// Join adds userID to the party's waiting room.
// Capacity is not checked here, only when a team is chosen.
func (s *PartyService) Join(ctx context.Context, in JoinPartyInput) error {
	return s.mutate(ctx, in.PartyID, func(p *model.Party) (event.Kind, error) {
		if p.IsMember(in.UserID) {
			return "", apperrors.ErrAlreadyJoined
		}

		user, err := s.users.GetOrDefault(ctx, in.UserID)
		if err != nil {
			return "", err
		}
		stats := user.Stats()
		if p.MinScore > 0 && stats.Points < p.MinScore {
			return "", &apperrors.InsufficientScoreError{Required: p.MinScore, Current: stats.Points}
		}

		member := model.Member{
			UserID:         in.UserID,
			Username:       in.Username,
			SelectedClass:  in.SelectedClass,
			SelectedNation: in.SelectedNation,
			Team:           model.WaitingRoom,
			JoinedAt:       s.now().UTC(),
			Stats:          stats,
		}
		if c, ok := model.LookupClass(in.SelectedClass); ok {
			member.ClassInfo = c
		}
		if n, ok := model.LookupNation(in.SelectedNation); ok {
			member.NationInfo = n
		}
		p.Members = append(p.Members, member)

		log.Info().Str("party_id", p.ID).Str("user_id", in.UserID).Msg("Party joined")
		return event.PartyUpdated, nil
	})
}

// Move assigns a member to team. Team 0 is the waiting room and never full.
func (s *PartyService) Move(ctx context.Context, partyID, userID string, team int) error {
	return s.mutate(ctx, partyID, func(p *model.Party) (event.Kind, error) {
		idx := p.MemberIndex(userID)
		if idx < 0 {
			return "", apperrors.ErrNotAMember
		}

		pt, ok := model.LookupPartyType(p.Type)
		if !ok {
			return "", apperrors.ErrUnknownPartyType
		}
		if team < model.WaitingRoom || team > pt.Teams {
			return "", apperrors.ErrInvalidTeam
		}

		// The caller counts too, so re-selecting a full team fails.
		if team != model.WaitingRoom && p.TeamSize(team) >= pt.MaxPerTeam {
			return "", apperrors.ErrTeamFull
		}

		p.Members[idx].Team = team

		log.Info().Str("party_id", p.ID).Str("user_id", userID).Int("team", team).Msg("Team changed")
		return event.PartyUpdated, nil
	})
}

// Leave removes userID from the party. Leaving a party one is not in succeeds.
func (s *PartyService) Leave(ctx context.Context, partyID, userID string) error {
	return s.mutate(ctx, partyID, func(p *model.Party) (event.Kind, error) {
		members := p.Members[:0]
		for _, m := range p.Members {
			if m.UserID != userID {
				members = append(members, m)
			}
		}
		p.Members = members

		log.Info().Str("party_id", p.ID).Str("user_id", userID).Msg("Party left")
		return event.PartyUpdated, nil
	})
}

// Cancel cancels the party. Only the creator may cancel; cancelling twice is a no-op.
func (s *PartyService) Cancel(ctx context.Context, partyID, callerID string) error {
	return s.mutate(ctx, partyID, func(p *model.Party) (event.Kind, error) {
		if p.CreatedBy != callerID {
			return "", apperrors.ErrNotCreator
		}
		if p.Status == model.StatusCancelled {
			return "", nil
		}

		now := s.now().UTC()
		p.Status = model.StatusCancelled
		p.CancelledAt = &now

		log.Warn().Str("party_id", p.ID).Str("title", p.Title).Msg("Party cancelled")
		return event.PartyCancelled, nil
	})
}

// AttachAnnouncement records the external message carrying the party's announcement.
func (s *PartyService) AttachAnnouncement(ctx context.Context, partyID, ref string) error {
	err := s.locks.WithLockContext(ctx, repository.PartyKey(partyID), s.lockTimeout, func() error {
		party, err := s.parties.Get(ctx, partyID)
		if err != nil {
			return err
		}
		if party.AnnouncementRef == ref {
			return nil
		}
		party.AnnouncementRef = ref
		return s.parties.Save(ctx, party)
	})
	if errors.Is(err, lock.ErrLockTimeout) {
		return apperrors.Unavailable(err)
	}
	return err
}

// Get returns a party split into teams.
func (s *PartyService) Get(ctx context.Context, partyID string) (*PartyView, error) {
	party, err := s.parties.Get(ctx, partyID)
	if err != nil {
		return nil, err
	}

	pt, ok := model.LookupPartyType(party.Type)
	if !ok {
		return nil, apperrors.ErrUnknownPartyType
	}

	view := &PartyView{
		Party:       party,
		Type:        pt,
		Teams:       make(map[int][]model.Member, pt.Teams),
		WaitingRoom: []model.Member{},
	}
	for team := 1; team <= pt.Teams; team++ {
		view.Teams[team] = []model.Member{}
	}
	for _, m := range party.Members {
		if _, ok := view.Teams[m.Team]; ok {
			view.Teams[m.Team] = append(view.Teams[m.Team], m)
		} else {
			view.WaitingRoom = append(view.WaitingRoom, m)
		}
	}
	return view, nil
}

// ListActive returns recruiting parties, newest first.
func (s *PartyService) ListActive(ctx context.Context) ([]ActiveParty, error) {
	parties, err := s.parties.List(ctx)
	if err != nil {
		return nil, err
	}

	active := make([]ActiveParty, 0, len(parties))
	for _, p := range parties {
		if !p.IsActive() {
			continue
		}
		ap := ActiveParty{Party: *p, CurrentMembers: len(p.Members)}
		if pt, ok := model.LookupPartyType(p.Type); ok {
			ap.Icon = pt.Icon
			ap.TypeName = pt.Name
		}
		active = append(active, ap)
	}

	sort.SliceStable(active, func(i, j int) bool {
		if !active[i].CreatedAt.Equal(active[j].CreatedAt) {
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
		return active[i].ID > active[j].ID
	})
	return active, nil
}
