package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/event"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/pkg/lock"
)

// AnnouncementStore records which message announces a party.
type AnnouncementStore interface {
	AttachAnnouncement(ctx context.Context, partyID, ref string) error
}

// Relay keeps one announcement per party in sync with party events.
// Delivery is best effort: failures are returned to the bus, which logs them.
type Relay struct {
	sink    Sink
	parties AnnouncementStore
	webURL  string
	locks   *lock.KeyLock

	// refs remembers references attached after the event snapshot was taken.
	mu   sync.Mutex
	refs map[string]string
}

// NewRelay creates a Relay.
func NewRelay(sink Sink, parties AnnouncementStore, webURL string) *Relay {
	return &Relay{
		sink:    sink,
		parties: parties,
		webURL:  webURL,
		locks:   lock.NewKeyLock(),
		refs:    make(map[string]string),
	}
}

// Register subscribes the relay to every party event on bus.
func (r *Relay) Register(bus *event.Bus) {
	bus.Subscribe("notify."+r.sink.Name(), r.Handle)
}

// Handle reconciles the announcement of e.Party with its new state.
func (r *Relay) Handle(ctx context.Context, e event.PartyEvent) error {
	if e.Party == nil {
		return nil
	}
	p := e.Party

	return r.locks.WithLock(p.ID, func() error {
		switch e.Kind {
		case event.PartyCreated:
			return r.render(ctx, p)
		case event.PartyUpdated:
			return r.update(ctx, p)
		case event.PartyCancelled:
			return r.retract(ctx, p)
		}
		return nil
	})
}

func (r *Relay) render(ctx context.Context, p *model.Party) error {
	ref, err := r.sink.Render(ctx, Build(p, r.webURL))
	if err != nil {
		return fmt.Errorf("failed to render announcement: %w", err)
	}

	r.remember(p.ID, ref)
	if err := r.parties.AttachAnnouncement(ctx, p.ID, ref); err != nil {
		return fmt.Errorf("failed to attach announcement: %w", err)
	}

	log.Debug().Str("party_id", p.ID).Str("ref", ref).Str("sink", r.sink.Name()).Msg("Announcement created")
	return nil
}

func (r *Relay) update(ctx context.Context, p *model.Party) error {
	// Retracted is terminal: later changes only refresh the retracted form.
	if !p.IsActive() {
		return r.retract(ctx, p)
	}

	ref := r.refOf(p)
	if ref == "" {
		return r.render(ctx, p)
	}

	err := r.sink.Update(ctx, ref, Build(p, r.webURL))
	if errors.Is(err, ErrAnnouncementNotFound) {
		log.Warn().Str("party_id", p.ID).Str("ref", ref).Msg("Announcement missing, posting a new one")
		return r.render(ctx, p)
	}
	if err != nil {
		return fmt.Errorf("failed to update announcement: %w", err)
	}
	return nil
}

func (r *Relay) retract(ctx context.Context, p *model.Party) error {
	ref := r.refOf(p)
	r.forget(p.ID)
	if ref == "" {
		return nil
	}

	err := r.sink.Retract(ctx, ref, BuildCancelled(p, r.webURL))
	if errors.Is(err, ErrAnnouncementNotFound) {
		log.Warn().Str("party_id", p.ID).Str("ref", ref).Msg("Announcement already gone")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to retract announcement: %w", err)
	}
	return nil
}

// refOf prefers a reference attached after the snapshot over the snapshot's own.
func (r *Relay) refOf(p *model.Party) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ref, ok := r.refs[p.ID]; ok {
		return ref
	}
	return p.AnnouncementRef
}

func (r *Relay) remember(partyID, ref string) {
	r.mu.Lock()
	r.refs[partyID] = ref
	r.mu.Unlock()
}

func (r *Relay) forget(partyID string) {
	r.mu.Lock()
	delete(r.refs, partyID)
	r.mu.Unlock()
}
