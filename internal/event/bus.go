// Package event provides the in-process domain event bus used to decouple
// party operations from announcement delivery.
package event

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/model"
)

// Kind identifies a party lifecycle event.
type Kind string

// Party lifecycle events.
const (
	PartyCreated   Kind = "party:created"
	PartyUpdated   Kind = "party:updated"
	PartyCancelled Kind = "party:cancelled"
)

// PartyEvent carries a snapshot of the party after the change.
type PartyEvent struct {
	Kind  Kind
	Party *model.Party
	At    time.Time
}

// Handler reacts to an event. Returned errors are logged, never propagated.
type Handler func(ctx context.Context, e PartyEvent) error

type subscriber struct {
	name    string
	handler Handler
}

// Bus delivers events synchronously to every subscriber of their kind.
// A failing or panicking subscriber does not affect the publisher or the
// other subscribers.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[Kind][]subscriber
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[Kind][]subscriber)}
}

// Subscribe registers h for the given kinds, or for every party event when none are given.
func (b *Bus) Subscribe(name string, h Handler, kinds ...Kind) {
	if len(kinds) == 0 {
		kinds = []Kind{PartyCreated, PartyUpdated, PartyCancelled}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	for _, k := range kinds {
		b.subscribers[k] = append(b.subscribers[k], subscriber{name: name, handler: h})
	}
}

// SubscriberCount returns the number of subscribers for kind.
func (b *Bus) SubscriberCount(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[kind])
}

// Publish delivers e to every subscriber of e.Kind in registration order.
// Each subscriber gets its own copy of the party.
func (b *Bus) Publish(ctx context.Context, e PartyEvent) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	b.mu.RLock()
	subs := append([]subscriber(nil), b.subscribers[e.Kind]...)
	b.mu.RUnlock()

	for _, s := range subs {
		ev := e
		if e.Party != nil {
			ev.Party = e.Party.Clone()
		}
		if err := deliver(ctx, s, ev); err != nil {
			logEvent := log.Error().Err(err).
				Str("event", string(e.Kind)).
				Str("subscriber", s.name)
			if e.Party != nil {
				logEvent = logEvent.Str("party_id", e.Party.ID)
			}
			logEvent.Msg("Event subscriber failed")
		}
	}

	log.Debug().Str("event", string(e.Kind)).Int("subscribers", len(subs)).Msg("Event published")
}

func deliver(ctx context.Context, s subscriber, e PartyEvent) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.handler(ctx, e)
}
