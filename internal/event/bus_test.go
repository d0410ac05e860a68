package event

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-party-bot/internal/model"
)

func TestBus_DeliversByKind(t *testing.T) {
	bus := NewBus()
	var created, all []Kind

	bus.Subscribe("created-only", func(_ context.Context, e PartyEvent) error {
		created = append(created, e.Kind)
		return nil
	}, PartyCreated)
	bus.Subscribe("all", func(_ context.Context, e PartyEvent) error {
		all = append(all, e.Kind)
		return nil
	})

	ctx := context.Background()
	party := &model.Party{ID: "1"}
	bus.Publish(ctx, PartyEvent{Kind: PartyCreated, Party: party})
	bus.Publish(ctx, PartyEvent{Kind: PartyUpdated, Party: party})
	bus.Publish(ctx, PartyEvent{Kind: PartyCancelled, Party: party})

	assert.Equal(t, []Kind{PartyCreated}, created)
	assert.Equal(t, []Kind{PartyCreated, PartyUpdated, PartyCancelled}, all)
	assert.Equal(t, 2, bus.SubscriberCount(PartyCreated))
}

func TestBus_FailingSubscriberIsIsolated(t *testing.T) {
	bus := NewBus()
	var reached bool

	bus.Subscribe("erroring", func(context.Context, PartyEvent) error {
		return errors.New("discord down")
	})
	bus.Subscribe("panicking", func(context.Context, PartyEvent) error {
		panic("nil channel")
	})
	bus.Subscribe("healthy", func(context.Context, PartyEvent) error {
		reached = true
		return nil
	})

	require.NotPanics(t, func() {
		bus.Publish(context.Background(), PartyEvent{Kind: PartyUpdated, Party: &model.Party{ID: "1"}})
	})
	assert.True(t, reached)
}

func TestBus_SubscribersGetIndependentSnapshots(t *testing.T) {
	bus := NewBus()
	var seen []string

	bus.Subscribe("mutator", func(_ context.Context, e PartyEvent) error {
		e.Party.Title = "changed"
		e.Party.Members[0].Team = 2
		return nil
	})
	bus.Subscribe("observer", func(_ context.Context, e PartyEvent) error {
		seen = append(seen, e.Party.Title)
		assert.Equal(t, 0, e.Party.Members[0].Team)
		return nil
	})

	party := &model.Party{ID: "1", Title: "original", Members: []model.Member{{UserID: "a"}}}
	bus.Publish(context.Background(), PartyEvent{Kind: PartyUpdated, Party: party})

	assert.Equal(t, []string{"original"}, seen)
	assert.Equal(t, "original", party.Title)
}
