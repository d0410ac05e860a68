package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"discord-party-bot/internal/event"
	"discord-party-bot/internal/pkg/lock"
	"discord-party-bot/internal/repository"
	"discord-party-bot/internal/store"
)

const testAdminID = "100000000000000001"

// testEnv wires the services over an in-memory redis store.
type testEnv struct {
	store   *store.Store
	parties *repository.PartyRepository
	users   *repository.UserRepository
	perms   *repository.PermissionRepository
	locks   *lock.KeyLock
	bus     *event.Bus

	party *PartyService
	stats *StatsService
	roles *RoleService
	guard *AccessGuard
}

func setupEnv(t *testing.T) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	s := store.New(store.NewRedisBackend(client, "test:"))
	env := &testEnv{
		store:   s,
		parties: repository.NewPartyRepository(s),
		users:   repository.NewUserRepository(s),
		perms:   repository.NewPermissionRepository(s),
		locks:   lock.NewKeyLock(),
		bus:     event.NewBus(),
	}

	env.party = NewPartyService(env.parties, env.users, env.bus, env.locks)
	env.stats = NewStatsService(env.users, env.locks)
	env.roles = NewRoleService(env.perms, env.users, func(id string) bool { return id == testAdminID }, time.Minute)
	env.guard = NewAccessGuard(env.roles)
	return env
}

// fixedClock returns a clock that advances by step on every call.
func fixedClock(start time.Time, step time.Duration) func() time.Time {
	now := start
	return func() time.Time {
		t := now
		now = now.Add(step)
		return t
	}
}

// eventRecorder collects published events in order.
type eventRecorder struct {
	events []event.PartyEvent
}

func (r *eventRecorder) kinds() []event.Kind {
	kinds := make([]event.Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func recordEvents(t *testing.T, bus *event.Bus) *eventRecorder {
	t.Helper()
	rec := &eventRecorder{}
	bus.Subscribe("recorder", func(_ context.Context, e event.PartyEvent) error {
		rec.events = append(rec.events, e)
		return nil
	})
	return rec
}

func mustCreate(t *testing.T, env *testEnv, partyType, creator string, minScore int) string {
	t.Helper()
	id, err := env.party.Create(context.Background(), CreatePartyInput{
		CreatorID:   creator,
		CreatorName: "creator-" + creator,
		Type:        partyType,
		Title:       "토요일 " + partyType,
		StartTime:   "2026-10-17T21:00",
		MinScore:    minScore,
	})
	require.NoError(t, err)
	return id
}
