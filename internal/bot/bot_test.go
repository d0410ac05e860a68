package bot

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-party-bot/internal/config"
)

// fakeSession records outgoing messages and interaction responses.
type fakeSession struct {
	sent      []*discordgo.MessageSend
	responses []*discordgo.InteractionResponse
}

func (s *fakeSession) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	s.sent = append(s.sent, data)
	return &discordgo.Message{ID: "1", ChannelID: channelID}, nil
}

func (s *fakeSession) InteractionRespond(_ *discordgo.Interaction, resp *discordgo.InteractionResponse, _ ...discordgo.RequestOption) error {
	s.responses = append(s.responses, resp)
	return nil
}

func (s *fakeSession) HeartbeatLatency() time.Duration { return 42 * time.Millisecond }

// testModule records the events it receives.
type testModule struct {
	name     string
	commands []string
	buttons  []string
	events   []*Event
	panicOn  string
}

func (m *testModule) Name() string        { return m.name }
func (m *testModule) Description() string { return "test module" }

func (m *testModule) handle(_ context.Context, e *Event) error {
	if e.Command != "" && e.Command == m.panicOn {
		panic("boom")
	}
	m.events = append(m.events, e)
	return nil
}

func (m *testModule) Commands() []Command {
	cmds := make([]Command, 0, len(m.commands))
	for _, c := range m.commands {
		cmds = append(cmds, Command{Name: c, Handler: m.handle})
	}
	return cmds
}

func (m *testModule) Components() map[string]HandlerFunc {
	out := make(map[string]HandlerFunc, len(m.buttons))
	for _, b := range m.buttons {
		out[b] = m.handle
	}
	return out
}

func testConfig(guilds ...string) *config.Config {
	return &config.Config{Bot: config.BotConfig{Prefix: "!", Guilds: guilds}}
}

func message(guildID, userID, content string) *discordgo.Message {
	return &discordgo.Message{
		ID:        "m1",
		GuildID:   guildID,
		ChannelID: "c1",
		Content:   content,
		Author:    &discordgo.User{ID: userID, Username: "user" + userID},
	}
}

// ============================================================================
// Registry Tests
// ============================================================================

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()
	m := &testModule{name: "party", commands: []string{"party", "파티모집"}, buttons: []string{"party_my_stats"}}

	require.NoError(t, r.Register(m))
	assert.Equal(t, 1, r.Count())

	_, ok := r.Command("파티모집")
	assert.True(t, ok)
	_, ok = r.Component("party_my_stats")
	assert.True(t, ok)
	_, ok = r.Command("dice")
	assert.False(t, ok)
}

func TestRegistry_RejectsInvalidModules(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&testModule{name: "party", commands: []string{"party"}, buttons: []string{"b"}}))

	assert.Error(t, r.Register(nil))
	assert.Error(t, r.Register(&testModule{name: ""}))
	assert.Error(t, r.Register(&testModule{name: "party"}))
	assert.Error(t, r.Register(&testModule{name: "other", commands: []string{"party"}}))
	assert.Error(t, r.Register(&testModule{name: "third", buttons: []string{"b"}}))

	// A rejected module leaves nothing behind.
	assert.Equal(t, 1, r.Count())
	_, ok := r.Command("party")
	assert.True(t, ok)
}

func TestRegistry_ListIsSorted(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&testModule{name: "party"}))
	require.NoError(t, r.Register(&testModule{name: "general"}))

	modules := r.List()
	require.Len(t, modules, 2)
	assert.Equal(t, "general", modules[0].Name())
	assert.Equal(t, "party", modules[1].Name())
}

// ============================================================================
// Dispatch Tests
// ============================================================================

func TestParseCommand(t *testing.T) {
	tests := []struct {
		content string
		name    string
		args    []string
		ok      bool
	}{
		{"!party", "party", []string{}, true},
		{"  !PING now ", "ping", []string{"now"}, true},
		{"!파티모집", "파티모집", []string{}, true},
		{"party", "", nil, false},
		{"!", "", nil, false},
	}

	for _, tt := range tests {
		name, args, ok := parseCommand("!", tt.content)
		assert.Equal(t, tt.ok, ok, tt.content)
		if tt.ok {
			assert.Equal(t, tt.name, name)
			assert.Equal(t, tt.args, args)
		}
	}
}

func TestBot_DispatchMessage(t *testing.T) {
	registry := NewRegistry()
	m := &testModule{name: "party", commands: []string{"party"}}
	require.NoError(t, registry.Register(m))
	b := newBot(testConfig(), registry)
	s := &fakeSession{}
	ctx := context.Background()

	b.dispatchMessage(ctx, s, message("g1", "7", "!party now"))
	b.dispatchMessage(ctx, s, message("g1", "7", "!unknown"))
	b.dispatchMessage(ctx, s, message("g1", "7", "hello"))

	botMsg := message("g1", "8", "!party")
	botMsg.Author.Bot = true
	b.dispatchMessage(ctx, s, botMsg)

	require.Len(t, m.events, 1)
	e := m.events[0]
	assert.Equal(t, "party", e.Command)
	assert.Equal(t, []string{"now"}, e.Args)
	assert.Equal(t, "7", e.UserID)
	assert.Equal(t, "g1", e.GuildID)
}

func TestBot_DispatchInteraction(t *testing.T) {
	registry := NewRegistry()
	m := &testModule{name: "party", buttons: []string{"party_my_stats"}}
	require.NoError(t, registry.Register(m))
	b := newBot(testConfig(), registry)

	i := &discordgo.Interaction{
		Type:      discordgo.InteractionMessageComponent,
		GuildID:   "g1",
		ChannelID: "c1",
		Member:    &discordgo.Member{User: &discordgo.User{ID: "7", Username: "lee"}},
		Data:      discordgo.MessageComponentInteractionData{CustomID: "party_my_stats"},
	}
	b.dispatchInteraction(context.Background(), &fakeSession{}, i)

	require.Len(t, m.events, 1)
	assert.Equal(t, "party_my_stats", m.events[0].CustomID)
	assert.Equal(t, "7", m.events[0].UserID)
	assert.Equal(t, "lee", m.events[0].Username)
}

// ============================================================================
// Middleware Tests
// ============================================================================

func TestGuildWhitelistMiddleware(t *testing.T) {
	registry := NewRegistry()
	m := &testModule{name: "party", commands: []string{"party"}}
	require.NoError(t, registry.Register(m))
	b := newBot(testConfig("g1"), registry)
	s := &fakeSession{}
	ctx := context.Background()

	b.dispatchMessage(ctx, s, message("g2", "7", "!party"))
	assert.Empty(t, m.events, "other guilds are ignored")

	b.dispatchMessage(ctx, s, message("", "7", "!party"))
	assert.Empty(t, m.events, "unknown users cannot use direct messages")

	b.dispatchMessage(ctx, s, message("g1", "7", "!party"))
	b.dispatchMessage(ctx, s, message("", "7", "!party"))
	assert.Len(t, m.events, 2, "users seen in an allowed guild can use direct messages")
}

func TestGuildWhitelistMiddleware_EmptyWhitelistAllowsAll(t *testing.T) {
	registry := NewRegistry()
	m := &testModule{name: "party", commands: []string{"party"}}
	require.NoError(t, registry.Register(m))
	b := newBot(testConfig(), registry)

	b.dispatchMessage(context.Background(), &fakeSession{}, message("g9", "7", "!party"))
	b.dispatchMessage(context.Background(), &fakeSession{}, message("", "8", "!party"))
	assert.Len(t, m.events, 2)
}

func TestRecoveryMiddleware(t *testing.T) {
	registry := NewRegistry()
	m := &testModule{name: "party", commands: []string{"party"}, panicOn: "party"}
	require.NoError(t, registry.Register(m))
	b := newBot(testConfig(), registry)
	s := &fakeSession{}

	require.NotPanics(t, func() {
		b.dispatchMessage(context.Background(), s, message("g1", "7", "!party"))
	})
	require.Len(t, s.sent, 1)
	assert.Contains(t, s.sent[0].Content, "내부 오류")
	require.NotNil(t, s.sent[0].Reference)
	assert.Equal(t, "m1", s.sent[0].Reference.MessageID)
}

func TestEvent_ReplyEphemeral(t *testing.T) {
	s := &fakeSession{}
	e := &Event{Session: s, Interaction: &discordgo.Interaction{ID: "i1"}}

	require.NoError(t, e.ReplyEphemeral(context.Background(), &discordgo.MessageEmbed{Title: "stats"}))

	require.Len(t, s.responses, 1)
	resp := s.responses[0]
	assert.Equal(t, discordgo.InteractionResponseChannelMessageWithSource, resp.Type)
	assert.Equal(t, discordgo.MessageFlagsEphemeral, resp.Data.Flags)
	assert.Equal(t, "stats", resp.Data.Embeds[0].Title)
}
