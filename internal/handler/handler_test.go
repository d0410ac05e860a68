package handler

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"discord-party-bot/internal/bot"
	"discord-party-bot/internal/config"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/pkg/embed"
	"discord-party-bot/internal/service"
)

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

func (s *fakeSession) HeartbeatLatency() time.Duration { return 87 * time.Millisecond }

type fakeStats struct {
	stats model.UserStats
	err   error
}

func (f *fakeStats) GetStats(context.Context, string) (model.UserStats, error) {
	return f.stats, f.err
}

func testEmbeds() *embed.Builder {
	return embed.NewBuilder(config.EmbedConfig{AuthorName: "Aimdot.dev", FooterText: "🔺DEUS VULT"})
}

func TestPartyHandler_Menu(t *testing.T) {
	h := NewPartyHandler(&fakeStats{}, testEmbeds(), "https://party.example.com/")
	s := &fakeSession{}
	e := &bot.Event{Session: s, ChannelID: "c1", Message: &discordgo.Message{ID: "m1", ChannelID: "c1"}}

	require.NoError(t, h.HandleMenu(context.Background(), e))

	require.Len(t, s.sent, 1)
	msg := s.sent[0]
	require.Len(t, msg.Embeds, 1)
	assert.Equal(t, "⚔️ 클랜 파티 모집 시스템", msg.Embeds[0].Title)
	assert.Contains(t, msg.Embeds[0].Fields[0].Value, "+ ⚔️ 모의전")
	assert.Contains(t, msg.Embeds[0].Fields[1].Value, "https://party.example.com/party)")

	row := msg.Components[0].(discordgo.ActionsRow)
	link := row.Components[0].(discordgo.Button)
	stats := row.Components[1].(discordgo.Button)
	assert.Equal(t, "https://party.example.com/party/create", link.URL)
	assert.Equal(t, ButtonMyStats, stats.CustomID)
}

func TestPartyHandler_MyStats(t *testing.T) {
	h := NewPartyHandler(&fakeStats{stats: model.ComputeStats(3, 1, 10)}, testEmbeds(), "https://party.example.com")
	s := &fakeSession{}
	e := &bot.Event{Session: s, UserID: "7", CustomID: ButtonMyStats, Interaction: &discordgo.Interaction{ID: "i1"}}

	require.NoError(t, h.HandleMyStats(context.Background(), e))

	require.Len(t, s.responses, 1)
	data := s.responses[0].Data
	assert.Equal(t, discordgo.MessageFlagsEphemeral, data.Flags)
	require.Len(t, data.Embeds, 1)
	fields := data.Embeds[0].Fields
	require.Len(t, fields, 6)
	assert.Equal(t, "**360**점", fields[0].Value)
	assert.Equal(t, "**4**판", fields[1].Value)
	assert.Equal(t, "**75%**", fields[2].Value)
	assert.Equal(t, "**2.5**킬", fields[5].Value)
	assert.Equal(t, "<@7>님의 전투 기록", data.Embeds[0].Description)
}

func TestPartyHandler_MyStatsFailure(t *testing.T) {
	h := NewPartyHandler(&fakeStats{err: errors.New("redis down")}, testEmbeds(), "")
	s := &fakeSession{}
	e := &bot.Event{Session: s, UserID: "7", Interaction: &discordgo.Interaction{ID: "i1"}}

	require.NoError(t, h.HandleMyStats(context.Background(), e))
	require.Len(t, s.responses, 1)
	assert.Equal(t, "❌ 오류 발생", s.responses[0].Data.Embeds[0].Title)
}

func TestGeneralHandler(t *testing.T) {
	registry := bot.NewRegistry()
	general := NewGeneralHandler(registry, testEmbeds(), "!", "Aimdot")
	require.NoError(t, registry.Register(general))
	require.NoError(t, registry.Register(NewPartyHandler(&fakeStats{}, testEmbeds(), "")))

	s := &fakeSession{}
	e := &bot.Event{Session: s, ChannelID: "c1"}
	ctx := context.Background()

	require.NoError(t, general.HandleHelp(ctx, e))
	require.Len(t, s.sent, 1)
	help := s.sent[0].Embeds[0]
	assert.Equal(t, "로드된 모듈: **2**개", help.Description)
	require.Len(t, help.Fields, 2)
	assert.Contains(t, help.Fields[1].Value, "`!파티모집`")

	require.NoError(t, general.HandlePing(ctx, e))
	require.Len(t, s.sent, 2)
	assert.Contains(t, s.sent[1].Embeds[0].Description, "87ms")
}

type fakeBoard struct {
	ranked []service.RankedUser
	err    error
}

func (f *fakeBoard) Leaderboard(_ context.Context, limit int) ([]service.RankedUser, error) {
	if limit > 0 && len(f.ranked) > limit {
		return f.ranked[:limit], f.err
	}
	return f.ranked, f.err
}

func TestRankingHandler(t *testing.T) {
	board := &fakeBoard{ranked: []service.RankedUser{
		{Rank: 1, UserID: "3", Username: "kim", Stats: model.ComputeStats(1, 1, 0)},
		{Rank: 2, UserID: "2", Username: "", Stats: model.ComputeStats(1, 0, 5)},
		{Rank: 3, UserID: "1", Username: "lee", Stats: model.ComputeStats(1, 0, 0)},
		{Rank: 4, UserID: "4", Username: "park", Stats: model.ComputeStats(1, 0, 0)},
	}}
	h := NewRankingHandler(board, testEmbeds())
	s := &fakeSession{}

	require.NoError(t, h.HandleRanking(context.Background(), &bot.Event{Session: s, ChannelID: "c1"}))

	require.Len(t, s.sent, 1)
	lines := strings.Split(s.sent[0].Embeds[0].Description, "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "🥇 **kim** 150점 (1승 1패, 승률 50%)", lines[0])
	assert.Equal(t, "🥈 **<@2>** 105점 (1승 0패, 승률 100%)", lines[1])
	assert.True(t, strings.HasPrefix(lines[3], "4. **park**"))
}

func TestRankingHandler_Empty(t *testing.T) {
	h := NewRankingHandler(&fakeBoard{}, testEmbeds())
	s := &fakeSession{}

	require.NoError(t, h.HandleRanking(context.Background(), &bot.Event{Session: s}))
	assert.Equal(t, "아직 기록된 전투가 없습니다.", s.sent[0].Embeds[0].Description)
}
