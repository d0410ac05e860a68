// Package handler provides Discord bot command modules.
package handler

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/bot"
	"discord-party-bot/internal/model"
	"discord-party-bot/internal/pkg/embed"
)

// Component ids of the party menu.
const (
	ButtonMyStats = "party_my_stats"
)

// StatsReader is the part of the stats service the party module needs.
type StatsReader interface {
	GetStats(ctx context.Context, userID string) (model.UserStats, error)
}

// PartyHandler shows the recruitment menu and personal statistics.
type PartyHandler struct {
	stats  StatsReader
	embeds *embed.Builder
	webURL string
}

// NewPartyHandler creates a new PartyHandler.
func NewPartyHandler(stats StatsReader, embeds *embed.Builder, webURL string) *PartyHandler {
	return &PartyHandler{
		stats:  stats,
		embeds: embeds,
		webURL: strings.TrimRight(webURL, "/"),
	}
}

// Name implements bot.Module.
func (h *PartyHandler) Name() string { return "party" }

// Description implements bot.Module.
func (h *PartyHandler) Description() string { return "파티 모집 시스템" }

// Commands implements bot.Module.
func (h *PartyHandler) Commands() []bot.Command {
	return []bot.Command{
		{Name: "파티모집", Description: "파티 모집 메뉴를 표시합니다.", Handler: h.HandleMenu},
		{Name: "party", Description: "파티 모집 메뉴를 표시합니다.", Handler: h.HandleMenu},
	}
}

// Components implements bot.ComponentModule.
func (h *PartyHandler) Components() map[string]bot.HandlerFunc {
	return map[string]bot.HandlerFunc{
		ButtonMyStats: h.HandleMyStats,
	}
}

// HandleMenu replies with the recruitment menu.
func (h *PartyHandler) HandleMenu(ctx context.Context, e *bot.Event) error {
	var types strings.Builder
	types.WriteString("```diff\n")
	for _, pt := range model.PartyTypes() {
		fmt.Fprintf(&types, "%s %s %s\n", typeMarker(pt.Key), pt.Icon, pt.Name)
	}
	types.WriteString("```")

	menu := h.embeds.New(embed.Options{
		Title:       "⚔️ 클랜 파티 모집 시스템",
		Description: "```\n🔥 전투를 준비하라! 🔥\n```\n> 클랜원들과 함께하는 전략적 전투 시스템\n",
		Color:       embed.ColorError,
		Fields: []*discordgo.MessageEmbedField{
			embed.Field("📋 파티 타입", types.String(), false),
			embed.Field("🌐 웹 대시보드", fmt.Sprintf("[파티 생성 및 관리하기](%s/party)", h.webURL), true),
			embed.Field("📊 내 전적", "아래 버튼을 클릭하여 확인", true),
		},
	})

	buttons := []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label: "웹에서 파티 생성",
					Style: discordgo.LinkButton,
					URL:   h.webURL + "/party/create",
					Emoji: &discordgo.ComponentEmoji{Name: "🌐"},
				},
				discordgo.Button{
					Label:    "내 전적 보기",
					Style:    discordgo.PrimaryButton,
					CustomID: ButtonMyStats,
					Emoji:    &discordgo.ComponentEmoji{Name: "📊"},
				},
			},
		},
	}

	if err := e.Reply(ctx, "", []*discordgo.MessageEmbed{menu}, buttons); err != nil {
		return fmt.Errorf("failed to send party menu: %w", err)
	}

	log.Info().Str("user", e.Username).Msg("Party menu shown")
	return nil
}

// HandleMyStats replies privately with the caller's detailed statistics.
func (h *PartyHandler) HandleMyStats(ctx context.Context, e *bot.Event) error {
	stats, err := h.stats.GetStats(ctx, e.UserID)
	if err != nil {
		log.Error().Err(err).Str("user_id", e.UserID).Msg("Failed to load stats")
		return e.ReplyEphemeral(ctx, h.embeds.Error("❌ 오류 발생", "통계를 불러올 수 없습니다."))
	}

	return e.ReplyEphemeral(ctx, h.embeds.New(embed.Options{
		Title:       "📊 상세 전적 정보",
		Description: fmt.Sprintf("<@%s>님의 전투 기록", e.UserID),
		Color:       embed.ColorError,
		Thumbnail:   e.AvatarURL,
		Fields:      statsFields(stats),
	}))
}

func statsFields(s model.UserStats) []*discordgo.MessageEmbedField {
	return []*discordgo.MessageEmbedField{
		embed.Field("🏆 총 점수", fmt.Sprintf("**%d**점", s.Points), true),
		embed.Field("⚔️ 전투 수", fmt.Sprintf("**%d**판", s.TotalGames), true),
		embed.Field("📈 승률", fmt.Sprintf("**%d%%**", s.WinRate), true),
		embed.Field("✅ 승리", fmt.Sprintf("**%d**승", s.Wins), true),
		embed.Field("❌ 패배", fmt.Sprintf("**%d**패", s.Losses), true),
		embed.Field("💀 평균 킬", "**"+strconv.FormatFloat(s.AvgKills, 'f', 1, 64)+"**킬", true),
	}
}

// typeMarker colors a party type line in a diff code block.
func typeMarker(key string) string {
	switch key {
	case "mock_battle", "regular_battle":
		return "+"
	case "black_claw", "pk":
		return "-"
	}
	return "!"
}
