package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"discord-party-bot/internal/bot"
	"discord-party-bot/internal/pkg/embed"
	"discord-party-bot/internal/service"
)

const rankingSize = 10

// Leaderboard is the part of the stats service the ranking module needs.
type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]service.RankedUser, error)
}

// RankingHandler shows the points leaderboard.
type RankingHandler struct {
	board  Leaderboard
	embeds *embed.Builder
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(board Leaderboard, embeds *embed.Builder) *RankingHandler {
	return &RankingHandler{
		board:  board,
		embeds: embeds,
	}
}

// Name implements bot.Module.
func (h *RankingHandler) Name() string { return "ranking" }

// Description implements bot.Module.
func (h *RankingHandler) Description() string { return "전적 랭킹" }

// Commands implements bot.Module.
func (h *RankingHandler) Commands() []bot.Command {
	return []bot.Command{
		{Name: "랭킹", Description: "점수 상위 10명을 표시합니다.", Handler: h.HandleRanking},
		{Name: "ranking", Description: "점수 상위 10명을 표시합니다.", Handler: h.HandleRanking},
	}
}

// HandleRanking replies with the top players by points.
func (h *RankingHandler) HandleRanking(ctx context.Context, e *bot.Event) error {
	ranked, err := h.board.Leaderboard(ctx, rankingSize)
	if err != nil {
		return e.Reply(ctx, "", []*discordgo.MessageEmbed{
			h.embeds.Error("❌ 오류 발생", "랭킹을 불러올 수 없습니다. 잠시 후 다시 시도해주세요."),
		}, nil)
	}

	var sb strings.Builder
	if len(ranked) == 0 {
		sb.WriteString("아직 기록된 전투가 없습니다.")
	}

	medals := []string{"🥇", "🥈", "🥉"}
	for i, r := range ranked {
		rank := fmt.Sprintf("%d.", r.Rank)
		if i < len(medals) {
			rank = medals[i]
		}

		name := r.Username
		if name == "" {
			name = fmt.Sprintf("<@%s>", r.UserID)
		}

		fmt.Fprintf(&sb, "%s **%s** %d점 (%d승 %d패, 승률 %d%%)\n",
			rank, name, r.Stats.Points, r.Stats.Wins, r.Stats.Losses, r.Stats.WinRate)
	}

	board := h.embeds.New(embed.Options{
		Title:       "🏆 전적 랭킹 TOP 10",
		Description: strings.TrimRight(sb.String(), "\n"),
		Color:       embed.ColorWarning,
	})
	return e.Reply(ctx, "", []*discordgo.MessageEmbed{board}, nil)
}
