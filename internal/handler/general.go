package handler

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"discord-party-bot/internal/bot"
	"discord-party-bot/internal/pkg/embed"
)

// GeneralHandler answers help and ping.
type GeneralHandler struct {
	registry *bot.Registry
	embeds   *embed.Builder
	prefix   string
	botName  string
}

// NewGeneralHandler creates a new GeneralHandler.
func NewGeneralHandler(registry *bot.Registry, embeds *embed.Builder, prefix, botName string) *GeneralHandler {
	return &GeneralHandler{
		registry: registry,
		embeds:   embeds,
		prefix:   prefix,
		botName:  botName,
	}
}

// Name implements bot.Module.
func (h *GeneralHandler) Name() string { return "general" }

// Description implements bot.Module.
func (h *GeneralHandler) Description() string { return "기본 명령어" }

// Commands implements bot.Module.
func (h *GeneralHandler) Commands() []bot.Command {
	return []bot.Command{
		{Name: "help", Description: "명령어 목록을 표시합니다.", Handler: h.HandleHelp},
		{Name: "ping", Description: "봇 응답 속도를 확인합니다.", Handler: h.HandlePing},
	}
}

// HandleHelp lists every module and its commands.
func (h *GeneralHandler) HandleHelp(ctx context.Context, e *bot.Event) error {
	modules := h.registry.List()
	fields := make([]*discordgo.MessageEmbedField, 0, len(modules))
	for _, m := range modules {
		var lines []string
		for _, c := range m.Commands() {
			lines = append(lines, fmt.Sprintf("`%s%s` %s", h.prefix, c.Name, c.Description))
		}
		if len(lines) == 0 {
			continue
		}
		fields = append(fields, embed.Field(fmt.Sprintf("📦 %s - %s", m.Name(), m.Description()), strings.Join(lines, "\n"), false))
	}

	help := h.embeds.New(embed.Options{
		Title:       "📖 " + h.botName + " 도움말",
		Description: fmt.Sprintf("로드된 모듈: **%d**개", len(modules)),
		Color:       embed.ColorInfo,
		Fields:      fields,
	})
	return e.Reply(ctx, "", []*discordgo.MessageEmbed{help}, nil)
}

// HandlePing reports the gateway heartbeat latency.
func (h *GeneralHandler) HandlePing(ctx context.Context, e *bot.Event) error {
	latency := e.Session.HeartbeatLatency().Milliseconds()
	return e.Reply(ctx, "", []*discordgo.MessageEmbed{
		h.embeds.Success("🏓 Pong!", fmt.Sprintf("게이트웨이 지연 시간: **%dms**", latency)),
	}, nil)
}
