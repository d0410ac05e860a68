package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"discord-party-bot/internal/pkg/embed"
)

// DiscordMessenger is the subset of *discordgo.Session used by DiscordSink.
type DiscordMessenger interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// DiscordSink posts announcements as embeds in a Discord channel.
// References are message ids within that channel.
type DiscordSink struct {
	api       DiscordMessenger
	channelID string
	embeds    *embed.Builder
}

// NewDiscordSink creates a DiscordSink posting to channelID.
func NewDiscordSink(api DiscordMessenger, channelID string, embeds *embed.Builder) *DiscordSink {
	return &DiscordSink{api: api, channelID: channelID, embeds: embeds}
}

// Name implements Sink.
func (s *DiscordSink) Name() string { return "discord" }

// Render implements Sink.
func (s *DiscordSink) Render(ctx context.Context, a Announcement) (string, error) {
	msg, err := s.api.ChannelMessageSendComplex(s.channelID, &discordgo.MessageSend{
		Content:    a.Banner,
		Embeds:     []*discordgo.MessageEmbed{s.toEmbed(a)},
		Components: toComponents(a.Link),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("failed to send discord message: %w", err)
	}
	return msg.ID, nil
}

// Update implements Sink.
func (s *DiscordSink) Update(ctx context.Context, ref string, a Announcement) error {
	components := toComponents(a.Link)
	edit := discordgo.NewMessageEdit(s.channelID, ref).
		SetContent(a.Banner).
		SetEmbeds([]*discordgo.MessageEmbed{s.toEmbed(a)})
	edit.Components = &components

	return s.edit(ctx, edit)
}

// Retract implements Sink. The embed is kept; only the banner and buttons change.
func (s *DiscordSink) Retract(ctx context.Context, ref string, a Announcement) error {
	components := []discordgo.MessageComponent{}
	edit := discordgo.NewMessageEdit(s.channelID, ref).SetContent(a.Banner)
	edit.Components = &components

	return s.edit(ctx, edit)
}

func (s *DiscordSink) edit(ctx context.Context, edit *discordgo.MessageEdit) error {
	if _, err := s.api.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx)); err != nil {
		if isUnknownMessage(err) {
			return ErrAnnouncementNotFound
		}
		return fmt.Errorf("failed to edit discord message %s: %w", edit.ID, err)
	}
	return nil
}

func (s *DiscordSink) toEmbed(a Announcement) *discordgo.MessageEmbed {
	fields := make([]*discordgo.MessageEmbedField, 0, len(a.Fields))
	for _, f := range a.Fields {
		fields = append(fields, embed.Field(f.Name, f.Value, f.Inline))
	}
	return s.embeds.New(embed.Options{
		Title:       a.Title,
		Description: a.Description,
		Color:       a.Color,
		Fields:      fields,
		Footer:      a.Footer,
	})
}

func toComponents(link *Link) []discordgo.MessageComponent {
	if link == nil {
		return []discordgo.MessageComponent{}
	}
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    link.Label,
					Style:    discordgo.LinkButton,
					URL:      link.URL,
					Emoji:    &discordgo.ComponentEmoji{Name: link.Emoji},
					Disabled: link.Disabled,
				},
			},
		},
	}
}

func isUnknownMessage(err error) bool {
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return false
	}
	if restErr.Message != nil && restErr.Message.Code == discordgo.ErrCodeUnknownMessage {
		return true
	}
	return restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound
}
