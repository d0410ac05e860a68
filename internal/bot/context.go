package bot

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"
)

// Session is the subset of *discordgo.Session used by handlers.
type Session interface {
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	InteractionRespond(interaction *discordgo.Interaction, resp *discordgo.InteractionResponse, options ...discordgo.RequestOption) error
	HeartbeatLatency() time.Duration
}

// Event is one incoming command message or component interaction.
type Event struct {
	Session   Session
	GuildID   string
	ChannelID string
	UserID    string
	Username  string
	AvatarURL string

	// Command and Args are set for text commands.
	Command string
	Args    []string
	Message *discordgo.Message

	// CustomID is set for component interactions.
	CustomID    string
	Interaction *discordgo.Interaction
}

// HandlerFunc handles an Event.
type HandlerFunc func(ctx context.Context, e *Event) error

// MiddlewareFunc wraps a HandlerFunc.
type MiddlewareFunc func(next HandlerFunc) HandlerFunc

// Reply answers the event publicly: a reply to the command message, or a
// channel message for interactions.
func (e *Event) Reply(ctx context.Context, content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	if e.Interaction != nil {
		return e.respond(ctx, content, embeds, components, 0)
	}

	send := &discordgo.MessageSend{
		Content:    content,
		Embeds:     embeds,
		Components: components,
	}
	if e.Message != nil {
		send.Reference = e.Message.SoftReference()
	}
	_, err := e.Session.ChannelMessageSendComplex(e.ChannelID, send, discordgo.WithContext(ctx))
	return err
}

// ReplyEphemeral answers an interaction with a message only the caller sees.
// For text commands it falls back to a normal reply.
func (e *Event) ReplyEphemeral(ctx context.Context, embeds ...*discordgo.MessageEmbed) error {
	if e.Interaction == nil {
		return e.Reply(ctx, "", embeds, nil)
	}
	return e.respond(ctx, "", embeds, nil, discordgo.MessageFlagsEphemeral)
}

func (e *Event) respond(ctx context.Context, content string, embeds []*discordgo.MessageEmbed, components []discordgo.MessageComponent, flags discordgo.MessageFlags) error {
	return e.Session.InteractionRespond(e.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Embeds:     embeds,
			Components: components,
			Flags:      flags,
		},
	}, discordgo.WithContext(ctx))
}
