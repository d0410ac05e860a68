// Package bot provides the Discord gateway session and dispatches commands
// and component interactions to registered modules.
package bot

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/config"
)

// Bot wraps the discordgo session with the module registry.
type Bot struct {
	session  *discordgo.Session
	cfg      *config.Config
	registry *Registry

	onCommand   HandlerFunc
	onComponent HandlerFunc
}

// Dependencies holds everything the bot needs.
type Dependencies struct {
	Config   *config.Config
	Session  *discordgo.Session
	Registry *Registry
}

// NewSession creates a discordgo session with the intents the bot needs.
func NewSession(cfg *config.Config) (*discordgo.Session, error) {
	if cfg.Bot.Token == "" {
		return nil, fmt.Errorf("bot token is required")
	}

	s, err := discordgo.New("Bot " + cfg.Bot.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}
	s.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent
	return s, nil
}

// New creates a Bot and registers its gateway handlers.
func New(deps *Dependencies) (*Bot, error) {
	if deps.Session == nil {
		return nil, fmt.Errorf("discord session is required")
	}
	if deps.Registry == nil {
		deps.Registry = NewRegistry()
	}

	b := newBot(deps.Config, deps.Registry)
	b.session = deps.Session

	b.session.AddHandler(b.handleReady)
	b.session.AddHandler(b.handleMessageCreate)
	b.session.AddHandler(b.handleInteractionCreate)
	return b, nil
}

func newBot(cfg *config.Config, registry *Registry) *Bot {
	b := &Bot{cfg: cfg, registry: registry}

	mws := []MiddlewareFunc{
		RecoveryMiddleware(),
		GuildWhitelistMiddleware(cfg),
		LoggingMiddleware(),
	}
	b.onCommand = chain(b.routeCommand, mws...)
	b.onComponent = chain(b.routeComponent, mws...)
	return b
}

// Start opens the gateway connection.
func (b *Bot) Start() error {
	log.Info().Int("modules", b.registry.Count()).Msg("Starting bot...")
	if err := b.session.Open(); err != nil {
		return fmt.Errorf("failed to open discord session: %w", err)
	}
	return nil
}

// Stop closes the gateway connection.
func (b *Bot) Stop() error {
	log.Info().Msg("Stopping bot...")
	return b.session.Close()
}

// Session returns the underlying discordgo session.
func (b *Bot) Session() *discordgo.Session {
	return b.session
}

func (b *Bot) handleReady(_ *discordgo.Session, r *discordgo.Ready) {
	log.Info().
		Str("user", r.User.String()).
		Int("guilds", len(r.Guilds)).
		Msg("Bot is ready")
}

func (b *Bot) handleMessageCreate(s *discordgo.Session, m *discordgo.MessageCreate) {
	b.dispatchMessage(context.Background(), s, m.Message)
}

func (b *Bot) handleInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	b.dispatchInteraction(context.Background(), s, i.Interaction)
}

// dispatchMessage turns a prefixed message into a command event.
func (b *Bot) dispatchMessage(ctx context.Context, s Session, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot {
		return
	}

	name, args, ok := parseCommand(b.cfg.Bot.Prefix, m.Content)
	if !ok {
		return
	}
	if _, known := b.registry.Command(name); !known {
		return
	}

	e := &Event{
		Session:   s,
		GuildID:   m.GuildID,
		ChannelID: m.ChannelID,
		UserID:    m.Author.ID,
		Username:  m.Author.Username,
		AvatarURL: m.Author.AvatarURL(""),
		Command:   name,
		Args:      args,
		Message:   m,
	}
	_ = b.onCommand(ctx, e)
}

// dispatchInteraction turns a button press into a component event.
func (b *Bot) dispatchInteraction(ctx context.Context, s Session, i *discordgo.Interaction) {
	if i == nil || i.Type != discordgo.InteractionMessageComponent {
		return
	}

	user := i.User
	if i.Member != nil && i.Member.User != nil {
		user = i.Member.User
	}
	if user == nil {
		return
	}

	e := &Event{
		Session:     s,
		GuildID:     i.GuildID,
		ChannelID:   i.ChannelID,
		UserID:      user.ID,
		Username:    user.Username,
		AvatarURL:   user.AvatarURL(""),
		CustomID:    i.MessageComponentData().CustomID,
		Interaction: i,
	}
	_ = b.onComponent(ctx, e)
}

func (b *Bot) routeCommand(ctx context.Context, e *Event) error {
	h, ok := b.registry.Command(e.Command)
	if !ok {
		return nil
	}
	return h(ctx, e)
}

func (b *Bot) routeComponent(ctx context.Context, e *Event) error {
	h, ok := b.registry.Component(e.CustomID)
	if !ok {
		log.Debug().Str("custom_id", e.CustomID).Msg("Unhandled component")
		return nil
	}
	return h(ctx, e)
}

// parseCommand splits "<prefix><name> args..." into its parts.
func parseCommand(prefix, content string) (string, []string, bool) {
	content = strings.TrimSpace(content)
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", nil, false
	}

	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", nil, false
	}
	return strings.ToLower(fields[0]), fields[1:], true
}
