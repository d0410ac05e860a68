// Package embed builds Discord embeds with the bot's shared branding.
package embed

import (
	"time"

	"github.com/bwmarrin/discordgo"

	"discord-party-bot/internal/config"
)

// Embed colors.
const (
	ColorSuccess = 0x00FF00
	ColorError   = 0xFF0000
	ColorWarning = 0xFFFF00
	ColorInfo    = 0x0099FF
	ColorDefault = 0x7289DA
)

// Options describes the content of one embed. Zero fields are omitted.
type Options struct {
	Title       string
	Description string
	Color       int
	Fields      []*discordgo.MessageEmbedField
	Thumbnail   string
	Footer      string
	FooterIcon  string
	NoTimestamp bool
}

// Builder applies the configured author and footer to every embed.
type Builder struct {
	authorName string
	authorIcon string
	footerText string
	now        func() time.Time
}

// NewBuilder creates a Builder from the embed configuration.
func NewBuilder(cfg config.EmbedConfig) *Builder {
	return &Builder{
		authorName: cfg.AuthorName,
		authorIcon: cfg.AuthorIcon,
		footerText: cfg.FooterText,
		now:        time.Now,
	}
}

// New builds an embed from opts.
func (b *Builder) New(opts Options) *discordgo.MessageEmbed {
	color := opts.Color
	if color == 0 {
		color = ColorDefault
	}

	e := &discordgo.MessageEmbed{
		Title:       opts.Title,
		Description: opts.Description,
		Color:       color,
		Fields:      opts.Fields,
	}
	if b.authorName != "" {
		e.Author = &discordgo.MessageEmbedAuthor{Name: b.authorName, IconURL: b.authorIcon}
	}
	if opts.Thumbnail != "" {
		e.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: opts.Thumbnail}
	}
	if !opts.NoTimestamp {
		e.Timestamp = b.now().UTC().Format(time.RFC3339)
	}

	footer := opts.Footer
	if footer == "" {
		footer = b.footerText
	}
	if footer != "" {
		e.Footer = &discordgo.MessageEmbedFooter{Text: footer, IconURL: opts.FooterIcon}
	}
	return e
}

// Success builds a green embed.
func (b *Builder) Success(title, description string) *discordgo.MessageEmbed {
	return b.New(Options{Title: title, Description: description, Color: ColorSuccess})
}

// Error builds a red embed.
func (b *Builder) Error(title, description string) *discordgo.MessageEmbed {
	return b.New(Options{Title: title, Description: description, Color: ColorError})
}

// Field is shorthand for an embed field.
func Field(name, value string, inline bool) *discordgo.MessageEmbedField {
	return &discordgo.MessageEmbedField{Name: name, Value: value, Inline: inline}
}
