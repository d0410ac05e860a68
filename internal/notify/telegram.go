package notify

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	tele "gopkg.in/telebot.v3"
)

// TelegramSink mirrors announcements into a Telegram chat.
// References have the form "<chatID>:<messageID>".
type TelegramSink struct {
	bot    *tele.Bot
	chatID int64
}

// NewTelegramSink creates a TelegramSink. The bot is created offline; it only
// sends messages and never polls for updates.
func NewTelegramSink(token string, chatID int64, apiURL string) (*TelegramSink, error) {
	bot, err := tele.NewBot(tele.Settings{
		URL:     apiURL,
		Token:   token,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	return &TelegramSink{bot: bot, chatID: chatID}, nil
}

// Name implements Sink.
func (s *TelegramSink) Name() string { return "telegram" }

// Render implements Sink.
func (s *TelegramSink) Render(_ context.Context, a Announcement) (string, error) {
	msg, err := s.bot.Send(tele.ChatID(s.chatID), formatHTML(a), tele.ModeHTML, markup(a.Link))
	if err != nil {
		return "", fmt.Errorf("failed to send telegram message: %w", err)
	}
	return strconv.FormatInt(msg.Chat.ID, 10) + ":" + strconv.Itoa(msg.ID), nil
}

// Update implements Sink.
func (s *TelegramSink) Update(_ context.Context, ref string, a Announcement) error {
	return s.edit(ref, a)
}

// Retract implements Sink.
func (s *TelegramSink) Retract(_ context.Context, ref string, a Announcement) error {
	return s.edit(ref, a)
}

func (s *TelegramSink) edit(ref string, a Announcement) error {
	stored, err := parseTelegramRef(ref)
	if err != nil {
		return err
	}

	_, err = s.bot.Edit(stored, formatHTML(a), tele.ModeHTML, markup(a.Link))
	switch {
	case err == nil:
		return nil
	case strings.Contains(err.Error(), "message to edit not found"):
		return ErrAnnouncementNotFound
	case strings.Contains(err.Error(), "message is not modified"):
		return nil
	}
	return fmt.Errorf("failed to edit telegram message %s: %w", ref, err)
}

func parseTelegramRef(ref string) (tele.StoredMessage, error) {
	chat, msg, ok := strings.Cut(ref, ":")
	if !ok {
		return tele.StoredMessage{}, ErrAnnouncementNotFound
	}
	chatID, err := strconv.ParseInt(chat, 10, 64)
	if err != nil {
		return tele.StoredMessage{}, ErrAnnouncementNotFound
	}
	return tele.StoredMessage{MessageID: msg, ChatID: chatID}, nil
}

func markup(link *Link) *tele.ReplyMarkup {
	m := &tele.ReplyMarkup{}
	if link != nil && !link.Disabled {
		m.InlineKeyboard = [][]tele.InlineButton{{
			{Text: strings.TrimSpace(link.Emoji + " " + link.Label), URL: link.URL},
		}}
	}
	return m
}

// formatHTML renders an announcement as Telegram HTML. Discord bold and
// strikethrough markers in banners are translated.
func formatHTML(a Announcement) string {
	var b strings.Builder

	if a.Banner != "" {
		b.WriteString(markdownToHTML(a.Banner))
		b.WriteString("\n\n")
	}
	b.WriteString("<b>" + html.EscapeString(a.Title) + "</b>\n")
	b.WriteString(markdownToHTML(a.Description))
	b.WriteString("\n\n")
	for _, f := range a.Fields {
		b.WriteString(html.EscapeString(f.Name) + ": " + html.EscapeString(f.Value) + "\n")
	}
	if a.Footer != "" {
		b.WriteString("\n<i>" + html.EscapeString(a.Footer) + "</i>")
	}
	return b.String()
}

func markdownToHTML(s string) string {
	s = html.EscapeString(s)
	s = replacePairs(s, "**", "<b>", "</b>")
	s = replacePairs(s, "~~", "<s>", "</s>")
	return s
}

func replacePairs(s, marker, openTag, closeTag string) string {
	var b strings.Builder
	opened := false
	for {
		i := strings.Index(s, marker)
		if i < 0 {
			b.WriteString(s)
			break
		}
		b.WriteString(s[:i])
		if opened {
			b.WriteString(closeTag)
		} else {
			b.WriteString(openTag)
		}
		opened = !opened
		s = s[i+len(marker):]
	}
	if opened {
		b.WriteString(closeTag)
	}
	return b.String()
}
