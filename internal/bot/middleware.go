package bot

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/config"
)

// dmAllowList tracks users seen in an allowed guild. They may also use the
// bot in direct messages.
type dmAllowList struct {
	mu    sync.RWMutex
	users map[string]bool
}

func (l *dmAllowList) allow(userID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.users[userID] = true
}

func (l *dmAllowList) allowed(userID string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.users[userID]
}

// GuildWhitelistMiddleware drops events from guilds outside the configured
// whitelist. Direct messages are accepted from users already seen in an
// allowed guild, or from anyone when no whitelist is configured.
func GuildWhitelistMiddleware(cfg *config.Config) MiddlewareFunc {
	dms := &dmAllowList{users: make(map[string]bool)}

	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, e *Event) error {
			if e.GuildID == "" {
				if dms.allowed(e.UserID) || len(cfg.Bot.Guilds) == 0 {
					return next(ctx, e)
				}
				log.Debug().
					Str("user_id", e.UserID).
					Msg("Ignoring direct message from unknown user")
				return nil
			}

			if !cfg.IsGuildAllowed(e.GuildID) {
				log.Debug().
					Str("guild_id", e.GuildID).
					Msg("Ignoring event from non-whitelisted guild")
				return nil
			}

			dms.allow(e.UserID)
			return next(ctx, e)
		}
	}
}

// LoggingMiddleware logs every dispatched event.
func LoggingMiddleware() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, e *Event) error {
			logEvent := log.Debug().
				Str("user_id", e.UserID).
				Str("username", e.Username).
				Str("guild_id", e.GuildID).
				Str("channel_id", e.ChannelID)
			if e.Command != "" {
				logEvent = logEvent.Str("command", e.Command)
			}
			if e.CustomID != "" {
				logEvent = logEvent.Str("custom_id", e.CustomID)
			}
			logEvent.Msg("Received event")

			err := next(ctx, e)
			if err != nil {
				log.Error().Err(err).
					Str("user_id", e.UserID).
					Str("command", e.Command).
					Str("custom_id", e.CustomID).
					Msg("Handler failed")
			}
			return err
		}
	}
}

// RecoveryMiddleware recovers from handler panics and tells the user.
func RecoveryMiddleware() MiddlewareFunc {
	return func(next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, e *Event) (err error) {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("command", e.Command).
						Str("custom_id", e.CustomID).
						Msg("Recovered from panic in handler")
					_ = e.Reply(ctx, "❌ 내부 오류가 발생했습니다. 잠시 후 다시 시도해주세요.", nil, nil)
					err = fmt.Errorf("panic: %v", r)
				}
			}()
			return next(ctx, e)
		}
	}
}

// chain applies middleware so that the first one runs outermost.
func chain(h HandlerFunc, mws ...MiddlewareFunc) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
