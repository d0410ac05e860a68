// Package main is the entry point for the party recruitment bot and its web dashboard.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"discord-party-bot/internal/bot"
	"discord-party-bot/internal/config"
	"discord-party-bot/internal/event"
	"discord-party-bot/internal/handler"
	"discord-party-bot/internal/notify"
	"discord-party-bot/internal/pkg/db"
	"discord-party-bot/internal/pkg/embed"
	"discord-party-bot/internal/pkg/lock"
	"discord-party-bot/internal/repository"
	"discord-party-bot/internal/service"
	"discord-party-bot/internal/store"
	"discord-party-bot/internal/web"
)

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	log.Info().Str("storage", cfg.Storage.Driver).Str("notify", cfg.Notify.Driver).Msg("Configuration loaded successfully")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Record store
	backend, closeBackend := openBackend(ctx, cfg)
	defer closeBackend()
	records := store.New(backend)

	// Repositories and services
	partyRepo := repository.NewPartyRepository(records)
	userRepo := repository.NewUserRepository(records)
	permRepo := repository.NewPermissionRepository(records)

	keyLock := lock.NewKeyLock()
	bus := event.NewBus()

	roleService := service.NewRoleService(permRepo, userRepo, cfg.IsAdmin, cfg.Roles.CacheTTL)
	if err := roleService.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize permissions")
	}
	accessGuard := service.NewAccessGuard(roleService)
	partyService := service.NewPartyService(partyRepo, userRepo, bus, keyLock)
	statsService := service.NewStatsService(userRepo, keyLock)

	embeds := embed.NewBuilder(cfg.Embed)

	// Discord bot
	var discordBot *bot.Bot
	var session *discordgo.Session
	if cfg.Bot.Token == "" {
		log.Warn().Msg("No bot token configured, running the web dashboard only")
	} else {
		session, err = bot.NewSession(cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create discord session")
		}

		registry := bot.NewRegistry()
		modules := []bot.Module{
			handler.NewPartyHandler(statsService, embeds, cfg.Web.URL),
			handler.NewRankingHandler(statsService, embeds),
			handler.NewGeneralHandler(registry, embeds, cfg.Bot.Prefix, cfg.Bot.Name),
		}
		for _, m := range modules {
			if err := registry.Register(m); err != nil {
				log.Fatal().Err(err).Str("module", m.Name()).Msg("Failed to register module")
			}
		}

		discordBot, err = bot.New(&bot.Dependencies{Config: cfg, Session: session, Registry: registry})
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create bot")
		}
	}

	// Announcements
	relay := notify.NewRelay(newSink(cfg, session, embeds), partyService, cfg.Web.URL)
	relay.Register(bus)

	// Web dashboard
	if cfg.Web.SessionSecret == "" {
		cfg.Web.SessionSecret = uuid.NewString()
		log.Warn().Msg("No session secret configured, sessions will not survive a restart")
	}
	server := web.NewServer(web.Dependencies{
		Config:  cfg,
		Store:   records,
		Parties: partyService,
		Stats:   statsService,
		Roles:   roleService,
		Guard:   accessGuard,
	})

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	if discordBot != nil {
		if err := discordBot.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start bot")
		}
	}

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("Web server failed")
		}
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop web server")
	}
	if discordBot != nil {
		if err := discordBot.Stop(); err != nil {
			log.Error().Err(err).Msg("Failed to stop bot")
		}
	}
	log.Info().Msg("Stopped gracefully")
}

// openBackend connects the configured record store backend.
func openBackend(ctx context.Context, cfg *config.Config) (store.Backend, func()) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, &cfg.Database)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		if err := db.Migrate(ctx, pool.Pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
		return store.NewPostgresBackend(pool.Pool), pool.Close

	case config.DriverRedis:
		client, err := store.NewRedisClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		return store.NewRedisBackend(client, cfg.Redis.KeyPrefix), func() { _ = client.Close() }

	default:
		backend, err := store.NewFileBackend(cfg.Storage.DataDir)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to open data directory")
		}
		return backend, func() {}
	}
}

// newSink selects where announcements are posted.
func newSink(cfg *config.Config, session *discordgo.Session, embeds *embed.Builder) notify.Sink {
	switch cfg.Notify.Driver {
	case config.NotifyDiscord:
		if session != nil && cfg.Party.NoticeChannelID != "" {
			return notify.NewDiscordSink(session, cfg.Party.NoticeChannelID, embeds)
		}
		log.Warn().Msg("Discord announcements need a bot token and party.notice_channel_id, logging instead")

	case config.NotifyTelegram:
		sink, err := notify.NewTelegramSink(cfg.Notify.Telegram.Token, cfg.Notify.Telegram.ChatID, "")
		if err == nil {
			return sink
		}
		log.Error().Err(err).Msg("Failed to create telegram sink, logging instead")
	}
	return notify.NewLogSink()
}
