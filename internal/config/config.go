// Package config provides configuration management using viper.
// It supports loading from YAML files and environment variable overrides.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Bot      BotConfig      `mapstructure:"bot"`
	Party    PartyConfig    `mapstructure:"party"`
	Web      WebConfig      `mapstructure:"web"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Roles    RolesConfig    `mapstructure:"roles"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Log      LogConfig      `mapstructure:"log"`
}

// BotConfig holds Discord bot configuration.
type BotConfig struct {
	Token  string   `mapstructure:"token"`
	Name   string   `mapstructure:"name"`
	Prefix string   `mapstructure:"prefix"`
	Guilds []string `mapstructure:"guilds"`
}

// PartyConfig holds the channels used by the party module.
type PartyConfig struct {
	NoticeChannelID string `mapstructure:"notice_channel_id"`
	ListChannelID   string `mapstructure:"list_channel_id"`
}

// WebConfig holds dashboard server configuration.
type WebConfig struct {
	Port            int           `mapstructure:"port"`
	URL             string        `mapstructure:"url"`
	SessionSecret   string        `mapstructure:"session_secret"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// OAuthConfig holds Discord OAuth2 client configuration.
type OAuthConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	ClientSecret string   `mapstructure:"client_secret"`
	CallbackURL  string   `mapstructure:"callback_url"`
	Scopes       []string `mapstructure:"scopes"`
}

// AdminConfig holds the admin allow-list. Listed users are always admins.
type AdminConfig struct {
	IDs []string `mapstructure:"ids"`
}

// RolesConfig holds role resolver configuration.
type RolesConfig struct {
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// Storage drivers.
const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// StorageConfig selects the record store backend.
type StorageConfig struct {
	Driver  string `mapstructure:"driver"`
	DataDir string `mapstructure:"data_dir"`
}

// DatabaseConfig holds PostgreSQL connection configuration.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	PoolSize        int           `mapstructure:"pool_size"`
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	PoolSize  int    `mapstructure:"pool_size"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// Notification drivers.
const (
	NotifyDiscord  = "discord"
	NotifyTelegram = "telegram"
	NotifyLog      = "log"
)

// NotifyConfig selects where party announcements are posted.
type NotifyConfig struct {
	Driver   string         `mapstructure:"driver"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig holds the Telegram mirror channel configuration.
type TelegramConfig struct {
	Token  string `mapstructure:"token"`
	ChatID int64  `mapstructure:"chat_id"`
}

// EmbedConfig holds the branding of bot embeds.
type EmbedConfig struct {
	AuthorName string `mapstructure:"author_name"`
	AuthorIcon string `mapstructure:"author_icon"`
	FooterText string `mapstructure:"footer_text"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DSN returns the PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Port, d.Name,
	)
}

// Load reads configuration from file and environment variables.
// It looks for config.yaml in the config directory.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	// e.g. BOT_TOKEN, OAUTH_CLIENT_SECRET, STORAGE_DRIVER
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A missing config file is fine, env vars can provide everything.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// ADMIN_IDS=1,2,3 arrives as a single string.
	cfg.Admin.IDs = splitList(cfg.Admin.IDs)
	cfg.Bot.Guilds = splitList(cfg.Bot.Guilds)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	v.SetDefault("bot.token", "")
	v.SetDefault("bot.name", "Aimdot")
	v.SetDefault("bot.prefix", "!")
	v.SetDefault("bot.guilds", []string{})
	v.SetDefault("admin.ids", []string{})

	v.SetDefault("party.notice_channel_id", "")
	v.SetDefault("party.list_channel_id", "")

	v.SetDefault("web.port", 3000)
	v.SetDefault("web.url", "http://localhost:3000")
	v.SetDefault("web.session_secret", "")
	v.SetDefault("web.session_ttl", "168h")
	v.SetDefault("web.cors_origins", []string{})
	v.SetDefault("web.shutdown_timeout", "10s")

	v.SetDefault("oauth.client_id", "")
	v.SetDefault("oauth.client_secret", "")
	v.SetDefault("oauth.callback_url", "http://localhost:3000/auth/discord/callback")
	v.SetDefault("oauth.scopes", []string{"identify", "guilds"})

	v.SetDefault("roles.cache_ttl", "5m")

	v.SetDefault("storage.driver", DriverFile)
	v.SetDefault("storage.data_dir", "data")

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "partybot")
	v.SetDefault("database.name", "partybot")
	v.SetDefault("database.pool_size", 10)
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.key_prefix", "partybot:")

	v.SetDefault("notify.driver", NotifyDiscord)
	v.SetDefault("notify.telegram.token", "")
	v.SetDefault("notify.telegram.chat_id", 0)

	v.SetDefault("embed.author_name", "Aimdot.dev")
	v.SetDefault("embed.author_icon", "")
	v.SetDefault("embed.footer_text", "Aimdot.dev")

	v.SetDefault("log.level", "info")
}

// Validate checks the values that have a closed set of options.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverFile, DriverPostgres, DriverRedis:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Notify.Driver {
	case NotifyDiscord, NotifyTelegram, NotifyLog:
	default:
		return fmt.Errorf("unknown notify driver %q", c.Notify.Driver)
	}
	return nil
}

// IsAdmin checks if a user ID is in the admin list.
func (c *Config) IsAdmin(userID string) bool {
	for _, id := range c.Admin.IDs {
		if id == userID {
			return true
		}
	}
	return false
}

// IsGuildAllowed checks if a guild ID is in the whitelist.
func (c *Config) IsGuildAllowed(guildID string) bool {
	// Empty whitelist means all guilds are allowed
	if len(c.Bot.Guilds) == 0 {
		return true
	}
	for _, id := range c.Bot.Guilds {
		if id == guildID {
			return true
		}
	}
	return false
}

func splitList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
