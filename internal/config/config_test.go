package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DriverFile, cfg.Storage.Driver)
	assert.Equal(t, "data", cfg.Storage.DataDir)
	assert.Equal(t, 5*time.Minute, cfg.Roles.CacheTTL)
	assert.Equal(t, 3000, cfg.Web.Port)
	assert.Equal(t, "!", cfg.Bot.Prefix)
	assert.Equal(t, NotifyDiscord, cfg.Notify.Driver)
	assert.Empty(t, cfg.Admin.IDs)
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	yaml := `
bot:
  token: file-token
  guilds: ["111", "222"]
storage:
  driver: redis
roles:
  cache_ttl: 30s
admin:
  ids: ["42"]
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("ADMIN_IDS", "7, 8")

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Bot.Token)
	assert.Equal(t, DriverRedis, cfg.Storage.Driver)
	assert.Equal(t, 30*time.Second, cfg.Roles.CacheTTL)
	assert.Equal(t, []string{"111", "222"}, cfg.Bot.Guilds)
	assert.Equal(t, []string{"7", "8"}, cfg.Admin.IDs)
	assert.True(t, cfg.IsAdmin("8"))
	assert.False(t, cfg.IsAdmin("42"))
}

func TestLoad_UnknownDriver(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "mongo")
	_, err := Load(t.TempDir())
	assert.Error(t, err)
}

func TestDatabaseDSN(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: 5432, User: "u", Password: "p", Name: "n"}
	assert.Equal(t, "postgres://u:p@db:5432/n?sslmode=disable", d.DSN())
}
