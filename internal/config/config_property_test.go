package config

import (
	"strconv"
	"testing"

	"pgregory.net/rapid"
)

func snowflake(t *rapid.T, label string) string {
	return strconv.FormatInt(rapid.Int64Range(100000000000000000, 999999999999999999).Draw(t, label), 10)
}

// TestIsAdminProperty checks that a user is an admin iff their id is in the allow-list.
func TestIsAdminProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numAdmins := rapid.IntRange(0, 10).Draw(t, "numAdmins")
		adminIDs := make([]string, numAdmins)
		adminSet := make(map[string]bool)
		for i := range adminIDs {
			adminIDs[i] = snowflake(t, "adminID")
			adminSet[adminIDs[i]] = true
		}

		cfg := &Config{Admin: AdminConfig{IDs: adminIDs}}

		userID := snowflake(t, "userID")
		if cfg.IsAdmin(userID) != adminSet[userID] {
			t.Fatalf("admin check mismatch: userID=%s, adminIDs=%v", userID, adminIDs)
		}

		if numAdmins > 0 {
			known := adminIDs[rapid.IntRange(0, numAdmins-1).Draw(t, "adminIndex")]
			if !cfg.IsAdmin(known) {
				t.Fatalf("listed admin %s not recognized", known)
			}
		}
	})
}

// TestIsAdminNeverMatchesEmptyID checks that an empty id is never an admin.
func TestIsAdminNeverMatchesEmptyID(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &Config{Admin: AdminConfig{IDs: []string{snowflake(t, "adminID")}}}
		if cfg.IsAdmin("") {
			t.Fatal("empty id recognized as admin")
		}
	})
}

// TestGuildWhitelistProperty checks that a guild is allowed iff it is whitelisted.
func TestGuildWhitelistProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		numGuilds := rapid.IntRange(1, 10).Draw(t, "numGuilds")
		guilds := make([]string, numGuilds)
		guildSet := make(map[string]bool)
		for i := range guilds {
			guilds[i] = snowflake(t, "guildID")
			guildSet[guilds[i]] = true
		}

		cfg := &Config{Bot: BotConfig{Guilds: guilds}}

		guildID := snowflake(t, "testGuildID")
		if cfg.IsGuildAllowed(guildID) != guildSet[guildID] {
			t.Fatalf("whitelist mismatch: guildID=%s, guilds=%v", guildID, guilds)
		}
	})
}

// TestEmptyGuildWhitelistAllowsAllProperty checks the empty whitelist special case.
func TestEmptyGuildWhitelistAllowsAllProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cfg := &Config{}
		guildID := snowflake(t, "guildID")
		if !cfg.IsGuildAllowed(guildID) {
			t.Fatalf("empty whitelist should allow guild %s", guildID)
		}
	})
}
