package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
bot:
  token: "123:abc"
moderation:
  lexicon: ["foo", "bar baz"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, []time.Duration{time.Minute, 5 * time.Minute, 30 * time.Minute, time.Hour}, cfg.Moderation.PunishmentLadder)
	assert.Equal(t, 5, cfg.Moderation.BanThreshold)
	assert.Equal(t, 24*time.Hour, cfg.Moderation.DailyWindow)
	assert.Equal(t, 30*time.Minute, cfg.Moderation.ChallengeWindow)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/metrics", cfg.Bot.Webhook.MetricsPath)
	assert.Equal(t, []string{"foo", "bar baz"}, cfg.Moderation.Lexicon)
	assert.Same(t, cfg, Get())
}

func TestLoadMergesLexiconFile(t *testing.T) {
	lexicon := writeFile(t, "lexicon.txt", "# comment\nalpha\n\n  beta  \n")
	path := writeFile(t, "config.yaml", `
moderation:
  lexicon: ["gamma"]
  lexicon_file: "`+lexicon+`"
  punishment_ladder: ["10s", "20s"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"gamma", "alpha", "beta"}, cfg.Moderation.Lexicon)
	assert.Equal(t, []time.Duration{10 * time.Second, 20 * time.Second}, cfg.Moderation.PunishmentLadder)
}

func TestLoadRejectsInvalidSettings(t *testing.T) {
	fixtures := []struct {
		name string
		body string
	}{
		{name: "empty lexicon", body: "moderation:\n  lexicon: []\n"},
		{name: "decreasing ladder", body: "moderation:\n  lexicon: [x]\n  punishment_ladder: [\"5m\", \"1m\"]\n"},
		{name: "zero threshold", body: "moderation:\n  lexicon: [x]\n  ban_threshold: 0\n"},
		{name: "bad driver", body: "moderation:\n  lexicon: [x]\ndatabase:\n  driver: oracle\n"},
	}

	for _, fix := range fixtures {
		t.Run(fix.name, func(t *testing.T) {
			_, err := Load(writeFile(t, "config.yaml", fix.body))
			assert.Error(t, err)
		})
	}
}

func TestLoadRequiresPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}

func TestLocationFallsBackToLocal(t *testing.T) {
	assert.Equal(t, time.Local, ModerationConfig{}.Location())
	assert.Equal(t, time.Local, ModerationConfig{Timezone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, "UTC", ModerationConfig{Timezone: "UTC"}.Location().String())
}
