package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFile_DefaultsAndEnv(t *testing.T) {
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("FUNNEL_REMARKETING_DELAY", "45s")

	cfg, v, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "test")
	require.NoError(t, err)
	require.NotNil(t, v)

	assert.Equal(t, "test", cfg.AppEnv)
	assert.Equal(t, "123:abc", cfg.Bot.Token)
	assert.Equal(t, "polling", cfg.Bot.Mode)
	assert.Equal(t, 45*time.Second, cfg.Funnel.Remarketing.Delay)
	assert.True(t, cfg.Funnel.Remarketing.Enabled)
	require.Len(t, cfg.Funnel.Offers, 3)
	assert.Equal(t, "pkg1", cfg.Funnel.Offers[0].Code)
	assert.Equal(t, 24*time.Hour, cfg.Idempotency.TTL)
}

func TestLoadFile_FromYAML(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "42:xyz"
  mode: polling
webapp:
  base_url: https://bot.example.com
funnel:
  offers:
    - code: basic
      label: Basic
      url: https://pay.example.com/basic
  remarketing:
    enabled: false
`)

	cfg, _, err := LoadFile(path, "test")
	require.NoError(t, err)

	assert.Equal(t, "42:xyz", cfg.Bot.Token)
	assert.Equal(t, "https://bot.example.com", cfg.WebApp.BaseURL)
	require.Len(t, cfg.Funnel.Offers, 1)
	assert.Equal(t, "basic", cfg.Funnel.Offers[0].Code)
	assert.False(t, cfg.Funnel.Remarketing.Enabled)
}

func TestLoadFile_ValidationErrors(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "missing token",
			body: `bot: {mode: polling}`,
		},
		{
			name: "unknown bot mode",
			body: `bot: {token: "1:a", mode: carrier-pigeon}`,
		},
		{
			name: "webhook without url",
			body: `bot: {token: "1:a", mode: webhook}`,
		},
		{
			name: "offer with invalid url",
			body: `
bot: {token: "1:a"}
funnel:
  offers:
    - {code: x, label: X, url: "not a url"}
`,
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := LoadFile(writeConfig(t, tc.body), "test")
			assert.Error(t, err)
		})
	}
}
