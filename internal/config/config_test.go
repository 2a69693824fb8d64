package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CORS_ALLOWED_ORIGINS", "AI_PROVIDER", "AI_MODEL", "AI_FALLBACK_MODEL",
		"AI_TEMPERATURE", "AI_MAX_TOKENS", "AI_STREAM", "ARK_API_KEY", "ARK_ACCESS_KEY",
		"ARK_SECRET_KEY", "ARK_BASE_URL", "ARK_REGION", "OPENAI_API_KEY", "OPENAI_BASE_URL",
		"ANTHROPIC_API_KEY", "ANTHROPIC_BASE_URL",
		"LOG_LEVEL", "LOG_FORMAT", "SNAPSHOT_LIMIT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 1000, cfg.Server.SnapshotLimit)
	assert.Equal(t, ProviderArk, cfg.AI.Provider)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 1e-9)
	assert.Equal(t, 800, cfg.AI.MaxTokens)
	assert.True(t, cfg.AI.StreamResponse)
	assert.False(t, cfg.AI.Enabled())
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadOpenAIFromKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderOpenAI, cfg.AI.Provider)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AI.Model)
	assert.Equal(t, "gpt-3.5-turbo", cfg.AI.FallbackModel)
	assert.True(t, cfg.AI.Enabled())
}

func TestLoadAnthropicFromKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ProviderAnthropic, cfg.AI.Provider)
	assert.Equal(t, "claude-3-5-haiku-latest", cfg.AI.Model)
	assert.Equal(t, "claude-3-haiku-20240307", cfg.AI.FallbackModel)
	assert.True(t, cfg.AI.Enabled())
}

func TestLoadArkFallbackDefaultsToModel(t *testing.T) {
	clearEnv(t)
	t.Setenv("AI_PROVIDER", "ark")
	t.Setenv("AI_MODEL", "ep-primary")
	t.Setenv("ARK_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ep-primary", cfg.AI.FallbackModel)
	assert.True(t, cfg.AI.Enabled())
}

func TestLoadPortAndOrigins(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	t.Setenv("SNAPSHOT_LIMIT", "5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Server.SnapshotLimit)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"port":       {"PORT", "80 80"},
		"provider":   {"AI_PROVIDER", "bard"},
		"maxTokens":  {"AI_MAX_TOKENS", "0"},
		"temp":       {"AI_TEMPERATURE", "warm"},
		"stream":     {"AI_STREAM", "sometimes"},
		"log format": {"LOG_FORMAT", "xml"},
		"snapshots":  {"SNAPSHOT_LIMIT", "many"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
