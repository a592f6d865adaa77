package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	cfg := baseConfig()
	cfg.LLM.APIKey = "sk-test-0123456789"
	cfg.Tools.Weather.APIKey = "weather-key-0123"
	applyDefaults(cfg)
	return cfg
}

func TestApplyDefaults(t *testing.T) {
	cfg := baseConfig()
	applyDefaults(cfg)

	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.Equal(t, "http://localhost:5173", cfg.Server.CORSOrigin)
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.Model)
	assert.Equal(t, 1.0, cfg.Agent.Temperature)
	assert.Equal(t, 10, cfg.Agent.MaxRounds)
	assert.Equal(t, "dall-e-3", cfg.Tools.Image.Model)
	assert.Equal(t, "https://www.reddit.com/r/cafeluta.json", cfg.Tools.Feed.URL)
	assert.Equal(t, "Iasi", cfg.Tools.Weather.Location)
	assert.Equal(t, GuardLocal, cfg.Jobs.Guard)
	assert.True(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 3, cfg.RateLimit.Limit)
	assert.Equal(t, 86400, cfg.RateLimit.WindowSeconds)
	assert.Equal(t, DefaultRateLimitMessage, cfg.RateLimit.Message)
	assert.Equal(t, 1, cfg.Workers.PoolSize)
	assert.False(t, cfg.Memory.Shared)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
}

func TestLoad_TOML(t *testing.T) {
	t.Setenv("TEST_OPENAI_KEY", "sk-from-env-123456")

	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = ":8080"

[agent]
max_rounds = 4

[llm]
api_key = "${TEST_OPENAI_KEY}"

[rate_limit]
enabled = false

[memory]
shared = true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 4, cfg.Agent.MaxRounds)
	assert.Equal(t, "sk-from-env-123456", cfg.LLM.APIKey)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.True(t, cfg.Memory.Shared)
	assert.True(t, cfg.Metrics.Enabled, "unset bools keep their base value")
	assert.Equal(t, "gpt-4o-mini", cfg.Agent.Model)
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
jobs:
  guard: redis
redis:
  addr: "${TEST_REDIS_ADDR:redis:6379}"
rate_limit:
  backend: redis
  limit: 5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, GuardRedis, cfg.Jobs.Guard)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, BackendRedis, cfg.RateLimit.Backend)
	assert.Equal(t, 5, cfg.RateLimit.Limit)
	assert.True(t, cfg.UsesRedis())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	path := filepath.Join(t.TempDir(), "broken.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server\naddr="), 0o644))
	_, err = Load(path)
	assert.Error(t, err)
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, ":3000", cfg.Server.Addr)
	assert.True(t, cfg.RateLimit.Enabled)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing llm key", mutate: func(c *Config) { c.LLM.APIKey = "" }, wantErr: true},
		{name: "short weather key", mutate: func(c *Config) { c.Tools.Weather.APIKey = "abc" }, wantErr: true},
		{name: "unknown provider", mutate: func(c *Config) { c.LLM.Provider = "zai" }, wantErr: true},
		{name: "zero rounds", mutate: func(c *Config) { c.Agent.MaxRounds = 0 }, wantErr: true},
		{name: "bad guard", mutate: func(c *Config) { c.Jobs.Guard = "etcd" }, wantErr: true},
		{name: "bad sweep schedule", mutate: func(c *Config) { c.Jobs.SweepSchedule = "every day" }, wantErr: true},
		{name: "bad rate limit backend", mutate: func(c *Config) { c.RateLimit.Backend = "file" }, wantErr: true},
		{name: "disabled rate limit skips backend", mutate: func(c *Config) {
			c.RateLimit.Enabled = false
			c.RateLimit.Backend = "file"
		}},
		{name: "redis without addr", mutate: func(c *Config) {
			c.Jobs.Guard = GuardRedis
			c.Redis.Addr = ""
		}, wantErr: true},
		{name: "redis lock shorter than job timeout", mutate: func(c *Config) {
			c.Jobs.Guard = GuardRedis
			c.Redis.Addr = "localhost:6379"
			c.Jobs.LockTTLSeconds = c.Agent.JobTimeoutSeconds - 1
		}, wantErr: true},
		{name: "redis lock outlives job timeout", mutate: func(c *Config) {
			c.Jobs.Guard = GuardRedis
			c.Redis.Addr = "localhost:6379"
			c.Jobs.LockTTLSeconds = c.Agent.JobTimeoutSeconds + 1
		}},
		{name: "local guard ignores lock ttl", mutate: func(c *Config) { c.Jobs.LockTTLSeconds = 1 }},
		{name: "path traversal", mutate: func(c *Config) { c.Memory.Dir = "../../etc" }, wantErr: true},
		{name: "bad log level", mutate: func(c *Config) { c.Logging.Level = "trace" }, wantErr: true},
		{name: "bad metrics path", mutate: func(c *Config) { c.Metrics.Path = "metrics" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			errs := cfg.Validate()
			if tt.wantErr {
				assert.NotEmpty(t, errs)
			} else {
				assert.Empty(t, errs)
			}
		})
	}
}

func TestValidate_MasksSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.LLM.APIKey = "sk-short"

	errs := cfg.Validate()
	require.Len(t, errs, 1)

	var verr *ValidationError
	require.ErrorAs(t, errs[0], &verr)
	assert.Equal(t, "llm.api_key", verr.Field)
	assert.NotContains(t, verr.Error(), "sk-short")
}

func TestExpandEnv(t *testing.T) {
	t.Setenv("MB_SET", "value")

	assert.Equal(t, "value", expandEnv("${MB_SET}"))
	assert.Equal(t, "value", expandEnv("${MB_SET:fallback}"))
	assert.Equal(t, "fallback", expandEnv("${MB_UNSET_VAR:fallback}"))
	assert.Equal(t, "", expandEnv("${MB_UNSET_VAR}"))
	assert.Equal(t, "plain", expandEnv("plain"))
	assert.Equal(t, "${broken", expandEnv("${broken"))
}

func TestMasked(t *testing.T) {
	cfg := validConfig()
	masked := cfg.Masked()

	assert.Equal(t, "sk-t**********6789", masked.LLM.APIKey)
	assert.Equal(t, "sk-test-0123456789", cfg.LLM.APIKey, "original is untouched")
	assert.Equal(t, "***", MaskSecret("short"))
	assert.Equal(t, "", MaskSecret(""))
}
