package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Load читает конфигурацию из TOML или YAML файла (по расширению)
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := baseConfig()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyDefaults(cfg)
	expandEnvVars(cfg)

	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to Default when path does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// baseConfig содержит значения bool по умолчанию, которые нельзя выразить нулевым значением
func baseConfig() *Config {
	return &Config{
		RateLimit: RateLimitConfig{Enabled: true},
		Metrics:   MetricsConfig{Enabled: true},
	}
}

// Validate returns every problem found; an empty slice means the config is usable.
func (c *Config) Validate() []error {
	var errs []error

	if c.Server.Addr == "" {
		errs = append(errs, fmt.Errorf("server.addr is required"))
	}

	if c.Agent.MaxRounds < 1 {
		errs = append(errs, fmt.Errorf("agent.max_rounds must be >= 1 (got %d)", c.Agent.MaxRounds))
	}
	if c.Agent.Temperature < 0 || c.Agent.Temperature > 2 {
		errs = append(errs, fmt.Errorf("agent.temperature must be between 0 and 2 (got %v)", c.Agent.Temperature))
	}
	if c.Agent.JobTimeoutSeconds < 1 {
		errs = append(errs, fmt.Errorf("agent.job_timeout_seconds must be >= 1"))
	}

	switch c.LLM.Provider {
	case ProviderOpenAI:
		if err := validateAPIKey(c.LLM.APIKey, "llm.api_key"); err != nil {
			errs = append(errs, err)
		}
	default:
		errs = append(errs, fmt.Errorf("invalid llm.provider: %s (expected: openai)", c.LLM.Provider))
	}

	if err := validateAPIKey(c.Tools.Weather.APIKey, "tools.weather.api_key"); err != nil {
		errs = append(errs, err)
	}
	if c.Tools.Weather.Location == "" {
		errs = append(errs, fmt.Errorf("tools.weather.location is required"))
	}

	if err := c.Jobs.Validate(); err != nil {
		errs = append(errs, err)
	}
	// lock в Redis не должен истечь раньше, чем job упрётся в свой таймаут
	if c.Jobs.Guard == GuardRedis && c.Jobs.LockTTLSeconds <= c.Agent.JobTimeoutSeconds {
		errs = append(errs, fmt.Errorf("jobs.lock_ttl_seconds must be greater than agent.job_timeout_seconds with the redis guard (got %d <= %d)",
			c.Jobs.LockTTLSeconds, c.Agent.JobTimeoutSeconds))
	}
	if err := c.RateLimit.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.UsesRedis() && c.Redis.Addr == "" {
		errs = append(errs, fmt.Errorf("redis.addr is required when redis guard or rate limit backend is used"))
	}

	if c.Memory.Dir == "" {
		errs = append(errs, fmt.Errorf("memory.dir is required"))
	} else if err := validatePath(c.Memory.Dir, "memory.dir"); err != nil {
		errs = append(errs, err)
	}

	if c.Workers.PoolSize < 1 {
		errs = append(errs, fmt.Errorf("workers.pool_size must be >= 1"))
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid logging.level: %s (expected: debug, info, warn, error)", c.Logging.Level))
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[strings.ToLower(c.Logging.Format)] {
		errs = append(errs, fmt.Errorf("invalid logging.format: %s (expected: json, text)", c.Logging.Format))
	}
	if c.Logging.Output == "" {
		errs = append(errs, fmt.Errorf("logging.output is required"))
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		errs = append(errs, fmt.Errorf("metrics.path must start with '/' (got %q)", c.Metrics.Path))
	}

	return errs
}

func validateAPIKey(key, field string) error {
	if key == "" {
		return formatValidationError(field, "is required", "")
	}
	if len(key) < 10 {
		return formatValidationError(field, fmt.Sprintf("is too short (minimum 10 characters, got %d)", len(key)), key)
	}
	return nil
}

func validatePath(path, field string) error {
	if strings.HasPrefix(path, "~") {
		return nil
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("%s contains potentially dangerous path traversal sequence", field)
	}
	return nil
}

// expandEnvVars раскрывает ${VAR} в секретах и адресах, ~ в путях
func expandEnvVars(c *Config) {
	for _, s := range []*string{
		&c.LLM.APIKey,
		&c.LLM.BaseURL,
		&c.Tools.Weather.APIKey,
		&c.Redis.Addr,
		&c.Redis.Password,
		&c.Memory.Dir,
		&c.Server.Addr,
	} {
		*s = expandEnv(*s)
	}

	c.Memory.Dir = expandHome(c.Memory.Dir)
	c.Logging.Output = expandHome(c.Logging.Output)
}

// expandEnv раскрывает значение формата ${VAR} или ${VAR:default}
func expandEnv(s string) string {
	if !strings.HasPrefix(s, "${") {
		return s
	}

	end := strings.Index(s, "}")
	if end == -1 {
		return s
	}

	content := s[2:end]
	if key, def, ok := strings.Cut(content, ":"); ok {
		if val := os.Getenv(key); val != "" {
			return val
		}
		return def
	}

	return os.Getenv(content)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
