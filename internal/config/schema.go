// Package config loads and validates morningbrew configuration.
// TOML is the primary format; files ending in .yaml or .yml are parsed as YAML.
//
// Configuration structure:
//   - [server]: HTTP listener, CORS origin and timeouts
//   - [agent]: model parameters and the agent loop bounds
//   - [llm]: model service credentials
//   - [tools]: external collaborators used by the tools
//   - [memory]: conversation memory storage
//   - [jobs]: concurrency guard and job retention
//   - [rate_limit]: per-client quota on job starts
//   - [redis]: shared backend for rate limiting and the guard
//   - [workers]: background pool running agent jobs
//   - [logging]: level, format and output
//   - [metrics]: Prometheus exposition
//
// String values may reference environment variables with ${VAR} or ${VAR:default}.
package config

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `toml:"server" yaml:"server"`
	Agent     AgentConfig     `toml:"agent" yaml:"agent"`
	LLM       LLMConfig       `toml:"llm" yaml:"llm"`
	Tools     ToolsConfig     `toml:"tools" yaml:"tools"`
	Memory    MemoryConfig    `toml:"memory" yaml:"memory"`
	Jobs      JobsConfig      `toml:"jobs" yaml:"jobs"`
	RateLimit RateLimitConfig `toml:"rate_limit" yaml:"rate_limit"`
	Redis     RedisConfig     `toml:"redis" yaml:"redis"`
	Workers   WorkersConfig   `toml:"workers" yaml:"workers"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
	Metrics   MetricsConfig   `toml:"metrics" yaml:"metrics"`
}

// ServerConfig описывает HTTP сервер
type ServerConfig struct {
	Addr                     string `toml:"addr" yaml:"addr"`
	CORSOrigin               string `toml:"cors_origin" yaml:"cors_origin"`
	ReadHeaderTimeoutSeconds int    `toml:"read_header_timeout_seconds" yaml:"read_header_timeout_seconds"`
	ShutdownTimeoutSeconds   int    `toml:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds"`
	HeartbeatSeconds         int    `toml:"heartbeat_seconds" yaml:"heartbeat_seconds"`
	// TrustProxy включает использование X-Forwarded-For для определения IP клиента
	TrustProxy bool `toml:"trust_proxy" yaml:"trust_proxy"`
}

// AgentConfig описывает параметры модели и границы agent loop
type AgentConfig struct {
	Model             string  `toml:"model" yaml:"model"`
	Temperature       float64 `toml:"temperature" yaml:"temperature"`
	MaxTokens         int     `toml:"max_tokens" yaml:"max_tokens"`
	MaxRounds         int     `toml:"max_rounds" yaml:"max_rounds"`
	JobTimeoutSeconds int     `toml:"job_timeout_seconds" yaml:"job_timeout_seconds"`
}

// LLMConfig описывает доступ к model service
type LLMConfig struct {
	Provider       string `toml:"provider" yaml:"provider"`
	APIKey         string `toml:"api_key" yaml:"api_key"`
	BaseURL        string `toml:"base_url" yaml:"base_url"`
	TimeoutSeconds int    `toml:"timeout_seconds" yaml:"timeout_seconds"`
	MaxAttempts    int    `toml:"max_attempts" yaml:"max_attempts"`
}

// ToolsConfig описывает внешние сервисы, которые вызывают tools
type ToolsConfig struct {
	TimeoutSeconds         int           `toml:"timeout_seconds" yaml:"timeout_seconds"`
	BreakerThreshold       int           `toml:"breaker_threshold" yaml:"breaker_threshold"`
	BreakerCooldownSeconds int           `toml:"breaker_cooldown_seconds" yaml:"breaker_cooldown_seconds"`
	Weather                WeatherConfig `toml:"weather" yaml:"weather"`
	Image                  ImageConfig   `toml:"image" yaml:"image"`
	Feed                   FeedConfig    `toml:"feed" yaml:"feed"`
	Joke                   JokeConfig    `toml:"joke" yaml:"joke"`
}

// WeatherConfig описывает weatherstack
type WeatherConfig struct {
	APIKey   string `toml:"api_key" yaml:"api_key"`
	BaseURL  string `toml:"base_url" yaml:"base_url"`
	Location string `toml:"location" yaml:"location"`
}

// ImageConfig описывает генерацию изображений
type ImageConfig struct {
	Model string `toml:"model" yaml:"model"`
	Size  string `toml:"size" yaml:"size"`
}

// FeedConfig описывает ленту постов
type FeedConfig struct {
	URL       string `toml:"url" yaml:"url"`
	UserAgent string `toml:"user_agent" yaml:"user_agent"`
}

// JokeConfig описывает источник шуток
type JokeConfig struct {
	URL string `toml:"url" yaml:"url"`
}

// MemoryConfig описывает хранение conversation memory
type MemoryConfig struct {
	Dir string `toml:"dir" yaml:"dir"`
	// Shared переключает память на один общий документ для всех jobs
	Shared bool `toml:"shared" yaml:"shared"`
}

// JobsConfig описывает concurrency guard и хранение jobs
type JobsConfig struct {
	Guard            string `toml:"guard" yaml:"guard"` // local, redis
	LockTTLSeconds   int    `toml:"lock_ttl_seconds" yaml:"lock_ttl_seconds"`
	RetentionMinutes int    `toml:"retention_minutes" yaml:"retention_minutes"`
	SweepSchedule    string `toml:"sweep_schedule" yaml:"sweep_schedule"`
}

// RateLimitConfig описывает квоту на запуск jobs
type RateLimitConfig struct {
	Enabled       bool   `toml:"enabled" yaml:"enabled"`
	Backend       string `toml:"backend" yaml:"backend"` // memory, redis
	Limit         int    `toml:"limit" yaml:"limit"`
	WindowSeconds int    `toml:"window_seconds" yaml:"window_seconds"`
	Message       string `toml:"message" yaml:"message"`
}

// RedisConfig описывает подключение к Redis
type RedisConfig struct {
	Addr      string `toml:"addr" yaml:"addr"`
	Password  string `toml:"password" yaml:"password"`
	DB        int    `toml:"db" yaml:"db"`
	KeyPrefix string `toml:"key_prefix" yaml:"key_prefix"`
}

// WorkersConfig описывает worker pool
type WorkersConfig struct {
	PoolSize  int `toml:"pool_size" yaml:"pool_size"`
	QueueSize int `toml:"queue_size" yaml:"queue_size"`
}

// LoggingConfig описывает логирование
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	Output string `toml:"output" yaml:"output"`
}

// MetricsConfig описывает Prometheus метрики
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled" yaml:"enabled"`
	Path      string `toml:"path" yaml:"path"`
	Namespace string `toml:"namespace" yaml:"namespace"`
}

// UsesRedis reports whether any component needs a Redis connection.
func (c *Config) UsesRedis() bool {
	return c.Jobs.Guard == GuardRedis || (c.RateLimit.Enabled && c.RateLimit.Backend == BackendRedis)
}
