package config

const (
	GuardLocal = "local"
	GuardRedis = "redis"

	BackendMemory = "memory"
	BackendRedis  = "redis"

	ProviderOpenAI = "openai"

	DefaultRateLimitMessage = "Too many requests from this IP, please try again after 24 hours."
)

// Default returns a configuration with every default applied and
// environment references expanded. It is used when no config file exists.
func Default() *Config {
	cfg := &Config{
		RateLimit: RateLimitConfig{Enabled: true},
		Metrics:   MetricsConfig{Enabled: true},
	}
	applyDefaults(cfg)
	expandEnvVars(cfg)
	return cfg
}

// applyDefaults заполняет незаданные значения
func applyDefaults(c *Config) {
	if c.Server.Addr == "" {
		c.Server.Addr = ":3000"
	}
	if c.Server.CORSOrigin == "" {
		c.Server.CORSOrigin = "http://localhost:5173"
	}
	if c.Server.ReadHeaderTimeoutSeconds == 0 {
		c.Server.ReadHeaderTimeoutSeconds = 10
	}
	if c.Server.ShutdownTimeoutSeconds == 0 {
		c.Server.ShutdownTimeoutSeconds = 15
	}
	if c.Server.HeartbeatSeconds == 0 {
		c.Server.HeartbeatSeconds = 15
	}

	if c.Agent.Model == "" {
		c.Agent.Model = "gpt-4o-mini"
	}
	if c.Agent.Temperature == 0 {
		c.Agent.Temperature = 1
	}
	if c.Agent.MaxRounds == 0 {
		c.Agent.MaxRounds = 10
	}
	if c.Agent.JobTimeoutSeconds == 0 {
		c.Agent.JobTimeoutSeconds = 300
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = ProviderOpenAI
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = "${OPENAI_API_KEY}"
	}
	if c.LLM.TimeoutSeconds == 0 {
		c.LLM.TimeoutSeconds = 120
	}
	if c.LLM.MaxAttempts == 0 {
		c.LLM.MaxAttempts = 1
	}

	if c.Tools.TimeoutSeconds == 0 {
		c.Tools.TimeoutSeconds = 60
	}
	if c.Tools.BreakerThreshold == 0 {
		c.Tools.BreakerThreshold = 5
	}
	if c.Tools.BreakerCooldownSeconds == 0 {
		c.Tools.BreakerCooldownSeconds = 30
	}
	if c.Tools.Weather.APIKey == "" {
		c.Tools.Weather.APIKey = "${WEATHER_STACK_API_KEY}"
	}
	if c.Tools.Weather.BaseURL == "" {
		c.Tools.Weather.BaseURL = "https://api.weatherstack.com"
	}
	if c.Tools.Weather.Location == "" {
		c.Tools.Weather.Location = "Iasi"
	}
	if c.Tools.Image.Model == "" {
		c.Tools.Image.Model = "dall-e-3"
	}
	if c.Tools.Image.Size == "" {
		c.Tools.Image.Size = "1024x1024"
	}
	if c.Tools.Feed.URL == "" {
		c.Tools.Feed.URL = "https://www.reddit.com/r/cafeluta.json"
	}
	if c.Tools.Feed.UserAgent == "" {
		c.Tools.Feed.UserAgent = "morningbrew/1.0"
	}
	if c.Tools.Joke.URL == "" {
		c.Tools.Joke.URL = "https://icanhazdadjoke.com/"
	}

	if c.Memory.Dir == "" {
		c.Memory.Dir = "./data/memory"
	}

	if c.Jobs.Guard == "" {
		c.Jobs.Guard = GuardLocal
	}
	if c.Jobs.LockTTLSeconds == 0 {
		c.Jobs.LockTTLSeconds = c.Agent.JobTimeoutSeconds + 60
	}
	if c.Jobs.RetentionMinutes == 0 {
		c.Jobs.RetentionMinutes = 60
	}
	if c.Jobs.SweepSchedule == "" {
		c.Jobs.SweepSchedule = "@every 5m"
	}

	if c.RateLimit.Backend == "" {
		c.RateLimit.Backend = BackendMemory
	}
	if c.RateLimit.Limit == 0 {
		c.RateLimit.Limit = 3
	}
	if c.RateLimit.WindowSeconds == 0 {
		c.RateLimit.WindowSeconds = 24 * 60 * 60
	}
	if c.RateLimit.Message == "" {
		c.RateLimit.Message = DefaultRateLimitMessage
	}

	if c.Redis.Addr == "" {
		c.Redis.Addr = "${REDIS_ADDR:localhost:6379}"
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "morningbrew"
	}

	// Один слот: больше одного воркера не нужно, guard всё равно пропустит только один job
	if c.Workers.PoolSize == 0 {
		c.Workers.PoolSize = 1
	}
	if c.Workers.QueueSize == 0 {
		c.Workers.QueueSize = 4
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stdout"
	}

	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "morningbrew"
	}
}
