package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	Port      int    `env:"PORT" envDefault:"8080"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	DatabaseFile string `env:"ACCOUNT_DATABASE_FILE" envDefault:"account.db"`

	// RedisAddr empty means the in-process memory cache is used instead.
	// Fine for a single instance; revocation state is lost on restart.
	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	JWTSecret  string        `env:"JWT_SECRET"`
	Issuer     string        `env:"JWT_ISSUER" envDefault:"accountd"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TOKEN_TTL" envDefault:"168h"`

	RateLimitPerMinute   int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"60"`
	MaxConcurrentCalls   int           `env:"MAX_CONCURRENT_CALLS" envDefault:"10"`
	ConcurrencyCacheSize int           `env:"CONCURRENCY_CACHE_SIZE" envDefault:"2000"`
	HandlerTimeout       time.Duration `env:"HANDLER_TIMEOUT" envDefault:"3m"`
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	SMTPHost           string  `env:"SMTP_HOST"`
	SMTPPort           int     `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername       string  `env:"SMTP_USERNAME"`
	SMTPPassword       string  `env:"SMTP_PASSWORD"`
	SMTPFrom           string  `env:"SMTP_FROM"`
	SMTPSendsPerSecond float64 `env:"SMTP_SENDS_PER_SECOND" envDefault:"1"`

	VerifyBaseURL string `env:"VERIFY_BASE_URL" envDefault:"http://localhost:8080/v1/auth/verify"`
}

// LoadConfig reads configuration from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}
