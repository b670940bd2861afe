package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Statistics StatisticsConfig
	RateLimit  RateLimitConfig
	Sentry     SentryConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
}

// StatisticsConfig holds statistics cache and refresh configuration
type StatisticsConfig struct {
	CacheTTL         time.Duration
	DefaultDaysAhead int
	RefreshCron      string
	RefreshTimeout   time.Duration
	HistorySize      int
	HistoryTTL       time.Duration
	Breaker          BreakerConfig
}

// BreakerConfig tunes the circuit breaker around the statistics data sources
type BreakerConfig struct {
	MaxFailures uint32
	OpenTimeout time.Duration
	Interval    time.Duration
}

// RateLimitConfig holds rate limits for the manual refresh endpoint
type RateLimitConfig struct {
	RefreshRate  int
	RefreshBurst int
	FailOpen     bool
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("..")
	v.AddConfigPath("../..")
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// .env file is optional for production (env vars are used)
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := fromViper(v)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server_port", 8080)
	v.SetDefault("server_read_timeout", 10*time.Second)
	v.SetDefault("server_write_timeout", 10*time.Second)
	v.SetDefault("server_shutdown_timeout", 30*time.Second)

	// Database defaults
	setDatabaseDefaults(v)

	// Redis defaults
	v.SetDefault("redis_pool_size", 10)
	v.SetDefault("redis_min_idle_conns", 3)
	v.SetDefault("redis_dial_timeout", 5*time.Second)
	v.SetDefault("redis_read_timeout", 3*time.Second)
	v.SetDefault("redis_write_timeout", 3*time.Second)
	v.SetDefault("redis_pool_timeout", 4*time.Second)

	// Statistics defaults
	v.SetDefault("statistics_cache_ttl", 5*time.Minute)
	v.SetDefault("statistics_default_days_ahead", 30)
	v.SetDefault("statistics_refresh_cron", "*/5 * * * *")
	v.SetDefault("statistics_refresh_timeout", 30*time.Second)
	v.SetDefault("statistics_history_size", 50)
	v.SetDefault("statistics_history_ttl", 7*24*time.Hour)
	v.SetDefault("statistics_breaker_max_failures", 3)
	v.SetDefault("statistics_breaker_open_timeout", 30*time.Second)
	v.SetDefault("statistics_breaker_interval", time.Minute)

	// Rate limit defaults
	v.SetDefault("rate_limit_refresh_rate", 1)
	v.SetDefault("rate_limit_refresh_burst", 3)
	v.SetDefault("rate_limit_fail_open", true)

	v.SetDefault("sentry_environment", "production")
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:            v.GetInt("server_port"),
			ReadTimeout:     v.GetDuration("server_read_timeout"),
			WriteTimeout:    v.GetDuration("server_write_timeout"),
			ShutdownTimeout: v.GetDuration("server_shutdown_timeout"),
		},
		Database: databaseFromViper(v),
		Redis: RedisConfig{
			URL:          v.GetString("redis_url"),
			PoolSize:     v.GetInt("redis_pool_size"),
			MinIdleConns: v.GetInt("redis_min_idle_conns"),
			DialTimeout:  v.GetDuration("redis_dial_timeout"),
			ReadTimeout:  v.GetDuration("redis_read_timeout"),
			WriteTimeout: v.GetDuration("redis_write_timeout"),
			PoolTimeout:  v.GetDuration("redis_pool_timeout"),
		},
		Statistics: StatisticsConfig{
			CacheTTL:         v.GetDuration("statistics_cache_ttl"),
			DefaultDaysAhead: v.GetInt("statistics_default_days_ahead"),
			RefreshCron:      v.GetString("statistics_refresh_cron"),
			RefreshTimeout:   v.GetDuration("statistics_refresh_timeout"),
			HistorySize:      v.GetInt("statistics_history_size"),
			HistoryTTL:       v.GetDuration("statistics_history_ttl"),
			Breaker: BreakerConfig{
				MaxFailures: v.GetUint32("statistics_breaker_max_failures"),
				OpenTimeout: v.GetDuration("statistics_breaker_open_timeout"),
				Interval:    v.GetDuration("statistics_breaker_interval"),
			},
		},
		RateLimit: RateLimitConfig{
			RefreshRate:  v.GetInt("rate_limit_refresh_rate"),
			RefreshBurst: v.GetInt("rate_limit_refresh_burst"),
			FailOpen:     v.GetBool("rate_limit_fail_open"),
		},
		Sentry: SentryConfig{
			DSN:         v.GetString("sentry_dsn"),
			Environment: v.GetString("sentry_environment"),
			Release:     v.GetString("sentry_release"),
		},
	}
}

func validate(cfg *Config) error {
	if err := cfg.Database.validate(); err != nil {
		return err
	}
	if cfg.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}
	if cfg.Statistics.CacheTTL <= 0 {
		return fmt.Errorf("STATISTICS_CACHE_TTL must be positive")
	}
	if d := cfg.Statistics.DefaultDaysAhead; d < 1 || d > 365 {
		return fmt.Errorf("STATISTICS_DEFAULT_DAYS_AHEAD must be between 1 and 365")
	}
	if _, err := cron.ParseStandard(cfg.Statistics.RefreshCron); err != nil {
		return fmt.Errorf("STATISTICS_REFRESH_CRON is invalid: %w", err)
	}
	if cfg.Statistics.HistorySize < 1 {
		return fmt.Errorf("STATISTICS_HISTORY_SIZE must be at least 1")
	}
	if cfg.RateLimit.RefreshRate < 1 {
		return fmt.Errorf("RATE_LIMIT_REFRESH_RATE must be at least 1")
	}
	return nil
}
