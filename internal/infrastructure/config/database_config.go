package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// DatabaseConfig configures the read-only pool used for statistics snapshots
type DatabaseConfig struct {
	URL             string
	ApplicationName string
	MaxConns        int
	MinConns        int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
	HealthCheck     time.Duration
	// StatementTimeout is applied server side to every snapshot query; zero disables it
	StatementTimeout time.Duration
}

// A refresh runs its two snapshot queries in parallel, so two warm
// connections cover the steady state.
func setDatabaseDefaults(v *viper.Viper) {
	v.SetDefault("database_application_name", "fitness-stats")
	v.SetDefault("database_max_conns", 4)
	v.SetDefault("database_min_conns", 2)
	v.SetDefault("database_conn_max_lifetime", time.Hour)
	v.SetDefault("database_conn_max_idle_time", 30*time.Minute)
	v.SetDefault("database_health_check", 30*time.Second)
	v.SetDefault("database_statement_timeout", 20*time.Second)
}

func databaseFromViper(v *viper.Viper) DatabaseConfig {
	return DatabaseConfig{
		URL:              v.GetString("database_url"),
		ApplicationName:  v.GetString("database_application_name"),
		MaxConns:         v.GetInt("database_max_conns"),
		MinConns:         v.GetInt("database_min_conns"),
		ConnMaxLifetime:  v.GetDuration("database_conn_max_lifetime"),
		ConnMaxIdleTime:  v.GetDuration("database_conn_max_idle_time"),
		HealthCheck:      v.GetDuration("database_health_check"),
		StatementTimeout: v.GetDuration("database_statement_timeout"),
	}
}

func (c DatabaseConfig) validate() error {
	if c.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.MaxConns < 2 {
		return fmt.Errorf("DATABASE_MAX_CONNS must be at least 2")
	}
	if c.MinConns > c.MaxConns {
		return fmt.Errorf("DATABASE_MIN_CONNS (%d) exceeds DATABASE_MAX_CONNS (%d)", c.MinConns, c.MaxConns)
	}
	if c.StatementTimeout < 0 {
		return fmt.Errorf("DATABASE_STATEMENT_TIMEOUT must not be negative")
	}
	return nil
}
