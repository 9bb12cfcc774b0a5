// Package config loads service configuration from the environment, with an
// optional .env file for local runs.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv      string  `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string  `env:"POSTGRES_DSN,required"`
	BotToken    string  `env:"BOT_TOKEN,required"`
	AdminIDs    []int64 `env:"ADMIN_IDS" envSeparator:","`
	HealthPort  int     `env:"HEALTH_PORT" envDefault:"8080"`

	// Pipeline tuning.
	DedupSimilarityThreshold   int     `env:"DEDUP_SIMILARITY_THRESHOLD" envDefault:"85"`
	ClusterSimilarityThreshold float64 `env:"CLUSTER_SIMILARITY_THRESHOLD" envDefault:"0.62"`
	MaxDigestItems             int     `env:"MAX_DIGEST_ITEMS" envDefault:"10"`

	// Scheduler tuning.
	HourlyWindowMinutes   int           `env:"HOURLY_WINDOW_MINUTES" envDefault:"65"`
	SchedulerTickInterval time.Duration `env:"SCHEDULER_TICK_INTERVAL" envDefault:"20s"`
	// QuietHours is "HH-HH" (start inclusive, end exclusive), empty to
	// disable. Suppresses hourly digests only.
	QuietHours string `env:"QUIET_HOURS" envDefault:""`

	// Database pool.
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
}

// HourlyWindow returns the hourly digest window as a duration.
func (c *Config) HourlyWindow() time.Duration {
	return time.Duration(c.HourlyWindowMinutes) * time.Minute
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	return cfg, nil
}
