package worker

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ErrFailedToParseConfig is returned when environment parsing fails.
var ErrFailedToParseConfig = errors.New("failed to parse worker config")

// Config holds the environment-driven worker settings.
type Config struct {
	PullInterval  time.Duration `env:"NOTIFY_WORKER_PULL_INTERVAL" envDefault:"5s"`
	BatchSize     int           `env:"NOTIFY_WORKER_BATCH_SIZE" envDefault:"25"`
	ReclaimAfter  time.Duration `env:"NOTIFY_WORKER_RECLAIM_AFTER" envDefault:"10m"`
	CleanupEvery  time.Duration `env:"NOTIFY_WORKER_CLEANUP_EVERY" envDefault:"1h"`
	RetentionDays int           `env:"NOTIFY_WORKER_RETENTION_DAYS" envDefault:"30"`
}

// LoadConfig populates a Config from the environment, loading a .env file
// first when one is present.
func LoadConfig() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrFailedToParseConfig, err)
	}
	return cfg, nil
}

// Options converts the config into functional options for NewWorker.
func (c Config) Options() []Option {
	return []Option{
		WithPullInterval(c.PullInterval),
		WithBatchSize(c.BatchSize),
		WithReclaimAfter(c.ReclaimAfter),
		WithCleanup(c.CleanupEvery, c.RetentionDays),
	}
}
