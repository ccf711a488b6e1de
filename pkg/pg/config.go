package pg

import (
	"errors"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config controls pool sizing, startup retries, and migrations for the
// notification store. All values come from environment variables so they can
// be tuned per environment without code changes.
type Config struct {
	ConnectionString  string        `env:"NOTIFY_PG_CONN_URL,required"`
	MaxOpenConns      int32         `env:"NOTIFY_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns      int32         `env:"NOTIFY_PG_MAX_IDLE_CONNS" envDefault:"5"`
	HealthCheckPeriod time.Duration `env:"NOTIFY_PG_HEALTHCHECK_PERIOD" envDefault:"1m"`
	MaxConnIdleTime   time.Duration `env:"NOTIFY_PG_MAX_CONN_IDLE_TIME" envDefault:"10m"`
	MaxConnLifetime   time.Duration `env:"NOTIFY_PG_MAX_CONN_LIFETIME" envDefault:"30m"`

	RetryAttempts int           `env:"NOTIFY_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval time.Duration `env:"NOTIFY_PG_RETRY_INTERVAL" envDefault:"5s"`

	MigrationsPath  string `env:"NOTIFY_PG_MIGRATIONS_PATH" envDefault:"migrations"`
	MigrationsTable string `env:"NOTIFY_PG_MIGRATIONS_TABLE" envDefault:"schema_migrations"`
}

// LoadConfig populates a Config from the environment, loading a .env file
// first when one is present.
func LoadConfig() (Config, error) {
	// The .env file is optional; absence is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrFailedToParseDBConfig, err)
	}
	return cfg, nil
}
