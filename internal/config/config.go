package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"

	"ascend/internal/storage"
)

// Config holds the runtime settings read from the environment at startup.
type Config struct {
	DBPath       string        `env:"ASCEND_DB_PATH"`
	APIBaseURL   string        `env:"ASCEND_API_URL" envDefault:"http://localhost:8420"`
	SyncInterval time.Duration `env:"ASCEND_SYNC_INTERVAL" envDefault:"1m"`
	SyncBatch    int           `env:"ASCEND_SYNC_BATCH" envDefault:"10"`
	HTTPTimeout  time.Duration `env:"ASCEND_HTTP_TIMEOUT" envDefault:"10s"`
	UserID       string        `env:"ASCEND_USER" envDefault:"local"`
	Debug        bool          `env:"ASCEND_DEBUG"`
}

// Load parses the environment and fills in the database path default, which
// depends on the home directory and cannot be a static tag value.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.DBPath == "" {
		p, err := storage.DefaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = p
	}
	return cfg, nil
}
