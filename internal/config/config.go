package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type AppConfig struct {
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	// FeedAddr serves the websocket spectator feed; empty disables it.
	FeedAddr string `env:"FEED_ADDR"`

	RedisURL    string `env:"REDIS_URL"`
	DatabaseURL string `env:"DATABASE_URL"`

	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	MaxSessions int           `env:"MAX_SESSIONS" envDefault:"1000"`

	MessagesLocale string `env:"MESSAGES_LOCALE" envDefault:"en"`
	MessagesDir    string `env:"MESSAGES_DIR"`

	PGNEvent string `env:"PGN_EVENT" envDefault:"Casual Game"`
	PGNSite  string `env:"PGN_SITE"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// Load reads the process environment.
func Load() (*AppConfig, error) {
	return load(env.Options{})
}

// LoadFrom reads vars instead of the process environment. Used by tests.
func LoadFrom(vars map[string]string) (*AppConfig, error) {
	return load(env.Options{Environment: vars})
}

func load(opts env.Options) (*AppConfig, error) {
	var cfg AppConfig
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	cfg.FeedAddr = strings.TrimSpace(cfg.FeedAddr)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.MessagesDir = strings.TrimSpace(cfg.MessagesDir)

	if cfg.ListenAddr == "" {
		return nil, errors.New("LISTEN_ADDR is required")
	}
	if cfg.SessionTTL <= 0 {
		return nil, errors.New("SESSION_TTL must be positive")
	}
	if cfg.MaxSessions <= 0 {
		return nil, errors.New("MAX_SESSIONS must be positive")
	}
	if cfg.RedisURL != "" && !strings.HasPrefix(cfg.RedisURL, "redis://") && !strings.HasPrefix(cfg.RedisURL, "rediss://") {
		return nil, fmt.Errorf("REDIS_URL: unsupported scheme in %q", cfg.RedisURL)
	}
	return &cfg, nil
}
