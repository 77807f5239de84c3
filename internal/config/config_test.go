package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.ListenAddr != ":8080" || cfg.SessionTTL != 24*time.Hour || cfg.MaxSessions != 1000 {
		t.Fatalf("defaults = %+v", cfg)
	}
	if cfg.MessagesLocale != "en" || cfg.RedisURL != "" || cfg.FeedAddr != "" {
		t.Fatalf("defaults = %+v", cfg)
	}
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"LISTEN_ADDR":  " 127.0.0.1:9000 ",
		"REDIS_URL":    "redis://localhost:6379/2",
		"SESSION_TTL":  "90m",
		"MAX_SESSIONS": "5",
		"FEED_ADDR":    ":9001",
	})
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.ListenAddr != "127.0.0.1:9000" || cfg.SessionTTL != 90*time.Minute || cfg.MaxSessions != 5 || cfg.FeedAddr != ":9001" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	bad := []map[string]string{
		{"SESSION_TTL": "soon"},
		{"SESSION_TTL": "-1s"},
		{"MAX_SESSIONS": "0"},
		{"REDIS_URL": "http://localhost"},
	}
	for _, vars := range bad {
		if _, err := LoadFrom(vars); err == nil {
			t.Fatalf("expected error for %v", vars)
		}
	}
}
