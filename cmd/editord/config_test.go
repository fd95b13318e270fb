package main

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("EDITORD_LISTEN_ADDR", "")
	t.Setenv("EDITORD_SESSION_TTL", "")
	t.Setenv("EDITORD_JANITOR_INTERVAL", "")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}

	if cfg.ListenAddr != ":8085" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.NATSURL != "" {
		t.Fatalf("expected NATS disabled by default, got %s", cfg.NATSURL)
	}
	if cfg.SessionTTL != 30*time.Minute {
		t.Fatalf("unexpected session TTL: %s", cfg.SessionTTL)
	}
	if cfg.JanitorInterval != time.Minute {
		t.Fatalf("unexpected janitor interval: %s", cfg.JanitorInterval)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("EDITORD_LISTEN_ADDR", ":9000")
	t.Setenv("EDITORD_SESSION_TTL", "2h")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatalf("loadConfig returned error: %v", err)
	}
	if cfg.ListenAddr != ":9000" {
		t.Fatalf("unexpected listen addr: %s", cfg.ListenAddr)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Fatalf("unexpected session TTL: %s", cfg.SessionTTL)
	}
}

func TestLoadConfigInvalidTTL(t *testing.T) {
	t.Setenv("EDITORD_SESSION_TTL", "soon")

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for invalid EDITORD_SESSION_TTL")
	}
}

func TestLoadConfigNonPositiveInterval(t *testing.T) {
	t.Setenv("EDITORD_JANITOR_INTERVAL", "-5s")

	if _, err := loadConfig(); err == nil {
		t.Fatal("expected error for negative EDITORD_JANITOR_INTERVAL")
	}
}
