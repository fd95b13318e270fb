package main

import (
	"fmt"
	"os"
	"time"
)

type config struct {
	ListenAddr      string
	NATSURL         string
	PublishURL      string
	MusicURL        string
	SessionTTL      time.Duration
	JanitorInterval time.Duration
}

func loadConfig() (config, error) {
	cfg := config{
		ListenAddr: getenv("EDITORD_LISTEN_ADDR", ":8085"),
		NATSURL:    getenv("EDITORD_NATS_URL", ""),
		PublishURL: getenv("EDITORD_PUBLISH_URL", "http://127.0.0.1:8080/api/Reels/crear"),
		MusicURL:   getenv("EDITORD_MUSIC_URL", ""),
	}

	ttl, err := parseDuration("EDITORD_SESSION_TTL", 30*time.Minute)
	if err != nil {
		return config{}, err
	}
	cfg.SessionTTL = ttl

	interval, err := parseDuration("EDITORD_JANITOR_INTERVAL", time.Minute)
	if err != nil {
		return config{}, err
	}
	cfg.JanitorInterval = interval

	return cfg, nil
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, v)
	}
	return d, nil
}
