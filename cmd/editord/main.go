// cmd/editord runs the editing engine as an HTTP service.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/reelworks/reeledit/internal/api"
	"github.com/reelworks/reeledit/internal/audio"
	"github.com/reelworks/reeledit/internal/bus"
	"github.com/reelworks/reeledit/internal/export"
	"github.com/reelworks/reeledit/internal/publish"
	"github.com/reelworks/reeledit/internal/session"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		fatal(logger, "load config", err)
	}
	logger.Info("editord starting",
		"listen", cfg.ListenAddr,
		"publish_url", cfg.PublishURL,
		"music_url", cfg.MusicURL,
		"nats_url", cfg.NATSURL,
		"session_ttl", cfg.SessionTTL,
		"ffmpeg", export.FFmpegAvailable())

	var pub bus.Publisher = bus.Nop{}
	if cfg.NATSURL != "" {
		client, err := bus.Connect(cfg.NATSURL)
		if err != nil {
			fatal(logger, "connect nats", err)
		}
		defer client.Close()
		pub = client
		logger.Info("connected to nats", "url", cfg.NATSURL)
	}

	deps := session.Deps{
		Bus:     pub,
		Publish: publish.NewClient(cfg.PublishURL, nil),
		Log:     logger,
	}
	reg := session.NewRegistry(deps, cfg.SessionTTL)

	var music api.MusicLibrary
	if cfg.MusicURL != "" {
		music = audio.NewLibraryClient(cfg.MusicURL)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go reg.RunJanitor(ctx, cfg.JanitorInterval)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.NewServer(reg, music, nil, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("listening", "addr", cfg.ListenAddr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		fatal(logger, "serve", err)
	}

	reg.CloseAll()
	logger.Info("editord stopped")
}

func fatal(logger *slog.Logger, msg string, err error, attrs ...any) {
	attrs = append(attrs, "err", err)
	logger.Error(msg, attrs...)
	os.Exit(1)
}
