package main

import (
	"context"
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/esotraders/exchange-bot/internal/bot"
	"github.com/esotraders/exchange-bot/internal/config"
	"github.com/esotraders/exchange-bot/internal/listings"
	"github.com/esotraders/exchange-bot/internal/notifier"
	"github.com/esotraders/exchange-bot/internal/session"
	"github.com/esotraders/exchange-bot/internal/storage"
	"github.com/esotraders/exchange-bot/internal/validator"
)

func main() {
	slog.Info("Starting ESO exchange bot...")
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Critical error loading configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Bot stopped with error", "error", err)
		os.Exit(1)
	}
	slog.Info("Bot stopped.")
}

func run(ctx context.Context, cfg *config.Config) error {
	v := validator.New()
	deps := bot.Deps{
		Store:     listings.NewStore(),
		Machine:   session.NewMachine(v, cfg.SessionTTL),
		Forms:     session.NewFormDriver(v, cfg.SessionTTL),
		Validator: v,
		Notifier:  notifier.New(cfg.DiscordWebhookURL),
	}

	if cfg.ProjectID != "" {
		archive, err := storage.New(ctx, cfg.ProjectID)
		if err != nil {
			return fmt.Errorf("initialize Firestore archive: %w", err)
		}
		defer archive.Close()
		deps.Archive = archive
	} else {
		slog.Info("GOOGLE_CLOUD_PROJECT not set, listing history is disabled")
	}

	b, err := bot.New(bot.Config{
		Token:             cfg.DiscordToken,
		ApplicationID:     cfg.ApplicationID,
		GuildID:           cfg.GuildID,
		Prefix:            cfg.CommandPrefix,
		CommandsPerMinute: cfg.CommandsPerMinute,
	}, deps)
	if err != nil {
		return err
	}
	defer b.Wait()

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, `{"status":"ok"}`)
	})
	if cfg.PublicKey != "" {
		key, err := hex.DecodeString(cfg.PublicKey)
		if err != nil || len(key) != ed25519.PublicKeySize {
			return fmt.Errorf("DISCORD_PUBLIC_KEY must be a hex encoded Ed25519 public key")
		}
		mux.HandleFunc("/interactions", b.InteractionsHandler(key))
	}

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("Listening on port", "port", cfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen and serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server shutdown error", "error", err)
		}
		return nil
	})

	g.Go(func() error {
		return b.Run(ctx)
	})

	g.Go(func() error {
		ticker := time.NewTicker(cfg.SessionSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				b.Sweep()
			}
		}
	})

	return g.Wait()
}
