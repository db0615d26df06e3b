package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DiscordToken         string
	ApplicationID        string
	PublicKey            string
	GuildID              string
	CommandPrefix        string
	Port                 string
	DiscordWebhookURL    string
	ProjectID            string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration
	CommandsPerMinute    int
}

func Load() (*Config, error) {
	// A local .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	token := os.Getenv("DISCORD_TOKEN")
	if token == "" {
		return nil, fmt.Errorf("DISCORD_TOKEN environment variable is required but not set")
	}

	applicationID := os.Getenv("DISCORD_APPLICATION_ID")
	if applicationID == "" {
		slog.Warn("DISCORD_APPLICATION_ID not set, slash commands will not be registered")
	}

	publicKey := os.Getenv("DISCORD_PUBLIC_KEY")
	if publicKey == "" {
		slog.Info("DISCORD_PUBLIC_KEY not set, HTTP interactions endpoint disabled")
	}

	prefix := os.Getenv("COMMAND_PREFIX")
	if prefix == "" {
		prefix = "!eso"
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
		slog.Info("Defaulting to port", "port", port)
	}

	webhookURL := os.Getenv("DISCORD_WEBHOOK_URL")
	if webhookURL == "" {
		slog.Warn("DISCORD_WEBHOOK_URL not set, trade board announcements will be skipped")
	}

	sessionTTL, err := durationEnv("SESSION_TTL", "15m")
	if err != nil {
		return nil, err
	}
	sweepInterval, err := durationEnv("SESSION_SWEEP_INTERVAL", "1m")
	if err != nil {
		return nil, err
	}

	commandsPerMinute := 30
	if v := os.Getenv("COMMANDS_PER_MINUTE"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("invalid COMMANDS_PER_MINUTE %q: must be a positive integer", v)
		}
		commandsPerMinute = parsed
	}

	return &Config{
		DiscordToken:         token,
		ApplicationID:        applicationID,
		PublicKey:            publicKey,
		GuildID:              os.Getenv("DISCORD_GUILD_ID"),
		CommandPrefix:        prefix,
		Port:                 port,
		DiscordWebhookURL:    webhookURL,
		ProjectID:            os.Getenv("GOOGLE_CLOUD_PROJECT"),
		SessionTTL:           sessionTTL,
		SessionSweepInterval: sweepInterval,
		CommandsPerMinute:    commandsPerMinute,
	}, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		raw = fallback
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}
