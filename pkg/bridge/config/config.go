package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime settings for the voice bridge. Values are
// loaded from the environment once at startup and passed explicitly to
// every component.
type Config struct {
	Addr string

	// Voice Live upstream.
	VoiceLiveEndpoint string
	VoiceLiveModel    string
	VoiceLiveAPIKey   string
	// When set, the bridge authenticates upstream with a managed-identity
	// bearer token instead of the static api-key header.
	IdentityClientID string
	TokenScope       string
	APIVersion       string

	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// Support store (clients, products, support cases).
	PostgresDSN string

	// Conversation-summary email delivery.
	EmailConnectionString string
	EmailSenderAddress    string

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

// LoadFromEnv builds a Config from VOICEBRIDGE_* environment variables.
func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                  envOr("VOICEBRIDGE_ADDR", ":8000"),
		VoiceLiveEndpoint:     strings.TrimSpace(os.Getenv("VOICEBRIDGE_VOICE_LIVE_ENDPOINT")),
		VoiceLiveModel:        envOr("VOICEBRIDGE_VOICE_LIVE_MODEL", "gpt-4o-mini"),
		VoiceLiveAPIKey:       strings.TrimSpace(os.Getenv("VOICEBRIDGE_VOICE_LIVE_API_KEY")),
		IdentityClientID:      strings.TrimSpace(os.Getenv("VOICEBRIDGE_IDENTITY_CLIENT_ID")),
		TokenScope:            envOr("VOICEBRIDGE_TOKEN_SCOPE", "https://cognitiveservices.azure.com/.default"),
		APIVersion:            envOr("VOICEBRIDGE_API_VERSION", "2025-05-01-preview"),
		ConnectTimeout:        envDurationOr("VOICEBRIDGE_CONNECT_TIMEOUT", 15*time.Second),
		WriteTimeout:          envDurationOr("VOICEBRIDGE_WRITE_TIMEOUT", 5*time.Second),
		PostgresDSN:           strings.TrimSpace(os.Getenv("VOICEBRIDGE_POSTGRES_DSN")),
		EmailConnectionString: strings.TrimSpace(os.Getenv("VOICEBRIDGE_EMAIL_CONNECTION_STRING")),
		EmailSenderAddress:    envOr("VOICEBRIDGE_EMAIL_SENDER", "donotreply@your-domain.azurecomm.net"),
		ReadHeaderTimeout:     envDurationOr("VOICEBRIDGE_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:           envDurationOr("VOICEBRIDGE_READ_TIMEOUT", 0),
		ShutdownGracePeriod:   envDurationOr("VOICEBRIDGE_SHUTDOWN_GRACE", 10*time.Second),
	}

	if cfg.VoiceLiveEndpoint == "" {
		return Config{}, fmt.Errorf("VOICEBRIDGE_VOICE_LIVE_ENDPOINT is required")
	}
	if cfg.VoiceLiveAPIKey == "" && cfg.IdentityClientID == "" {
		return Config{}, fmt.Errorf("either VOICEBRIDGE_VOICE_LIVE_API_KEY or VOICEBRIDGE_IDENTITY_CLIENT_ID must be set")
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Millisecond
	}
	return fallback
}
