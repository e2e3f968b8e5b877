package config

import (
	"testing"
	"time"
)

func TestLoadFromEnv_RequiresEndpoint(t *testing.T) {
	t.Setenv("VOICEBRIDGE_VOICE_LIVE_ENDPOINT", "")
	t.Setenv("VOICEBRIDGE_VOICE_LIVE_API_KEY", "k")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error when endpoint is missing")
	}
}

func TestLoadFromEnv_RequiresSomeCredential(t *testing.T) {
	t.Setenv("VOICEBRIDGE_VOICE_LIVE_ENDPOINT", "https://example.cognitiveservices.azure.com")
	t.Setenv("VOICEBRIDGE_VOICE_LIVE_API_KEY", "")
	t.Setenv("VOICEBRIDGE_IDENTITY_CLIENT_ID", "")
	if _, err := LoadFromEnv(); err == nil {
		t.Fatalf("expected error when both credentials are missing")
	}
}

func TestLoadFromEnv_Defaults(t *testing.T) {
	t.Setenv("VOICEBRIDGE_VOICE_LIVE_ENDPOINT", "https://example.cognitiveservices.azure.com")
	t.Setenv("VOICEBRIDGE_VOICE_LIVE_API_KEY", "k")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.Addr != ":8000" {
		t.Fatalf("Addr=%q, want :8000", cfg.Addr)
	}
	if cfg.VoiceLiveModel != "gpt-4o-mini" {
		t.Fatalf("VoiceLiveModel=%q, want gpt-4o-mini", cfg.VoiceLiveModel)
	}
	if cfg.APIVersion != "2025-05-01-preview" {
		t.Fatalf("APIVersion=%q", cfg.APIVersion)
	}
	if cfg.TokenScope != "https://cognitiveservices.azure.com/.default" {
		t.Fatalf("TokenScope=%q", cfg.TokenScope)
	}
	if cfg.ConnectTimeout != 15*time.Second {
		t.Fatalf("ConnectTimeout=%v", cfg.ConnectTimeout)
	}
}

func TestEnvDurationOr_AcceptsBareMilliseconds(t *testing.T) {
	t.Setenv("VB_TEST_DURATION", "250")
	if got := envDurationOr("VB_TEST_DURATION", time.Second); got != 250*time.Millisecond {
		t.Fatalf("got %v, want 250ms", got)
	}
	t.Setenv("VB_TEST_DURATION", "3s")
	if got := envDurationOr("VB_TEST_DURATION", time.Second); got != 3*time.Second {
		t.Fatalf("got %v, want 3s", got)
	}
	t.Setenv("VB_TEST_DURATION", "bogus")
	if got := envDurationOr("VB_TEST_DURATION", time.Second); got != time.Second {
		t.Fatalf("got %v, want fallback", got)
	}
}
