package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/soundline/voicebridge/pkg/bridge/config"
	bridgeserver "github.com/soundline/voicebridge/pkg/bridge/server"
)

func TestRunMain_ReturnsNonZeroWhenConfigLoadFails(t *testing.T) {
	t.Parallel()

	var stderr bytes.Buffer
	exitCode := runMain(context.Background(), &stderr, bridgeDeps{
		loadConfig: func() (config.Config, error) {
			return config.Config{}, errors.New("boom")
		},
		newServer: func(config.Config, *slog.Logger, bridgeserver.Dependencies) *bridgeserver.Server {
			t.Fatal("newServer should not be called when config load fails")
			return nil
		},
		signalNotify: func(chan<- os.Signal, ...os.Signal) {},
		signalStop:   func(chan<- os.Signal) {},
	})

	if exitCode != 1 {
		t.Fatalf("exitCode=%d, want 1", exitCode)
	}
	if stderr.String() == "" {
		t.Fatal("expected stderr output for startup error")
	}
}

func TestBuildHTTPServer_UsesConfiguredAddress(t *testing.T) {
	t.Parallel()

	cfg := config.Config{
		Addr:              "127.0.0.1:9999",
		ReadHeaderTimeout: 2 * time.Second,
		ReadTimeout:       3 * time.Second,
	}

	srv := buildHTTPServer(cfg, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	if srv.Addr != cfg.Addr {
		t.Fatalf("Addr=%q, want %q", srv.Addr, cfg.Addr)
	}
	if srv.ReadHeaderTimeout != cfg.ReadHeaderTimeout {
		t.Fatalf("ReadHeaderTimeout=%v", srv.ReadHeaderTimeout)
	}
	if srv.ReadTimeout != cfg.ReadTimeout {
		t.Fatalf("ReadTimeout=%v", srv.ReadTimeout)
	}
}

func TestRunBridge_ShutsDownOnSignal(t *testing.T) {
	t.Parallel()

	deps := defaultBridgeDeps()
	deps.loadConfig = func() (config.Config, error) {
		return config.Config{
			Addr:                "127.0.0.1:0",
			VoiceLiveEndpoint:   "https://res.example.com",
			VoiceLiveModel:      "gpt-4o-mini",
			VoiceLiveAPIKey:     "k",
			APIVersion:          "2025-05-01-preview",
			ConnectTimeout:      time.Second,
			ShutdownGracePeriod: time.Second,
		}, nil
	}
	deps.signalNotify = func(c chan<- os.Signal, _ ...os.Signal) {
		go func() {
			time.Sleep(50 * time.Millisecond)
			c <- syscall.SIGTERM
		}()
	}
	deps.signalStop = func(chan<- os.Signal) {}

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	errCh := make(chan error, 1)
	go func() {
		errCh <- runBridge(context.Background(), logger, deps)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("runBridge: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("runBridge did not shut down")
	}
}

func TestUnconfiguredCollaboratorsReturnErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if _, err := (unconfiguredDirectory{}).ClientProducts(ctx, "1"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := (unconfiguredDirectory{}).CreateSupportCase(ctx, "1", "d"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := (unconfiguredDirectory{}).ClientContact(ctx, "1"); err == nil {
		t.Fatal("expected error")
	}
	if _, err := (unconfiguredMailer{}).SendSummary(ctx, "a@b", "n", "1", "s"); err == nil {
		t.Fatal("expected error")
	}
}
