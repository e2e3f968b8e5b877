package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/joho/godotenv"

	"github.com/soundline/voicebridge/pkg/bridge/config"
	"github.com/soundline/voicebridge/pkg/bridge/email"
	"github.com/soundline/voicebridge/pkg/bridge/server"
	"github.com/soundline/voicebridge/pkg/bridge/store"
	"github.com/soundline/voicebridge/pkg/bridge/tools"
)

type bridgeDeps struct {
	loadConfig   func() (config.Config, error)
	newServer    func(config.Config, *slog.Logger, server.Dependencies) *server.Server
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultBridgeDeps() bridgeDeps {
	return bridgeDeps{
		loadConfig: config.LoadFromEnv,
		newServer:  server.New,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

// unconfiguredDirectory stands in when no Postgres DSN is set; tool
// calls get an explanatory error instead of a crash.
type unconfiguredDirectory struct{}

func (unconfiguredDirectory) ClientProducts(context.Context, string) (tools.ClientProducts, error) {
	return tools.ClientProducts{}, errors.New("support store is not configured")
}

func (unconfiguredDirectory) CreateSupportCase(context.Context, string, string) (tools.CaseReceipt, error) {
	return tools.CaseReceipt{}, errors.New("support store is not configured")
}

func (unconfiguredDirectory) ClientContact(context.Context, string) (tools.ClientContact, error) {
	return tools.ClientContact{}, errors.New("support store is not configured")
}

type unconfiguredMailer struct{}

func (unconfiguredMailer) SendSummary(context.Context, string, string, string, string) (tools.MailReceipt, error) {
	return tools.MailReceipt{}, errors.New("email delivery is not configured")
}

func runBridge(ctx context.Context, logger *slog.Logger, deps bridgeDeps) error {
	if deps.loadConfig == nil {
		return errors.New("missing loadConfig dependency")
	}
	if deps.newServer == nil {
		return errors.New("missing newServer dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	var credential azcore.TokenCredential
	if cfg.IdentityClientID != "" {
		credential, err = azidentity.NewManagedIdentityCredential(&azidentity.ManagedIdentityCredentialOptions{
			ID: azidentity.ClientID(cfg.IdentityClientID),
		})
		if err != nil {
			return fmt.Errorf("managed identity credential: %w", err)
		}
	}

	var directory tools.Directory = unconfiguredDirectory{}
	if cfg.PostgresDSN != "" {
		st, err := store.Open(ctx, cfg.PostgresDSN, logger)
		if err != nil {
			return fmt.Errorf("open support store: %w", err)
		}
		defer st.Close()
		directory = st
	} else {
		logger.Warn("no postgres dsn configured, support tools disabled")
	}

	var mailer tools.SummaryMailer = unconfiguredMailer{}
	if cfg.EmailConnectionString != "" {
		client, err := email.NewClient(cfg.EmailConnectionString, cfg.EmailSenderAddress, logger)
		if err != nil {
			return fmt.Errorf("email client: %w", err)
		}
		mailer = client
	} else {
		logger.Warn("no email connection string configured, summary delivery disabled")
	}

	router := tools.NewSupportRouter(logger, directory, mailer)
	srv := deps.newServer(cfg, logger, server.Dependencies{
		Router:     router,
		Credential: credential,
	})
	httpSrv := buildHTTPServer(cfg, srv.Handler())

	logger.Info("starting voice bridge", "addr", cfg.Addr, "model", cfg.VoiceLiveModel)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("voice bridge stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps bridgeDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(stderr, "voicebridge: %v\n", err)
		return 1
	}

	if err := runBridge(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "voicebridge: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultBridgeDeps()))
}
