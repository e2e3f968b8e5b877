// Package session owns the lifetime of one Voice Live conversation: the
// upstream WebSocket, the outbound dispatch queue feeding its sole
// writer, and the sole reader dispatching typed upstream events.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"log/slog"

	"github.com/soundline/voicebridge/pkg/bridge/config"
	"github.com/soundline/voicebridge/pkg/bridge/protocol"
	"github.com/soundline/voicebridge/pkg/bridge/tools"
)

// Downstream is the caller-facing transport the session writes audio
// and transcripts to. Implementations must be safe for use from the
// session's receiver goroutine.
type Downstream interface {
	SendText(data []byte) error
	SendBinary(data []byte) error
}

// upstreamConn is the subset of *websocket.Conn the session uses,
// extracted so tests can substitute a fake.
type upstreamConn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Options configures a new Session.
type Options struct {
	Config     config.Config
	Logger     *slog.Logger
	Router     *tools.Router
	Downstream Downstream

	// RawAudio selects the downstream framing: binary PCM frames for
	// plain web clients, ACS JSON envelopes for telephony media streams.
	RawAudio bool

	// Credential is required when Config.IdentityClientID is set.
	Credential azcore.TokenCredential

	// Dialer overrides websocket.DefaultDialer, mainly for tests.
	Dialer *websocket.Dialer
}

// Session bridges one downstream caller to one upstream Voice Live
// connection. The sender goroutine is the only writer on the upstream
// socket after Connect returns; the receiver goroutine is the only
// reader.
type Session struct {
	cfg        config.Config
	logger     *slog.Logger
	router     *tools.Router
	down       Downstream
	rawAudio   bool
	credential azcore.TokenCredential
	dialer     *websocket.Dialer
	requestID  string

	queue *dispatchQueue
	conn  upstreamConn

	cancel    context.CancelFunc
	started   atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New builds a session that is not yet connected upstream.
func New(opts Options) (*Session, error) {
	if opts.Downstream == nil {
		return nil, fmt.Errorf("session: downstream transport is required")
	}
	if opts.Router == nil {
		return nil, fmt.Errorf("session: tool router is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	requestID := uuid.NewString()
	return &Session{
		cfg:        opts.Config,
		logger:     logger.With("request_id", requestID),
		router:     opts.Router,
		down:       opts.Downstream,
		rawAudio:   opts.RawAudio,
		credential: opts.Credential,
		dialer:     opts.Dialer,
		requestID:  requestID,
		queue:      newDispatchQueue(),
		done:       make(chan struct{}),
	}, nil
}

// RequestID is the correlation id sent upstream as x-ms-client-request-id.
func (s *Session) RequestID() string { return s.requestID }

// Done closes when both session goroutines have exited, whichever side
// failed first.
func (s *Session) Done() <-chan struct{} { return s.done }

// Connect dials the upstream endpoint, performs the configuration
// handshake (session.update then response.create) and starts the sender
// and receiver goroutines. The passed context bounds the dial and, once
// connected, the session lifetime.
func (s *Session) Connect(ctx context.Context) error {
	target, err := s.upstreamURL()
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("x-ms-client-request-id", s.requestID)
	if s.cfg.IdentityClientID != "" {
		if s.credential == nil {
			return fmt.Errorf("session: identity client id set but no credential provided")
		}
		token, err := s.credential.GetToken(ctx, policy.TokenRequestOptions{
			Scopes: []string{s.cfg.TokenScope},
		})
		if err != nil {
			return fmt.Errorf("session: acquire bearer token: %w", err)
		}
		header.Set("Authorization", "Bearer "+token.Token)
	} else {
		header.Set("api-key", s.cfg.VoiceLiveAPIKey)
	}

	dialer := s.dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	dialCtx := ctx
	if s.cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer cancel()
	}

	conn, resp, err := dialer.DialContext(dialCtx, target, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("session: dial upstream: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("session: dial upstream: %w", err)
	}
	s.conn = conn

	// Handshake frames go out directly: the sender loop is not running
	// yet, so the sole-writer rule holds.
	if err := s.writeJSON(newSessionUpdate()); err != nil {
		conn.Close()
		s.conn = nil
		return fmt.Errorf("session: send session.update: %w", err)
	}
	if err := s.writeJSON(protocol.NewResponseCreate()); err != nil {
		conn.Close()
		s.conn = nil
		return fmt.Errorf("session: send response.create: %w", err)
	}
	s.logger.Info("upstream connected", "model", s.cfg.VoiceLiveModel)

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.wg.Add(2)
	go s.senderLoop(loopCtx)
	go s.receiverLoop(loopCtx)
	go func() {
		s.wg.Wait()
		close(s.done)
	}()
	s.started.Store(true)
	return nil
}

// Close tears the session down and waits for its goroutines to exit.
// Safe to call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		if s.cancel != nil {
			s.cancel()
		}
		s.queue.Close()
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
	if s.started.Load() {
		<-s.done
	}
}

func (s *Session) upstreamURL() (string, error) {
	raw := strings.TrimSpace(s.cfg.VoiceLiveEndpoint)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("session: parse endpoint %q: %w", raw, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "wss", "ws":
	default:
		return "", fmt.Errorf("session: unsupported endpoint scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/voice-live/realtime"

	q := url.Values{}
	q.Set("api-version", s.cfg.APIVersion)
	q.Set("model", s.cfg.VoiceLiveModel)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (s *Session) writeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if c, ok := s.conn.(*websocket.Conn); ok && s.cfg.WriteTimeout > 0 {
		_ = c.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	}
	return s.conn.WriteMessage(websocket.TextMessage, data)
}
