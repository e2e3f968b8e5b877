// Package handlers exposes the bridge's HTTP surface: health probes and
// the two caller-facing WebSocket endpoints.
package handlers

import (
	"log/slog"
	"net/http"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/gorilla/websocket"

	"github.com/soundline/voicebridge/pkg/bridge/config"
	"github.com/soundline/voicebridge/pkg/bridge/mw"
	"github.com/soundline/voicebridge/pkg/bridge/session"
	"github.com/soundline/voicebridge/pkg/bridge/tools"
)

// MediaHandler accepts one caller WebSocket, opens the matching
// upstream Voice Live session and pumps caller audio into it until
// either side hangs up.
type MediaHandler struct {
	Config     config.Config
	Logger     *slog.Logger
	Router     *tools.Router
	Credential azcore.TokenCredential

	// RawAudio selects the caller framing: binary PCM for browser
	// clients, ACS JSON envelopes for telephony media streams.
	RawAudio bool
}

// wsDownstream adapts a gorilla connection to the session's downstream
// transport. The mutex serializes writes; gorilla connections allow at
// most one concurrent writer.
type wsDownstream struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (d *wsDownstream) SendText(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.WriteMessage(websocket.TextMessage, data)
}

func (d *wsDownstream) SendBinary(data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conn.WriteMessage(websocket.BinaryMessage, data)
}

func (h MediaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if reqID, ok := mw.RequestIDFrom(r.Context()); ok {
		logger = logger.With("http_request_id", reqID)
	}

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(*http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()
	logger.Info("caller connected", "raw_audio", h.RawAudio, "remote", r.RemoteAddr)

	down := &wsDownstream{conn: conn}
	sess, err := session.New(session.Options{
		Config:     h.Config,
		Logger:     logger,
		Router:     h.Router,
		Downstream: down,
		RawAudio:   h.RawAudio,
		Credential: h.Credential,
	})
	if err != nil {
		logger.Error("session setup failed", "error", err)
		return
	}
	if err := sess.Connect(r.Context()); err != nil {
		logger.Error("upstream connect failed", "error", err)
		return
	}
	defer sess.Close()

	// If the upstream side dies first, closing the caller socket
	// unblocks the read loop below.
	go func() {
		<-sess.Done()
		_ = conn.Close()
	}()

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			logger.Info("caller disconnected", "reason", err)
			return
		}
		switch {
		case h.RawAudio && msgType == websocket.BinaryMessage:
			sess.ForwardCallerAudio(data)
		case !h.RawAudio && msgType == websocket.TextMessage:
			sess.HandleMediaFrame(data)
		default:
			// Frames in the wrong encoding for the mode carry no audio.
		}
	}
}
