// Package server assembles the bridge's HTTP surface and middleware
// chain.
package server

import (
	"log/slog"
	"net/http"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/soundline/voicebridge/pkg/bridge/config"
	"github.com/soundline/voicebridge/pkg/bridge/handlers"
	"github.com/soundline/voicebridge/pkg/bridge/mw"
	"github.com/soundline/voicebridge/pkg/bridge/tools"
)

// Dependencies are the shared collaborators the handlers need.
type Dependencies struct {
	Router     *tools.Router
	Credential azcore.TokenCredential
}

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux
	deps   Dependencies
}

func New(cfg config.Config, logger *slog.Logger, deps Dependencies) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		logger: logger,
		mux:    http.NewServeMux(),
		deps:   deps,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg})

	// Telephony media stream: ACS JSON envelopes both ways.
	s.mux.Handle("/acs/ws", handlers.MediaHandler{
		Config:     s.cfg,
		Logger:     s.logger,
		Router:     s.deps.Router,
		Credential: s.deps.Credential,
	})

	// Browser clients: binary PCM in, binary PCM out.
	s.mux.Handle("/web/ws", handlers.MediaHandler{
		Config:     s.cfg,
		Logger:     s.logger,
		Router:     s.deps.Router,
		Credential: s.deps.Credential,
		RawAudio:   true,
	})
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
