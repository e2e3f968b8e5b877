package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/soundline/voicebridge/pkg/bridge/config"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

// ReadyHandler reports whether the bridge is configured well enough to
// accept calls.
type ReadyHandler struct {
	Config config.Config
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK           bool     `json:"ok"`
		Model        string   `json:"model"`
		StoreEnabled bool     `json:"store_enabled"`
		EmailEnabled bool     `json:"email_enabled"`
		Issues       []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)
	if h.Config.VoiceLiveEndpoint == "" {
		issues = append(issues, "voice live endpoint is not set")
	}
	if h.Config.VoiceLiveAPIKey == "" && h.Config.IdentityClientID == "" {
		issues = append(issues, "no upstream credential configured")
	}
	if h.Config.ConnectTimeout <= 0 {
		issues = append(issues, "connect timeout must be > 0")
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:           ok,
		Model:        h.Config.VoiceLiveModel,
		StoreEnabled: h.Config.PostgresDSN != "",
		EmailEnabled: h.Config.EmailConnectionString != "",
		Issues:       issues,
	})
}
