package mw

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type baseWriter struct {
	header http.Header
	status int
	body   bytes.Buffer
}

func newBaseWriter() *baseWriter {
	return &baseWriter{header: make(http.Header), status: http.StatusOK}
}

func (w *baseWriter) Header() http.Header { return w.header }

func (w *baseWriter) WriteHeader(code int) { w.status = code }

func (w *baseWriter) Write(p []byte) (int, error) { return w.body.Write(p) }

type hijackableWriter struct {
	*baseWriter
	hijacked bool
}

func (w *hijackableWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	w.hijacked = true
	return nil, nil, nil
}

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, nil))
}

func parseSingleLogRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	if line == "" {
		t.Fatal("expected log output")
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("unmarshal log: %v", err)
	}
	return rec
}

func TestRequestID_MintsAndEchoes(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFrom(r.Context())
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if seen == "" || rr.Header().Get("X-Request-ID") != seen {
		t.Fatalf("seen=%q header=%q", seen, rr.Header().Get("X-Request-ID"))
	}

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "req_inbound")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "req_inbound" {
		t.Fatalf("seen=%q", seen)
	}
}

func TestRecover_PanicBecomes500(t *testing.T) {
	logOut := &bytes.Buffer{}
	h := Recover(newTestLogger(logOut), http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/acs/ws", nil))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rr.Code)
	}
	rec := parseSingleLogRecord(t, logOut)
	if rec["panic"] != "boom" {
		t.Fatalf("log=%v", rec)
	}
}

func TestAccessLog_StatusExplicitWriteHeader(t *testing.T) {
	logOut := &bytes.Buffer{}
	h := AccessLog(newTestLogger(logOut), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))

	h.ServeHTTP(newBaseWriter(), httptest.NewRequest(http.MethodGet, "/acs/ws", nil))

	rec := parseSingleLogRecord(t, logOut)
	if got, ok := rec["status"].(float64); !ok || int(got) != http.StatusBadRequest {
		t.Fatalf("status=%v", rec["status"])
	}
}

func TestAccessLog_ImplicitWriteIs200(t *testing.T) {
	logOut := &bytes.Buffer{}
	h := AccessLog(newTestLogger(logOut), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	}))

	h.ServeHTTP(newBaseWriter(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := parseSingleLogRecord(t, logOut)
	if got, ok := rec["status"].(float64); !ok || int(got) != http.StatusOK {
		t.Fatalf("status=%v", rec["status"])
	}
}

func TestAccessLog_PreservesHijacker(t *testing.T) {
	writer := &hijackableWriter{baseWriter: newBaseWriter()}
	logOut := &bytes.Buffer{}

	h := AccessLog(newTestLogger(logOut), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Fatal("expected http.Hijacker to be preserved")
		}
		_, _, _ = hj.Hijack()
	}))

	h.ServeHTTP(writer, httptest.NewRequest(http.MethodGet, "/acs/ws", nil))

	if !writer.hijacked {
		t.Fatal("expected hijack to be delegated")
	}
}

func TestAccessLog_DoesNotAdvertiseUnsupportedInterfaces(t *testing.T) {
	logOut := &bytes.Buffer{}
	h := AccessLog(newTestLogger(logOut), http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if _, ok := w.(http.Hijacker); ok {
			t.Fatal("did not expect http.Hijacker to be advertised")
		}
		if _, ok := w.(http.Flusher); ok {
			t.Fatal("did not expect http.Flusher to be advertised")
		}
	}))

	h.ServeHTTP(newBaseWriter(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
}
