package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/complicheck/complicheck/internal/home"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	h, err := home.New(t.TempDir())
	if err != nil {
		t.Fatalf("creating home: %v", err)
	}

	s, err := New(Config{
		Host: "127.0.0.1",
		Port: "0",
		Home: h,
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return s
}

func TestNewCreatesHomeLayout(t *testing.T) {
	s := newTestServer(t)

	if s.Registry() == nil {
		t.Error("registry not created")
	}
	svcs := s.Services()
	if svcs == nil || svcs.Parser == nil || svcs.Uploads == nil || svcs.Chat == nil || svcs.Compliance == nil {
		t.Fatalf("services incomplete: %+v", svcs)
	}
	if !svcs.Home.Exists() {
		t.Error("home directory not created")
	}
	if s.Addr() != "127.0.0.1:0" {
		t.Errorf("addr = %q", s.Addr())
	}
	if s.IsRunning() {
		t.Error("server reports running before Start")
	}
}

func TestServerHandlerRoutes(t *testing.T) {
	s := newTestServer(t)
	handler := s.httpServer.Handler

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d", rec.Code)
	}

	// Services are injected, so /ready reports ok.
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/ready status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/status status = %d", rec.Code)
	}
	var status struct {
		Server  string `json:"server"`
		Version string `json:"version"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decoding status: %v", err)
	}
	if status.Server != "running" {
		t.Errorf("status.server = %q", status.Server)
	}
}

func TestServerRejectsBadChatRequest(t *testing.T) {
	s := newTestServer(t)
	handler := s.httpServer.Handler

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", nil)
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("empty chat body status = %d, want 400", rec.Code)
	}
}
