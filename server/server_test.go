package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kbukum/speakerkit/align"
	"github.com/kbukum/speakerkit/attribution"
	"github.com/kbukum/speakerkit/logger"
)

type stubAttributor struct {
	result *attribution.Result
	last   attribution.Request
}

func (s *stubAttributor) Attribute(ctx context.Context, req attribution.Request) *attribution.Result {
	s.last = req
	return s.result
}

type stubBackend struct {
	name      string
	available bool
}

func (s stubBackend) Name() string                         { return s.name }
func (s stubBackend) IsAvailable(ctx context.Context) bool { return s.available }

func newTestServer(attributor Attributor, backends []Backend) *Server {
	var cfg Config
	cfg.ApplyDefaults()
	return New(cfg, attributor, backends, logger.NewDefault("server-test"))
}

func TestHandleHealth(t *testing.T) {
	srv := newTestServer(&stubAttributor{}, []Backend{
		stubBackend{name: "whisper", available: true},
		stubBackend{name: "pyannote", available: false},
	})

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Status   string          `json:"status"`
		Backends map[string]bool `json:"backends"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Status != "ok" {
		t.Errorf("status = %q, want ok", body.Status)
	}
	if !body.Backends["whisper"] || body.Backends["pyannote"] {
		t.Errorf("backends = %v, want whisper available, pyannote not", body.Backends)
	}
}

func TestHandleVersion(t *testing.T) {
	srv := newTestServer(&stubAttributor{}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Version == "" {
		t.Error("missing version field")
	}
}

func TestHandleAttribute(t *testing.T) {
	attributor := &stubAttributor{result: &attribution.Result{
		RunID:    "test-run",
		Strategy: attribution.StrategyTextOnly,
		Segments: []align.SpeakerSegment{
			{Speaker: "Speaker 1", Text: "Hello."},
			{Speaker: "Speaker 2", Text: "Hi."},
		},
	}}
	srv := newTestServer(attributor, nil)

	body := `{"transcript": "Hello. Hi.", "num_speakers": 2, "duration_seconds": 8.5}`
	req := httptest.NewRequest(http.MethodPost, "/v1/attribute", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Data attribution.Result `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(resp.Data.Segments) != 2 {
		t.Errorf("got %d segments, want 2", len(resp.Data.Segments))
	}
	if attributor.last.NumSpeakers != 2 {
		t.Errorf("engine saw num_speakers = %d, want 2", attributor.last.NumSpeakers)
	}
	if got := attributor.last.Duration.Seconds(); got != 8.5 {
		t.Errorf("engine saw duration = %vs, want 8.5s", got)
	}
}

func TestHandleAttributeRejectsEmptyRequest(t *testing.T) {
	srv := newTestServer(&stubAttributor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/attribute", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestHandleAttributeRejectsBadJSON(t *testing.T) {
	srv := newTestServer(&stubAttributor{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/attribute", strings.NewReader(`{not json`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(&stubAttributor{}, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("missing X-Request-Id header on response")
	}

	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	req.Header.Set("X-Request-Id", "fixed-id")
	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-Id"); got != "fixed-id" {
		t.Errorf("X-Request-Id = %q, want %q (inbound id preserved)", got, "fixed-id")
	}
}
