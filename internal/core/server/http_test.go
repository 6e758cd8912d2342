package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/planora/automations/internal/core/config"
	"github.com/planora/automations/internal/core/store"
	"github.com/planora/automations/internal/engine"
	"github.com/planora/automations/internal/types"
)

func testServer(t *testing.T) (*HTTPServer, *store.Memory) {
	t.Helper()

	provider := store.NewMemory()
	provider.Add(types.Rule{
		ID:       "rule-001",
		TenantID: "wed-42",
		Name:     "confirmation-email",
		Enabled:  true,
		Definition: types.Document{
			"channel": "email",
			"type":    "rsvp.received",
			"conditions": []any{
				types.Document{"path": "status", "value": "confirmed"},
			},
			"actions": []any{
				types.Document{"kind": "send_email", "to": "{guest.email}"},
			},
		},
	})

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(provider, engine.WithLogger(log))

	cfg := config.DefaultIngestAPIConfig()
	s, err := NewHTTPServer(cfg, eng, log)
	if err != nil {
		t.Fatalf("NewHTTPServer() error = %v", err)
	}
	return s, provider
}

func postEvent(t *testing.T, s *HTTPServer, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/events", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)
	return rec
}

func TestHandleIngestEvent_Match(t *testing.T) {
	s, _ := testServer(t)

	rec := postEvent(t, s, `{
		"channel": "email",
		"type": "rsvp.received",
		"tenantId": "wed-42",
		"payload": {"status": "confirmed", "guest": {"email": "alice@example.com"}}
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", rec.Code, rec.Body.String())
	}

	var result struct {
		Accepted bool `json:"accepted"`
		Event    struct {
			ID      string `json:"id"`
			Channel string `json:"channel"`
		} `json:"event"`
		Actions []struct {
			RuleID  string           `json:"ruleId"`
			Actions []types.Document `json:"actions"`
		} `json:"actions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response decode error = %v", err)
	}
	if !result.Accepted {
		t.Errorf("accepted = false, want true")
	}
	if result.Event.ID == "" || result.Event.Channel != "email" {
		t.Errorf("event = %+v, want normalized event", result.Event)
	}
	if len(result.Actions) != 1 || result.Actions[0].RuleID != "rule-001" {
		t.Fatalf("actions = %+v, want one outcome for rule-001", result.Actions)
	}
	if len(result.Actions[0].Actions) != 1 || result.Actions[0].Actions[0]["to"] != "alice@example.com" {
		t.Errorf("interpolated actions = %+v", result.Actions[0].Actions)
	}
}

func TestHandleIngestEvent_NoMatchStillAccepted(t *testing.T) {
	s, _ := testServer(t)

	rec := postEvent(t, s, `{
		"channel": "chat",
		"type": "message.sent",
		"tenantId": "wed-42",
		"payload": {}
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var result struct {
		Accepted bool  `json:"accepted"`
		Actions  []any `json:"actions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("response decode error = %v", err)
	}
	if !result.Accepted || len(result.Actions) != 0 {
		t.Errorf("result = %+v, want accepted with no actions", result)
	}
}

func TestHandleIngestEvent_BadRequests(t *testing.T) {
	s, _ := testServer(t)

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{name: "invalid json", body: `{not json`, wantStatus: http.StatusBadRequest},
		{name: "non-object body", body: `"just a string"`, wantStatus: http.StatusBadRequest},
		{name: "unsupported channel", body: `{"channel": "fax", "type": "x"}`, wantStatus: http.StatusBadRequest},
		{name: "missing type", body: `{"channel": "email"}`, wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postEvent(t, s, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d (body %s)", rec.Code, tt.wantStatus, rec.Body.String())
			}
			var body map[string]any
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("error body decode = %v", err)
			}
			if body["error"] == "" {
				t.Errorf("error body = %v, want error message", body)
			}
		})
	}
}

func TestHandleIngestEvent_BodyTooLarge(t *testing.T) {
	s, _ := testServer(t)
	s.config.MaxBodyBytes = 64

	payload := `{"channel": "email", "type": "rsvp.received", "payload": {"filler": "` +
		strings.Repeat("x", 256) + `"}}`
	rec := postEvent(t, s, payload)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	s, _ := testServer(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("ok")) {
		t.Errorf("body = %s, want ok status", rec.Body.String())
	}
}

func TestNewHTTPServer_NilArguments(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	eng := engine.New(store.NewMemory())

	if _, err := NewHTTPServer(nil, eng, log); err == nil {
		t.Errorf("NewHTTPServer(nil cfg) error = nil, want error")
	}
	if _, err := NewHTTPServer(config.DefaultIngestAPIConfig(), nil, log); err == nil {
		t.Errorf("NewHTTPServer(nil engine) error = nil, want error")
	}
}
