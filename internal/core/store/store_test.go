package store

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/planora/automations/internal/core/db"
	"github.com/planora/automations/internal/types"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { database.Close() })

	if err := db.MigrateUp(database); err != nil {
		t.Fatalf("MigrateUp() error = %v", err)
	}

	queries, err := db.LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}

	return New(queries, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestStore_SaveAndListRules(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rules := []types.Rule{
		{
			ID:       "rule-a",
			TenantID: "wed-42",
			Name:     "welcome",
			Enabled:  true,
			Strategy: "immediate",
			Definition: types.Document{
				"channel": "email",
				"conditions": []any{
					types.Document{"path": "status", "value": "confirmed"},
				},
			},
		},
		{
			ID:         "rule-b",
			TenantID:   "wed-42",
			Name:       "reminder",
			Enabled:    false,
			Definition: types.Document{"type": "rsvp.pending"},
		},
		{
			ID:         "rule-other",
			TenantID:   "wed-99",
			Enabled:    true,
			Definition: types.Document{},
		},
	}
	for _, rule := range rules {
		if err := s.SaveRule(ctx, rule); err != nil {
			t.Fatalf("SaveRule(%s) error = %v", rule.ID, err)
		}
	}

	got, err := s.ListRules(ctx, "wed-42")
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ListRules() length = %d, want 2", len(got))
	}
	if got[0].ID != "rule-a" || got[1].ID != "rule-b" {
		t.Errorf("rule order = [%s, %s], want [rule-a, rule-b]", got[0].ID, got[1].ID)
	}
	if got[0].Name != "welcome" || !got[0].Enabled || got[0].Strategy != "immediate" {
		t.Errorf("rule-a fields = %+v", got[0])
	}
	if got[0].Definition["channel"] != "email" {
		t.Errorf("rule-a definition = %v, want channel email", got[0].Definition)
	}
	if got[1].Enabled {
		t.Errorf("rule-b should be disabled")
	}

	empty, err := s.ListRules(ctx, "wed-unknown")
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("ListRules() for unknown tenant = %+v, want none", empty)
	}
}

func TestStore_SetRuleEnabledAndDelete(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	rule := types.Rule{ID: "rule-a", TenantID: "wed-42", Enabled: true, Definition: types.Document{}}
	if err := s.SaveRule(ctx, rule); err != nil {
		t.Fatalf("SaveRule() error = %v", err)
	}

	if err := s.SetRuleEnabled(ctx, "wed-42", "rule-a", false); err != nil {
		t.Fatalf("SetRuleEnabled() error = %v", err)
	}
	got, err := s.ListRules(ctx, "wed-42")
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(got) != 1 || got[0].Enabled {
		t.Errorf("ListRules() = %+v, want one disabled rule", got)
	}

	// Tenant mismatch must not touch the rule
	if err := s.DeleteRule(ctx, "wed-99", "rule-a"); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if got, _ = s.ListRules(ctx, "wed-42"); len(got) != 1 {
		t.Fatalf("rule deleted through wrong tenant")
	}

	if err := s.DeleteRule(ctx, "wed-42", "rule-a"); err != nil {
		t.Fatalf("DeleteRule() error = %v", err)
	}
	if got, _ = s.ListRules(ctx, "wed-42"); len(got) != 0 {
		t.Errorf("ListRules() after delete = %+v, want none", got)
	}
}

func TestStore_ListRulesSkipsUnparseableDefinition(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.SaveRule(ctx, types.Rule{
		ID: "rule-ok", TenantID: "wed-42", Enabled: true, Definition: types.Document{},
	}); err != nil {
		t.Fatalf("SaveRule() error = %v", err)
	}
	if _, err := s.queries.ExecContext(ctx, "insert-rule",
		"rule-broken", "wed-42", "", true, "", "{not json", time.Now().UTC().Format(time.RFC3339),
	); err != nil {
		t.Fatalf("raw insert error = %v", err)
	}

	got, err := s.ListRules(ctx, "wed-42")
	if err != nil {
		t.Fatalf("ListRules() error = %v", err)
	}
	if len(got) != 1 || got[0].ID != "rule-ok" {
		t.Errorf("ListRules() = %+v, want only rule-ok", got)
	}
}

func TestStore_ListRulesUnavailableError(t *testing.T) {
	database, err := db.Open("sqlite://" + filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		t.Fatalf("LoadQueries() error = %v", err)
	}
	database.Close()

	s := New(queries, slog.New(slog.NewTextHandler(io.Discard, nil)))
	_, err = s.ListRules(context.Background(), "wed-42")
	if !errors.Is(err, types.ErrRuleProviderUnavailable) {
		t.Errorf("ListRules() error = %v, want ErrRuleProviderUnavailable", err)
	}
}

func TestStore_StoreEvent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	ev := &types.Event{
		ID:         uuid.Must(uuid.NewV7()).String(),
		Channel:    "email",
		Type:       "rsvp.received",
		TenantID:   "wed-42",
		Payload:    types.Document{"status": "confirmed"},
		Metadata:   types.Document{},
		ReceivedAt: time.Now().UTC(),
	}
	if err := s.StoreEvent(ctx, ev); err != nil {
		t.Fatalf("StoreEvent() error = %v", err)
	}

	var count int
	if err := s.queries.GetContext(ctx, "count-events-by-tenant", &count, "wed-42"); err != nil {
		t.Fatalf("count query error = %v", err)
	}
	if count != 1 {
		t.Errorf("event count = %d, want 1", count)
	}

	var row struct {
		EventID    string `db:"event_id"`
		TenantID   string `db:"tenant_id"`
		Channel    string `db:"channel"`
		EventType  string `db:"event_type"`
		ReceivedAt string `db:"received_at"`
		Document   string `db:"document"`
	}
	if err := s.queries.GetContext(ctx, "get-event", &row, ev.ID); err != nil {
		t.Fatalf("get-event error = %v", err)
	}
	if row.TenantID != "wed-42" || row.Channel != "email" || row.EventType != "rsvp.received" {
		t.Errorf("stored row = %+v", row)
	}
}
