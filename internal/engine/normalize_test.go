// internal/engine/normalize_test.go
package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/planora/automations/internal/types"
)

func TestNormalize_Valid(t *testing.T) {
	raw := types.Document{
		"id":       "evt-123",
		"version":  "2",
		"channel":  " Email ",
		"type":     " rsvp.received ",
		"tenantId": "wed-42",
		"actor": types.Document{
			"id":   "guest-7",
			"role": " guest ",
			"metadata": types.Document{
				"table": "A",
			},
		},
		"payload": types.Document{
			"status": "confirmed",
		},
		"metadata": types.Document{
			"source": "webhook",
		},
	}

	ev, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v, want nil", err)
	}
	if ev.ID != "evt-123" {
		t.Errorf("ID = %q, want evt-123", ev.ID)
	}
	if ev.Channel != "email" {
		t.Errorf("Channel = %q, want email", ev.Channel)
	}
	if ev.Type != "rsvp.received" {
		t.Errorf("Type = %q, want rsvp.received", ev.Type)
	}
	if ev.TenantID != "wed-42" {
		t.Errorf("TenantID = %q, want wed-42", ev.TenantID)
	}
	if ev.Actor == nil || ev.Actor.Role != "guest" {
		t.Errorf("Actor = %+v, want role guest", ev.Actor)
	}
	if ev.Payload["status"] != "confirmed" {
		t.Errorf("Payload = %v, want status confirmed", ev.Payload)
	}
	if ev.ReceivedAt.IsZero() {
		t.Errorf("ReceivedAt not stamped")
	}
	if ev.ReceivedAt.Location() != time.UTC {
		t.Errorf("ReceivedAt location = %v, want UTC", ev.ReceivedAt.Location())
	}
}

func TestNormalize_Errors(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		wantErr error
	}{
		{name: "non-document input", raw: "not a document", wantErr: types.ErrInvalidPayload},
		{name: "nil input", raw: nil, wantErr: types.ErrInvalidPayload},
		{name: "list input", raw: []any{"x"}, wantErr: types.ErrInvalidPayload},
		{
			name:    "missing channel",
			raw:     types.Document{"type": "rsvp.received"},
			wantErr: types.ErrUnsupportedChannel,
		},
		{
			name:    "unsupported channel",
			raw:     types.Document{"channel": "carrier-pigeon", "type": "rsvp.received"},
			wantErr: types.ErrUnsupportedChannel,
		},
		{
			name:    "missing type",
			raw:     types.Document{"channel": "email"},
			wantErr: types.ErrMissingType,
		},
		{
			name:    "blank type",
			raw:     types.Document{"channel": "email", "type": "   "},
			wantErr: types.ErrMissingType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.raw)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Normalize() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNormalize_UnsupportedChannelCarriesName(t *testing.T) {
	_, err := Normalize(types.Document{"channel": "Fax", "type": "x"})
	var chErr *types.UnsupportedChannelError
	if !errors.As(err, &chErr) {
		t.Fatalf("error type = %T, want *types.UnsupportedChannelError", err)
	}
	if chErr.Channel != "fax" {
		t.Errorf("Channel = %q, want fax (normalized)", chErr.Channel)
	}
}

func TestNormalize_GeneratesEventID(t *testing.T) {
	raw := types.Document{"channel": "chat", "type": "message.sent"}

	ev1, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v, want nil", err)
	}
	ev2, err := Normalize(raw)
	if err != nil {
		t.Fatalf("Normalize() error = %v, want nil", err)
	}
	if ev1.ID == "" {
		t.Fatalf("generated ID is empty")
	}
	if ev1.ID == ev2.ID {
		t.Errorf("two normalizations produced the same ID %q", ev1.ID)
	}
	if ts := types.EventIDTime(ev1.ID); ts.IsZero() {
		t.Errorf("generated ID %q carries no timestamp", ev1.ID)
	}
}

func TestNormalize_Defaults(t *testing.T) {
	ev, err := Normalize(types.Document{"channel": "whatsapp", "type": "message.sent"})
	if err != nil {
		t.Fatalf("Normalize() error = %v, want nil", err)
	}
	if ev.Payload == nil || len(ev.Payload) != 0 {
		t.Errorf("Payload = %v, want empty document", ev.Payload)
	}
	if ev.Metadata == nil || len(ev.Metadata) != 0 {
		t.Errorf("Metadata = %v, want empty document", ev.Metadata)
	}
	if ev.Actor != nil {
		t.Errorf("Actor = %+v, want nil", ev.Actor)
	}
}

func TestNormalize_NonObjectActorDropped(t *testing.T) {
	ev, err := Normalize(types.Document{
		"channel": "email",
		"type":    "rsvp.received",
		"actor":   "guest-7",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v, want nil", err)
	}
	if ev.Actor != nil {
		t.Errorf("Actor = %+v, want nil for non-object actor", ev.Actor)
	}
}

func TestNormalize_CallerReceivedAtIgnored(t *testing.T) {
	ev, err := Normalize(types.Document{
		"channel":    "email",
		"type":       "rsvp.received",
		"receivedAt": "1999-01-01T00:00:00Z",
	})
	if err != nil {
		t.Fatalf("Normalize() error = %v, want nil", err)
	}
	if ev.ReceivedAt.Year() < 2020 {
		t.Errorf("ReceivedAt = %v, caller-supplied timestamp should be ignored", ev.ReceivedAt)
	}
}
