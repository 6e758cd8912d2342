// internal/engine/normalize.go
package engine

import (
	"strings"
	"time"

	"github.com/planora/automations/internal/types"
)

/*
 * Event normalization.
 *
 * Normalize is the only constructor for types.Event: it validates and
 * canonicalizes an untrusted inbound document exactly once, and everything
 * downstream relies on the result never changing. Pure validation and
 * construction, no side effects.
 *
 * Validation rules:
 *   - channel: required, trimmed + lowercased, member of the supported set
 *   - type: required non-empty trimmed string
 *   - id: caller-supplied if present, otherwise a synthesized UUIDv7
 *   - actor: shallow-copied when it is an object; anything else is dropped
 *   - payload/metadata: default to empty documents
 *   - receivedAt: always stamped here; caller-supplied values are ignored
 */

// Normalize validates raw input and constructs the canonical Event.
func Normalize(raw any) (*types.Event, error) {
	doc, ok := raw.(types.Document)
	if !ok || doc == nil {
		return nil, types.ErrInvalidPayload
	}

	channel := strings.ToLower(strings.TrimSpace(stringField(doc, "channel")))
	if !types.SupportedChannels[channel] {
		return nil, &types.UnsupportedChannelError{Channel: channel}
	}

	eventType := strings.TrimSpace(stringField(doc, "type"))
	if eventType == "" {
		return nil, types.ErrMissingType
	}

	id := strings.TrimSpace(stringField(doc, "id"))
	if id == "" {
		id = types.NewEventID()
	}

	ev := &types.Event{
		ID:         id,
		Version:    strings.TrimSpace(stringField(doc, "version")),
		Channel:    channel,
		Type:       eventType,
		TenantID:   strings.TrimSpace(stringField(doc, "tenantId")),
		Actor:      normalizeActor(doc["actor"]),
		Payload:    documentField(doc, "payload"),
		Metadata:   documentField(doc, "metadata"),
		ReceivedAt: time.Now().UTC(),
	}
	return ev, nil
}

// normalizeActor shallow-copies an actor object with id/role coerced to
// trimmed strings. A non-object actor is treated as absent, not an error.
func normalizeActor(raw any) *types.Actor {
	doc, ok := raw.(types.Document)
	if !ok {
		return nil
	}
	actor := &types.Actor{
		ID:   strings.TrimSpace(stringField(doc, "id")),
		Role: strings.TrimSpace(stringField(doc, "role")),
	}
	if meta, ok := doc["metadata"].(types.Document); ok {
		actor.Metadata = meta
	}
	return actor
}

func stringField(doc types.Document, key string) string {
	v, ok := doc[key]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

func documentField(doc types.Document, key string) types.Document {
	if d, ok := doc[key].(types.Document); ok && d != nil {
		return d
	}
	return types.Document{}
}
