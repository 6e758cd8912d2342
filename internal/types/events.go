// internal/types/events.go
package types

import "time"

/*
 * Domain types for inbound events.
 *
 * An Event is the canonical, immutable record of something that happened on
 * one of the supported channels. Events are constructed exactly once by the
 * normalizer in internal/engine from untrusted input and never mutated
 * afterwards; everything downstream (matching, interpolation, persistence)
 * only reads them.
 *
 * Key types:
 *   - Document: schema-agnostic JSON object (payload, metadata, rule bodies)
 *   - Actor: who or what produced the event
 *   - Event: normalized inbound event
 *
 * Dependencies: stdlib only.
 */

// Document is an arbitrary JSON object as decoded by encoding/json.
// Payloads and rule definitions are schema-agnostic; the engine walks them
// structurally instead of binding them to structs.
type Document = map[string]any

// Supported delivery channels. Channel values are matched after trimming
// and lowercasing; anything outside this set is rejected at normalization.
const (
	ChannelEmail    = "email"
	ChannelChat     = "chat"
	ChannelWhatsApp = "whatsapp"
)

// SupportedChannels is the closed set of channels accepted by the normalizer.
var SupportedChannels = map[string]bool{
	ChannelEmail:    true,
	ChannelChat:     true,
	ChannelWhatsApp: true,
}

// Actor describes the originator of an event (a guest, a vendor, a system
// integration). All fields are optional.
type Actor struct {
	ID       string   `json:"id,omitempty"`
	Role     string   `json:"role,omitempty"`
	Metadata Document `json:"metadata,omitempty"`
}

// Event is a normalized inbound event.
type Event struct {
	ID         string    `json:"id"`
	Version    string    `json:"version,omitempty"`
	Channel    string    `json:"channel"`
	Type       string    `json:"type"`
	TenantID   string    `json:"tenantId,omitempty"`
	Actor      *Actor    `json:"actor,omitempty"`
	Payload    Document  `json:"payload"`
	Metadata   Document  `json:"metadata"`
	ReceivedAt time.Time `json:"receivedAt"`
}
