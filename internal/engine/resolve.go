// internal/engine/resolve.go
package engine

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/planora/automations/internal/types"
)

/*
 * Scoped value resolution over event documents.
 *
 * Resolves dotted/bracketed path expressions against one of the event's
 * scoped sub-documents. Paths use "a.b.c" with optional "[n]" array index
 * syntax; "items[0].price" and "items.0.price" are equivalent. The walk is
 * total: any null or missing intermediate short-circuits to "not found"
 * instead of failing, so operators can treat absence as a comparable value.
 *
 * Key functions:
 *   - Resolve: scope selection + path walk for one event
 *   - ParsePath: "[n]" rewrite, split, trim, drop empties
 *   - lookup: structural walk over maps and slices
 *
 * Scopes: payload, metadata, actor, event (the whole event), context with
 * its "wedding" alias (a synthetic {tenantId, weddingId} view). An unknown
 * scope resolves nothing.
 */

// Resolve returns the value at path inside the given scope of the event.
// The second return is false when the path does not resolve to a value.
// An empty path (or ".") returns the scope root itself. Never panics.
func Resolve(ev *types.Event, scope, path string) (any, bool) {
	root, ok := scopeRoot(ev, scope)
	if !ok {
		return nil, false
	}
	return lookup(root, ParsePath(path))
}

// ParsePath splits a path expression into segments. Bracket indices are
// rewritten to dot segments, segments are trimmed, empties dropped.
func ParsePath(path string) []string {
	path = strings.ReplaceAll(path, "[", ".")
	path = strings.ReplaceAll(path, "]", "")
	parts := strings.Split(path, ".")
	segments := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		segments = append(segments, p)
	}
	return segments
}

// scopeRoot selects the sub-document a path is resolved against.
func scopeRoot(ev *types.Event, scope string) (any, bool) {
	if ev == nil {
		return nil, false
	}
	switch strings.TrimSpace(strings.ToLower(scope)) {
	case types.ScopePayload, "":
		return ev.Payload, true
	case types.ScopeMetadata:
		return ev.Metadata, true
	case types.ScopeActor:
		return actorDocument(ev.Actor), true
	case types.ScopeEvent:
		return EventDocument(ev), true
	case types.ScopeContext, types.ScopeWedding:
		return contextDocument(ev), true
	default:
		return nil, false
	}
}

// EventDocument exposes the whole event as a walkable document, with the
// actor flattened the same way the actor scope sees it.
func EventDocument(ev *types.Event) types.Document {
	doc := types.Document{
		"id":       ev.ID,
		"version":  ev.Version,
		"channel":  ev.Channel,
		"type":     ev.Type,
		"tenantId": ev.TenantID,
		"payload":  ev.Payload,
		"metadata": ev.Metadata,
	}
	if ev.Actor != nil {
		doc["actor"] = actorDocument(ev.Actor)
	}
	if !ev.ReceivedAt.IsZero() {
		doc["receivedAt"] = ev.ReceivedAt
	}
	return doc
}

// actorDocument returns the actor scope root; a nil actor resolves as an
// empty document rather than a missing one.
func actorDocument(actor *types.Actor) types.Document {
	if actor == nil {
		return types.Document{}
	}
	doc := types.Document{
		"id":   actor.ID,
		"role": actor.Role,
	}
	if actor.Metadata != nil {
		doc["metadata"] = actor.Metadata
	}
	return doc
}

// contextDocument is the synthetic tenant view. "weddingId" is the
// product-facing name for the tenant identifier and resolves to the same
// value.
func contextDocument(ev *types.Event) types.Document {
	return types.Document{
		"tenantId":  ev.TenantID,
		"weddingId": ev.TenantID,
	}
}

// lookup walks a document structure following string segments. Numeric
// segments index into slices. Returns (nil, false) the moment a segment
// cannot be followed.
func lookup(current any, segments []string) (any, bool) {
	for _, seg := range segments {
		switch v := current.(type) {
		case types.Document:
			val, ok := v[seg]
			if !ok {
				return nil, false
			}
			current = val
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			current = v[idx]
		case *types.Actor:
			val, ok := actorDocument(v)[seg]
			if !ok {
				return nil, false
			}
			current = val
		case time.Time:
			// Scalars have no sub-fields
			return nil, false
		case nil:
			return nil, false
		default:
			return nil, false
		}
	}
	if isNilValue(current) {
		return nil, false
	}
	return current, true
}

// isNilValue catches typed nils too: a nil Document stored in an any is
// not == nil but still resolves nothing.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map, reflect.Slice, reflect.Ptr:
		return rv.IsNil()
	default:
		return false
	}
}
