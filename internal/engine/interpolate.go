// internal/engine/interpolate.go
package engine

import (
	"regexp"
	"strings"

	"github.com/planora/automations/internal/types"
)

/*
 * Action template interpolation.
 *
 * Expands {token} placeholders inside action templates using the same
 * scoped resolution as condition matching. Applied recursively over
 * strings, documents and lists; non-string leaves keep their native type.
 *
 * Token syntax:
 *   {expr}                  resolve expr, empty string when unresolved
 *   {a || b || c}           alternatives tried left to right; the first
 *                           that resolves to a defined, non-empty value wins
 *   {path ?? 'literal'}     literal fallback when the path is empty;
 *                           quotes around the literal are optional
 *
 * Expression scopes: payload., metadata., actor., event., context.,
 * wedding., rule., the bare tokens weddingId/tenantId/event/rule, and
 * unprefixed paths tried against the payload first and then against the
 * whole event. Resolved documents and lists are JSON-stringified when they
 * land inside a string template.
 */

var tokenPattern = regexp.MustCompile(`\{([^{}]+)\}`)

// Interpolate recursively expands templates in value against the event and
// the rule document (the rule.* scope; may be nil).
func Interpolate(value any, ev *types.Event, ruleDoc types.Document) any {
	switch v := value.(type) {
	case string:
		return interpolateString(v, ev, ruleDoc)
	case types.Document:
		out := make(types.Document, len(v))
		for k, val := range v {
			out[k] = Interpolate(val, ev, ruleDoc)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, el := range v {
			out[i] = Interpolate(el, ev, ruleDoc)
		}
		return out
	default:
		return value
	}
}

func interpolateString(s string, ev *types.Event, ruleDoc types.Document) string {
	return tokenPattern.ReplaceAllStringFunc(s, func(token string) string {
		expr := token[1 : len(token)-1]
		v, ok := resolveExpression(expr, ev, ruleDoc)
		if !ok {
			return ""
		}
		return stringify(v)
	})
}

// resolveExpression walks the ||-separated alternatives of one token.
// A ??default inside an alternative makes that alternative resolve when its
// path comes up empty, so a default short-circuits later alternatives.
func resolveExpression(expr string, ev *types.Event, ruleDoc types.Document) (any, bool) {
	for _, alt := range strings.Split(expr, "||") {
		pathExpr, defLit, hasDefault := strings.Cut(alt, "??")
		v, ok := resolvePath(strings.TrimSpace(pathExpr), ev, ruleDoc)
		if ok && present(v) {
			return v, true
		}
		if hasDefault {
			return unquote(strings.TrimSpace(defLit)), true
		}
	}
	return nil, false
}

// resolvePath resolves one path expression: bare tokens first, then an
// explicit scope prefix, then payload with a whole-event fallback.
func resolvePath(expr string, ev *types.Event, ruleDoc types.Document) (any, bool) {
	if expr == "" {
		return nil, false
	}
	switch expr {
	case "weddingId", "tenantId":
		if ev.TenantID == "" {
			return nil, false
		}
		return ev.TenantID, true
	case "event":
		return EventDocument(ev), true
	case "rule":
		if ruleDoc == nil {
			return nil, false
		}
		return ruleDoc, true
	}

	head, rest, _ := strings.Cut(expr, ".")
	switch strings.ToLower(head) {
	case types.ScopePayload, types.ScopeMetadata, types.ScopeActor,
		types.ScopeEvent, types.ScopeContext, types.ScopeWedding:
		return Resolve(ev, strings.ToLower(head), rest)
	case "rule":
		return lookup(ruleDoc, ParsePath(rest))
	}

	if v, ok := Resolve(ev, types.ScopePayload, expr); ok {
		return v, true
	}
	return lookup(EventDocument(ev), ParsePath(expr))
}

// unquote strips one matching pair of single or double quotes around a
// default literal.
func unquote(s string) string {
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
