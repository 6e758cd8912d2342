// internal/engine/extract.go
package engine

import (
	"sort"
	"strings"

	"github.com/planora/automations/internal/types"
)

/*
 * Condition extraction and normalization.
 *
 * Rule documents arrive in several historically-grown but equivalent
 * condition syntaxes. This file is the single translation layer that turns
 * all of them into the one internal Condition form, so the matcher never
 * branches on input shape:
 *
 *   1. matchers: a list of matcher objects with aliased field names
 *   2. conditions as a list: strings become existence checks, objects go
 *      through the same alias resolution as matchers
 *   3. conditions as a map: nested objects flatten into dotted paths; a
 *      sub-object carrying a recognized condition key is a leaf condition
 *   4. filters.{payload|metadata|actor|event|context|wedding}: the same map
 *      flattening rooted at that scope; any other filter key is a
 *      payload-scoped literal equality
 *   5. payloadMatch / metadataMatch / actorMatch: map flattening with a
 *      fixed scope
 *
 * All sources are additive and extracted in the order above. Map keys are
 * walked in sorted order: decoded JSON loses author order, and sorted
 * iteration keeps extraction deterministic across runs (same invariant the
 * resolver's ancestry enforced for wildcard walks). Duplicate conditions
 * are harmless, so no dedup happens.
 *
 * Alias precedence (first present wins, never merged):
 *   scope:     scope > target > source
 *   path:      path > field > key
 *   operator:  operator > op
 *   value:     value > equals, then match > regex > pattern > contains
 *              when an explicit operator needs an operand
 *   anyOf:     anyOf > oneOf > in
 *   flags:     caseInsensitive > ignoreCase, negate > not
 *   compare:   comparePath > valuePath, compareTarget > valueFrom
 *
 * Extraction is total: entries that cannot be interpreted are skipped, a
 * rule with zero extractable conditions simply matches on its gates alone.
 */

// conditionKeys marks a sub-object as a leaf condition during map
// flattening rather than another nesting level.
var conditionKeys = map[string]bool{
	"operator": true, "op": true,
	"value": true, "equals": true,
	"anyOf": true, "oneOf": true, "in": true, "allOf": true,
	"contains": true, "match": true, "regex": true, "pattern": true,
	"gt": true, "gte": true, "lt": true, "lte": true, "between": true,
	"exists": true, "regexFlags": true,
	"caseInsensitive": true, "ignoreCase": true,
	"negate": true, "not": true,
	"comparePath": true, "valuePath": true,
	"compareTarget": true, "valueFrom": true,
}

var scopeNames = map[string]bool{
	types.ScopePayload:  true,
	types.ScopeMetadata: true,
	types.ScopeActor:    true,
	types.ScopeEvent:    true,
	types.ScopeContext:  true,
	types.ScopeWedding:  true,
}

// Extract normalizes every condition source of a rule into a flat list.
func Extract(rule types.Rule) []types.Condition {
	def := rule.Definition
	if def == nil {
		return nil
	}

	var out []types.Condition

	if matchers, ok := asList(def["matchers"]); ok {
		for _, entry := range matchers {
			out = append(out, extractEntry(entry)...)
		}
	}

	switch conditions := def["conditions"].(type) {
	case []any:
		for _, entry := range conditions {
			out = append(out, extractEntry(entry)...)
		}
	case types.Document:
		out = append(out, extractScopedMap(conditions)...)
	}

	if filters, ok := def["filters"].(types.Document); ok {
		for _, key := range sortedKeys(filters) {
			val := filters[key]
			if scopeNames[key] {
				if sub, ok := val.(types.Document); ok {
					out = append(out, flattenMap(key, "", sub)...)
					continue
				}
			}
			// Unknown filter keys are payload-scoped literal equality
			out = append(out, literalCondition(types.ScopePayload, key, val))
		}
	}

	if m, ok := def["payloadMatch"].(types.Document); ok {
		out = append(out, flattenMap(types.ScopePayload, "", m)...)
	}
	if m, ok := def["metadataMatch"].(types.Document); ok {
		out = append(out, flattenMap(types.ScopeMetadata, "", m)...)
	}
	if m, ok := def["actorMatch"].(types.Document); ok {
		out = append(out, flattenMap(types.ScopeActor, "", m)...)
	}

	return out
}

// extractEntry handles one element of a matchers or conditions list.
// Strings become existence checks; objects go through alias resolution.
func extractEntry(entry any) []types.Condition {
	switch v := entry.(type) {
	case string:
		scope, path := splitScopedPath(v)
		return []types.Condition{{
			Scope:    scope,
			Path:     path,
			Operator: "exists",
			Value:    true,
		}}
	case types.Document:
		return conditionsFromObject(types.ScopePayload, "", v)
	default:
		return nil
	}
}

// extractScopedMap flattens the map form of rule.conditions. A top-level
// key whose first segment names a scope is rooted there; everything else
// defaults to the payload scope.
func extractScopedMap(doc types.Document) []types.Condition {
	var out []types.Condition
	for _, key := range sortedKeys(doc) {
		val := doc[key]
		scope, rest := splitScopedPath(key)
		if rest == "" {
			if sub, ok := val.(types.Document); ok {
				out = append(out, flattenMap(scope, "", sub)...)
				continue
			}
		}
		out = append(out, flattenScopedValue(scope, rest, val)...)
	}
	return out
}

// flattenMap recursively flattens nested objects into dotted paths within
// one scope, stopping at leaf conditions.
func flattenMap(scope, prefix string, doc types.Document) []types.Condition {
	var out []types.Condition
	for _, key := range sortedKeys(doc) {
		out = append(out, flattenScopedValue(scope, joinPath(prefix, key), doc[key])...)
	}
	return out
}

func flattenScopedValue(scope, path string, val any) []types.Condition {
	if sub, ok := val.(types.Document); ok {
		if hasConditionKey(sub) {
			return conditionsFromObject(scope, path, sub)
		}
		return flattenMap(scope, path, sub)
	}
	return []types.Condition{literalCondition(scope, path, val)}
}

// literalCondition builds the default comparison for a bare value:
// membership for lists, equality for everything else.
func literalCondition(scope, path string, val any) types.Condition {
	op := "equals"
	if _, isList := asList(val); isList {
		op = "in"
	}
	return types.Condition{Scope: scope, Path: path, Operator: op, Value: val}
}

// conditionsFromObject resolves the aliased fields of one condition object.
// An object with an explicit operator yields exactly one condition; without
// one, each shorthand operand key (exists, value, anyOf, contains, regex,
// gt/gte/lt/lte, between) yields its own condition sharing the same scope,
// path and modifiers.
func conditionsFromObject(scope, basePath string, doc types.Document) []types.Condition {
	base := types.Condition{Scope: scope, Path: basePath}

	if s, ok := firstString(doc, "scope", "target", "source"); ok {
		base.Scope = normalizeScope(s)
	}
	if p, ok := firstString(doc, "path", "field", "key"); ok {
		base.Path = joinPath(basePath, p)
	}
	base.CaseInsensitive = firstBool(doc, "caseInsensitive", "ignoreCase")
	base.Negate = firstBool(doc, "negate", "not")
	if cp, ok := firstString(doc, "comparePath", "valuePath"); ok {
		base.ComparePath = cp
	}
	if cs, ok := firstString(doc, "compareTarget", "valueFrom"); ok {
		base.CompareScope = normalizeScope(cs)
	}
	if f, ok := firstString(doc, "regexFlags", "flags"); ok {
		base.RegexFlags = f
	}
	if list, ok := firstList(doc, "anyOf", "oneOf", "in"); ok {
		base.AnyOf = list
	}
	if list, ok := firstList(doc, "allOf"); ok {
		base.AllOf = list
	}

	if op, ok := firstString(doc, "operator", "op"); ok {
		cond := base
		cond.Operator = normalizeOperator(op)
		if v, ok := firstValue(doc, "value", "equals"); ok {
			cond.Value = v
		} else if v, ok := firstValue(doc, "match", "regex", "pattern", "contains"); ok {
			cond.Value = v
		}
		return []types.Condition{cond}
	}

	var out []types.Condition
	emit := func(op string, v any) {
		cond := base
		cond.Operator = op
		cond.Value = v
		out = append(out, cond)
	}

	if v, ok := doc["exists"]; ok {
		if truthy(v) {
			emit("exists", true)
		} else {
			emit("not_exists", true)
		}
	}
	if base.AnyOf != nil {
		cond := base
		cond.Operator = "in"
		out = append(out, cond)
	} else if v, ok := firstValue(doc, "value", "equals"); ok {
		out = append(out, literalConditionLike(base, v))
	}
	if v, ok := doc["contains"]; ok {
		emit("contains", v)
	}
	if v, ok := firstValue(doc, "match", "regex", "pattern"); ok {
		emit("regex", v)
	}
	for _, op := range []string{"gt", "gte", "lt", "lte"} {
		if v, ok := doc[op]; ok {
			emit(op, v)
		}
	}
	if v, ok := doc["between"]; ok {
		emit("between", v)
	}
	if len(out) == 0 && base.ComparePath != "" {
		cond := base
		cond.Operator = "equals"
		out = append(out, cond)
	}
	if len(out) == 0 {
		// Nothing comparable specified: a bare path is an existence check
		emit("exists", true)
	}
	return out
}

func literalConditionLike(base types.Condition, val any) types.Condition {
	cond := base
	cond.Value = val
	cond.Operator = "equals"
	if _, isList := asList(val); isList {
		cond.Operator = "in"
	}
	return cond
}

func hasConditionKey(doc types.Document) bool {
	for key := range doc {
		if conditionKeys[key] {
			return true
		}
	}
	return false
}

// splitScopedPath peels a leading scope segment off a path expression.
// "actor.role" resolves in the actor scope with path "role"; a path whose
// first segment is not a scope name stays payload-scoped untouched.
func splitScopedPath(path string) (string, string) {
	path = strings.TrimSpace(path)
	head, rest, found := strings.Cut(path, ".")
	if scopeNames[strings.ToLower(head)] {
		if !found {
			return strings.ToLower(head), ""
		}
		return strings.ToLower(head), rest
	}
	return types.ScopePayload, path
}

func normalizeScope(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func normalizeOperator(op string) string {
	return strings.ReplaceAll(strings.TrimSpace(strings.ToLower(op)), "-", "_")
}

func joinPath(base, p string) string {
	switch {
	case base == "":
		return p
	case p == "":
		return base
	default:
		return base + "." + p
	}
}

func sortedKeys(doc types.Document) []string {
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func firstString(doc types.Document, keys ...string) (string, bool) {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		}
	}
	return "", false
}

func firstValue(doc types.Document, keys ...string) (any, bool) {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func firstBool(doc types.Document, keys ...string) bool {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			return truthy(v)
		}
	}
	return false
}

func firstList(doc types.Document, keys ...string) ([]any, bool) {
	for _, k := range keys {
		if v, ok := doc[k]; ok {
			if list, ok := asList(v); ok {
				return list, true
			}
		}
	}
	return nil, false
}
