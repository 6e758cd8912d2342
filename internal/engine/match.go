// internal/engine/match.go
package engine

import (
	"strings"

	"github.com/planora/automations/internal/types"
)

/*
 * Rule matching orchestration.
 *
 * MatchRule runs a guarded pipeline: enabled flag, then the channel, type
 * and actor-role gates, then every extracted condition in list order with a
 * short-circuit on the first failure. The resolved actual/expected pair of
 * every passing condition is recorded so a match (or a near-miss) can be
 * explained after the fact.
 *
 * Gate semantics: a gate spec may be a scalar, a list, or absent. Absent or
 * empty passes everything; a wildcard value ("*" or "any") passes
 * everything; otherwise the event value must be a member after trimming and
 * lowercasing both sides.
 *
 * Operand selection per condition: anyOf wins when present, then a
 * comparePath resolved against the event (field-to-field comparison), then
 * the literal value. Negate inverts the operator result last.
 *
 * The only error MatchRule reports is a malformed definition inside the
 * rule itself (today: an uncompilable regex). Those are wrapped as
 * RuleEvaluationError so the engine can log and skip the rule while
 * siblings keep evaluating.
 */

// MatchRule evaluates one rule against one normalized event.
func MatchRule(rule types.Rule, ev *types.Event) (types.MatchResult, error) {
	if !ruleEnabled(rule) {
		return types.MatchResult{Reason: types.ReasonDisabled}, nil
	}

	def := rule.Definition
	if !gatePasses(gateValues(def, "channel", "channels"), ev.Channel) {
		return types.MatchResult{Reason: types.ReasonChannel}, nil
	}
	if !gatePasses(gateValues(def, "type", "types"), ev.Type) {
		return types.MatchResult{Reason: types.ReasonType}, nil
	}
	if roles := gateValues(def, "actorRole", "actorRoles"); len(roles) > 0 {
		role := ""
		if ev.Actor != nil {
			role = ev.Actor.Role
		}
		if !gatePasses(roles, role) {
			return types.MatchResult{Reason: types.ReasonActorRole}, nil
		}
	}

	var matched []types.ConditionCheck
	for _, cond := range Extract(rule) {
		check, ok, err := evaluateCondition(cond, ev)
		if err != nil {
			return types.MatchResult{}, &types.RuleEvaluationError{RuleID: rule.ID, Err: err}
		}
		if !ok {
			return types.MatchResult{
				Reason:            types.ReasonCondition,
				MatchedConditions: matched,
				FailedCondition:   &check,
			}, nil
		}
		matched = append(matched, check)
	}

	return types.MatchResult{Matched: true, MatchedConditions: matched}, nil
}

// evaluateCondition resolves both operands and applies the operator.
// The returned check carries the resolved values for explainability.
func evaluateCondition(cond types.Condition, ev *types.Event) (types.ConditionCheck, bool, error) {
	actual, _ := Resolve(ev, cond.Scope, cond.Path)

	var expected any
	switch {
	case cond.AnyOf != nil:
		expected = []any(cond.AnyOf)
	case cond.ComparePath != "":
		scope := cond.CompareScope
		if scope == "" {
			scope = cond.Scope
		}
		expected, _ = Resolve(ev, scope, cond.ComparePath)
	default:
		expected = cond.Value
	}

	opts := Options{
		CaseInsensitive: cond.CaseInsensitive,
		AnyOf:           cond.AnyOf,
		AllOf:           cond.AllOf,
		RegexFlags:      cond.RegexFlags,
	}

	// Malformed patterns are a defect of the rule, not of the event;
	// surface them instead of silently never matching.
	if op := normalizeOperator(cond.Operator); op == "regex" || op == "matches" {
		if _, err := CompilePattern(expected, opts); err != nil {
			return types.ConditionCheck{}, false, err
		}
	}

	result := Apply(cond.Operator, actual, expected, opts)
	if cond.Negate {
		result = !result
	}

	return types.ConditionCheck{Condition: cond, Actual: actual, Expected: expected}, result, nil
}

// ruleEnabled honors the provider-level flag and an explicit enabled=false
// inside the definition document.
func ruleEnabled(rule types.Rule) bool {
	if !rule.Enabled {
		return false
	}
	if v, ok := rule.Definition["enabled"]; ok {
		return truthy(v)
	}
	return true
}

// gateValues normalizes a scalar-or-list gate spec into a lowercased list.
// The singular alias wins over the plural one.
func gateValues(def types.Document, keys ...string) []string {
	if def == nil {
		return nil
	}
	for _, key := range keys {
		v, ok := def[key]
		if !ok || v == nil {
			continue
		}
		var raw []any
		if list, isList := asList(v); isList {
			raw = list
		} else {
			raw = []any{v}
		}
		var out []string
		for _, el := range raw {
			s := strings.TrimSpace(strings.ToLower(stringify(el)))
			if s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func gatePasses(spec []string, value string) bool {
	if len(spec) == 0 {
		return true
	}
	value = strings.TrimSpace(strings.ToLower(value))
	for _, s := range spec {
		if s == "*" || s == "any" || s == value {
			return true
		}
	}
	return false
}
