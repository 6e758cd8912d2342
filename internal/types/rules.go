// internal/types/rules.go
package types

/*
 * Domain types for rule evaluation.
 *
 * Provides Rule, Condition, MatchResult, RuleOutcome and IngestResult used by
 * internal/engine. Rules are externally authored documents; the engine only
 * interprets four logical parts of the definition (gating fields, condition
 * specification, action templates, enabled flag) and treats the rest as
 * opaque. Condition is the single normalized form every accepted condition
 * syntax is translated into.
 *
 * Key types:
 *   - Rule: tenant-scoped rule with opaque Definition document
 *   - Condition: scope + path + operator + operand(s) + modifiers
 *   - ConditionCheck: condition with the values it resolved to at match time
 *   - MatchResult: match outcome with explainability data
 *   - RuleOutcome: per-rule proposed actions after interpolation
 *   - IngestResult: full result of ingesting one raw event
 *
 * Dependencies: None (stdlib only).
 */

// Rule is an externally supplied automation rule. Definition holds the raw
// rule document; gating fields, conditions and actions are read from it at
// evaluation time so authors can use any of the accepted condition syntaxes.
type Rule struct {
	ID         string   `json:"id"`
	TenantID   string   `json:"tenantId,omitempty"`
	Name       string   `json:"name,omitempty"`
	Enabled    bool     `json:"enabled"`
	Strategy   string   `json:"strategy,omitempty"`
	Definition Document `json:"definition"`
}

// Condition scopes select which event sub-document a path is resolved
// against. ScopeContext exposes the synthetic tenant view; "wedding" is the
// product's historical alias for it and is accepted everywhere a scope is.
const (
	ScopePayload  = "payload"
	ScopeMetadata = "metadata"
	ScopeActor    = "actor"
	ScopeEvent    = "event"
	ScopeContext  = "context"
	ScopeWedding  = "wedding"
)

// Condition is the normalized internal form of a single rule condition.
// Exactly one of Value, AnyOf or ComparePath drives the comparison; AnyOf
// wins when more than one is present. Negate is applied last, after the
// operator has produced its boolean.
type Condition struct {
	Scope           string `json:"scope"`
	Path            string `json:"path"`
	Operator        string `json:"operator"`
	Value           any    `json:"value,omitempty"`
	AnyOf           []any  `json:"anyOf,omitempty"`
	AllOf           []any  `json:"allOf,omitempty"`
	CaseInsensitive bool   `json:"caseInsensitive,omitempty"`
	Negate          bool   `json:"negate,omitempty"`
	RegexFlags      string `json:"regexFlags,omitempty"`
	ComparePath     string `json:"comparePath,omitempty"`
	CompareScope    string `json:"compareScope,omitempty"`
}

// ConditionCheck is a Condition annotated with the values both sides
// resolved to during evaluation. Kept for explainability, not control flow.
type ConditionCheck struct {
	Condition
	Actual   any `json:"actual"`
	Expected any `json:"expected"`
}

// Match failure reasons reported in MatchResult.Reason.
const (
	ReasonDisabled  = "disabled"
	ReasonChannel   = "channel"
	ReasonType      = "type"
	ReasonActorRole = "actorRole"
	ReasonCondition = "condition"
)

// MatchResult is the outcome of evaluating one rule against one event.
type MatchResult struct {
	Matched           bool             `json:"matched"`
	Reason            string           `json:"reason,omitempty"`
	MatchedConditions []ConditionCheck `json:"matchedConditions,omitempty"`
	FailedCondition   *ConditionCheck  `json:"failedCondition,omitempty"`
}

// RuleOutcome carries the interpolated action templates of one matched rule.
// Actions are proposals; executing them belongs to a downstream dispatcher.
type RuleOutcome struct {
	RuleID            string           `json:"ruleId"`
	RuleName          string           `json:"ruleName,omitempty"`
	Strategy          string           `json:"strategy,omitempty"`
	Actions           []Document       `json:"actions"`
	MatchedConditions []ConditionCheck `json:"matchedConditions,omitempty"`
}

// IngestResult is the full response for one ingested event.
type IngestResult struct {
	Accepted bool          `json:"accepted"`
	Event    *Event        `json:"event"`
	Outcomes []RuleOutcome `json:"actions"`
}
