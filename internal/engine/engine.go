// internal/engine/engine.go
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/planora/automations/internal/types"
)

/*
 * Ingestion orchestration.
 *
 * Engine ties the pure pieces together: normalize the raw document, fetch
 * the tenant's rules from the injected provider, evaluate every rule, and
 * interpolate the action templates of the ones that matched. The evaluation
 * path is a pure function of (event, rules); the provider call is the only
 * I/O and its failure degrades to zero matched rules because automation
 * must never block the originating request.
 *
 * Isolation guarantees:
 *   - a malformed rule (bad regex, panicking definition) is logged with its
 *     rule id and skipped; sibling rules still evaluate
 *   - the optional event sink runs on its own goroutine after the result
 *     is computed; its failure cannot affect the returned result
 *
 * The engine holds no mutable state, so one instance is safe for any
 * number of concurrent Ingest calls.
 */

// sinkTimeout bounds the fire-and-forget persistence hook so a stuck sink
// cannot leak goroutines indefinitely.
const sinkTimeout = 10 * time.Second

// RuleProvider supplies the rules configured for a tenant. Implementations
// may cache or retry; the engine treats each result as a snapshot.
type RuleProvider interface {
	ListRules(ctx context.Context, tenantID string) ([]types.Rule, error)
}

// EventSink receives every normalized event for raw-event persistence.
// Invoked best-effort after ingestion; errors are logged and swallowed.
type EventSink interface {
	StoreEvent(ctx context.Context, ev *types.Event) error
}

// Engine evaluates configured rules against inbound events.
type Engine struct {
	provider RuleProvider
	sink     EventSink
	log      *slog.Logger
}

// Option configures optional Engine collaborators.
type Option func(*Engine)

// WithSink attaches a best-effort raw-event persistence hook.
func WithSink(sink EventSink) Option {
	return func(e *Engine) { e.sink = sink }
}

// WithLogger sets the logger used for degraded-path reporting.
func WithLogger(log *slog.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// New creates an engine around the given rule provider.
func New(provider RuleProvider, opts ...Option) *Engine {
	e := &Engine{provider: provider, log: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Ingest normalizes a raw inbound document, evaluates the owning tenant's
// rules against it and returns the proposed actions of every matching rule.
// Normalization failures are fatal to the call; everything downstream
// degrades to fewer actions instead.
func (e *Engine) Ingest(ctx context.Context, raw any) (*types.IngestResult, error) {
	ev, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	result := &types.IngestResult{
		Accepted: true,
		Event:    ev,
		Outcomes: e.evaluate(ctx, ev),
	}

	if e.sink != nil {
		go e.persist(ev)
	}

	return result, nil
}

// evaluate fetches and runs the tenant's rules. Tenantless events are not
// matched against any tenant's rules. A provider failure means no rules,
// not a failed ingestion.
func (e *Engine) evaluate(ctx context.Context, ev *types.Event) []types.RuleOutcome {
	if ev.TenantID == "" {
		return nil
	}
	rules, err := e.provider.ListRules(ctx, ev.TenantID)
	if err != nil {
		e.log.Warn("rule provider unavailable, event ingested without automations",
			"tenantId", ev.TenantID, "eventId", ev.ID, "error", err)
		return nil
	}
	return EvaluateRules(ev, rules, e.log)
}

// EvaluateRules runs every rule against the event and collects the outcomes
// of the matching ones. Pure apart from logging: no I/O, no shared state.
func EvaluateRules(ev *types.Event, rules []types.Rule, log *slog.Logger) []types.RuleOutcome {
	if log == nil {
		log = slog.Default()
	}
	var outcomes []types.RuleOutcome
	for _, rule := range rules {
		if outcome, ok := evaluateRule(rule, ev, log); ok {
			outcomes = append(outcomes, outcome)
		}
	}
	return outcomes
}

// evaluateRule isolates a single rule: definition errors and panics are
// logged with the rule id and reported as a non-match.
func evaluateRule(rule types.Rule, ev *types.Event, log *slog.Logger) (outcome types.RuleOutcome, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("rule evaluation panicked, rule skipped",
				"ruleId", rule.ID, "eventId", ev.ID, "panic", r)
			ok = false
		}
	}()

	result, err := MatchRule(rule, ev)
	if err != nil {
		log.Error("rule has malformed definition, rule skipped",
			"ruleId", rule.ID, "eventId", ev.ID, "error", err)
		return types.RuleOutcome{}, false
	}
	if !result.Matched {
		return types.RuleOutcome{}, false
	}

	return types.RuleOutcome{
		RuleID:            rule.ID,
		RuleName:          rule.Name,
		Strategy:          ruleStrategy(rule),
		Actions:           buildActions(rule, ev),
		MatchedConditions: result.MatchedConditions,
	}, true
}

// buildActions interpolates the rule's action templates against the event.
// Every action carries a ruleId back-reference; non-object templates are
// wrapped so the back-reference has somewhere to live.
func buildActions(rule types.Rule, ev *types.Event) []types.Document {
	raw, _ := asList(rule.Definition["actions"])
	ruleDoc := ruleDocument(rule)

	actions := make([]types.Document, 0, len(raw))
	for _, tpl := range raw {
		expanded := Interpolate(tpl, ev, ruleDoc)
		doc, ok := expanded.(types.Document)
		if !ok {
			doc = types.Document{"value": expanded}
		}
		doc["ruleId"] = rule.ID
		actions = append(actions, doc)
	}
	return actions
}

// ruleDocument is the rule.* interpolation scope: the raw definition with
// the provider-level fields overlaid.
func ruleDocument(rule types.Rule) types.Document {
	doc := make(types.Document, len(rule.Definition)+3)
	for k, v := range rule.Definition {
		doc[k] = v
	}
	doc["id"] = rule.ID
	if rule.Name != "" {
		doc["name"] = rule.Name
	}
	if s := ruleStrategy(rule); s != "" {
		doc["strategy"] = s
	}
	return doc
}

func ruleStrategy(rule types.Rule) string {
	if rule.Strategy != "" {
		return rule.Strategy
	}
	if s, ok := rule.Definition["strategy"].(string); ok {
		return s
	}
	return ""
}

// persist hands the event to the sink with its own deadline, detached from
// the request context by design: the ingestion result is already computed
// and must not depend on this hook.
func (e *Engine) persist(ev *types.Event) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("event sink panicked", "eventId", ev.ID, "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), sinkTimeout)
	defer cancel()

	if err := e.sink.StoreEvent(ctx, ev); err != nil {
		e.log.Warn("event sink failed, ingestion result unaffected",
			"eventId", ev.ID, "error", err)
	}
}
