// Package store persists automation rules and raw events.
//
// Store implements both collaborator interfaces the engine is built
// against: the rule provider (ListRules) and the best-effort event sink
// (StoreEvent). Rule definitions are stored as opaque JSON documents so
// every condition syntax the extractor accepts round-trips unchanged.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/planora/automations/internal/core/db"
	"github.com/planora/automations/internal/types"
)

// Store is the SQL-backed rule provider and event sink.
type Store struct {
	queries *db.Queries
	log     *slog.Logger
}

// New creates a store over loaded named queries.
func New(queries *db.Queries, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{queries: queries, log: log}
}

type ruleRow struct {
	RuleID     string `db:"rule_id"`
	TenantID   string `db:"tenant_id"`
	Name       string `db:"name"`
	Enabled    bool   `db:"enabled"`
	Strategy   string `db:"strategy"`
	Definition string `db:"definition"`
}

// ListRules returns the tenant's rules in creation order. Rows whose
// definition document no longer parses are logged and skipped so one bad
// row cannot take down rule listing for the whole tenant.
func (s *Store) ListRules(ctx context.Context, tenantID string) ([]types.Rule, error) {
	var rows []ruleRow
	if err := s.queries.SelectContext(ctx, "list-rules-by-tenant", &rows, tenantID); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRuleProviderUnavailable, err)
	}

	rules := make([]types.Rule, 0, len(rows))
	for _, row := range rows {
		var def types.Document
		if err := json.Unmarshal([]byte(row.Definition), &def); err != nil {
			s.log.Warn("skipping rule with unparseable definition",
				"ruleId", row.RuleID, "tenantId", row.TenantID, "error", err)
			continue
		}
		rules = append(rules, types.Rule{
			ID:         row.RuleID,
			TenantID:   row.TenantID,
			Name:       row.Name,
			Enabled:    row.Enabled,
			Strategy:   row.Strategy,
			Definition: def,
		})
	}
	return rules, nil
}

// SaveRule inserts a rule. Used by seeding tooling and tests; rule
// authoring is otherwise out of band.
func (s *Store) SaveRule(ctx context.Context, rule types.Rule) error {
	def, err := json.Marshal(rule.Definition)
	if err != nil {
		return fmt.Errorf("failed to marshal rule definition: %w", err)
	}
	_, err = s.queries.ExecContext(ctx, "insert-rule",
		rule.ID, rule.TenantID, rule.Name, rule.Enabled, rule.Strategy,
		string(def), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rule %s: %w", rule.ID, err)
	}
	return nil
}

// SetRuleEnabled toggles a rule without touching its definition.
func (s *Store) SetRuleEnabled(ctx context.Context, tenantID, ruleID string, enabled bool) error {
	if _, err := s.queries.ExecContext(ctx, "set-rule-enabled", enabled, ruleID, tenantID); err != nil {
		return fmt.Errorf("failed to update rule %s: %w", ruleID, err)
	}
	return nil
}

// DeleteRule removes a rule. Deleting an unknown rule is not an error.
func (s *Store) DeleteRule(ctx context.Context, tenantID, ruleID string) error {
	if _, err := s.queries.ExecContext(ctx, "delete-rule", ruleID, tenantID); err != nil {
		return fmt.Errorf("failed to delete rule %s: %w", ruleID, err)
	}
	return nil
}

// StoreEvent archives a normalized event keyed by its id. Wired as the
// engine's fire-and-forget sink; the caller already treats errors as
// non-fatal, this method just reports them.
func (s *Store) StoreEvent(ctx context.Context, ev *types.Event) error {
	doc, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", ev.ID, err)
	}
	_, err = s.queries.ExecContext(ctx, "insert-event",
		ev.ID, ev.TenantID, ev.Channel, ev.Type,
		ev.ReceivedAt.Format(time.RFC3339), string(doc),
	)
	if err != nil {
		return fmt.Errorf("failed to insert event %s: %w", ev.ID, err)
	}
	return nil
}
