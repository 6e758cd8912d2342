package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for normalization and rule evaluation.
var (
	// ErrInvalidPayload indicates the raw input is not a JSON document.
	ErrInvalidPayload = errors.New("event is not a document")

	// ErrMissingType indicates the event type is absent or empty.
	ErrMissingType = errors.New("event type is missing")

	// ErrUnsupportedChannel indicates the channel is missing or outside the
	// supported set. Use errors.Is against this, errors.As for the channel.
	ErrUnsupportedChannel = errors.New("unsupported channel")

	// ErrRuleProviderUnavailable indicates the rule source failed. The engine
	// degrades to zero matched rules rather than failing the ingestion.
	ErrRuleProviderUnavailable = errors.New("rule provider unavailable")
)

// UnsupportedChannelError reports the offending channel value so callers can
// fix their input. Matches ErrUnsupportedChannel under errors.Is.
type UnsupportedChannelError struct {
	Channel string
}

func (e *UnsupportedChannelError) Error() string {
	if e.Channel == "" {
		return "unsupported channel: (missing)"
	}
	return fmt.Sprintf("unsupported channel: %q", e.Channel)
}

func (e *UnsupportedChannelError) Is(target error) bool {
	return target == ErrUnsupportedChannel
}

// RuleEvaluationError wraps a failure internal to a single rule's definitions
// (e.g. an invalid regex pattern). Caught per rule and logged; the offending
// rule contributes no actions while sibling rules still evaluate.
type RuleEvaluationError struct {
	RuleID string
	Err    error
}

func (e *RuleEvaluationError) Error() string {
	return fmt.Sprintf("rule %s: evaluation failed: %v", e.RuleID, e.Err)
}

func (e *RuleEvaluationError) Unwrap() error {
	return e.Err
}
