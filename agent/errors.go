package agent

import (
	"errors"
	"fmt"
)

// Common errors returned by agent operations.
var (
	// ErrDeadlineExceeded is returned by Detect when pattern evaluation
	// exceeds the agent's per-file time budget.
	ErrDeadlineExceeded = errors.New("agent: evaluation deadline exceeded")
)

// ConfigError reports an invalid rule at agent construction time.
// It identifies the offending rule so that callers can report it and
// continue loading the remaining agents.
type ConfigError struct {
	// Rule is the name of the rule that failed to load.
	Rule string

	// Reason is a human-readable description of the problem.
	Reason string

	// Cause is the underlying error, if any (e.g., a regexp compile error).
	Cause error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("agent: rule %q: %s: %v", e.Rule, e.Reason, e.Cause)
	}
	return fmt.Sprintf("agent: rule %q: %s", e.Rule, e.Reason)
}

// Unwrap returns the underlying cause for use with errors.Is and errors.As.
func (e *ConfigError) Unwrap() error {
	return e.Cause
}

func configErr(rule, reason string, cause error) *ConfigError {
	return &ConfigError{Rule: rule, Reason: reason, Cause: cause}
}
