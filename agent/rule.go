package agent

import "github.com/patternsec/engine/detection"

// Rule is the uniform record that parameterizes a detection agent.
// Rules are typically loaded from YAML rule-set files; see the rules package.
type Rule struct {
	// Name identifies the rule and doubles as the agent ID.
	Name string `yaml:"name" json:"name"`

	// Language restricts the rule to files of one language.
	// Empty means the rule applies to every language.
	Language string `yaml:"language,omitempty" json:"language,omitempty"`

	// Severity is the severity level assigned to matches.
	Severity detection.Severity `yaml:"severity" json:"severity"`

	// Pattern is the primary detection pattern (RE2 syntax).
	Pattern string `yaml:"detection_pattern" json:"detection_pattern"`

	// Description explains what the rule detects.
	Description string `yaml:"description,omitempty" json:"description,omitempty"`

	// AttackID maps matches to MITRE ATT&CK (e.g., "T1059").
	AttackID string `yaml:"attack_id,omitempty" json:"attack_id,omitempty"`

	// AtlasID maps matches to MITRE ATLAS.
	AtlasID string `yaml:"atlas_id,omitempty" json:"atlas_id,omitempty"`

	// CWE is the Common Weakness Enumeration identifier (e.g., "CWE-95").
	CWE string `yaml:"cwe,omitempty" json:"cwe,omitempty"`

	// Category classifies the rule (e.g., "code_injection"). Used as the
	// aggregation grouping fallback when AttackID is absent.
	Category string `yaml:"category,omitempty" json:"category,omitempty"`

	// CVSS is the rule's CVSS score. Must be in [0, 10].
	CVSS float64 `yaml:"cvss" json:"cvss"`

	// ContextChecks are corroboration patterns. When non-empty, a primary
	// match is only emitted if at least one of these patterns also matches
	// within ContextWindow lines of the match.
	ContextChecks []string `yaml:"context_check,omitempty" json:"context_check,omitempty"`

	// ContextExpr is an optional CEL predicate over the variables
	// line, window, and language (all strings). When set, it is evaluated
	// as an additional corroboration check alongside ContextChecks.
	ContextExpr string `yaml:"context_expr,omitempty" json:"context_expr,omitempty"`
}

// HasContext returns true if the rule declares any corroboration check.
func (r Rule) HasContext() bool {
	return len(r.ContextChecks) > 0 || r.ContextExpr != ""
}
