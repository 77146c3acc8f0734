// Package rules provides loading and parsing of YAML rule-set files.
// Rule-set files map language → severity → rule name → rule definition and
// are compiled into detection agents by the scanner.
package rules

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/patternsec/engine/agent"
	"github.com/patternsec/engine/detection"
)

// File represents a rule-set YAML file.
type File struct {
	// Languages maps language → severity → rule name → rule definition.
	Languages map[string]LanguageRules `yaml:"languages"`
}

// LanguageRules maps severity level → rule name → rule definition.
type LanguageRules map[string]map[string]RuleSpec

// RuleSpec is one rule definition as written in a rule-set file.
type RuleSpec struct {
	// DetectionPattern is the primary pattern (RE2 syntax). Required.
	DetectionPattern string `yaml:"detection_pattern"`

	// Description explains what the rule detects.
	Description string `yaml:"description,omitempty"`

	// AttackID maps matches to MITRE ATT&CK.
	AttackID string `yaml:"attack_id,omitempty"`

	// AtlasID maps matches to MITRE ATLAS.
	AtlasID string `yaml:"atlas_id,omitempty"`

	// CWE is the Common Weakness Enumeration identifier.
	CWE string `yaml:"cwe,omitempty"`

	// Category classifies the rule; used as the aggregation grouping
	// fallback when AttackID is absent.
	Category string `yaml:"category,omitempty"`

	// CVSS is the rule's CVSS score. Must be numeric in [0, 10].
	CVSS float64 `yaml:"cvss"`

	// ContextCheck holds corroboration patterns. Accepts a single string
	// or a list in YAML.
	ContextCheck StringList `yaml:"context_check,omitempty"`

	// ContextExpr is an optional CEL corroboration predicate.
	ContextExpr string `yaml:"context_expr,omitempty"`
}

// StringList unmarshals from either a YAML scalar or a YAML sequence,
// so rule files can write one context check without list syntax.
type StringList []string

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *StringList) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var single string
		if err := node.Decode(&single); err != nil {
			return err
		}
		*s = StringList{single}
		return nil
	case yaml.SequenceNode:
		var many []string
		if err := node.Decode(&many); err != nil {
			return err
		}
		*s = StringList(many)
		return nil
	default:
		return fmt.Errorf("context_check must be a string or a list of strings")
	}
}

// Load reads and parses a rule-set file.
//
// The returned rule slice contains every well-formed rule; ruleErrs collects
// the per-rule problems (invalid severity, missing pattern) that did not
// abort loading. Only an unreadable file or malformed YAML is fatal.
func Load(path string) (rules []agent.Rule, ruleErrs []error, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("rules: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse parses rule-set YAML. See Load for the error contract.
func Parse(data []byte) (rules []agent.Rule, ruleErrs []error, err error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("rules: parse: %w", err)
	}

	for _, lang := range sortedKeys(f.Languages) {
		bySeverity := f.Languages[lang]
		for _, sevName := range sortedKeys(bySeverity) {
			sev, serr := detection.ParseSeverity(sevName)
			if serr != nil {
				ruleErrs = append(ruleErrs, fmt.Errorf("rules: language %s: %w", lang, serr))
				continue
			}
			byName := bySeverity[sevName]
			for _, name := range sortedKeys(byName) {
				spec := byName[name]
				if spec.DetectionPattern == "" {
					ruleErrs = append(ruleErrs,
						fmt.Errorf("rules: rule %q: detection_pattern is required", name))
					continue
				}
				rules = append(rules, agent.Rule{
					Name:          name,
					Language:      lang,
					Severity:      sev,
					Pattern:       spec.DetectionPattern,
					Description:   spec.Description,
					AttackID:      spec.AttackID,
					AtlasID:       spec.AtlasID,
					CWE:           spec.CWE,
					Category:      spec.Category,
					CVSS:          spec.CVSS,
					ContextChecks: spec.ContextCheck,
					ContextExpr:   spec.ContextExpr,
				})
			}
		}
	}

	return rules, ruleErrs, nil
}

func sortedKeys[M ~map[string]V, V any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
