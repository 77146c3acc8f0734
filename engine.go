// Package engine is the top-level entry point for the adaptive pattern
// scanning engine.
//
// The engine runs many independent single-pattern detection agents over
// source text, deduplicates and votes on their raw flags, and weights the
// result by each agent's accumulated historical accuracy. A bounded-memory
// 2Q cache avoids rescoring previously seen code fragments.
//
// # Packages
//
//   - detection: core Detection, Severity, and AggregatedFinding types
//   - agent: the rule-parameterized pattern agent
//   - rules: YAML rule-set loading
//   - cache: the 2Q accuracy cache and feedback ledger
//   - aggregate: voting and confidence blending
//   - snapshot: cache persistence (file and Redis)
//   - scanner: the orchestrator tying everything together
//
// # Getting Started
//
//	scan, ruleErrs, err := engine.Open("rules.yaml",
//	    scanner.WithMaxMemoryMB(128),
//	    scanner.WithSnapshotStore(snapshot.NewFileStore("cache.json")),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, e := range ruleErrs {
//	    log.Printf("skipped rule: %v", e)
//	}
//	defer scan.Close(context.Background())
//
//	findings, err := scan.ScanFile(ctx, "app.py", content)
package engine

import (
	"github.com/patternsec/engine/rules"
	"github.com/patternsec/engine/scanner"
)

// Open loads a rule-set file and assembles a scanner from it.
//
// Per-rule problems (invalid severity, missing or uncompilable patterns,
// out-of-range CVSS) are returned in ruleErrs and never abort loading; only
// an unreadable rule file, malformed YAML, or a rule set with no usable rule
// is fatal.
func Open(rulesPath string, opts ...scanner.Option) (s *scanner.Scanner, ruleErrs []error, err error) {
	loaded, ruleErrs, err := rules.Load(rulesPath)
	if err != nil {
		return nil, ruleErrs, err
	}

	s, err = scanner.New(loaded, opts...)
	if err != nil {
		return nil, ruleErrs, err
	}
	ruleErrs = append(ruleErrs, s.RuleErrors()...)
	return s, ruleErrs, nil
}
