package agent

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/patternsec/engine/detection"
)

const (
	// contextWindow is the number of lines on each side of a primary match
	// that corroboration patterns are evaluated against.
	contextWindow = 2

	// deadlineCheckInterval is how many lines are evaluated between
	// deadline checks.
	deadlineCheckInterval = 64

	// DefaultEvalBudget is the default per-file evaluation time budget.
	DefaultEvalBudget = 2 * time.Second
)

// Agent evaluates one detection rule against content. Agents are immutable
// after construction and safe for concurrent use.
type Agent struct {
	rule           Rule
	primary        *regexp.Regexp
	context        []*regexp.Regexp
	contextProg    cel.Program
	baseConfidence float64
	evalBudget     time.Duration
}

// New compiles a rule into an Agent.
//
// It returns a *ConfigError when the primary pattern, a context pattern, or
// the context expression does not compile, or when the CVSS score is outside
// [0, 10]. A failed rule must not prevent other agents from loading; callers
// collect these errors and continue.
func New(rule Rule) (*Agent, error) {
	if rule.Name == "" {
		return nil, configErr(rule.Name, "rule name is required", nil)
	}
	if rule.CVSS < 0 || rule.CVSS > 10 {
		return nil, configErr(rule.Name, fmt.Sprintf("cvss %.1f out of range [0, 10]", rule.CVSS), nil)
	}
	if !rule.Severity.IsValid() {
		return nil, configErr(rule.Name, fmt.Sprintf("invalid severity %q", rule.Severity), nil)
	}

	primary, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return nil, configErr(rule.Name, "primary pattern does not compile", err)
	}

	a := &Agent{
		rule:       rule,
		primary:    primary,
		evalBudget: DefaultEvalBudget,
	}

	for _, check := range rule.ContextChecks {
		re, err := regexp.Compile(check)
		if err != nil {
			return nil, configErr(rule.Name, "context pattern does not compile", err)
		}
		a.context = append(a.context, re)
	}

	if rule.ContextExpr != "" {
		prog, err := compileContextExpr(rule.ContextExpr)
		if err != nil {
			return nil, configErr(rule.Name, "context expression does not compile", err)
		}
		a.contextProg = prog
	}

	// Static property of the agent: blend of CVSS and severity weight,
	// both normalized to [0, 1]. Not recomputed per match.
	a.baseConfidence = clamp01((rule.CVSS/10.0 + rule.Severity.Weight()/10.0) / 2.0)

	return a, nil
}

// compileContextExpr compiles a CEL predicate over the corroboration
// variables. The expression must evaluate to a boolean.
func compileContextExpr(expr string) (cel.Program, error) {
	env, err := cel.NewEnv(
		cel.Variable("line", cel.StringType),
		cel.Variable("window", cel.StringType),
		cel.Variable("language", cel.StringType),
	)
	if err != nil {
		return nil, err
	}

	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", ast.OutputType())
	}

	return env.Program(ast)
}

// ID returns the agent identifier (the rule name).
func (a *Agent) ID() string {
	return a.rule.Name
}

// Rule returns a copy of the agent's rule record.
func (a *Agent) Rule() Rule {
	return a.rule
}

// Language returns the language the agent is restricted to, or "" for any.
func (a *Agent) Language() string {
	return a.rule.Language
}

// BaseConfidence returns the agent's static base confidence.
func (a *Agent) BaseConfidence() float64 {
	return a.baseConfidence
}

// SetEvalBudget overrides the per-file evaluation time budget.
// Must be called before the agent is shared between goroutines.
func (a *Agent) SetEvalBudget(d time.Duration) {
	if d > 0 {
		a.evalBudget = d
	}
}

// Detect evaluates the agent's rule against content, line-indexed, and
// returns one Detection per corroborated primary match.
//
// Detect is a pure function of its inputs. It returns ErrDeadlineExceeded
// if evaluation exceeds the agent's time budget, in which case callers skip
// this agent for this file only.
func (a *Agent) Detect(content, filePath, language string) ([]detection.Detection, error) {
	start := time.Now()
	lines := strings.Split(content, "\n")

	var dets []detection.Detection
	for i, line := range lines {
		if i%deadlineCheckInterval == 0 && time.Since(start) > a.evalBudget {
			return nil, fmt.Errorf("%w: %s after %d of %d lines",
				ErrDeadlineExceeded, a.rule.Name, i, len(lines))
		}

		matches := a.primary.FindAllString(line, -1)
		if len(matches) == 0 {
			continue
		}
		if a.rule.HasContext() && !a.corroborated(lines, i, language) {
			continue
		}

		for _, m := range matches {
			dets = append(dets, detection.Detection{
				AgentID:        a.rule.Name,
				File:           filePath,
				Line:           i + 1,
				MatchedText:    m,
				Severity:       a.rule.Severity,
				AttackID:       a.rule.AttackID,
				AtlasID:        a.rule.AtlasID,
				CWE:            a.rule.CWE,
				Category:       a.rule.Category,
				CVSS:           a.rule.CVSS,
				BaseConfidence: a.baseConfidence,
			})
		}
	}

	return dets, nil
}

// corroborated reports whether at least one context check confirms the
// primary match on lines[idx] within the surrounding window.
func (a *Agent) corroborated(lines []string, idx int, language string) bool {
	lo := idx - contextWindow
	if lo < 0 {
		lo = 0
	}
	hi := idx + contextWindow + 1
	if hi > len(lines) {
		hi = len(lines)
	}
	window := strings.Join(lines[lo:hi], "\n")

	for _, re := range a.context {
		if re.MatchString(window) {
			return true
		}
	}

	if a.contextProg != nil {
		out, _, err := a.contextProg.Eval(map[string]any{
			"line":     lines[idx],
			"window":   window,
			"language": language,
		})
		if err == nil {
			if b, ok := out.Value().(bool); ok && b {
				return true
			}
		}
	}

	return false
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
