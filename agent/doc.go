// Package agent implements single-pattern detection agents.
//
// Every detector kind is one execution engine parameterized by a uniform Rule
// record rather than a per-kind type: a compiled primary pattern, optional
// context corroboration checks, and a static base confidence derived from the
// rule's severity and CVSS score at construction time.
//
// # Context Corroboration
//
// A rule may declare context checks: additional patterns (or a CEL predicate)
// that must also match near a primary match before a detection is emitted.
// This suppresses taint-style rules when no indicator of externally-influenced
// input is present. Rules without context checks always emit on primary match.
//
// # Purity and Concurrency
//
// An Agent is a pure function of its inputs after construction. It holds no
// mutable state, so any number of agents may evaluate the same content
// concurrently without coordination.
//
// # Failure Modes
//
// Construction fails with a *ConfigError when the primary pattern does not
// compile or the CVSS score is out of range; one bad rule never prevents other
// agents from loading. Evaluation is bounded by a per-file time budget and
// fails with ErrDeadlineExceeded when exceeded, which callers treat as
// skip-this-agent-for-this-file, not as a scan abort.
package agent
