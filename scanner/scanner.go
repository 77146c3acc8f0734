package scanner

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/patternsec/engine/agent"
	"github.com/patternsec/engine/aggregate"
	"github.com/patternsec/engine/cache"
	"github.com/patternsec/engine/detection"
)

const instrumentationName = "github.com/patternsec/engine/scanner"

// Common errors returned by scanner operations.
var (
	// ErrAgentNotFound is returned by ApplyFeedback for an agent that is
	// not configured or did not vote on the named finding.
	ErrAgentNotFound = errors.New("scanner: agent not found")

	// ErrFindingNotFound is returned by ApplyFeedback for a finding
	// identity this scanner never produced.
	ErrFindingNotFound = errors.New("scanner: finding not found")

	// ErrNoAgents is returned by New when no rule compiled successfully.
	ErrNoAgents = errors.New("scanner: no agents configured")
)

// Scanner orchestrates pattern agents, the accuracy cache, and the voting
// aggregator. It is safe for concurrent use.
type Scanner struct {
	cfg     *Config
	agents  []*agent.Agent
	byID    map[string]*agent.Agent
	cache   *cache.Cache
	agg     *aggregate.Aggregator
	tracer  trace.Tracer
	metrics *scanMetrics

	ruleErrs []error

	// issued records the voting agents of every finding this scanner has
	// produced, keyed by finding ID, for feedback validation.
	mu     sync.Mutex
	issued map[string][]string
}

// New compiles the given rules into agents and assembles a scanner.
//
// Rules that fail to compile are reported through the logger and collected
// for RuleErrors; they never prevent the remaining agents from loading. New
// fails only when no rule compiles at all or an instrument cannot be created.
//
// When a snapshot store is configured, the persisted cache state is loaded
// here; a missing or corrupt snapshot degrades to a cold start.
func New(rules []agent.Rule, opts ...Option) (*Scanner, error) {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	s := &Scanner{
		cfg:    cfg,
		byID:   make(map[string]*agent.Agent),
		cache:  cache.New(cfg.cacheCapacity()),
		agg:    aggregate.New(),
		issued: make(map[string][]string),
	}

	for _, rule := range rules {
		a, err := agent.New(rule)
		if err != nil {
			cfg.Logger.Warn("skipping invalid rule", "rule", rule.Name, "error", err)
			s.ruleErrs = append(s.ruleErrs, err)
			continue
		}
		if cfg.EvalBudget > 0 {
			a.SetEvalBudget(cfg.EvalBudget)
		}
		s.agents = append(s.agents, a)
		s.byID[a.ID()] = a
	}
	if len(s.agents) == 0 {
		return nil, ErrNoAgents
	}

	tp := cfg.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s.tracer = tp.Tracer(instrumentationName)

	mp := cfg.MeterProvider
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	metrics, err := newScanMetrics(mp.Meter(instrumentationName))
	if err != nil {
		return nil, fmt.Errorf("scanner: init metrics: %w", err)
	}
	s.metrics = metrics

	if cfg.Store != nil {
		snap, err := cfg.Store.Load(context.Background())
		switch {
		case err == nil:
			s.cache.Restore(snap)
			cfg.Logger.Info("cache snapshot restored",
				"entries", s.cache.Len(), "agents", len(snap.AgentStats))
		default:
			// Cold start regardless of cause; only the log level differs.
			cfg.Logger.Warn("starting with empty cache", "error", err)
		}
	}

	return s, nil
}

// RuleErrors returns the per-rule configuration errors collected at
// construction.
func (s *Scanner) RuleErrors() []error {
	return s.ruleErrs
}

// Cache exposes the accuracy cache for introspection.
func (s *Scanner) Cache() *cache.Cache {
	return s.cache
}

// ScanFile runs every configured agent over the content, scores the raw
// detections through the accuracy cache, and returns the aggregated findings
// ranked by severity and confidence.
//
// Agents run concurrently; an agent that exceeds its evaluation budget is
// logged and skipped for this file only. The context is used for trace
// propagation, not cancellation: a scan runs to completion.
func (s *Scanner) ScanFile(ctx context.Context, path, content string) ([]detection.AggregatedFinding, error) {
	if path == "" {
		return nil, fmt.Errorf("scanner: path is required")
	}

	ctx, span := s.tracer.Start(ctx, "scanner.scan_file",
		trace.WithAttributes(attribute.String("scan.file", path)))
	defer span.End()

	start := time.Now()
	language := LanguageForPath(path)

	var mu sync.Mutex
	var raw []detection.Detection

	var eg errgroup.Group
	eg.SetLimit(s.cfg.Workers)
	for _, a := range s.agents {
		if a.Language() != "" && a.Language() != language {
			continue
		}
		eg.Go(func() error {
			dets, err := a.Detect(content, path, language)
			if err != nil {
				// Per-unit recoverable: this agent sits out this file.
				s.cfg.Logger.Warn("agent evaluation failed",
					"agent", a.ID(), "file", path, "error", err)
				return nil
			}
			mu.Lock()
			raw = append(raw, dets...)
			mu.Unlock()
			return nil
		})
	}
	eg.Wait()

	// The sink is append-only and order-insensitive; sort here so grouping
	// and first-seen voter order are deterministic across runs.
	sort.Slice(raw, func(i, j int) bool {
		if raw[i].Line != raw[j].Line {
			return raw[i].Line < raw[j].Line
		}
		if raw[i].AgentID != raw[j].AgentID {
			return raw[i].AgentID < raw[j].AgentID
		}
		return raw[i].MatchedText < raw[j].MatchedText
	})

	findings := s.agg.Aggregate(raw, s.scoreSource(ctx))

	s.mu.Lock()
	for _, f := range findings {
		s.issued[f.ID] = f.VotingAgents
	}
	s.mu.Unlock()

	s.metrics.scanCounter.Add(ctx, 1)
	s.metrics.findingCounter.Add(ctx, int64(len(findings)))
	s.metrics.scanDuration.Record(ctx, float64(time.Since(start).Microseconds())/1000.0)
	span.SetAttributes(
		attribute.Int("scan.detections", len(raw)),
		attribute.Int("scan.findings", len(findings)),
	)

	return findings, nil
}

// scoreSource returns the per-detection scoring function backed by the
// accuracy cache. With adaptive routing disabled it bypasses the cache and
// history entirely.
func (s *Scanner) scoreSource(ctx context.Context) aggregate.ScoreSource {
	if !s.cfg.AdaptiveRouting {
		return aggregate.BaseOnly
	}
	return aggregate.ScoreFunc(func(d detection.Detection) (float64, bool) {
		fp := detection.NewFingerprint(d.AgentID, d.MatchedText)
		if v, ok := s.cache.Get(fp); ok {
			s.metrics.cacheHits.Add(ctx, 1)
			return v.Score, v.HasHistory
		}
		s.metrics.cacheMisses.Add(ctx, 1)

		score := d.BaseConfidence
		p, defined := s.cache.Precision(d.AgentID)
		if defined {
			score = (d.BaseConfidence + p) / 2
		}
		s.cache.Put(fp, cache.Verdict{
			AgentID:    d.AgentID,
			Score:      score,
			HasHistory: defined,
		})
		return score, defined
	})
}

// ApplyFeedback records a reviewer verdict for one agent's vote on one
// finding. It affects only future scans; cached verdicts are not rescored.
//
// Returns ErrFindingNotFound for a finding this scanner never produced, and
// ErrAgentNotFound for an agent that is not configured or did not vote on
// the finding. Neither case mutates the accuracy ledger.
func (s *Scanner) ApplyFeedback(findingID, agentID string, truePositive bool) error {
	s.mu.Lock()
	voters, ok := s.issued[findingID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrFindingNotFound, findingID)
	}

	if _, ok := s.byID[agentID]; !ok {
		return fmt.Errorf("%w: %s", ErrAgentNotFound, agentID)
	}
	if !slices.Contains(voters, agentID) {
		return fmt.Errorf("%w: %s did not vote on finding %s", ErrAgentNotFound, agentID, findingID)
	}

	s.cache.RecordFeedback(agentID, truePositive)
	return nil
}

// Close saves the cache snapshot when a store is configured.
func (s *Scanner) Close(ctx context.Context) error {
	if s.cfg.Store == nil {
		return nil
	}
	if err := s.cfg.Store.Save(ctx, s.cache.Snapshot()); err != nil {
		return fmt.Errorf("scanner: save snapshot: %w", err)
	}
	return nil
}
