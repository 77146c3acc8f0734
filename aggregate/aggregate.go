package aggregate

import (
	"fmt"
	"sort"

	"github.com/patternsec/engine/detection"
)

// ScoreSource supplies the confidence contribution for one detection.
//
// The returned score is the agent's blended contribution for this fragment,
// and hasHistory reports whether the agent had a defined historical precision
// when the score was computed. Implementations typically sit in front of the
// accuracy cache so identical fragments are not rescored.
type ScoreSource interface {
	Contribution(d detection.Detection) (score float64, hasHistory bool)
}

// ScoreFunc adapts a function to the ScoreSource interface.
type ScoreFunc func(d detection.Detection) (float64, bool)

// Contribution implements ScoreSource.
func (f ScoreFunc) Contribution(d detection.Detection) (float64, bool) {
	return f(d)
}

// BaseOnly is a ScoreSource that uses only each detection's base confidence,
// reporting no history. It implements the disabled adaptive-routing mode.
var BaseOnly = ScoreFunc(func(d detection.Detection) (float64, bool) {
	return d.BaseConfidence, false
})

// group accumulates the detections for one (file, line, attack-id) bucket.
type group struct {
	file   string
	line   int
	bucket string
	dets   []detection.Detection

	// agents in first-seen order, deduplicated
	agents []string
	seen   map[string]bool
}

// Aggregator groups, votes on, and ranks raw detections. It is stateless and
// safe for concurrent use.
type Aggregator struct{}

// New creates an Aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Aggregate collapses raw detections into one ranked finding per
// (file, line, attack-id) group. Detections without an attack identifier
// group by rule category instead. The result is deterministic given
// identical input order and score source.
func (a *Aggregator) Aggregate(dets []detection.Detection, scores ScoreSource) []detection.AggregatedFinding {
	if scores == nil {
		scores = BaseOnly
	}

	groups := make(map[string]*group)
	var order []string

	for _, d := range dets {
		key := groupKey(d)
		g, ok := groups[key]
		if !ok {
			g = &group{
				file:   d.File,
				line:   d.Line,
				bucket: bucket(d),
				seen:   make(map[string]bool),
			}
			groups[key] = g
			order = append(order, key)
		}
		g.dets = append(g.dets, d)
		if !g.seen[d.AgentID] {
			g.seen[d.AgentID] = true
			g.agents = append(g.agents, d.AgentID)
		}
	}

	findings := make([]detection.AggregatedFinding, 0, len(order))
	for _, key := range order {
		findings = append(findings, a.finalize(groups[key], scores))
	}

	sort.SliceStable(findings, func(i, j int) bool {
		fi, fj := findings[i], findings[j]
		if cmp := detection.CompareSeverity(fi.Severity, fj.Severity); cmp != 0 {
			return cmp > 0
		}
		if fi.Confidence != fj.Confidence {
			return fi.Confidence > fj.Confidence
		}
		if fi.File != fj.File {
			return fi.File < fj.File
		}
		return fi.Line < fj.Line
	})

	return findings
}

// finalize computes the voted fields for one group.
func (a *Aggregator) finalize(g *group, scores ScoreSource) detection.AggregatedFinding {
	f := detection.NewAggregatedFinding(g.file, g.line)
	f.VotingAgents = g.agents
	f.VoteCount = len(g.agents)
	f.PrimaryAttackID = primaryAttackID(g.dets)

	f.Severity = g.dets[0].Severity
	for _, d := range g.dets[1:] {
		f.Severity = detection.MaxSeverity(f.Severity, d.Severity)
	}

	f.Confidence = blend(g, scores)
	return *f
}

// blend implements the confidence rule: the mean of (base+precision)/2
// contributions over agents with accuracy history, falling back to the
// maximum base confidence when no agent in the group has any.
func blend(g *group, scores ScoreSource) float64 {
	var sum float64
	var n int
	scored := make(map[string]bool)
	maxBase := 0.0

	for _, d := range g.dets {
		if d.BaseConfidence > maxBase {
			maxBase = d.BaseConfidence
		}
		if scored[d.AgentID] {
			continue
		}
		scored[d.AgentID] = true

		score, hasHistory := scores.Contribution(d)
		if hasHistory {
			sum += score
			n++
		}
	}

	if n == 0 {
		return clamp01(maxBase)
	}
	return clamp01(sum / float64(n))
}

// primaryAttackID picks the attack identifier shared by the largest subgroup
// of detections, breaking ties by the lexicographically smallest agent ID
// among the tied subgroups.
func primaryAttackID(dets []detection.Detection) string {
	counts := make(map[string]int)
	minAgent := make(map[string]string)

	for _, d := range dets {
		if d.AttackID == "" {
			continue
		}
		counts[d.AttackID]++
		if cur, ok := minAgent[d.AttackID]; !ok || d.AgentID < cur {
			minAgent[d.AttackID] = d.AgentID
		}
	}

	var best string
	for id, n := range counts {
		if best == "" {
			best = id
			continue
		}
		if n > counts[best] {
			best = id
		} else if n == counts[best] && minAgent[id] < minAgent[best] {
			best = id
		}
	}
	return best
}

func groupKey(d detection.Detection) string {
	return fmt.Sprintf("%s\x00%d\x00%s", d.File, d.Line, bucket(d))
}

// bucket is the third grouping component: the attack identifier when present,
// otherwise the rule category.
func bucket(d detection.Detection) string {
	if d.AttackID != "" {
		return d.AttackID
	}
	return "category:" + d.Category
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
