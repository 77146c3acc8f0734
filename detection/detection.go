package detection

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Detection represents one agent's raw flag on a single line of scanned
// content. Detections are immutable: agents create them, the aggregator
// consumes them, and nothing mutates them in between.
type Detection struct {
	// AgentID identifies the agent that produced this detection.
	AgentID string `json:"agent_id"`

	// File is the path of the scanned file.
	File string `json:"file"`

	// Line is the 1-based line number of the match.
	Line int `json:"line"`

	// MatchedText is the exact fragment matched by the agent's pattern.
	MatchedText string `json:"matched_text"`

	// Severity indicates the severity level declared by the agent's rule.
	Severity Severity `json:"severity"`

	// AttackID maps the detection to MITRE ATT&CK (e.g., "T1059").
	AttackID string `json:"attack_id,omitempty"`

	// AtlasID maps the detection to MITRE ATLAS.
	AtlasID string `json:"atlas_id,omitempty"`

	// CWE is the Common Weakness Enumeration identifier (e.g., "CWE-95").
	CWE string `json:"cwe,omitempty"`

	// Category classifies the rule that produced the detection. It is the
	// grouping fallback when AttackID is absent.
	Category string `json:"category,omitempty"`

	// CVSS is the Common Vulnerability Scoring System score (0.0 to 10.0).
	CVSS float64 `json:"cvss"`

	// BaseConfidence is the agent's static confidence (0.0 to 1.0), derived
	// from severity and CVSS at construction, not recomputed per match.
	BaseConfidence float64 `json:"base_confidence"`
}

// AggregatedFinding is the deduplicated, confidence-weighted result of voting
// across all agents that flagged the same code location.
type AggregatedFinding struct {
	// ID is a unique identifier for the finding.
	ID string `json:"id"`

	// File is the path of the scanned file.
	File string `json:"file"`

	// Line is the 1-based line number shared by the grouped detections.
	Line int `json:"line"`

	// PrimaryAttackID is the attack identifier shared by the largest
	// subgroup of voting agents.
	PrimaryAttackID string `json:"primary_attack_id,omitempty"`

	// Severity is the maximum severity across the group.
	Severity Severity `json:"severity"`

	// VotingAgents lists the distinct agents in the group, in the order
	// their detections were first seen.
	VotingAgents []string `json:"voting_agents"`

	// VoteCount is the number of distinct agents in the group.
	VoteCount int `json:"vote_count"`

	// Confidence is the final blended confidence (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// CreatedAt is the timestamp when the finding was aggregated.
	CreatedAt time.Time `json:"created_at"`
}

// NewAggregatedFinding creates a finding for a code location with an
// auto-generated UUID.
func NewAggregatedFinding(file string, line int) *AggregatedFinding {
	return &AggregatedFinding{
		ID:        uuid.New().String(),
		File:      file,
		Line:      line,
		CreatedAt: time.Now(),
	}
}

// Validate checks that the finding is internally consistent.
func (f *AggregatedFinding) Validate() error {
	if f.File == "" {
		return fmt.Errorf("finding file is required")
	}
	if f.Line < 1 {
		return fmt.Errorf("finding line must be positive, got %d", f.Line)
	}
	if f.VoteCount != len(f.VotingAgents) {
		return fmt.Errorf("vote count %d does not match %d voting agents",
			f.VoteCount, len(f.VotingAgents))
	}
	if f.Confidence < 0.0 || f.Confidence > 1.0 {
		return fmt.Errorf("confidence must be between 0.0 and 1.0, got %f", f.Confidence)
	}
	if !f.Severity.IsValid() {
		return fmt.Errorf("invalid severity: %s", f.Severity)
	}
	return nil
}
