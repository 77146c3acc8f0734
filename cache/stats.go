package cache

// AgentStats accumulates feedback counts for one agent. Counts only ever
// increase; there is no decay or staleness policy.
type AgentStats struct {
	// TruePositives is the number of findings confirmed by reviewers.
	TruePositives int `json:"true_positives"`

	// FalsePositives is the number of findings rejected by reviewers.
	FalsePositives int `json:"false_positives"`
}

// Precision returns the agent's historical precision and whether it is
// defined. Precision is undefined until the agent has received at least one
// feedback event; callers must treat undefined as "no signal", not zero.
func (s AgentStats) Precision() (float64, bool) {
	total := s.TruePositives + s.FalsePositives
	if total == 0 {
		return 0, false
	}
	return float64(s.TruePositives) / float64(total), true
}
