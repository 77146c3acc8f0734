package detection

import "fmt"

// Severity represents the severity level of a detection.
type Severity string

const (
	// SeverityCritical indicates a critical issue requiring immediate attention.
	// Examples: code injection sinks reachable from external input
	SeverityCritical Severity = "critical"

	// SeverityHigh indicates a high-impact issue.
	// Examples: deserialization of untrusted data, command construction from variables
	SeverityHigh Severity = "high"

	// SeverityMedium indicates a moderate issue.
	// Examples: weak cryptographic primitives, overly broad file permissions
	SeverityMedium Severity = "medium"

	// SeverityLow indicates a minor issue.
	// Examples: debug endpoints left enabled, informational leaks
	SeverityLow Severity = "low"
)

// severityWeights maps severity levels to numeric weights for ordering.
// Higher weights indicate more severe detections.
var severityWeights = map[Severity]float64{
	SeverityCritical: 10.0,
	SeverityHigh:     7.5,
	SeverityMedium:   5.0,
	SeverityLow:      2.5,
}

// IsValid returns true if the severity level is valid.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	default:
		return false
	}
}

// Weight returns the numeric weight associated with the severity level.
// Returns 0.0 for invalid severity levels.
func (s Severity) Weight() float64 {
	if weight, ok := severityWeights[s]; ok {
		return weight
	}
	return 0.0
}

// String returns the string representation of the severity.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity parses a string into a Severity value.
// Returns an error if the string is not a valid severity level.
func ParseSeverity(s string) (Severity, error) {
	severity := Severity(s)
	if !severity.IsValid() {
		return "", fmt.Errorf("invalid severity: %s", s)
	}
	return severity, nil
}

// CompareSeverity compares two severity levels.
// Returns:
//   - negative if s1 < s2
//   - zero if s1 == s2
//   - positive if s1 > s2
func CompareSeverity(s1, s2 Severity) int {
	w1 := s1.Weight()
	w2 := s2.Weight()
	if w1 < w2 {
		return -1
	}
	if w1 > w2 {
		return 1
	}
	return 0
}

// MaxSeverity returns the more severe of the two levels.
func MaxSeverity(s1, s2 Severity) Severity {
	if CompareSeverity(s1, s2) >= 0 {
		return s1
	}
	return s2
}
