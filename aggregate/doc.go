// Package aggregate turns raw per-agent detections into ranked findings.
//
// Detections sharing a code location and attack identifier are collapsed into
// one AggregatedFinding per group: each distinct agent counts as one vote,
// the group takes the maximum severity, and the final confidence blends each
// agent's static base confidence with its historical precision where one is
// defined. When no agent in a group has accuracy history, the group falls
// back to the maximum base confidence.
//
// Output ordering is deterministic: severity descending, confidence
// descending, then (file, line) ascending.
package aggregate
