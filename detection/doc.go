// Package detection provides the core types exchanged between pattern agents,
// the accuracy cache, and the voting aggregator.
//
// A Detection is a single agent's raw flag on one line of scanned content.
// An AggregatedFinding is the deduplicated, confidence-weighted result of
// voting across all agents that flagged the same location.
//
// # Severity Levels
//
// Severity is ranked from Critical to Low with associated weights used for
// ordering and for deriving an agent's base confidence from its CVSS score.
//
// # Fingerprints
//
// Fingerprint derives a deterministic cache key from an agent identifier and
// the matched code fragment. Whitespace in the fragment is normalized first so
// that reformatting does not defeat the cache.
package detection
