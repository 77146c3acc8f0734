// Package scanner composes pattern agents, the accuracy cache, and the
// voting aggregator into a scan orchestrator.
//
// ScanFile runs every configured agent over one content unit concurrently,
// scores the raw detections through the cache so previously seen fragments
// are not rescored, and hands the enriched set to the aggregator for voting
// and ranking. ApplyFeedback routes reviewer verdicts into the cache's
// accuracy ledger, where they sharpen the confidence of future scans.
//
// Agents are pure functions over read-only content, so they run in parallel
// with no coordination beyond an append-only result sink; the aggregator
// re-sorts afterward. The accuracy cache is the only shared mutable state
// and serializes its transactions internally.
//
// The scanner loads a persisted cache snapshot at construction and saves one
// at Close, when a snapshot store is configured. A missing or corrupt
// snapshot degrades to a cold start.
package scanner
