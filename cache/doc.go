// Package cache provides the accuracy cache: a capacity-bounded store of
// per-fragment verdicts with 2Q-style eviction, plus a per-agent ledger of
// true/false-positive feedback counts.
//
// # Eviction
//
// The cache keeps three ordered structures:
//
//   - A1in: a FIFO queue of first-time entries
//   - A1out: a FIFO queue of ghost keys (no values) for entries recently
//     evicted from A1in
//   - Am: an LRU queue of entries that proved recurring
//
// A fragment must be seen twice, once before eviction from A1in and once
// after, to earn promotion into Am. Plain LRU admits one-off matches into the
// hot set and evicts genuinely frequent fragments under bursty scans; the
// ghost-promotion rule better matches the skewed access pattern of repeated
// scans over overlapping file sets.
//
// For a total capacity C, A1in holds ⌈0.25·C⌉ entries, A1out holds ⌈0.5·C⌉
// ghost keys, and Am holds the remainder.
//
// # Accuracy Ledger
//
// RecordFeedback accumulates true/false-positive counts per agent. Counts are
// monotonic and never decay. Precision reports a defined value only once an
// agent has received at least one feedback event; callers treat an undefined
// precision as "no signal", not as zero.
//
// # Concurrency
//
// The cache is the sole shared mutable resource of a scan. Every operation
// runs under one exclusive lock so that the ghost-check, removal, and insert
// steps of a promotion are a single linearizable transaction.
package cache
