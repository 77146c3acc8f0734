package cache

import (
	"container/list"

	"github.com/patternsec/engine/detection"
)

// SnapshotEntry is one value-bearing cache entry in a snapshot.
type SnapshotEntry struct {
	Key     detection.Fingerprint `json:"key"`
	Verdict Verdict               `json:"verdict"`
}

// Snapshot is the logical persisted form of a cache: the accuracy ledger and
// the three queues in their internal order. Physical storage is up to the
// snapshot store; see the snapshot package.
type Snapshot struct {
	// AgentStats is the accuracy ledger keyed by agent ID.
	AgentStats map[string]AgentStats `json:"agent_stats"`

	// A1In holds the FIFO queue, oldest entry first.
	A1In []SnapshotEntry `json:"a1in"`

	// A1Out holds the ghost keys, oldest first.
	A1Out []detection.Fingerprint `json:"a1out"`

	// Am holds the LRU queue, least recently used first.
	Am []SnapshotEntry `json:"am"`
}

// Snapshot captures the cache state for persistence.
func (c *Cache) Snapshot() *Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := &Snapshot{
		AgentStats: make(map[string]AgentStats, len(c.stats)),
		A1In:       make([]SnapshotEntry, 0, c.a1in.Len()),
		A1Out:      make([]detection.Fingerprint, 0, c.a1out.Len()),
		Am:         make([]SnapshotEntry, 0, c.am.Len()),
	}

	for id, s := range c.stats {
		snap.AgentStats[id] = *s
	}
	for el := c.a1in.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		snap.A1In = append(snap.A1In, SnapshotEntry{Key: e.key, Verdict: e.verdict})
	}
	for el := c.a1out.Front(); el != nil; el = el.Next() {
		snap.A1Out = append(snap.A1Out, el.Value.(detection.Fingerprint))
	}
	for el := c.am.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		snap.Am = append(snap.Am, SnapshotEntry{Key: e.key, Verdict: e.verdict})
	}

	return snap
}

// Restore replaces the cache contents with a previously captured snapshot.
// Queue order is preserved. When the snapshot was taken under a larger
// capacity, the oldest entries of each queue are discarded so the current
// partition limits still hold.
func (c *Cache) Restore(snap *Snapshot) {
	if snap == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.a1in.Init()
	c.a1out.Init()
	c.am.Init()
	c.a1inIdx = make(map[detection.Fingerprint]*list.Element)
	c.a1outIdx = make(map[detection.Fingerprint]*list.Element)
	c.amIdx = make(map[detection.Fingerprint]*list.Element)
	c.stats = make(map[string]*AgentStats, len(snap.AgentStats))

	for id, s := range snap.AgentStats {
		stats := s
		c.stats[id] = &stats
	}

	for _, e := range tail(snap.A1In, c.inCap) {
		c.a1inIdx[e.Key] = c.a1in.PushBack(&entry{key: e.Key, verdict: e.Verdict})
	}
	for _, key := range tailKeys(snap.A1Out, c.ghostCap) {
		c.a1outIdx[key] = c.a1out.PushBack(key)
	}
	for _, e := range tail(snap.Am, c.mainCap) {
		c.amIdx[e.Key] = c.am.PushBack(&entry{key: e.Key, verdict: e.Verdict})
	}
}

func tail(entries []SnapshotEntry, n int) []SnapshotEntry {
	if len(entries) <= n {
		return entries
	}
	return entries[len(entries)-n:]
}

func tailKeys(keys []detection.Fingerprint, n int) []detection.Fingerprint {
	if len(keys) <= n {
		return keys
	}
	return keys[len(keys)-n:]
}
