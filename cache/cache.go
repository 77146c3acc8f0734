package cache

import (
	"container/list"
	"math"
	"sync"

	"github.com/patternsec/engine/detection"
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 1024

// Verdict is the cached result of scoring one fragment for one agent.
type Verdict struct {
	// AgentID identifies the agent that produced the verdict.
	AgentID string `json:"agent_id"`

	// Score is the blended confidence contribution computed at scoring time.
	Score float64 `json:"score"`

	// HasHistory records whether the owning agent had a defined historical
	// precision when the verdict was scored.
	HasHistory bool `json:"has_history"`
}

type entry struct {
	key     detection.Fingerprint
	verdict Verdict
}

// Cache is a capacity-bounded verdict store with 2Q-style eviction and a
// per-agent accuracy ledger. All methods are safe for concurrent use; each
// runs as one linearizable transaction under a single exclusive lock.
type Cache struct {
	mu sync.Mutex

	inCap    int
	ghostCap int
	mainCap  int

	// a1in is a FIFO of first-time entries, oldest at the front.
	a1in    *list.List
	a1inIdx map[detection.Fingerprint]*list.Element

	// a1out is a FIFO of ghost keys, oldest at the front. Ghosts carry no
	// verdicts; they exist only to detect re-access and drive promotion.
	a1out    *list.List
	a1outIdx map[detection.Fingerprint]*list.Element

	// am is an LRU of promoted entries, least recently used at the front.
	am    *list.List
	amIdx map[detection.Fingerprint]*list.Element

	stats map[string]*AgentStats
}

// New creates a cache with the given total capacity. The capacity is
// partitioned as ⌈0.25·C⌉ for A1in, ⌈0.5·C⌉ for the A1out ghost queue, and
// the remainder for Am. Non-positive capacities fall back to DefaultCapacity.
func New(capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	inCap := int(math.Ceil(0.25 * float64(capacity)))
	ghostCap := int(math.Ceil(0.5 * float64(capacity)))
	mainCap := capacity - inCap - ghostCap
	if mainCap < 1 {
		mainCap = 1
	}

	return &Cache{
		inCap:    inCap,
		ghostCap: ghostCap,
		mainCap:  mainCap,
		a1in:     list.New(),
		a1inIdx:  make(map[detection.Fingerprint]*list.Element),
		a1out:    list.New(),
		a1outIdx: make(map[detection.Fingerprint]*list.Element),
		am:       list.New(),
		amIdx:    make(map[detection.Fingerprint]*list.Element),
		stats:    make(map[string]*AgentStats),
	}
}

// Get returns the cached verdict for a fingerprint.
//
// A hit in Am moves the entry to the most-recently-used position. A hit in
// A1in returns the verdict without repositioning (pure FIFO). A key present
// only as a ghost in A1out is a miss for data; the ghost stays where it is
// and is consumed by the next Put.
func (c *Cache) Get(fp detection.Fingerprint) (Verdict, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.amIdx[fp]; ok {
		c.am.MoveToBack(el)
		return el.Value.(*entry).verdict, true
	}
	if el, ok := c.a1inIdx[fp]; ok {
		return el.Value.(*entry).verdict, true
	}
	return Verdict{}, false
}

// Contains reports value-bearing membership without disturbing LRU order.
func (c *Cache) Contains(fp detection.Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, inAm := c.amIdx[fp]
	_, inA1 := c.a1inIdx[fp]
	return inAm || inA1
}

// IsGhost reports whether the key is currently tracked ghost-only in A1out.
func (c *Cache) IsGhost(fp detection.Fingerprint) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.a1outIdx[fp]
	return ok
}

// Put stores a verdict for a fingerprint.
//
// A key that is currently a ghost in A1out is promoted: the ghost is removed
// and the entry is inserted at the most-recently-used end of Am, evicting
// Am's least recently used entry if Am is full (the evicted entry is dropped
// entirely; Am evictions leave no ghost). Any other new key is appended to
// A1in; if A1in overflows, its head is evicted and its key becomes a new
// ghost at the tail of A1out, which in turn drops its oldest ghost when over
// capacity.
//
// Putting a key that already resides in A1in or Am updates the stored
// verdict in place; an Am resident additionally moves to the MRU position.
func (c *Cache) Put(fp detection.Fingerprint, v Verdict) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.amIdx[fp]; ok {
		el.Value.(*entry).verdict = v
		c.am.MoveToBack(el)
		return
	}
	if el, ok := c.a1inIdx[fp]; ok {
		el.Value.(*entry).verdict = v
		return
	}

	if el, ok := c.a1outIdx[fp]; ok {
		// Seen twice: promote past A1in straight into the hot segment.
		c.a1out.Remove(el)
		delete(c.a1outIdx, fp)
		c.insertMain(fp, v)
		return
	}

	c.a1inIdx[fp] = c.a1in.PushBack(&entry{key: fp, verdict: v})
	if c.a1in.Len() > c.inCap {
		c.evictA1in()
	}
}

// insertMain appends an entry at Am's MRU end, evicting the LRU entry when
// Am is full. Caller holds the lock.
func (c *Cache) insertMain(fp detection.Fingerprint, v Verdict) {
	if c.am.Len() >= c.mainCap {
		oldest := c.am.Front()
		if oldest != nil {
			c.am.Remove(oldest)
			delete(c.amIdx, oldest.Value.(*entry).key)
		}
	}
	c.amIdx[fp] = c.am.PushBack(&entry{key: fp, verdict: v})
}

// evictA1in moves A1in's head into the ghost queue. Caller holds the lock.
func (c *Cache) evictA1in() {
	head := c.a1in.Front()
	if head == nil {
		return
	}
	key := head.Value.(*entry).key
	c.a1in.Remove(head)
	delete(c.a1inIdx, key)

	// Value dropped; only the key survives as a ghost.
	c.a1outIdx[key] = c.a1out.PushBack(key)
	if c.a1out.Len() > c.ghostCap {
		oldest := c.a1out.Front()
		c.a1out.Remove(oldest)
		delete(c.a1outIdx, oldest.Value.(detection.Fingerprint))
	}
}

// RecordFeedback increments the agent's true- or false-positive counter.
// Feedback is independent of the fingerprint queues.
func (c *Cache) RecordFeedback(agentID string, truePositive bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[agentID]
	if !ok {
		s = &AgentStats{}
		c.stats[agentID] = s
	}
	if truePositive {
		s.TruePositives++
	} else {
		s.FalsePositives++
	}
}

// Precision returns the agent's historical precision and whether it is
// defined (at least one feedback event recorded).
func (c *Cache) Precision(agentID string) (float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[agentID]
	if !ok {
		return 0, false
	}
	return s.Precision()
}

// Stats returns a copy of the agent's feedback counters.
func (c *Cache) Stats(agentID string) (AgentStats, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.stats[agentID]
	if !ok {
		return AgentStats{}, false
	}
	return *s, true
}

// Len returns the number of value-bearing entries (|A1in| + |Am|).
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.a1in.Len() + c.am.Len()
}

// GhostLen returns the number of ghost keys in A1out.
func (c *Cache) GhostLen() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.a1out.Len()
}

// Caps returns the partitioned capacities (A1in, A1out, Am).
func (c *Cache) Caps() (in, ghost, main int) {
	return c.inCap, c.ghostCap, c.mainCap
}
