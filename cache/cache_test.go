package cache

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternsec/engine/detection"
)

func fp(s string) detection.Fingerprint {
	return detection.Fingerprint(s)
}

func verdict(agent string, score float64) Verdict {
	return Verdict{AgentID: agent, Score: score}
}

func TestCapacityPartition(t *testing.T) {
	tests := []struct {
		capacity                    int
		wantIn, wantGhost, wantMain int
	}{
		{capacity: 4, wantIn: 1, wantGhost: 2, wantMain: 1},
		{capacity: 8, wantIn: 2, wantGhost: 4, wantMain: 2},
		{capacity: 100, wantIn: 25, wantGhost: 50, wantMain: 25},
		{capacity: 5, wantIn: 2, wantGhost: 3, wantMain: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("capacity_%d", tt.capacity), func(t *testing.T) {
			c := New(tt.capacity)
			in, ghost, main := c.Caps()
			assert.Equal(t, tt.wantIn, in)
			assert.Equal(t, tt.wantGhost, ghost)
			assert.Equal(t, tt.wantMain, main)
		})
	}
}

func TestDefaultCapacity(t *testing.T) {
	c := New(0)
	in, ghost, main := c.Caps()
	assert.Equal(t, 256, in)
	assert.Equal(t, 512, ghost)
	assert.Equal(t, 256, main)
}

func TestGetMiss(t *testing.T) {
	c := New(8)
	_, ok := c.Get(fp("absent"))
	assert.False(t, ok)
}

func TestPutGet(t *testing.T) {
	c := New(8)
	c.Put(fp("a"), verdict("agent-1", 0.8))

	v, ok := c.Get(fp("a"))
	require.True(t, ok)
	assert.Equal(t, "agent-1", v.AgentID)
	assert.Equal(t, 0.8, v.Score)
}

func TestGetIdempotent(t *testing.T) {
	c := New(16)
	c.Put(fp("a"), verdict("agent-1", 0.7))

	first, ok := c.Get(fp("a"))
	require.True(t, ok)
	for i := 0; i < 10; i++ {
		v, ok := c.Get(fp("a"))
		require.True(t, ok)
		assert.Equal(t, first, v)
	}
}

// TestGhostPromotionScenario walks the C=4 partition: A1in cap 1,
// A1out cap 2, Am cap 1.
func TestGhostPromotionScenario(t *testing.T) {
	c := New(4)

	c.Put(fp("a"), verdict("x", 0.5))
	c.Put(fp("b"), verdict("x", 0.6)) // a evicted from A1in into A1out

	assert.True(t, c.IsGhost(fp("a")), "a should be a ghost after A1in eviction")

	// Ghost presence is a data miss.
	_, ok := c.Get(fp("a"))
	assert.False(t, ok)
	assert.True(t, c.IsGhost(fp("a")), "get must not consume the ghost")

	// Second put promotes past A1in into Am.
	c.Put(fp("a"), verdict("x", 0.55))
	assert.False(t, c.IsGhost(fp("a")))
	v, ok := c.Get(fp("a"))
	require.True(t, ok)
	assert.Equal(t, 0.55, v.Score)

	// Promotion landed in Am, not A1in: filling A1in must not evict it.
	c.Put(fp("c"), verdict("x", 0.1))
	c.Put(fp("d"), verdict("x", 0.1))
	_, ok = c.Get(fp("a"))
	assert.True(t, ok, "promoted entry must live in Am, not A1in")
}

func TestEvictionNeverLandsBackInA1in(t *testing.T) {
	c := New(8) // A1in 2, A1out 4, Am 2

	c.Put(fp("a"), verdict("x", 0.5))
	c.Put(fp("b"), verdict("x", 0.5))
	c.Put(fp("c"), verdict("x", 0.5)) // evicts a
	require.True(t, c.IsGhost(fp("a")))

	c.Put(fp("a"), verdict("x", 0.9))

	// a now lives in Am. Flood A1in; a must survive.
	c.Put(fp("d"), verdict("x", 0.1))
	c.Put(fp("e"), verdict("x", 0.1))
	c.Put(fp("f"), verdict("x", 0.1))

	v, ok := c.Get(fp("a"))
	require.True(t, ok)
	assert.Equal(t, 0.9, v.Score)
}

func TestAmEvictionDropsEntirely(t *testing.T) {
	c := New(4) // Am cap 1

	// Promote a into Am.
	c.Put(fp("a"), verdict("x", 0.5))
	c.Put(fp("b"), verdict("x", 0.5))
	c.Put(fp("a"), verdict("x", 0.5))

	// Promote b into Am; a is Am's LRU and must be dropped with no ghost.
	c.Put(fp("c"), verdict("x", 0.5)) // b evicted from A1in to ghost
	c.Put(fp("b"), verdict("x", 0.5)) // b promoted, a evicted from Am

	_, ok := c.Get(fp("a"))
	assert.False(t, ok)
	assert.False(t, c.IsGhost(fp("a")), "Am evictions leave no ghost")
}

func TestGhostQueueBounded(t *testing.T) {
	c := New(4) // ghost cap 2

	// Push a run of keys through the size-1 A1in; each eviction creates a ghost.
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		c.Put(fp(k), verdict("x", 0.5))
	}
	assert.LessOrEqual(t, c.GhostLen(), 2)

	// The oldest ghosts fell off with no trace: a re-put goes to A1in.
	c.Put(fp("a"), verdict("x", 0.5))
	_, inCacheAfter := c.Get(fp("a"))
	assert.True(t, inCacheAfter)
}

func TestInvariantBoundsUnderChurn(t *testing.T) {
	c := New(10)
	in, ghost, main := c.Caps()

	for i := 0; i < 1000; i++ {
		k := fp(fmt.Sprintf("key-%d", i%37))
		if i%3 == 0 {
			c.Get(k)
		}
		c.Put(k, verdict("x", float64(i%10)/10))

		require.LessOrEqual(t, c.Len(), in+main, "|A1in|+|Am| exceeded capacity")
		require.LessOrEqual(t, c.GhostLen(), ghost, "|A1out| exceeded ghost capacity")
	}
}

func TestLRUOrderInAm(t *testing.T) {
	c := New(12) // A1in 3, ghost 6, Am 3

	// Promote a, b, c into Am.
	for _, k := range []string{"a", "b", "c", "x1", "x2", "x3"} {
		c.Put(fp(k), verdict("x", 0.5))
	}
	for _, k := range []string{"a", "b", "c"} {
		require.True(t, c.IsGhost(fp(k)), "setup: %s should be ghost", k)
		c.Put(fp(k), verdict("x", 0.5))
	}

	// Touch a so b becomes Am's LRU.
	c.Get(fp("a"))

	// Promote one more entry; b must be the one evicted.
	c.Put(fp("y"), verdict("x", 0.5)) // pushes x1 out of A1in into A1out
	require.True(t, c.IsGhost(fp("x1")))
	c.Put(fp("x1"), verdict("x", 0.5))

	_, okA := c.Get(fp("a"))
	_, okB := c.Get(fp("b"))
	_, okC := c.Get(fp("c"))
	assert.True(t, okA)
	assert.False(t, okB, "Am's LRU entry should have been evicted")
	assert.True(t, okC)
}

func TestPutExistingUpdatesInPlace(t *testing.T) {
	c := New(8)
	c.Put(fp("a"), verdict("x", 0.5))
	c.Put(fp("a"), verdict("x", 0.7))

	v, ok := c.Get(fp("a"))
	require.True(t, ok)
	assert.Equal(t, 0.7, v.Score)
	assert.Equal(t, 1, c.Len(), "update must not duplicate the entry")
}

func TestPrecisionUndefinedWithoutFeedback(t *testing.T) {
	c := New(8)
	_, defined := c.Precision("agent-1")
	assert.False(t, defined, "precision must be undefined, not zero")
}

func TestRecordFeedback(t *testing.T) {
	c := New(8)

	for i := 0; i < 9; i++ {
		c.RecordFeedback("agent-1", true)
	}
	c.RecordFeedback("agent-1", false)

	p, defined := c.Precision("agent-1")
	require.True(t, defined)
	assert.InDelta(t, 0.9, p, 1e-9)

	stats, ok := c.Stats("agent-1")
	require.True(t, ok)
	assert.Equal(t, 9, stats.TruePositives)
	assert.Equal(t, 1, stats.FalsePositives)
}

func TestFeedbackMonotonic(t *testing.T) {
	c := New(8)
	c.RecordFeedback("agent-1", true)
	c.RecordFeedback("agent-1", false)
	c.RecordFeedback("agent-1", true)

	stats, _ := c.Stats("agent-1")
	assert.Equal(t, 2, stats.TruePositives)
	assert.Equal(t, 1, stats.FalsePositives)
}

func TestFeedbackIndependentOfQueues(t *testing.T) {
	c := New(4)
	c.RecordFeedback("agent-1", true)

	// Churn the queues; the ledger must be untouched.
	for _, k := range []string{"a", "b", "c", "d"} {
		c.Put(fp(k), verdict("agent-1", 0.5))
	}

	p, defined := c.Precision("agent-1")
	require.True(t, defined)
	assert.Equal(t, 1.0, p)
}

func TestConcurrentAccess(t *testing.T) {
	c := New(64)
	var wg sync.WaitGroup

	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := fp(fmt.Sprintf("key-%d", (g*31+i)%97))
				c.Get(k)
				c.Put(k, verdict("agent", 0.5))
				c.RecordFeedback(fmt.Sprintf("agent-%d", g), i%2 == 0)
			}
		}(g)
	}
	wg.Wait()

	in, ghost, main := c.Caps()
	assert.LessOrEqual(t, c.Len(), in+main)
	assert.LessOrEqual(t, c.GhostLen(), ghost)
}
