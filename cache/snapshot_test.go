package cache

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotRoundTrip(t *testing.T) {
	c := New(8) // A1in 2, A1out 4, Am 2

	// Promote a into Am, leave b and c in A1in, d as a ghost.
	c.Put(fp("a"), verdict("agent-1", 0.9))
	c.Put(fp("d"), verdict("agent-1", 0.2))
	c.Put(fp("b"), verdict("agent-2", 0.5)) // evicts a
	require.True(t, c.IsGhost(fp("a")))
	c.Put(fp("a"), verdict("agent-1", 0.9)) // promotes a
	c.Put(fp("c"), verdict("agent-2", 0.6)) // evicts d

	c.RecordFeedback("agent-1", true)
	c.RecordFeedback("agent-1", false)

	snap := c.Snapshot()
	assert.Len(t, snap.Am, 1)
	assert.Contains(t, snap.A1Out, fp("d"))
	assert.Equal(t, AgentStats{TruePositives: 1, FalsePositives: 1}, snap.AgentStats["agent-1"])

	restored := New(8)
	restored.Restore(snap)

	v, ok := restored.Get(fp("a"))
	require.True(t, ok)
	assert.Equal(t, 0.9, v.Score)

	_, ok = restored.Get(fp("b"))
	assert.True(t, ok)

	assert.True(t, restored.IsGhost(fp("d")), "ghost keys survive a round trip")

	p, defined := restored.Precision("agent-1")
	require.True(t, defined)
	assert.Equal(t, 0.5, p)
}

func TestRestorePreservesPromotionLaw(t *testing.T) {
	c := New(4)
	c.Put(fp("a"), verdict("x", 0.5))
	c.Put(fp("b"), verdict("x", 0.5)) // a becomes a ghost

	restored := New(4)
	restored.Restore(c.Snapshot())

	// The restored ghost still drives promotion.
	restored.Put(fp("a"), verdict("x", 0.8))
	assert.False(t, restored.IsGhost(fp("a")))

	// Promoted entries live in Am: filling A1in leaves them resident.
	restored.Put(fp("c"), verdict("x", 0.1))
	restored.Put(fp("d"), verdict("x", 0.1))
	_, ok := restored.Get(fp("a"))
	assert.True(t, ok)
}

func TestRestoreTruncatesToCapacity(t *testing.T) {
	big := New(40)
	for i := 0; i < 30; i++ {
		big.Put(fp(fmt.Sprintf("key-%d", i)), verdict("x", 0.5))
	}
	snap := big.Snapshot()

	small := New(4)
	small.Restore(snap)

	in, ghost, main := small.Caps()
	assert.LessOrEqual(t, small.Len(), in+main)
	assert.LessOrEqual(t, small.GhostLen(), ghost)
}

func TestRestoreNilIsNoop(t *testing.T) {
	c := New(8)
	c.Put(fp("a"), verdict("x", 0.5))
	c.Restore(nil)

	_, ok := c.Get(fp("a"))
	assert.True(t, ok)
}

func TestRestoreReplacesExistingState(t *testing.T) {
	c := New(8)
	c.Put(fp("old"), verdict("x", 0.5))
	c.RecordFeedback("old-agent", true)

	fresh := New(8)
	fresh.Put(fp("new"), verdict("y", 0.7))
	c.Restore(fresh.Snapshot())

	_, ok := c.Get(fp("old"))
	assert.False(t, ok)
	_, defined := c.Precision("old-agent")
	assert.False(t, defined)

	v, ok := c.Get(fp("new"))
	require.True(t, ok)
	assert.Equal(t, 0.7, v.Score)
}
