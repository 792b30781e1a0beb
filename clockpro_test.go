package theinecore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClockProNewRejectsZeroSize(t *testing.T) {
	_, err := NewClockPro(0)
	require.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestClockProColdCapClamped(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)
	require.GreaterOrEqual(t, c.coldCap, 1)
	require.LessOrEqual(t, c.coldCap, c.capacity-1)
}

func TestClockProInsertUnderCapacity(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)

	for _, k := range []uint64{1, 2, 3} {
		res := c.SetDetailed(k, 0)
		require.False(t, res.HasEvictedResident)
		require.Equal(t, "insert-cold", res.Tag)
	}
	require.Equal(t, uint64(3), c.Len())
	require.Equal(t, 3, c.coldLen)
	require.Equal(t, 0, c.hotLen)
}

func TestClockProEvictsUnreferencedColdOnOverflow(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)
	for _, k := range []uint64{1, 2, 3} {
		c.SetDetailed(k, 0)
	}

	// Oldest entry, key 1, was never accessed, so hand_cold should demote
	// it straight to test (ghost) rather than promoting it.
	res := c.SetDetailed(4, 0)
	require.True(t, res.HasEvictedResident)
	require.Equal(t, uint64(1), res.EvictedResident)
	require.Equal(t, uint64(3), c.Len(), "resident count must stay at capacity")
	require.Equal(t, 1, c.testLen)

	_, ok := c.index[1]
	require.True(t, ok, "the evicted key should survive as a non-resident ghost")
}

func TestClockProAccessedColdSurvivesOneSweepAsHot(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)
	for _, k := range []uint64{1, 2, 3} {
		c.SetDetailed(k, 0)
	}
	c.SetDetailed(4, 0) // evicts key 1 to test, hand_cold now sits on key 2

	c.Access([]uint64{2})
	res := c.SetDetailed(5, 0)

	require.Equal(t, clockHot, c.arena.get(c.index[2]).state, "an accessed cold entry should be promoted to hot by hand_cold")
	require.True(t, res.HasEvictedResident)
	require.NotEqual(t, uint64(2), res.EvictedResident, "the promoted entry must not be the one evicted")
}

func TestClockProTestHitPromotesToHot(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)
	for _, k := range []uint64{1, 2, 3} {
		c.SetDetailed(k, 0)
	}
	c.SetDetailed(4, 0) // demotes key 1 to test
	require.Equal(t, 1, c.testLen)

	coldCapBefore := c.coldCap
	res := c.SetDetailed(1, 0)
	require.Equal(t, "test-hit-promote", res.Tag)
	require.Equal(t, clockHot, c.arena.get(c.index[1]).state, "the promoted key must now be hot-resident")
	require.GreaterOrEqual(t, c.coldCap, coldCapBefore, "cold_cap should grow (bounded) on a test hit")
}

func TestClockProAccessIgnoresGhosts(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)
	for _, k := range []uint64{1, 2, 3} {
		c.SetDetailed(k, 0)
	}
	c.SetDetailed(4, 0) // key 1 becomes a ghost

	c.Access([]uint64{1})
	require.False(t, c.arena.get(c.index[1]).referenced, "accessing a ghost must not set its referenced bit")
}

func TestClockProRemove(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)
	c.SetDetailed(1, 0)
	c.SetDetailed(2, 0)

	key, ok := c.Remove(1)
	require.True(t, ok)
	require.Equal(t, uint64(1), key)
	require.Equal(t, uint64(1), c.Len())

	_, ok = c.Remove(1)
	require.False(t, ok)
}

func TestClockProAdvanceExpiresResident(t *testing.T) {
	now := int64(0)
	clock := func() int64 { return now }
	c, err := NewClockPro(10, WithClock(clock))
	require.NoError(t, err)

	c.Set([]Entry{{Key: 1, TTLNs: nanosPerSecond}})
	now = 2 * nanosPerSecond

	expired := c.Advance()
	require.Equal(t, []uint64{1}, expired)
	require.Equal(t, uint64(0), c.Len())
}

func TestClockProClear(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)
	c.SetDetailed(1, 0)
	c.SetDetailed(2, 0)
	c.Clear()

	require.Equal(t, uint64(0), c.Len())
	require.Empty(t, c.Keys())
	require.Equal(t, 0, c.testLen)
}

func TestClockProKeysExcludeGhosts(t *testing.T) {
	c, err := NewClockPro(3)
	require.NoError(t, err)
	for _, k := range []uint64{1, 2, 3} {
		c.SetDetailed(k, 0)
	}
	c.SetDetailed(4, 0) // key 1 becomes a ghost

	keys := c.Keys()
	for _, k := range keys {
		require.NotEqual(t, uint64(1), k, "Keys must exclude non-resident ghosts")
	}
	require.Len(t, keys, 3)
}
