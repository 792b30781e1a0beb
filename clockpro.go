package theinecore

import "fmt"

// clockRing is the single circular intrusive list CLOCK-Pro threads hot,
// cold-resident, and test (ghost) slots through, reusing slot.prev/next
// (the same fields deque uses, just interpreted circularly instead of
// linearly). Distinct from deque because CLOCK-Pro's three hands need a
// ring with no fixed head or tail, only an arbitrary anchor.
//
// Grounded on a CLOCK-Pro sketch that collapses the classic algorithm's
// three hands into a single sweeping one for simplicity; restored here
// to three independent hands (hand_hot, hand_cold, hand_test).
type clockRing struct {
	arena  *arena
	anchor int32
	length int
}

func newClockRing(a *arena) *clockRing {
	return &clockRing{arena: a, anchor: nilIndex}
}

func (r *clockRing) Len() int { return r.length }

// insert splices idx into the ring immediately before anchor (i.e. as the
// new "most recent" entry a hand will reach last).
func (r *clockRing) insert(idx int32) {
	s := r.arena.get(idx)
	if r.anchor == nilIndex {
		s.prev, s.next = idx, idx
		r.anchor = idx
		r.length++
		return
	}
	tail := r.arena.get(r.anchor).prev
	s.prev = tail
	s.next = r.anchor
	r.arena.get(tail).next = idx
	r.arena.get(r.anchor).prev = idx
	r.length++
}

// remove unlinks idx from the ring. The caller is responsible for moving
// any hand currently pointing at idx off of it first.
func (r *clockRing) remove(idx int32) {
	s := r.arena.get(idx)
	if s.next == idx {
		r.anchor = nilIndex
	} else {
		r.arena.get(s.prev).next = s.next
		r.arena.get(s.next).prev = s.prev
		if r.anchor == idx {
			r.anchor = s.next
		}
	}
	s.prev, s.next = nilIndex, nilIndex
	r.length--
}

func (r *clockRing) next(idx int32) int32 { return r.arena.get(idx).next }

// ClockProResult is SetDetailed's rich return shape: at most one evicted
// resident key and at most one evicted test key, plus a tag identifying
// which transition fired.
type ClockProResult struct {
	EvictedResident    uint64
	HasEvictedResident bool
	EvictedTest        uint64
	HasEvictedTest     bool
	Tag                string
}

// ClockPro implements the CLOCK-Pro policy: hot, cold, and test
// (non-resident ghost) slots in one circular list, swept by three
// independent hands.
type ClockPro struct {
	arena *arena
	wheel *timerWheel
	index map[uint64]int32
	nowFn func() int64
	ring  *clockRing

	capacity int
	coldCap  int

	handHot, handCold, handTest int32

	hotLen, coldLen, testLen int
}

// NewClockPro creates a CLOCK-Pro engine with the given fixed resident
// capacity. cold_cap starts at half capacity, clamped to [1, size-1].
func NewClockPro(size uint64, opts ...Option) (*ClockPro, error) {
	if size == 0 {
		return nil, invalidCapacity(size)
	}
	c := &ClockPro{
		arena:    newArena(int(size)),
		index:    make(map[uint64]int32, size),
		nowFn:    defaultNowFn,
		capacity: int(size),
		handHot:  nilIndex,
		handCold: nilIndex,
		handTest: nilIndex,
	}
	c.ring = newClockRing(c.arena)
	c.coldCap = clampColdCap(int(size)/2, c.capacity)
	c.wheel = newTimerWheel(c.arena)
	applyOptions(opts, &c.nowFn)
	return c, nil
}

// clampColdCap bounds cold_cap to [1, size-1], collapsing to 1 for the
// degenerate size == 1 case where that range is empty.
func clampColdCap(v, size int) int {
	max := size - 1
	if max < 1 {
		max = 1
	}
	if v < 1 {
		return 1
	}
	if v > max {
		return max
	}
	return v
}

// Set inserts or touches every entry in order, returning resident keys
// evicted along the way (see SetDetailed for the richer CLOCK-Pro-
// specific shape).
func (c *ClockPro) Set(entries []Entry) []uint64 {
	var out []uint64
	for _, e := range entries {
		res := c.SetDetailed(e.Key, e.TTLNs)
		if res.HasEvictedResident {
			out = append(out, res.EvictedResident)
		}
	}
	return out
}

// SetDetailed implements CLOCK-Pro's set(key, ttl) transition exactly,
// reporting both the evicted resident key (if any) and the evicted test
// key (if any) along with a tag naming which transition fired.
func (c *ClockPro) SetDetailed(key uint64, ttlNs int64) ClockProResult {
	now := c.nowFn()

	if idx, ok := c.index[key]; ok {
		s := c.arena.get(idx)
		if s.state != clockTest {
			// Resident hit: Set behaves as Access and never evicts.
			s.referenced = true
			c.wheel.unschedule(idx)
			s.expireAt = expireAtFor(now, ttlNs)
			c.wheel.schedule(idx, now)
			return ClockProResult{Tag: "access"}
		}

		// Test hit: promote to hot-resident, grow cold_cap, leave the
		// ring position untouched.
		s.state = clockHot
		s.referenced = false
		s.expireAt = expireAtFor(now, ttlNs)
		c.wheel.schedule(idx, now)
		c.testLen--
		c.hotLen++
		c.coldCap = clampColdCap(c.coldCap+1, c.capacity)

		res := ClockProResult{Tag: "test-hit-promote"}
		if c.hotLen+c.coldLen > c.capacity {
			if key, ok := c.runHandCold(); ok {
				res.EvictedResident, res.HasEvictedResident = key, true
			}
		}
		c.runHandHot()
		if tkey, ok := c.maybeRunHandTest(); ok {
			res.EvictedTest, res.HasEvictedTest = tkey, true
		}
		return res
	}

	idx := c.arena.alloc(key, expireAtFor(now, ttlNs))
	c.index[key] = idx
	c.ring.insert(idx)
	c.wheel.schedule(idx, now)
	c.coldLen++

	res := ClockProResult{Tag: "insert-cold"}
	if c.hotLen+c.coldLen > c.capacity {
		if key, ok := c.runHandCold(); ok {
			res.EvictedResident, res.HasEvictedResident = key, true
		}
	}
	c.runHandHot()
	if tkey, ok := c.maybeRunHandTest(); ok {
		res.EvictedTest, res.HasEvictedTest = tkey, true
	}
	return res
}

// runHandCold advances hand_cold past hot entries (clearing referenced
// bits, demoting cleared ones to cold) and promoting referenced cold
// entries to hot as it passes them, until it reaches an unreferenced
// cold-resident entry, which it demotes to test and reports evicted.
func (c *ClockPro) runHandCold() (uint64, bool) {
	if c.handCold == nilIndex {
		c.handCold = c.ring.anchor
	}
	for steps := 0; c.handCold != nilIndex && steps < 2*c.ring.Len()+4; steps++ {
		idx := c.handCold
		s := c.arena.get(idx)

		switch s.state {
		case clockHot:
			if s.referenced {
				s.referenced = false
				c.handCold = c.ring.next(idx)
				continue
			}
			s.state = clockCold
			c.hotLen--
			c.coldLen++
			c.handCold = c.ring.next(idx)
			continue

		case clockCold:
			if s.referenced {
				s.referenced = false
				s.state = clockHot
				c.coldLen--
				c.hotLen++
				c.handCold = c.ring.next(idx)
				continue
			}
			evictedKey := s.key
			c.handCold = c.ring.next(idx)
			c.coldLen--
			c.testLen++
			s.state = clockTest
			s.referenced = false
			c.wheel.unschedule(idx)
			return evictedKey, true

		case clockTest:
			c.handCold = c.ring.next(idx)
			continue
		}
	}
	return 0, false
}

// runHandHot keeps hot_count <= size - cold_cap, converting hot entries
// with a clear referenced bit to cold as it sweeps.
func (c *ClockPro) runHandHot() {
	target := c.capacity - c.coldCap
	if c.handHot == nilIndex {
		c.handHot = c.ring.anchor
	}
	for steps := 0; c.hotLen > target && c.handHot != nilIndex && steps < 2*c.ring.Len()+4; steps++ {
		idx := c.handHot
		s := c.arena.get(idx)
		if s.state != clockHot {
			c.handHot = c.ring.next(idx)
			continue
		}
		if s.referenced {
			s.referenced = false
			c.handHot = c.ring.next(idx)
			continue
		}
		s.state = clockCold
		c.hotLen--
		c.coldLen++
		c.handHot = c.ring.next(idx)
	}
}

// maybeRunHandTest evicts at most one test entry when test_count exceeds
// size - cold_cap, decreasing cold_cap as adaptive feedback.
func (c *ClockPro) maybeRunHandTest() (uint64, bool) {
	target := c.capacity - c.coldCap
	if target < 0 {
		target = 0
	}
	if c.testLen <= target {
		return 0, false
	}
	if c.handTest == nilIndex {
		c.handTest = c.ring.anchor
	}
	for steps := 0; c.handTest != nilIndex && steps < 2*c.ring.Len()+4; steps++ {
		idx := c.handTest
		s := c.arena.get(idx)
		if s.state != clockTest {
			c.handTest = c.ring.next(idx)
			continue
		}
		next := c.ring.next(idx)
		evictedKey := s.key
		c.advanceHandsPast(idx, next)
		c.ring.remove(idx)
		delete(c.index, s.key)
		c.arena.release(idx)
		c.testLen--
		c.coldCap = clampColdCap(c.coldCap-1, c.capacity)
		return evictedKey, true
	}
	return 0, false
}

// advanceHandsPast moves any hand currently sitting on idx to next,
// called before idx is unlinked from the ring.
func (c *ClockPro) advanceHandsPast(idx, next int32) {
	if c.ring.Len() == 1 {
		next = nilIndex
	}
	if c.handHot == idx {
		c.handHot = next
	}
	if c.handCold == idx {
		c.handCold = next
	}
	if c.handTest == idx {
		c.handTest = next
	}
}

// Access sets the referenced bit on every resident key in keys; ghosts
// and misses are silently ignored.
func (c *ClockPro) Access(keys []uint64) {
	for _, key := range keys {
		if idx, ok := c.index[key]; ok {
			s := c.arena.get(idx)
			if s.state != clockTest {
				s.referenced = true
			}
		}
	}
}

// Remove fully unlinks key, whether hot, cold, or a test ghost.
func (c *ClockPro) Remove(key uint64) (uint64, bool) {
	idx, ok := c.index[key]
	if !ok {
		return 0, false
	}
	s := c.arena.get(idx)
	switch s.state {
	case clockHot:
		c.hotLen--
	case clockCold:
		c.coldLen--
	case clockTest:
		c.testLen--
	}
	next := c.ring.next(idx)
	c.advanceHandsPast(idx, next)
	c.ring.remove(idx)
	delete(c.index, key)
	c.wheel.unschedule(idx)
	c.arena.release(idx)
	return key, true
}

// Advance harvests expired resident slots from the wheel. Expiry removes
// a slot entirely rather than demoting it through the test ghost state:
// TTL is an orthogonal mechanism to CLOCK-Pro's own adaptive eviction.
func (c *ClockPro) Advance() []uint64 {
	now := c.nowFn()
	expired := c.wheel.advance(now)
	keys := make([]uint64, 0, len(expired))
	for _, idx := range expired {
		s := c.arena.get(idx)
		keys = append(keys, s.key)
		switch s.state {
		case clockHot:
			c.hotLen--
		case clockCold:
			c.coldLen--
		case clockTest:
			c.testLen--
		}
		next := c.ring.next(idx)
		c.advanceHandsPast(idx, next)
		c.ring.remove(idx)
		delete(c.index, s.key)
		c.arena.release(idx)
	}
	return keys
}

// Clear drops every slot, resident or ghost, and resets all three hands
// and cold_cap to their initial values.
func (c *ClockPro) Clear() {
	c.arena.reset()
	c.index = make(map[uint64]int32, len(c.index))
	c.ring = newClockRing(c.arena)
	c.wheel = newTimerWheel(c.arena)
	c.handHot, c.handCold, c.handTest = nilIndex, nilIndex, nilIndex
	c.hotLen, c.coldLen, c.testLen = 0, 0, 0
	c.coldCap = clampColdCap(c.capacity/2, c.capacity)
}

// Len reports resident (hot + cold) entries only, excluding test ghosts.
func (c *ClockPro) Len() uint64 {
	return uint64(c.hotLen + c.coldLen)
}

func (c *ClockPro) DebugInfo() DebugInfo {
	return DebugInfo{Len: c.Len()}
}

// Keys returns resident keys only, excluding test ghosts. Test-only.
func (c *ClockPro) Keys() []uint64 {
	keys := make([]uint64, 0, c.hotLen+c.coldLen)
	for key, idx := range c.index {
		if c.arena.get(idx).state != clockTest {
			keys = append(keys, key)
		}
	}
	return keys
}

func (c *ClockPro) String() string {
	return fmt.Sprintf("ClockPro{hot=%d cold=%d test=%d cold_cap=%d}",
		c.hotLen, c.coldLen, c.testLen, c.coldCap)
}
