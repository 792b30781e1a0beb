/*
 * Copyright 2019 Dgraph Labs, Inc. and Contributors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package theinecore

import "fmt"

// TinyLFU implements the W-TinyLFU admission policy over a segmented LRU
// main cache — window, then probation/protected — using the shared CM4
// sketch to arbitrate admission contests.
//
// Grounded on tinylfu/tinylfu.go + tinylfu/option.go (window/probation/
// protected sizing and the Record/onMiss admission logic) and
// slru/slru.go (probation/protected promotion-demotion mechanics),
// ported from map[uint64]*element + container/list-style pointer lists to
// the shared arena/deque, and extended with TTL scheduling and batched
// Set/evicted-key reporting that those policy simulators never needed
// (they have no notion of expiry).
type TinyLFU struct {
	arena *arena
	wheel *timerWheel
	index map[uint64]int32
	freq  *cm4Sketch
	nowFn func() int64

	window    *deque
	probation *deque
	protected *deque

	windowCap    int
	probationCap int
	protectedCap int
}

// NewTinyLFU creates a TinyLFU engine with the given fixed capacity.
// windowCap = max(1, size/100), mainCap = size - windowCap, protectedCap
// = max(1, mainCap*4/5), probationCap = mainCap - protectedCap.
func NewTinyLFU(size uint64, opts ...Option) (*TinyLFU, error) {
	if size == 0 {
		return nil, invalidCapacity(size)
	}

	windowCap := int(size / 100)
	if windowCap < 1 {
		windowCap = 1
	}
	mainCap := int(size) - windowCap
	protectedCap := mainCap * 4 / 5
	if protectedCap < 1 {
		protectedCap = 1
	}
	probationCap := mainCap - protectedCap

	t := &TinyLFU{
		arena:        newArena(int(size)),
		index:        make(map[uint64]int32, size),
		freq:         newCM4Sketch(size),
		nowFn:        defaultNowFn,
		window:       newDeque(listWindow),
		probation:    newDeque(listProbation),
		protected:    newDeque(listProtected),
		windowCap:    windowCap,
		probationCap: probationCap,
		protectedCap: protectedCap,
	}
	t.wheel = newTimerWheel(t.arena)
	applyOptions(opts, &t.nowFn)
	return t, nil
}

// Set inserts or touches every entry in order, returning the keys evicted
// along the way in eviction order.
func (t *TinyLFU) Set(entries []Entry) []uint64 {
	var out []uint64
	for _, e := range entries {
		if key, evicted := t.set(e.Key, e.TTLNs); evicted {
			out = append(out, key)
		}
	}
	return out
}

func (t *TinyLFU) set(key uint64, ttlNs int64) (uint64, bool) {
	now := t.nowFn()

	if idx, ok := t.index[key]; ok {
		// Already resident: Set on a resident key behaves as Access
		// and never evicts.
		t.access(idx)
		return 0, false
	}

	t.freq.Add(key)

	idx := t.arena.alloc(key, expireAtFor(now, ttlNs))
	t.index[key] = idx
	t.window.pushFront(t.arena, idx)
	t.wheel.schedule(idx, now)

	if t.window.Len() <= t.windowCap {
		return 0, false
	}

	candidate := t.window.popBack(t.arena)
	return t.admit(candidate)
}

// admit decides whether candidate is promoted into probation, possibly
// evicting candidate or a probation victim.
func (t *TinyLFU) admit(candidate int32) (uint64, bool) {
	if t.probation.Len() < t.probationCap {
		t.probation.pushFront(t.arena, candidate)
		return 0, false
	}

	victim := t.probation.Back()
	candidateKey := t.arena.get(candidate).key
	victimKey := t.arena.get(victim).key

	if t.freq.Estimate(candidateKey) > t.freq.Estimate(victimKey) {
		t.probation.unlink(t.arena, victim)
		t.removeSlot(victim)
		t.probation.pushFront(t.arena, candidate)
		return victimKey, true
	}

	// Ties favor the incumbent: the candidate loses the admission contest.
	t.removeSlot(candidate)
	return candidateKey, true
}

// access records a hit on an already-resident slot.
func (t *TinyLFU) access(idx int32) {
	s := t.arena.get(idx)
	t.freq.Add(s.key)

	switch s.list {
	case listWindow:
		t.window.moveToFront(t.arena, idx)
	case listProbation:
		t.probation.unlink(t.arena, idx)
		t.protected.pushFront(t.arena, idx)
		if t.protected.Len() > t.protectedCap {
			demoted := t.protected.popBack(t.arena)
			t.probation.pushFront(t.arena, demoted)
		}
	case listProtected:
		t.protected.moveToFront(t.arena, idx)
	}
}

// Access records a hit for every resident key in keys; misses are
// silently ignored. Batched Access carries no hit/miss signal back to
// the caller — call it with a single-element slice per key for that.
func (t *TinyLFU) Access(keys []uint64) {
	for _, key := range keys {
		if idx, ok := t.index[key]; ok {
			t.access(idx)
		}
	}
}

// Remove unlinks key from its segment and the timer wheel, returning the
// key if it was resident.
func (t *TinyLFU) Remove(key uint64) (uint64, bool) {
	idx, ok := t.index[key]
	if !ok {
		return 0, false
	}
	t.unlinkFromSegment(idx)
	t.removeSlot(idx)
	return key, true
}

func (t *TinyLFU) unlinkFromSegment(idx int32) {
	switch t.arena.get(idx).list {
	case listWindow:
		t.window.unlink(t.arena, idx)
	case listProbation:
		t.probation.unlink(t.arena, idx)
	case listProtected:
		t.protected.unlink(t.arena, idx)
	}
}

// removeSlot drops idx from the index and timer wheel and releases it
// back to the arena. The caller must already have unlinked idx from
// whichever segment it was in.
func (t *TinyLFU) removeSlot(idx int32) {
	s := t.arena.get(idx)
	delete(t.index, s.key)
	t.wheel.unschedule(idx)
	t.arena.release(idx)
}

// Advance harvests expired slots from the wheel and returns their keys.
func (t *TinyLFU) Advance() []uint64 {
	now := t.nowFn()
	expired := t.wheel.advance(now)
	keys := make([]uint64, 0, len(expired))
	for _, idx := range expired {
		s := t.arena.get(idx)
		keys = append(keys, s.key)
		t.unlinkFromSegment(idx)
		delete(t.index, s.key)
		t.arena.release(idx)
	}
	return keys
}

// Clear drops every slot and resets the CM4 sketch.
func (t *TinyLFU) Clear() {
	t.arena.reset()
	t.index = make(map[uint64]int32, len(t.index))
	t.window = newDeque(listWindow)
	t.probation = newDeque(listProbation)
	t.protected = newDeque(listProtected)
	t.wheel = newTimerWheel(t.arena)
	t.freq.Clear()
}

// Len returns the number of resident keys.
func (t *TinyLFU) Len() uint64 {
	return uint64(t.window.Len() + t.probation.Len() + t.protected.Len())
}

func (t *TinyLFU) DebugInfo() DebugInfo {
	return DebugInfo{
		Len:          t.Len(),
		WindowLen:    uint64(t.window.Len()),
		ProbationLen: uint64(t.probation.Len()),
		ProtectedLen: uint64(t.protected.Len()),
	}
}

// Keys returns all currently resident keys, in implementation-defined
// order. Test-only.
func (t *TinyLFU) Keys() []uint64 {
	keys := make([]uint64, 0, len(t.index))
	for key := range t.index {
		keys = append(keys, key)
	}
	return keys
}

func (t *TinyLFU) String() string {
	return fmt.Sprintf("TinyLFU{len=%d window=%d probation=%d protected=%d}",
		t.Len(), t.window.Len(), t.probation.Len(), t.protected.Len())
}
