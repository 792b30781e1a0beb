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

// LRU is the plain recency-only baseline policy: a single deque,
// most-recently-used at the front, evicting from the tail on overflow.
// No frequency sketch, no segmentation.
//
// Grounded on dgraph-io/ristretto's policy.go LRU sampled-policy fallback
// path, replacing its map[uint64]*list.Element/container/list with the
// shared arena/deque and adding TTL scheduling via the timer wheel.
type LRU struct {
	arena *arena
	wheel *timerWheel
	index map[uint64]int32
	nowFn func() int64

	list *deque
	cap  int
}

// NewLRU creates an LRU engine with the given fixed capacity.
func NewLRU(size uint64, opts ...Option) (*LRU, error) {
	if size == 0 {
		return nil, invalidCapacity(size)
	}
	l := &LRU{
		arena: newArena(int(size)),
		index: make(map[uint64]int32, size),
		nowFn: defaultNowFn,
		list:  newDeque(listLRU),
		cap:   int(size),
	}
	l.wheel = newTimerWheel(l.arena)
	applyOptions(opts, &l.nowFn)
	return l, nil
}

// Set inserts or touches every entry in order, returning evicted keys in
// eviction order.
func (l *LRU) Set(entries []Entry) []uint64 {
	var out []uint64
	for _, e := range entries {
		if key, evicted := l.set(e.Key, e.TTLNs); evicted {
			out = append(out, key)
		}
	}
	return out
}

func (l *LRU) set(key uint64, ttlNs int64) (uint64, bool) {
	now := l.nowFn()

	if idx, ok := l.index[key]; ok {
		l.list.moveToFront(l.arena, idx)
		return 0, false
	}

	idx := l.arena.alloc(key, expireAtFor(now, ttlNs))
	l.index[key] = idx
	l.list.pushFront(l.arena, idx)
	l.wheel.schedule(idx, now)

	if l.list.Len() <= l.cap {
		return 0, false
	}

	victim := l.list.popBack(l.arena)
	victimKey := l.arena.get(victim).key
	l.removeSlot(victim)
	return victimKey, true
}

// Access moves every resident key in keys to the front; misses are
// silently ignored.
func (l *LRU) Access(keys []uint64) {
	for _, key := range keys {
		if idx, ok := l.index[key]; ok {
			l.list.moveToFront(l.arena, idx)
		}
	}
}

// Remove unlinks key, returning it if it was resident.
func (l *LRU) Remove(key uint64) (uint64, bool) {
	idx, ok := l.index[key]
	if !ok {
		return 0, false
	}
	l.list.unlink(l.arena, idx)
	l.removeSlot(idx)
	return key, true
}

func (l *LRU) removeSlot(idx int32) {
	s := l.arena.get(idx)
	delete(l.index, s.key)
	l.wheel.unschedule(idx)
	l.arena.release(idx)
}

// Advance harvests expired slots from the wheel and returns their keys.
func (l *LRU) Advance() []uint64 {
	now := l.nowFn()
	expired := l.wheel.advance(now)
	keys := make([]uint64, 0, len(expired))
	for _, idx := range expired {
		s := l.arena.get(idx)
		keys = append(keys, s.key)
		l.list.unlink(l.arena, idx)
		delete(l.index, s.key)
		l.arena.release(idx)
	}
	return keys
}

// Clear drops every slot.
func (l *LRU) Clear() {
	l.arena.reset()
	l.index = make(map[uint64]int32, len(l.index))
	l.list = newDeque(listLRU)
	l.wheel = newTimerWheel(l.arena)
}

func (l *LRU) Len() uint64 { return uint64(l.list.Len()) }

func (l *LRU) DebugInfo() DebugInfo {
	return DebugInfo{Len: l.Len()}
}

// Keys returns all currently resident keys, in implementation-defined
// order. Test-only.
func (l *LRU) Keys() []uint64 {
	keys := make([]uint64, 0, len(l.index))
	for key := range l.index {
		keys = append(keys, key)
	}
	return keys
}

func (l *LRU) String() string {
	return fmt.Sprintf("LRU{len=%d cap=%d}", l.Len(), l.cap)
}
