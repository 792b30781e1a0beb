package theinecore

// Hierarchical timer wheel for TTL expiration. Four levels of 64 buckets
// each; level shifts are spaced 6 bits apart (64 = 1<<6) so bucket index
// at level l is (expireAt >> levelShift[l]) & 63. With these shifts each
// level's 64 buckets span roughly one second, one minute, one hour, and
// three days respectively.
//
// dgraph-io/ristretto's own ttl.go is a flat map keyed by
// time.Second()/bucketSize, and its min_heap.go is a plain binary heap
// with no bucket/cascade concept, so this wheel is built directly over
// the arena's timerPrev/timerNext index fields instead of adapting
// either.
const (
	wheelLevels          = 4
	wheelBucketsPerLevel = 64
	wheelBucketBits      = 6 // log2(wheelBucketsPerLevel)
)

var wheelLevelShift = [wheelLevels]uint{24, 30, 36, 42}

// maxWheelSteps bounds how many level-0 bucket crossings advance() will
// step through one at a time before falling back to a direct scan. A
// caller ticking the wheel at a sane cadence never approaches this; it
// exists only to keep a single pathological advance() call (a leap of
// more than about 18 minutes in one shot) from looping bucket-by-bucket
// across the whole wheel.
const maxWheelSteps = 1 << 16

// timerWheel schedules slots by expireAt and, on advance, reports the set
// of slots whose deadline has passed.
type timerWheel struct {
	arena *arena
	heads [wheelLevels][wheelBucketsPerLevel]int32
	nowNs int64
}

func newTimerWheel(a *arena) *timerWheel {
	w := &timerWheel{arena: a}
	for l := 0; l < wheelLevels; l++ {
		for b := 0; b < wheelBucketsPerLevel; b++ {
			w.heads[l][b] = nilIndex
		}
	}
	return w
}

// schedule places idx in the coarsest bucket whose span still resolves
// its delta from now. A slot with no expiration (noExpiry) is left
// unscheduled.
func (w *timerWheel) schedule(idx int32, now int64) {
	s := w.arena.get(idx)
	if s.expireAt == noExpiry {
		return
	}
	delta := s.expireAt - now
	if delta < 0 {
		delta = 0
	}
	level := levelFor(delta)
	bucket := int((s.expireAt >> wheelLevelShift[level]) & (wheelBucketsPerLevel - 1))
	w.link(level, bucket, idx)
}

// levelFor picks the finest level whose total span (64 buckets at that
// level's granularity) still covers delta, so a slot cascades down through
// progressively finer buckets as its deadline approaches rather than
// sitting in an oversized bucket the whole time.
func levelFor(delta int64) int {
	for l := 0; l < wheelLevels-1; l++ {
		span := int64(1) << (wheelLevelShift[l] + wheelBucketBits)
		if delta < span {
			return l
		}
	}
	return wheelLevels - 1
}

func (w *timerWheel) link(level, bucket int, idx int32) {
	head := w.heads[level][bucket]
	s := w.arena.get(idx)
	s.timerPrev = nilIndex
	s.timerNext = head
	if head != nilIndex {
		w.arena.get(head).timerPrev = idx
	}
	w.heads[level][bucket] = idx
	s.timerLevel = int8(level)
	s.timerBucket = int16(bucket)
}

// unschedule removes idx from the wheel in O(1). A no-op if idx isn't
// currently scheduled.
func (w *timerWheel) unschedule(idx int32) {
	s := w.arena.get(idx)
	if s.timerLevel < 0 {
		return
	}
	level, bucket := int(s.timerLevel), int(s.timerBucket)
	if s.timerPrev != nilIndex {
		w.arena.get(s.timerPrev).timerNext = s.timerNext
	} else {
		w.heads[level][bucket] = s.timerNext
	}
	if s.timerNext != nilIndex {
		w.arena.get(s.timerNext).timerPrev = s.timerPrev
	}
	s.timerPrev, s.timerNext = nilIndex, nilIndex
	s.timerLevel = -1
}

// advance moves the wheel's clock to now and returns the indices of every
// slot whose expireAt has passed.
func (w *timerWheel) advance(now int64) []int32 {
	if now <= w.nowNs {
		return nil
	}

	oldBucket0 := w.nowNs >> wheelLevelShift[0]
	newBucket0 := now >> wheelLevelShift[0]
	if newBucket0-oldBucket0 > maxWheelSteps {
		w.nowNs = now
		return w.harvestExpired(now)
	}

	var expired []int32
	step := int64(1) << wheelLevelShift[0]
	for w.nowNs>>wheelLevelShift[0] < newBucket0 {
		// Sweep the bucket being left against the final now: tick() swept
		// it when the clock entered it, before its later deadlines were
		// due, and may since have cascaded more slots into it.
		left := w.nowNs
		w.nowNs = now
		expired = append(expired, w.harvestBucket(int((left>>wheelLevelShift[0])&(wheelBucketsPerLevel-1)))...)
		w.nowNs = left + step
		if w.nowNs > now {
			w.nowNs = now
		}
		expired = append(expired, w.tick()...)
	}
	w.nowNs = now

	// The crossing loop above only fires tick()/harvestBucket when the
	// level-0 bucket index actually changes. A deadline that falls
	// inside the bucket the clock is already sitting in — same index,
	// earlier sub-bucket offset — would otherwise never get swept even
	// though expireAt <= now. Sweep that bucket directly against the
	// final now; harvestBucket is a no-op the second time over any slot
	// the loop above already removed.
	bucket0 := int((w.nowNs >> wheelLevelShift[0]) & (wheelBucketsPerLevel - 1))
	expired = append(expired, w.harvestBucket(bucket0)...)
	return expired
}

// tick harvests the current level-0 bucket and, whenever a level's cycle
// completes (its bucket index wraps back to 0), cascades one bucket from
// the next level down into finer buckets.
func (w *timerWheel) tick() []int32 {
	bucket0 := int((w.nowNs >> wheelLevelShift[0]) & (wheelBucketsPerLevel - 1))
	expired := w.harvestBucket(bucket0)

	if bucket0 == 0 {
		for level := 1; level < wheelLevels; level++ {
			bucket := int((w.nowNs >> wheelLevelShift[level]) & (wheelBucketsPerLevel - 1))
			w.cascade(level, bucket)
			if bucket != 0 {
				break
			}
		}
	}
	return expired
}

func (w *timerWheel) harvestBucket(bucket int) []int32 {
	var out []int32
	idx := w.heads[0][bucket]
	for idx != nilIndex {
		s := w.arena.get(idx)
		next := s.timerNext
		if s.expireAt <= w.nowNs {
			w.unschedule(idx)
			out = append(out, idx)
		}
		idx = next
	}
	return out
}

// cascade re-schedules every slot in the given higher-level bucket into
// its correct, finer bucket now that time has advanced into that range.
func (w *timerWheel) cascade(level, bucket int) {
	idx := w.heads[level][bucket]
	for idx != nilIndex {
		next := w.arena.get(idx).timerNext
		w.unschedule(idx)
		w.schedule(idx, w.nowNs)
		idx = next
	}
}

// harvestExpired scans every still-scheduled slot directly, used as a
// fallback for advance() calls that leap further than maxWheelSteps.
func (w *timerWheel) harvestExpired(now int64) []int32 {
	var out []int32
	for l := 0; l < wheelLevels; l++ {
		for b := 0; b < wheelBucketsPerLevel; b++ {
			idx := w.heads[l][b]
			for idx != nilIndex {
				s := w.arena.get(idx)
				next := s.timerNext
				if s.expireAt <= now {
					w.unschedule(idx)
					out = append(out, idx)
				}
				idx = next
			}
		}
	}
	return out
}
