package theinecore

import "time"

// noExpiry marks a slot that never expires (a zero TTL).
const noExpiry = int64(1<<63 - 1)

// Entry is a single (key, ttl) pair for batched Set calls. TTLNs of 0
// means "no expiration"; a positive value schedules expiration TTLNs
// nanoseconds after the call's current time.
type Entry struct {
	Key   uint64
	TTLNs int64
}

// DebugInfo reports segment lengths. Fields not applicable to a policy
// (e.g. WindowLen for LRU) are left zero.
type DebugInfo struct {
	Len          uint64
	WindowLen    uint64
	ProbationLen uint64
	ProtectedLen uint64
}

// engineOptions carries constructor-time overrides shared by all three
// policies, in dgraph-io/ristretto's tinylfu/option.go functional-options
// style.
type engineOptions struct {
	nowFn *func() int64
}

// Option configures an engine at construction.
type Option func(*engineOptions)

// WithClock overrides an engine's time source. Engines default to a
// monotonic clock (nanoseconds since package initialisation, read via
// time.Since); tests inject a
// deterministic clock instead, the way
// calvinalkan-agent-task/internal/testutil.Clock provides one for its own
// spec-model tests.
func WithClock(now func() int64) Option {
	return func(o *engineOptions) {
		*o.nowFn = now
	}
}

var clockStart = time.Now()

func defaultNowFn() int64 { return int64(time.Since(clockStart)) }

func applyOptions(opts []Option, nowFn *func() int64) {
	o := &engineOptions{nowFn: nowFn}
	for _, opt := range opts {
		opt(o)
	}
}

// expireAtFor computes a slot's expire_at deadline: noExpiry for ttlNs <=
// 0, otherwise now+ttlNs.
func expireAtFor(now, ttlNs int64) int64 {
	if ttlNs <= 0 {
		return noExpiry
	}
	return now + ttlNs
}

// Engine is the capability set shared by all three policies: Set,
// Access, Remove, Advance, Clear, Len, DebugInfo, Keys. Apart from the
// compile-time conformance checks below, no production code in this
// package uses it — TinyLFU, ClockPro, and LRU
// are independent types with no shared embedding, deliberately not
// forced under a common superclass — but tests use it to drive all
// three through one table-driven harness.
type Engine interface {
	Set(entries []Entry) []uint64
	Access(keys []uint64)
	Remove(key uint64) (uint64, bool)
	Advance() []uint64
	Clear()
	Len() uint64
	DebugInfo() DebugInfo
	Keys() []uint64
}

var (
	_ Engine = (*TinyLFU)(nil)
	_ Engine = (*ClockPro)(nil)
	_ Engine = (*LRU)(nil)
)
