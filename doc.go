// Package theinecore implements the admission/eviction engine embedded by
// the theine family of caches behind a host-language wrapper. Given a
// fixed capacity, it decides which integer keys a cache retains as
// workload flows through it.
//
// Three interchangeable policies are provided: TinyLFU (windowed
// admission over a segmented LRU), CLOCK-Pro, and plain LRU. All three
// share an intrusive slab arena and a TTL-driven timer wheel; TinyLFU
// alone also keeps a frequency sketch for its admission decisions.
//
// The engine is single-threaded and stores only keys and metadata — never
// values. Callers embedding it behind concurrent access are responsible
// for serializing calls with a mutex.
package theinecore
