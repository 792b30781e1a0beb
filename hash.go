package theinecore

import "github.com/cespare/xxhash/v2"

// HashKey reduces an arbitrary byte-slice key to the uint64 key space
// every engine and the CM4 sketch operate on. The policies themselves
// are integer-keyed throughout and never hash strings, but real callers
// rarely have integer keys lying around, so this gives them a single,
// consistent way to get one.
//
// Grounded on dgraph-io/ristretto's own cache_bench_test.go, which
// reduces benchmark keys to uint64 via xxhash.Sum64 before they ever
// reach the policy layer; that same reduction belongs in the library
// surface here rather than left to every caller to reinvent.
func HashKey(key []byte) uint64 {
	return xxhash.Sum64(key)
}

// HashKeyString is HashKey for string keys, avoiding a []byte conversion
// allocation on the common case of a string identifier.
func HashKeyString(key string) uint64 {
	return xxhash.Sum64String(key)
}
