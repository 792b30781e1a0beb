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

import (
	"math"

	"github.com/zeebo/xxh3"
)

// BloomFilter is a standalone membership filter exposed alongside the
// cache engine, independent of the CM4 sketch used internally by
// TinyLFU. It never deletes: Put only ever sets bits.
//
// Grounded on filter.go's Filter type (a Kirsch–Mitzenmacher bit array),
// renamed to a Put/Contains surface and switched from fnv.New64a() to
// xxh3 (github.com/zeebo/xxh3, as used by bottledcode/cloxcache's
// cache/hash.go), deriving its k positions from one xxh3 call split into
// two values by bit-rotation rather than k separate hash invocations.
type BloomFilter struct {
	keys uint64
	data []byte
	mask uint64
}

// NewBloomFilter creates a Bloom filter sized to hold approximately size
// items at the given false-positive rate.
func NewBloomFilter(size uint64, falsePositiveRate float64) *BloomFilter {
	m := -1 * float64(size) * math.Log(falsePositiveRate) / (math.Ln2 * math.Ln2)
	bytes := next2Power(uint64(math.Ceil(m / 8)))
	if bytes == 0 {
		bytes = 1
	}
	return &BloomFilter{
		keys: uint64(math.Ceil(math.Ln2 * m / float64(size))),
		data: make([]byte, bytes),
		mask: bytes*8 - 1,
	}
}

// Put records key's membership, returning true if at least one bit was
// newly set (i.e. the key was probably not present before).
func (f *BloomFilter) Put(key string) bool {
	h1, h2 := f.hashes(key)
	changed := false
	for i := uint64(0); i < f.keys; i++ {
		bit := (h1 + i*h2) & f.mask
		if !f.has(bit) {
			changed = true
			f.data[bit/8] |= 1 << (bit % 8)
		}
	}
	return changed
}

// Contains returns whether key is probably present. False means
// definitely absent.
func (f *BloomFilter) Contains(key string) bool {
	h1, h2 := f.hashes(key)
	for i := uint64(0); i < f.keys; i++ {
		bit := (h1 + i*h2) & f.mask
		if !f.has(bit) {
			return false
		}
	}
	return true
}

// Reset clears every bit.
func (f *BloomFilter) Reset() {
	for i := range f.data {
		f.data[i] = 0
	}
}

func (f *BloomFilter) has(bit uint64) bool {
	return f.data[bit/8]&(1<<(bit%8)) != 0
}

// hashes derives two 64-bit values from a single xxh3 call (the hash and
// its 32-bit rotation),
// the standard Kirsch–Mitzenmacher double-hashing trick for deriving k
// positions without k separate hash invocations.
func (f *BloomFilter) hashes(key string) (uint64, uint64) {
	h := xxh3.HashString(key)
	return h, h>>32 | h<<32
}
