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

// cm4Rows is the number of independent counter rows the sketch keeps —
// the "4" in CM4. Each byte of a row packs two 4-bit counters, the same
// layout dgraph-io/ristretto's cmRow/bloom.CBF use.
const cm4Rows = 4

// cm4Seeds give each row an independent view of a key, grounded on
// bloom/bloom.go's per-row random seed (there generated with
// crypto/rand at construction time; fixed here since the engine has no
// need for seed secrecy, only row independence).
var cm4Seeds = [cm4Rows]uint64{
	0x9e3779b97f4a7c15,
	0xbf58476d1ce4e5b9,
	0x94d049bb133111eb,
	0xff51afd7ed558ccd,
}

// cm4Sketch is a Count-Min sketch with 4-bit saturating counters and
// periodic aging, the frequency estimator TinyLFU uses for admission
// decisions.
type cm4Sketch struct {
	rows       [cm4Rows][]byte
	mask       uint64
	sampleSize uint64
	additions  uint64
}

func newCM4Sketch(size uint64) *cm4Sketch {
	width := next2Power(size)
	s := &cm4Sketch{
		mask:       width - 1,
		sampleSize: 10 * size,
	}
	for i := range s.rows {
		s.rows[i] = make([]byte, width/2)
	}
	return s
}

// next2Power rounds x up to the next power of two, if it isn't one
// already, matching sketch.go's helper of the same name.
func next2Power(x uint64) uint64 {
	if x == 0 {
		return 1
	}
	x--
	x |= x >> 1
	x |= x >> 2
	x |= x >> 4
	x |= x >> 8
	x |= x >> 16
	x |= x >> 32
	x++
	return x
}

// rowIndex derives row i's counter position from key by seeding it per
// row and running it through the Spread finalizer this package exports,
// keeping the hot path
// free of any string hashing library (xxhash/xxh3 are reserved for the
// public string-keyed surfaces; this operates on keys already reduced to
// uint64).
func (s *cm4Sketch) rowIndex(row int, key uint64) uint64 {
	return Spread(int64(key ^ cm4Seeds[row])) & s.mask
}

// Add records one occurrence of key, aging the whole sketch once the
// number of additions since the last aging reaches sampleSize.
func (s *cm4Sketch) Add(key uint64) {
	for i := range s.rows {
		incrementCounter(s.rows[i], s.rowIndex(i, key))
	}
	s.additions++
	if s.additions == s.sampleSize {
		s.age()
	}
}

// Estimate returns the minimum counter across all rows for key.
func (s *cm4Sketch) Estimate(key uint64) uint8 {
	min := uint8(15)
	for i := range s.rows {
		if v := counterAt(s.rows[i], s.rowIndex(i, key)); v < min {
			min = v
		}
	}
	return min
}

// age halves every counter and halves the additions count.
func (s *cm4Sketch) age() {
	for i := range s.rows {
		row := s.rows[i]
		for j := range row {
			row[j] = (row[j] >> 1) & 0x77
		}
	}
	s.additions /= 2
}

// Clear zeroes every counter and the additions count.
func (s *cm4Sketch) Clear() {
	for i := range s.rows {
		row := s.rows[i]
		for j := range row {
			row[j] = 0
		}
	}
	s.additions = 0
}

func counterAt(row []byte, n uint64) uint8 {
	return byte(row[n/2]>>((n&1)*4)) & 0x0f
}

func incrementCounter(row []byte, n uint64) {
	i := n / 2
	shift := (n & 1) * 4
	v := (row[i] >> shift) & 0x0f
	if v < 15 {
		row[i] += 1 << shift
	}
}
