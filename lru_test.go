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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUNewRejectsZeroSize(t *testing.T) {
	_, err := NewLRU(0)
	require.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestLRUEvictsOldestOnOverflow(t *testing.T) {
	l, err := NewLRU(3)
	require.NoError(t, err)

	l.Set([]Entry{{Key: 1}, {Key: 2}, {Key: 3}})
	checkSegment(t, l.arena, l.list, []uint64{3, 2, 1})

	evicted := l.Set([]Entry{{Key: 4}})
	require.Equal(t, []uint64{1}, evicted)
	checkSegment(t, l.arena, l.list, []uint64{4, 3, 2})
}

func TestLRUAccessMovesToFront(t *testing.T) {
	l, err := NewLRU(3)
	require.NoError(t, err)
	l.Set([]Entry{{Key: 1}, {Key: 2}, {Key: 3}})

	l.Access([]uint64{1})
	checkSegment(t, l.arena, l.list, []uint64{1, 3, 2})
}

func TestLRUSetOnResidentKeyTouchesIt(t *testing.T) {
	l, err := NewLRU(3)
	require.NoError(t, err)
	l.Set([]Entry{{Key: 1}, {Key: 2}, {Key: 3}})

	evicted := l.Set([]Entry{{Key: 1}})
	require.Empty(t, evicted)
	checkSegment(t, l.arena, l.list, []uint64{1, 3, 2})
}

func TestLRURemove(t *testing.T) {
	l, err := NewLRU(3)
	require.NoError(t, err)
	l.Set([]Entry{{Key: 1}, {Key: 2}})

	key, ok := l.Remove(1)
	require.True(t, ok)
	require.Equal(t, uint64(1), key)
	require.Equal(t, uint64(1), l.Len())

	_, ok = l.Remove(1)
	require.False(t, ok)
}

func TestLRUAdvanceExpiresEntries(t *testing.T) {
	now := int64(0)
	clock := func() int64 { return now }
	l, err := NewLRU(10, WithClock(clock))
	require.NoError(t, err)

	l.Set([]Entry{{Key: 1, TTLNs: nanosPerSecond}})
	now = 2 * nanosPerSecond

	expired := l.Advance()
	require.Equal(t, []uint64{1}, expired)
	require.Equal(t, uint64(0), l.Len())
}

func TestLRUClear(t *testing.T) {
	l, err := NewLRU(3)
	require.NoError(t, err)
	l.Set([]Entry{{Key: 1}, {Key: 2}})
	l.Clear()
	require.Equal(t, uint64(0), l.Len())
	require.Empty(t, l.Keys())
}
