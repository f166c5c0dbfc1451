// Copyright (C) 2022 Sneller, Inc.
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package vector

import (
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/mmapvec/mmapvec/alloc"
)

// Concurrent is a many-writer, lock-free-fast-path growable sequence
// of T. Only Append is safe to call from multiple
// goroutines at once; every other mutating operation (PopBack, Clear,
// Resize, ShrinkToFit, Take) requires an authoritative element count
// or would invalidate outstanding index reservations and therefore
// returns ErrNotSupportedInConcurrentMode. Readers may run
// concurrently with appenders but see no ordering guarantee about
// partially-written elements; coordinate readers with their own
// barrier after writers join.
type Concurrent[T any] struct {
	a *alloc.Allocator[T]

	elementCount      atomic.Int64
	publishedCapacity atomic.Int64
	neededCapacity    atomic.Int64
	opsInProgress     atomic.Int64

	growLock sync.Mutex
	poison   atomic.Pointer[error]
}

// NewConcurrentHeap builds a Concurrent vector on a heap-backed
// allocator with at least the given initial capacity.
func NewConcurrentHeap[T any](initial int) (*Concurrent[T], error) {
	a, err := alloc.NewHeap[T](initial)
	if err != nil {
		return nil, err
	}
	return newConcurrent[T](a), nil
}

// NewConcurrentAnonMap builds a Concurrent vector on a private
// anonymous memory mapping.
func NewConcurrentAnonMap[T any](cfg alloc.AnonMapConfig) (*Concurrent[T], error) {
	a, err := alloc.NewAnonMap[T](cfg)
	if err != nil {
		return nil, err
	}
	return newConcurrent[T](a), nil
}

// NewConcurrentFileMap builds a Concurrent vector on a file-backed
// memory mapping. Behaviour when the file is shared across processes
// is undefined; this constructor assumes exclusive-process ownership
// of the file, like Serial's does.
func NewConcurrentFileMap[T any](cfg alloc.FileMapConfig) (*Concurrent[T], error) {
	a, err := alloc.NewFileMap[T](cfg)
	if err != nil {
		return nil, err
	}
	c := newConcurrent[T](a)
	c.elementCount.Store(int64(a.BackingSize()))
	return c, nil
}

func newConcurrent[T any](a *alloc.Allocator[T]) *Concurrent[T] {
	c := &Concurrent[T]{a: a}
	c.publishedCapacity.Store(int64(a.Capacity()))
	return c
}

// Len reports the number of reserved indices. A reader observing
// Len() == N is not guaranteed to see all N writes land;
// coordinate with the writers' own join before trusting element
// contents.
func (v *Concurrent[T]) Len() int { return int(v.elementCount.Load()) }

// Size is an alias for Len, matching this package's size()/Size() naming.
func (v *Concurrent[T]) Size() int { return v.Len() }

// Capacity returns the last published capacity visible to writers.
// It may lag the allocator's true capacity for the instant a resize
// is in flight.
func (v *Concurrent[T]) Capacity() int { return int(v.publishedCapacity.Load()) }

// Data returns the buffer sliced to Len(). It is only meaningful once
// all appenders that contributed to Len() have returned from Append —
// calling it while appends are in flight races with any concurrent
// grow.
func (v *Concurrent[T]) Data() []T {
	n := v.Len()
	d := v.a.Data()
	if n > len(d) {
		n = len(d)
	}
	return d[:n]
}

// At returns the element at index i without a bounds check, mirroring
// a bare slice index. Use it only on indices known to have been
// written and joined.
func (v *Concurrent[T]) At(i int) T {
	return v.a.Data()[i]
}

// Front returns the first element and true, or the zero value and
// false if the vector is empty.
func (v *Concurrent[T]) Front() (T, bool) {
	if v.Len() == 0 {
		var zero T
		return zero, false
	}
	return v.a.Data()[0], true
}

// Back returns the last element observed by Len() and true, or the
// zero value and false if the vector is empty. Like Data, this is
// only meaningful after the writers that produced it have joined.
func (v *Concurrent[T]) Back() (T, bool) {
	n := v.Len()
	if n == 0 {
		var zero T
		return zero, false
	}
	return v.a.Data()[n-1], true
}

// Append reserves the next index and writes val into it, growing the
// backing allocator through the mutex-serialised resizer when no
// slot is published for the reserved index. It is safe
// to call from any number of goroutines concurrently.
func (v *Concurrent[T]) Append(val T) error {
	if err := v.poisoned(); err != nil {
		return err
	}
	i := int(v.elementCount.Add(1)) - 1
	for {
		v.opsInProgress.Add(1)
		cap := int(v.publishedCapacity.Load())
		if i < cap {
			v.a.Data()[i] = val
			v.opsInProgress.Add(-1)
			return nil
		}

		// slow path: this writer's index does not yet fit under the
		// published capacity.
		atomicMax(&v.neededCapacity, int64(i+1))
		prev := v.opsInProgress.Add(-1) + 1
		if prev > 1 {
			// another writer is in flight (or will also discover the
			// need); spin until a resizer publishes a capacity that
			// covers i, then rejoin the fast path.
			if err := v.waitForCapacity(i); err != nil {
				return err
			}
			continue
		}

		// we are the last writer in flight: grow.
		if err := v.grow(i); err != nil {
			v.poison.Store(&err)
			return err
		}
		continue
	}
}

// waitForCapacity busy-waits until published capacity covers index i
// or the vector is poisoned by a failed resize.
func (v *Concurrent[T]) waitForCapacity(i int) error {
	for {
		if err := v.poisoned(); err != nil {
			return err
		}
		if int(v.publishedCapacity.Load()) > i {
			return nil
		}
		runtime.Gosched()
	}
}

// grow runs the single-resizer path under growLock: it grows the
// allocator to at least the high-water mark and publishes the new
// capacity with release semantics so fast-path readers that observe
// the new publishedCapacity also observe the remapped buffer.
func (v *Concurrent[T]) grow(i int) error {
	v.growLock.Lock()
	defer v.growLock.Unlock()

	// another resizer may have already covered us while we waited
	// for the lock.
	if int(v.publishedCapacity.Load()) > i {
		return nil
	}
	target := int(v.neededCapacity.Load())
	if i+1 > target {
		target = i + 1
	}
	growTarget := alloc.GrowthTarget(v.a.Capacity(), target)
	if err := v.a.GrowTo(growTarget); err != nil {
		return err
	}
	v.publishedCapacity.Store(int64(v.a.Capacity()))
	return nil
}

func (v *Concurrent[T]) poisoned() error {
	if p := v.poison.Load(); p != nil {
		return *p
	}
	return nil
}

// atomicMax performs a compare-and-swap loop that leaves a set to
// max(a, val).
func atomicMax(a *atomic.Int64, val int64) {
	for {
		cur := a.Load()
		if val <= cur {
			return
		}
		if a.CompareAndSwap(cur, val) {
			return
		}
	}
}

// Close informs the allocator of the final (joined) element count and
// releases the buffer. Callers must ensure all Append calls have
// returned before calling Close — it is not itself part of the
// lock-free append protocol.
func (v *Concurrent[T]) Close() error {
	if err := v.a.Sync(v.Len()); err != nil {
		return err
	}
	return v.a.Close()
}

// The following operations require an authoritative element count or
// would invalidate outstanding index reservations, and are therefore
// unsupported on Concurrent.

// PopBack is not supported in concurrent mode.
func (v *Concurrent[T]) PopBack() (T, error) {
	var zero T
	return zero, ErrNotSupportedInConcurrentMode
}

// Get is not supported in concurrent mode.
func (v *Concurrent[T]) Get(int) (T, error) {
	var zero T
	return zero, ErrNotSupportedInConcurrentMode
}

// Set is not supported in concurrent mode.
func (v *Concurrent[T]) Set(int, T) error {
	return ErrNotSupportedInConcurrentMode
}

// Clear is not supported in concurrent mode.
func (v *Concurrent[T]) Clear() error {
	return ErrNotSupportedInConcurrentMode
}

// Resize is not supported in concurrent mode.
func (v *Concurrent[T]) Resize(int) error {
	return ErrNotSupportedInConcurrentMode
}

// Reserve is not supported in concurrent mode: growth is driven
// exclusively by the append protocol's own resizer.
func (v *Concurrent[T]) Reserve(int) error {
	return ErrNotSupportedInConcurrentMode
}

// ShrinkToFit is not supported in concurrent mode.
func (v *Concurrent[T]) ShrinkToFit() error {
	return ErrNotSupportedInConcurrentMode
}

// EmplaceAppend is not supported in concurrent mode.
func (v *Concurrent[T]) EmplaceAppend(func() T) error {
	return ErrNotSupportedInConcurrentMode
}

// Take is not supported in concurrent mode.
func (v *Concurrent[T]) Take() (*Concurrent[T], error) {
	return nil, ErrNotSupportedInConcurrentMode
}
