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

// Package vector implements the growable, contiguously-addressed
// sequence container described by the allocator family in package
// alloc: a single-writer Serial[T] and a many-writer Concurrent[T],
// both exposing a random-access slice-like API over a pluggable
// backing allocator.
package vector

import (
	"unsafe"

	"github.com/mmapvec/mmapvec/alloc"
)

// Serial is a single-writer, single-reader growable sequence of T
// backed by an alloc.Allocator[T]. It has no internal synchronisation;
// callers that share a Serial across goroutines must supply their own
// external synchronisation. Use Concurrent for many
// simultaneous appenders instead.
type Serial[T any] struct {
	a     *alloc.Allocator[T]
	count int
}

// NewSerialHeap builds a Serial vector on a heap-backed allocator with
// at least the given initial capacity.
func NewSerialHeap[T any](initial int) (*Serial[T], error) {
	a, err := alloc.NewHeap[T](initial)
	if err != nil {
		return nil, err
	}
	return &Serial[T]{a: a}, nil
}

// NewSerialAnonMap builds a Serial vector on a private anonymous
// memory mapping.
func NewSerialAnonMap[T any](cfg alloc.AnonMapConfig) (*Serial[T], error) {
	a, err := alloc.NewAnonMap[T](cfg)
	if err != nil {
		return nil, err
	}
	return &Serial[T]{a: a}, nil
}

// NewSerialFileMap builds a Serial vector on a file-backed memory
// mapping, opening (and creating, by default) cfg.Path. If a prior
// incarnation of the file is present, the vector's size starts at its
// backing element count, so pushing and closing on one run is visible
// as the initial size on the next open.
func NewSerialFileMap[T any](cfg alloc.FileMapConfig) (*Serial[T], error) {
	a, err := alloc.NewFileMap[T](cfg)
	if err != nil {
		return nil, err
	}
	return &Serial[T]{a: a, count: a.BackingSize()}, nil
}

// Len reports the number of live elements.
func (v *Serial[T]) Len() int { return v.count }

// Size is an alias for Len, matching this package's size()/Size() naming.
func (v *Serial[T]) Size() int { return v.count }

// Capacity reports the number of elements the buffer can currently
// hold without growing.
func (v *Serial[T]) Capacity() int { return v.a.Capacity() }

// Empty reports whether the vector has no live elements.
func (v *Serial[T]) Empty() bool { return v.count == 0 }

// Data returns the live prefix of the buffer as a []T of length
// Len(). The slice aliases the allocator's buffer; it is invalidated
// by any operation that may grow (Append past capacity, Reserve,
// Resize growing, ShrinkToFit).
func (v *Serial[T]) Data() []T {
	return v.a.Data()[:v.count]
}

// Ptr returns the address of the start of the buffer. It equals
// PtrEnd when the vector is empty, matching the usual begin==end
// convention for an empty sequence; both are nil only when the buffer
// itself has zero capacity.
func (v *Serial[T]) Ptr() unsafe.Pointer {
	return v.a.Ptr()
}

// PtrEnd returns the address one past the last live element.
func (v *Serial[T]) PtrEnd() unsafe.Pointer {
	base := v.a.Ptr()
	if base == nil {
		return nil
	}
	var zero T
	return unsafe.Add(base, uintptr(v.count)*unsafe.Sizeof(zero))
}

// Append appends one element, growing the buffer if necessary.
func (v *Serial[T]) Append(val T) error {
	if err := v.ensureRoomFor(v.count + 1); err != nil {
		return err
	}
	v.a.Data()[v.count] = val
	v.count++
	return nil
}

// EmplaceAppend appends the value produced by build, constructing it
// directly into the newly reserved slot. It exists for parity with
// a construct-in-place append; for most callers Append is
// equivalent and simpler.
func (v *Serial[T]) EmplaceAppend(build func() T) error {
	if err := v.ensureRoomFor(v.count + 1); err != nil {
		return err
	}
	v.a.Data()[v.count] = build()
	v.count++
	return nil
}

// PopBack removes and returns the last element. ok is false if the
// vector was empty, in which case the returned value is the zero
// value and the vector is unchanged.
func (v *Serial[T]) PopBack() (val T, ok bool) {
	if v.count == 0 {
		return val, false
	}
	v.count--
	return v.a.Data()[v.count], true
}

// At returns the element at index i, panicking like a bare slice
// index if i is out of range. Use Get for a checked access.
func (v *Serial[T]) At(i int) T {
	return v.Data()[i]
}

// Get is the checked equivalent of At: it returns ErrOutOfRange
// instead of panicking when i >= Len().
func (v *Serial[T]) Get(i int) (T, error) {
	if i < 0 || i >= v.count {
		var zero T
		return zero, ErrOutOfRange
	}
	return v.a.Data()[i], nil
}

// Set overwrites the element at index i. It returns ErrOutOfRange if
// i >= Len().
func (v *Serial[T]) Set(i int, val T) error {
	if i < 0 || i >= v.count {
		return ErrOutOfRange
	}
	v.a.Data()[i] = val
	return nil
}

// Front returns the first element and true, or the zero value and
// false if the vector is empty.
func (v *Serial[T]) Front() (T, bool) {
	if v.count == 0 {
		var zero T
		return zero, false
	}
	return v.a.Data()[0], true
}

// Back returns the last element and true, or the zero value and
// false if the vector is empty.
func (v *Serial[T]) Back() (T, bool) {
	if v.count == 0 {
		var zero T
		return zero, false
	}
	return v.a.Data()[v.count-1], true
}

// Clear sets Len() to zero. Capacity, and the bytes beyond index 0,
// are left untouched.
func (v *Serial[T]) Clear() {
	v.count = 0
}

// Resize grows or shrinks the logical size to n. If n exceeds the
// current capacity, the allocator is grown first; newly exposed bytes
// are whatever the allocator's backend provides for fresh capacity
// (zero-filled for AnonMap/FileMap, undefined for Heap).
// Shrinking never releases capacity; use ShrinkToFit for that.
func (v *Serial[T]) Resize(n int) error {
	if n < 0 {
		panic("vector: negative size")
	}
	if n > v.a.Capacity() {
		if err := v.a.GrowTo(alloc.GrowthTarget(v.a.Capacity(), n)); err != nil {
			return err
		}
	}
	v.count = n
	return nil
}

// Reserve ensures Capacity() >= n without changing Len().
func (v *Serial[T]) Reserve(n int) error {
	if n <= v.a.Capacity() {
		return nil
	}
	return v.a.GrowTo(alloc.GrowthTarget(v.a.Capacity(), n))
}

// ShrinkToFit asks the allocator to shrink its buffer to exactly
// Len() elements. For Heap and AnonMap this is a best-effort request
// the current implementations treat as a grow-only no-op when n <=
// capacity (per alloc.Allocator.GrowTo's contract); for FileMap it
// actually truncates the backing file.
func (v *Serial[T]) ShrinkToFit() error {
	return v.a.GrowTo(v.count)
}

// Equal reports whether two vectors have equal Len() and equal
// elements at every index in [0, Len()). T must be
// comparable for this to compile; callers with non-comparable element
// types should compare Data() slices themselves with their own
// equality function.
func Equal[T comparable](a, b *Serial[T]) bool {
	if a.count != b.count {
		return false
	}
	ad, bd := a.Data(), b.Data()
	for i := range ad {
		if ad[i] != bd[i] {
			return false
		}
	}
	return true
}

// Close informs the allocator of the final element count and releases
// the buffer (for FileMap, this is also what truncates the file to
// its persisted length). Failures are best-effort;
// see alloc.Allocator.Close.
func (v *Serial[T]) Close() error {
	if err := v.a.Sync(v.count); err != nil {
		return err
	}
	return v.a.Close()
}

// Take transfers the allocator and element count out of v, leaving v
// in a valid, empty, allocator-less moved-from state. Len, Size, Empty
// and Take still work on v after Take; every other method panics on
// the nil allocator: the source is left empty, not left usable.
func (v *Serial[T]) Take() *Serial[T] {
	moved := &Serial[T]{a: v.a, count: v.count}
	v.a = nil
	v.count = 0
	return moved
}

// ensureRoomFor grows the allocator, if needed, so that Capacity() >=
// n, using the shared doubling policy.
func (v *Serial[T]) ensureRoomFor(n int) error {
	if n <= v.a.Capacity() {
		return nil
	}
	return v.a.GrowTo(alloc.GrowthTarget(v.a.Capacity(), n))
}
