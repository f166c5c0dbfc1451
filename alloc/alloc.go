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

// Package alloc implements the allocator family that backs the
// vector package: a polymorphic capability over a single contiguous
// element buffer, with three concrete strategies (Heap, AnonMap,
// FileMap) that unify realloc-style heap growth with mmap/mremap-style
// growth over anonymous and file-backed virtual memory.
package alloc

import (
	"unsafe"
)

// minCapacity is the minimum initial/grown capacity (in elements) for
// the Heap and FileMap backends.
const minCapacity = 16

// Allocator owns one contiguous buffer of T and the logic to grow it.
// It is the generic front end over a backend-specific impl that does
// the actual byte-level work; keeping the hot accessors
// (Capacity/Data/Ptr) here means they never pay for an interface call
// per element.
type Allocator[T any] struct {
	elemSize uintptr
	impl     impl
	logger   Logger
}

// impl is satisfied by heapImpl, anonImpl and fileImpl; each Allocator
// holds exactly one of them. It operates purely in bytes; Allocator[T] is what translates
// to/from element counts, since only it knows sizeof(T).
type impl interface {
	bytes() []byte
	backingSize() int
	growTo(newCapElems int) error
	sync(usedElems int) error
	close() error
}

// NewHeap constructs a heap-backed allocator with at least the given
// initial capacity (elements). A value below the 16-element minimum
// is rounded up.
func NewHeap[T any](initial int) (*Allocator[T], error) {
	var zero T
	elemSize := unsafe.Sizeof(zero)
	if initial < minCapacity {
		initial = minCapacity
	}
	hi, err := newHeapImpl(elemSize, initial)
	if err != nil {
		return nil, err
	}
	return &Allocator[T]{elemSize: elemSize, impl: hi}, nil
}

// NewAnonMap constructs an allocator backed by a private anonymous
// memory mapping, with an initial capacity of one page's worth of T
// (or the 16-element minimum, whichever is larger).
func NewAnonMap[T any](cfg AnonMapConfig) (*Allocator[T], error) {
	var zero T
	elemSize := unsafe.Sizeof(zero)
	initial := pageSize() / int(elemSize)
	if initial < minCapacity {
		initial = minCapacity
	}
	ai, err := newAnonImpl(elemSize, initial)
	if err != nil {
		return nil, err
	}
	return &Allocator[T]{elemSize: elemSize, impl: ai, logger: cfg.Logger}, nil
}

// NewFileMap opens (creating if necessary) the file named by cfg.Path
// and maps it. If the file's length is not a multiple of sizeof(T),
// it returns ErrCorruptedFile. Otherwise the file is extended (never
// shrunk) to at least a 16-element capacity and mapped read-write.
func NewFileMap[T any](cfg FileMapConfig) (*Allocator[T], error) {
	var zero T
	elemSize := unsafe.Sizeof(zero)
	fi, err := openFileImpl(cfg, elemSize)
	if err != nil {
		return nil, err
	}
	return &Allocator[T]{elemSize: elemSize, impl: fi, logger: cfg.Logger}, nil
}

// Capacity returns the number of elements the current buffer can hold.
func (a *Allocator[T]) Capacity() int {
	return len(a.impl.bytes()) / int(a.elemSize)
}

// BackingSize returns the number of elements already durably present
// in a prior incarnation of the backend. It is always zero for Heap
// and AnonMap; for FileMap it is the element count observed at open,
// updated only by Sync.
func (a *Allocator[T]) BackingSize() int {
	return a.impl.backingSize()
}

// GrowTo ensures the buffer holds at least n elements (Heap/AnonMap)
// or resizes it to exactly n elements (FileMap, which can also
// shrink — see Allocator.Sync and vector.Serial.ShrinkToFit). The
// first min(old capacity, n) elements' bytes are preserved.
func (a *Allocator[T]) GrowTo(n int) error {
	return a.impl.growTo(n)
}

// Sync tells the allocator how many elements are live. Only FileMap
// acts on this (it becomes the persisted length on Close); the other
// backends ignore it.
func (a *Allocator[T]) Sync(used int) error {
	return a.impl.sync(used)
}

// Close releases the buffer. For FileMap this truncates the file to
// exactly the last-synced element count and closes the descriptor.
func (a *Allocator[T]) Close() error {
	err := a.impl.close()
	if err != nil {
		logf(a.logger, "alloc: close failed: %v", err)
	}
	return err
}

// Data returns the live buffer as a []T of length Capacity(). Callers
// that only care about a prefix should reslice it themselves; the
// allocator has no notion of element count, only capacity.
func (a *Allocator[T]) Data() []T {
	b := a.impl.bytes()
	if len(b) == 0 {
		return nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&b[0])), len(b)/int(a.elemSize))
}

// Ptr returns the address of the first element of the buffer, or nil
// if the buffer is empty. It exists for callers that need to pass the
// buffer to cgo or syscall-level APIs; Data is the safe, idiomatic
// accessor for everything else.
func (a *Allocator[T]) Ptr() unsafe.Pointer {
	b := a.impl.bytes()
	if len(b) == 0 {
		return nil
	}
	return unsafe.Pointer(&b[0])
}

// GrowthTarget implements the capacity-growth policy shared by all
// three backends: given a request for at least needed elements, it
// doubles from the current capacity (starting at 16 if current is at
// most 8) until the result is >= needed. It lives here, not in a
// backend, because the policy itself is backend-agnostic.
func GrowthTarget(current, needed int) int {
	if needed <= current {
		return current
	}
	next := current
	if next <= 8 {
		next = minCapacity
	}
	for next < needed {
		next *= 2
	}
	return next
}
