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
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"

	"github.com/mmapvec/mmapvec/alloc"
)

// S1: push 1, 2, 3 onto an empty heap vector of int32.
func TestSerialHeapPushBasics(t *testing.T) {
	v, err := NewSerialHeap[int32](0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	for _, val := range []int32{1, 2, 3} {
		if err := v.Append(val); err != nil {
			t.Fatal(err)
		}
	}
	if v.Size() != 3 {
		t.Fatalf("expected size 3, got %d", v.Size())
	}
	if got := v.Data(); got[0] != 1 || got[1] != 2 || got[2] != 3 {
		t.Fatalf("unexpected data %v", got)
	}
	front, ok := v.Front()
	if !ok || front != 1 {
		t.Fatalf("expected front=1, got %d ok=%v", front, ok)
	}
	back, ok := v.Back()
	if !ok || back != 3 {
		t.Fatalf("expected back=3, got %d ok=%v", back, ok)
	}
}

// S2: push 0..149 onto an empty AnonMap vector of int32.
func TestSerialAnonMapGrowth(t *testing.T) {
	v, err := NewSerialAnonMap[int32](alloc.AnonMapConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	for i := 0; i < 150; i++ {
		if err := v.Append(int32(i)); err != nil {
			t.Fatal(err)
		}
	}
	if v.Size() != 150 {
		t.Fatalf("expected size 150, got %d", v.Size())
	}
	if v.Capacity() < 150 {
		t.Fatalf("expected capacity >= 150, got %d", v.Capacity())
	}
	d := v.Data()
	if d[0] != 0 || d[149] != 149 {
		t.Fatalf("unexpected boundary values: data[0]=%d data[149]=%d", d[0], d[149])
	}
}

// S3: push 10,20,30 onto a FileMap vector, drop, reopen, verify length.
func TestSerialFileMapRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), uuid.NewString()+".bin")

	v, err := NewSerialFileMap[int32](alloc.FileMapConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	for _, val := range []int32{10, 20, 30} {
		if err := v.Append(val); err != nil {
			t.Fatal(err)
		}
	}
	if err := v.Close(); err != nil {
		t.Fatal(err)
	}

	fi, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if fi.Size() != 12 {
		t.Fatalf("expected file length 12, got %d", fi.Size())
	}

	v2, err := NewSerialFileMap[int32](alloc.FileMapConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer v2.Close()
	if v2.Size() != 3 {
		t.Fatalf("expected reopened size 3, got %d", v2.Size())
	}
	d := v2.Data()
	if d[0] != 10 || d[1] != 20 || d[2] != 30 {
		t.Fatalf("unexpected reopened data %v", d)
	}
}

// S4: reserve(100) then push 0..4.
func TestSerialReserve(t *testing.T) {
	v, err := NewSerialHeap[int32](0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	if err := v.Reserve(100); err != nil {
		t.Fatal(err)
	}
	if v.Capacity() < 100 {
		t.Fatalf("expected capacity >= 100, got %d", v.Capacity())
	}
	if v.Size() != 0 {
		t.Fatalf("reserve must not change size, got %d", v.Size())
	}
	for i := int32(0); i < 5; i++ {
		if err := v.Append(i); err != nil {
			t.Fatal(err)
		}
	}
	if v.Size() != 5 {
		t.Fatalf("expected size 5, got %d", v.Size())
	}
}

// S6: opening a FileMap vector on a corrupted-length file.
func TestSerialFileMapCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), uuid.NewString()+".bin")
	if err := os.WriteFile(path, make([]byte, 7), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := NewSerialFileMap[int32](alloc.FileMapConfig{Path: path})
	if !errors.Is(err, alloc.ErrCorruptedFile) {
		t.Fatalf("expected ErrCorruptedFile, got %v", err)
	}
}

func TestSerialGetOutOfRange(t *testing.T) {
	v, err := NewSerialHeap[int32](0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	if err := v.Append(1); err != nil {
		t.Fatal(err)
	}
	if _, err := v.Get(1); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for index 1, got %v", err)
	}
	if _, err := v.Get(0); err != nil {
		t.Fatalf("expected index 0 in range, got %v", err)
	}
}

func TestSerialClearKeepsCapacity(t *testing.T) {
	v, err := NewSerialHeap[int32](0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	for i := int32(0); i < 20; i++ {
		if err := v.Append(i); err != nil {
			t.Fatal(err)
		}
	}
	capBefore := v.Capacity()
	v.Clear()
	if v.Size() != 0 {
		t.Fatalf("expected size 0 after Clear, got %d", v.Size())
	}
	if v.Capacity() != capBefore {
		t.Fatalf("Clear must not change capacity: before=%d after=%d", capBefore, v.Capacity())
	}
}

func TestSerialPopBack(t *testing.T) {
	v, err := NewSerialHeap[int32](0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	if _, ok := v.PopBack(); ok {
		t.Fatal("expected PopBack on empty vector to report ok=false")
	}
	v.Append(1)
	v.Append(2)
	val, ok := v.PopBack()
	if !ok || val != 2 {
		t.Fatalf("expected PopBack to return 2, got %d ok=%v", val, ok)
	}
	if v.Size() != 1 {
		t.Fatalf("expected size 1 after PopBack, got %d", v.Size())
	}
}

func TestSerialResize(t *testing.T) {
	v, err := NewSerialHeap[int32](0)
	if err != nil {
		t.Fatal(err)
	}
	defer v.Close()

	if err := v.Resize(50); err != nil {
		t.Fatal(err)
	}
	if v.Size() != 50 {
		t.Fatalf("expected size 50, got %d", v.Size())
	}
	if v.Capacity() < 50 {
		t.Fatalf("expected capacity >= 50, got %d", v.Capacity())
	}
	if err := v.Resize(10); err != nil {
		t.Fatal(err)
	}
	if v.Size() != 10 {
		t.Fatalf("expected size 10 after shrinking resize, got %d", v.Size())
	}
	if v.Capacity() < 50 {
		t.Fatalf("resize down must not release capacity, got %d", v.Capacity())
	}
}

func TestSerialEqual(t *testing.T) {
	a, _ := NewSerialHeap[int32](0)
	b, _ := NewSerialHeap[int32](0)
	defer a.Close()
	defer b.Close()

	for _, val := range []int32{1, 2, 3} {
		a.Append(val)
		b.Append(val)
	}
	if !Equal(a, b) {
		t.Fatal("expected equal vectors to compare equal")
	}
	b.Append(4)
	if Equal(a, b) {
		t.Fatal("expected differing-length vectors to compare unequal")
	}
}

func TestSerialTake(t *testing.T) {
	v, err := NewSerialHeap[int32](0)
	if err != nil {
		t.Fatal(err)
	}
	v.Append(1)
	v.Append(2)

	moved := v.Take()
	defer moved.Close()

	if v.Size() != 0 {
		t.Fatalf("expected source size 0 after Take, got %d", v.Size())
	}
	if moved.Size() != 2 {
		t.Fatalf("expected moved-to size 2, got %d", moved.Size())
	}
}
