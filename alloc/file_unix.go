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

//go:build unix

package alloc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// fileImpl maps a file and keeps backing (the element count deemed
// already persisted) separate from capacity (the mapped size).
// remapFile is mremap-backed on linux and unmap/mmap-backed
// everywhere else (file_linux.go / file_other.go): unlike anonImpl's
// copy fallback, there's no need to copy bytes by hand on the
// non-linux path, since the bytes live in the file itself.
type fileImpl struct {
	f        *os.File
	buf      []byte
	backing  int
	elemSize uintptr
}

func openFileImpl(cfg FileMapConfig, elemSize uintptr) (*fileImpl, error) {
	openFlags := cfg.OpenFlags
	if openFlags == 0 {
		openFlags = os.O_RDWR | os.O_CREATE
	}
	mode := cfg.Mode
	if mode == 0 {
		mode = 0644
	}
	f, err := os.OpenFile(cfg.Path, openFlags, mode)
	if err != nil {
		return nil, &IOError{Op: "open", Err: err}
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "fstat", Err: err}
	}
	size := fi.Size()
	if size%int64(elemSize) != 0 {
		f.Close()
		return nil, fmt.Errorf("%w: file %q has length %d, not a multiple of element size %d",
			ErrCorruptedFile, cfg.Path, size, elemSize)
	}
	backing := int(size / int64(elemSize))
	capElems := backing
	if capElems < minCapacity {
		capElems = minCapacity
	}
	capBytes := capElems * int(elemSize)
	if int64(capBytes) > size {
		if err := extendFile(f, int64(capBytes)); err != nil {
			f.Close()
			return nil, err
		}
	}

	mapFlags := cfg.MapFlags
	if mapFlags == 0 {
		mapFlags = unix.MAP_SHARED
	}
	buf, err := unix.Mmap(int(f.Fd()), 0, capBytes, unix.PROT_READ|unix.PROT_WRITE, mapFlags)
	if err != nil {
		f.Close()
		return nil, &IOError{Op: "mmap", Err: err}
	}
	return &fileImpl{f: f, buf: buf, backing: backing, elemSize: elemSize}, nil
}

func (fi *fileImpl) bytes() []byte    { return fi.buf }
func (fi *fileImpl) backingSize() int { return fi.backing }

func (fi *fileImpl) sync(used int) error {
	fi.backing = used
	return nil
}

// growTo resizes the file (and the mapping) to exactly n elements.
// Unlike heapImpl/anonImpl it has no "n <= capacity is a no-op" guard:
// FileMap's grow_to is also how ShrinkToFit shrinks the file. (close
// does its own drop-time truncation without going through growTo.)
func (fi *fileImpl) growTo(n int) error {
	newLen := n * int(fi.elemSize)
	if newLen == len(fi.buf) {
		return nil
	}
	if newLen > len(fi.buf) {
		if err := extendFile(fi.f, int64(newLen)); err != nil {
			return err
		}
	} else if err := fi.f.Truncate(int64(newLen)); err != nil {
		return &IOError{Op: "ftruncate", Err: err}
	}
	nb, err := remapFile(fi.f, fi.buf, newLen)
	if err != nil {
		return err
	}
	fi.buf = nb
	return nil
}

// close shrinks the file to exactly the last-synced element count,
// unmaps, and closes the descriptor. Best-effort: the vector is torn
// down regardless of whether this succeeds.
func (fi *fileImpl) close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	newLen := fi.backing * int(fi.elemSize)
	if newLen != len(fi.buf) {
		nb, err := remapFile(fi.f, fi.buf, newLen)
		if err != nil {
			record(err)
		} else {
			fi.buf = nb
		}
	}
	record(unmapOnly(fi.buf))
	fi.buf = nil

	if err := fi.f.Truncate(int64(newLen)); err != nil {
		record(&IOError{Op: "ftruncate", Err: err})
	}
	if err := fi.f.Close(); err != nil {
		record(&IOError{Op: "close", Err: err})
	}
	return firstErr
}

func unmapOnly(buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	if err := unix.Munmap(buf); err != nil {
		return &IOError{Op: "munmap", Err: err}
	}
	return nil
}
