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

//go:build windows

package alloc

import (
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/windows"
)

// fileImpl on Windows uses CreateFileMapping/MapViewOfFile instead of
// mmap, and SetEndOfFile instead of ftruncate. There is no remap
// primitive at all on this platform, so every grow (and every shrink)
// unmaps, resizes the file, and remaps from scratch; the drop-time
// truncation unmaps and resizes the file without remapping.
type fileImpl struct {
	f          *os.File
	mapHandle  windows.Handle
	view       uintptr
	size       int
	backing    int
	elemSize   uintptr
	mapFlags   uint32
	protect    uint32
	viewAccess uint32
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
	capBytes := int64(capElems) * int64(elemSize)
	if capBytes > size {
		if err := f.Truncate(capBytes); err != nil {
			f.Close()
			return nil, &IOError{Op: "SetEndOfFile", Err: err}
		}
	}

	fim := &fileImpl{
		f:          f,
		backing:    backing,
		elemSize:   elemSize,
		protect:    windows.PAGE_READWRITE,
		viewAccess: windows.FILE_MAP_WRITE,
	}
	if err := fim.mapView(int(capBytes)); err != nil {
		f.Close()
		return nil, err
	}
	return fim, nil
}

func (fi *fileImpl) mapView(size int) error {
	sizeHigh := uint32(uint64(size) >> 32)
	sizeLow := uint32(uint64(size))
	h, err := windows.CreateFileMapping(windows.Handle(fi.f.Fd()), nil, fi.protect, sizeHigh, sizeLow, nil)
	if err != nil {
		return &IOError{Op: "CreateFileMapping", Err: err}
	}
	addr, err := windows.MapViewOfFile(h, fi.viewAccess, 0, 0, uintptr(size))
	if err != nil {
		windows.CloseHandle(h)
		return &IOError{Op: "MapViewOfFile", Err: err}
	}
	fi.mapHandle = h
	fi.view = addr
	fi.size = size
	return nil
}

func (fi *fileImpl) unmapView() error {
	if fi.view == 0 {
		return nil
	}
	var err error
	if e := windows.UnmapViewOfFile(fi.view); e != nil {
		err = &IOError{Op: "UnmapViewOfFile", Err: e}
	}
	if e := windows.CloseHandle(fi.mapHandle); e != nil && err == nil {
		err = &IOError{Op: "CloseHandle", Err: e}
	}
	fi.view = 0
	fi.mapHandle = 0
	fi.size = 0
	return err
}

func (fi *fileImpl) bytes() []byte {
	if fi.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(fi.view)), fi.size)
}

func (fi *fileImpl) backingSize() int { return fi.backing }

func (fi *fileImpl) sync(used int) error {
	fi.backing = used
	return nil
}

func (fi *fileImpl) growTo(n int) error {
	newLen := n * int(fi.elemSize)
	if newLen == fi.size {
		return nil
	}
	if err := fi.unmapView(); err != nil {
		return err
	}
	if err := fi.f.Truncate(int64(newLen)); err != nil {
		return &IOError{Op: "SetEndOfFile", Err: err}
	}
	if newLen == 0 {
		return nil
	}
	return fi.mapView(newLen)
}

func (fi *fileImpl) close() error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	newLen := fi.backing * int(fi.elemSize)
	record(fi.unmapView())
	if err := fi.f.Truncate(int64(newLen)); err != nil {
		record(&IOError{Op: "SetEndOfFile", Err: err})
	}
	if err := fi.f.Close(); err != nil {
		record(&IOError{Op: "close", Err: err})
	}
	return firstErr
}
