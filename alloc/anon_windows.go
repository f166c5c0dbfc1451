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
	"unsafe"

	"golang.org/x/sys/windows"
)

// anonImpl on Windows has no remap-in-place primitive at all (unlike
// linux's mremap), so every grow commits a fresh region and copies,
// exactly like the unix copy-fallback path.
type anonImpl struct {
	base     uintptr
	size     int
	elemSize uintptr
}

func newAnonImpl(elemSize uintptr, initialElems int) (*anonImpl, error) {
	n := initialElems * int(elemSize)
	base, err := windows.VirtualAlloc(0, uintptr(n), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return nil, &IOError{Op: "VirtualAlloc", Err: err}
	}
	return &anonImpl{base: base, size: n, elemSize: elemSize}, nil
}

func (a *anonImpl) bytes() []byte {
	if a.size == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(a.base)), a.size)
}

func (a *anonImpl) backingSize() int { return 0 }
func (a *anonImpl) sync(int) error   { return nil }

func (a *anonImpl) growTo(n int) error {
	newLen := n * int(a.elemSize)
	if newLen <= a.size {
		return nil
	}
	nbase, err := windows.VirtualAlloc(0, uintptr(newLen), windows.MEM_COMMIT|windows.MEM_RESERVE, windows.PAGE_READWRITE)
	if err != nil {
		return &IOError{Op: "VirtualAlloc", Err: err}
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(nbase)), newLen), a.bytes())
	if a.size > 0 {
		if err := windows.VirtualFree(a.base, 0, windows.MEM_RELEASE); err != nil {
			windows.VirtualFree(nbase, 0, windows.MEM_RELEASE)
			return &IOError{Op: "VirtualFree", Err: err}
		}
	}
	a.base = nbase
	a.size = newLen
	return nil
}

func (a *anonImpl) close() error {
	if a.size == 0 {
		return nil
	}
	err := windows.VirtualFree(a.base, 0, windows.MEM_RELEASE)
	a.size = 0
	if err != nil {
		return &IOError{Op: "VirtualFree", Err: err}
	}
	return nil
}
