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
	"golang.org/x/sys/unix"
)

// anonImpl is a private anonymous mapping, grown via remapAnon (which
// is mremap-backed on linux and copy-backed everywhere else unix has
// no in-place remap primitive; see anon_linux.go / anon_copy_unix.go).
type anonImpl struct {
	buf      []byte
	elemSize uintptr
}

func newAnonImpl(elemSize uintptr, initialElems int) (*anonImpl, error) {
	n := initialElems * int(elemSize)
	buf, err := unix.Mmap(-1, 0, n, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, &IOError{Op: "mmap", Err: err}
	}
	return &anonImpl{buf: buf, elemSize: elemSize}, nil
}

func (a *anonImpl) bytes() []byte    { return a.buf }
func (a *anonImpl) backingSize() int { return 0 }
func (a *anonImpl) sync(int) error   { return nil }

func (a *anonImpl) growTo(n int) error {
	newLen := n * int(a.elemSize)
	if newLen <= len(a.buf) {
		return nil
	}
	nb, err := remapAnon(a.buf, newLen)
	if err != nil {
		return err
	}
	a.buf = nb
	return nil
}

func (a *anonImpl) close() error {
	if len(a.buf) == 0 {
		return nil
	}
	err := unix.Munmap(a.buf)
	a.buf = nil
	if err != nil {
		return &IOError{Op: "munmap", Err: err}
	}
	return nil
}
