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

//go:build unix && !linux

package alloc

import "golang.org/x/sys/unix"

// remapAnon is the fallback for platforms without an in-place remap
// primitive (macOS, the BSDs): map a fresh region, copy the live
// bytes, unmap the old one.
func remapAnon(old []byte, newLen int) ([]byte, error) {
	nb, err := unix.Mmap(-1, 0, newLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, &IOError{Op: "mmap", Err: err}
	}
	n := len(old)
	if newLen < n {
		n = newLen
	}
	copy(nb, old[:n])
	if err := unix.Munmap(old); err != nil {
		unix.Munmap(nb)
		return nil, &IOError{Op: "munmap", Err: err}
	}
	return nb, nil
}
