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

//go:build linux

package alloc

import (
	"os"

	"golang.org/x/sys/unix"
)

// extendFile grows the file to newLen and then fallocates the new
// range so the blocks are actually backed by disk, not sparse: a
// later mmap'd write into a truncate-extended-but-unbacked region can
// SIGBUS on ENOSPC instead of returning a normal write error.
func extendFile(f *os.File, newLen int64) error {
	if err := f.Truncate(newLen); err != nil {
		return &IOError{Op: "ftruncate", Err: err}
	}
	if err := unix.Fallocate(int(f.Fd()), 0, 0, newLen); err != nil {
		return &IOError{Op: "fallocate", Err: err}
	}
	return nil
}

func remapFile(f *os.File, old []byte, newLen int) ([]byte, error) {
	if newLen == 0 {
		if len(old) > 0 {
			if err := unix.Munmap(old); err != nil {
				return nil, &IOError{Op: "munmap", Err: err}
			}
		}
		return nil, nil
	}
	if len(old) == 0 {
		nb, err := unix.Mmap(int(f.Fd()), 0, newLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
		if err != nil {
			return nil, &IOError{Op: "mmap", Err: err}
		}
		return nb, nil
	}
	nb, err := unix.Mremap(old, newLen, unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil, &IOError{Op: "mremap", Err: err}
	}
	return nb, nil
}
