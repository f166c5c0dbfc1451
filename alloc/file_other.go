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

import (
	"os"

	"golang.org/x/sys/unix"
)

// extendFile grows the file to newLen. There is no fallocate-style
// primitive available on this platform through x/sys/unix; the file
// is simply truncate-extended and left sparse.
func extendFile(f *os.File, newLen int64) error {
	if err := f.Truncate(newLen); err != nil {
		return &IOError{Op: "ftruncate", Err: err}
	}
	return nil
}

// remapFile on platforms without mremap (macOS, the BSDs) maps the
// file at the new length and only then unmaps old, mirroring
// remapAnon's copy-fallback ordering in anon_copy_unix.go: mapping
// old and new is never unmapped before a replacement exists, so a
// failure after this point always leaves exactly one of old/new
// mapped and the caller never has to guess which one to release.
func remapFile(f *os.File, old []byte, newLen int) ([]byte, error) {
	if newLen == 0 {
		if len(old) > 0 {
			if err := unix.Munmap(old); err != nil {
				return nil, &IOError{Op: "munmap", Err: err}
			}
		}
		return nil, nil
	}
	nb, err := unix.Mmap(int(f.Fd()), 0, newLen, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &IOError{Op: "mmap", Err: err}
	}
	if len(old) > 0 {
		if err := unix.Munmap(old); err != nil {
			unix.Munmap(nb)
			return nil, &IOError{Op: "munmap", Err: err}
		}
	}
	return nb, nil
}
