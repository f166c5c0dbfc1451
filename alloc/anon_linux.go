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

import "golang.org/x/sys/unix"

// remapAnon grows an anonymous mapping in place when the kernel can
// do so, falling back to moving it only when necessary — this is what
// Mremap(..., MREMAP_MAYMOVE) already does for us.
func remapAnon(old []byte, newLen int) ([]byte, error) {
	nb, err := unix.Mremap(old, newLen, unix.MREMAP_MAYMOVE)
	if err != nil {
		return nil, &IOError{Op: "mremap", Err: err}
	}
	return nb, nil
}
