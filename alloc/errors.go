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

package alloc

import (
	"errors"
	"fmt"
)

// ErrAllocationFailure is returned when the Heap backend cannot obtain
// or grow its buffer. A refused memory mapping is a failing operating
// system call and surfaces as an *IOError instead.
var ErrAllocationFailure = errors.New("allocation failure")

// ErrCorruptedFile is returned by NewFileMap when the file's length is
// not a multiple of the element size.
var ErrCorruptedFile = errors.New("corrupted file: length is not a multiple of element size")

// IOError wraps a failing operating system call with the name of the
// operation that failed, so callers can still errors.Is/As against the
// underlying error while knowing which syscall was responsible.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}
