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

import "errors"

// ErrOutOfRange is returned by a checked index access when the index
// is >= the vector's current size. It is the only error expected
// during normal operation; everything else indicates an
// environmental or programmer fault.
var ErrOutOfRange = errors.New("index out of range")

// ErrNotSupportedInConcurrentMode is returned by Concurrent methods
// that require an authoritative element count or would invalidate
// outstanding index reservations (pop, clear, resize, shrink, move,
// emplace, checked index access).
var ErrNotSupportedInConcurrentMode = errors.New("not supported in concurrent mode")
