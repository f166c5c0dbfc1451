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
	"io"
	"os"

	"sigs.k8s.io/yaml"
)

// AnonMapConfig configures a private anonymous memory-mapped
// allocator. There is nothing to configure beyond the logger today;
// the struct exists so construction has the same shape as
// FileMapConfig and so future flags (e.g. huge pages) have a home.
type AnonMapConfig struct {
	Logger Logger `json:"-"`
}

// FileMapConfig configures a file-backed memory-mapped allocator.
// Zero values pick sensible defaults: MapFlags defaults to a shared
// mapping, OpenFlags to read-write-create, Mode to 0644.
type FileMapConfig struct {
	// Path is the file that backs the mapping.
	Path string `json:"path"`

	// MapFlags are passed to the mmap call that maps the file at
	// open on unix. Zero means "shared mapping" (the only sane
	// default for a vector that's meant to be durable). A mapping
	// created afresh later (every grow on non-linux unix, or a grow
	// from zero capacity on linux) is always shared, and the Windows
	// backend does not read MapFlags.
	MapFlags int `json:"mapFlags"`

	// OpenFlags are passed to os.OpenFile. Zero means
	// os.O_RDWR|os.O_CREATE.
	OpenFlags int `json:"openFlags"`

	// Mode is used when OpenFlags includes os.O_CREATE and the file
	// doesn't yet exist. Zero means 0644.
	Mode os.FileMode `json:"mode"`

	Logger Logger `json:"-"`
}

// LoadFileMapConfig parses a YAML document into a FileMapConfig. This
// is a convenience for callers that assemble vector configuration
// from an external settings file; direct struct construction remains
// the primary, and only required, path.
func LoadFileMapConfig(r io.Reader) (FileMapConfig, error) {
	var cfg FileMapConfig
	buf, err := io.ReadAll(r)
	if err != nil {
		return cfg, &IOError{Op: "read", Err: err}
	}
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
