// Copyright (c) 2026 The romkeep Authors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of romkeep.
//
// romkeep is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// romkeep is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with romkeep.  If not, see <https://www.gnu.org/licenses/>.

package catalog

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
)

// Load reads a GameDb persisted at path as a gzip-compressed gob stream.
// Building that catalog in the first place (parsing upstream DAT/XML) is
// outside this package's scope; Load only round-trips a GameDb someone else
// already produced.
func Load(path string) (*GameDb, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader decodes a GameDb from a gzip-compressed gob stream.
func LoadFromReader(r io.Reader) (*GameDb, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("catalog: gzip reader: %w", err)
	}
	defer gz.Close()

	db := &GameDb{Games: make(map[string]Game)}
	if err := gob.NewDecoder(gz).Decode(db); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return db, nil
}

// Save persists db at path as a gzip-compressed gob stream, the inverse of
// Load.
func Save(db *GameDb, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("catalog: create %s: %w", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	defer gz.Close()

	if err := gob.NewEncoder(gz).Encode(db); err != nil {
		return fmt.Errorf("catalog: encode: %w", err)
	}
	return nil
}
