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

package identity

import (
	"bytes"
	"testing"
)

// FuzzIdentify feeds arbitrary byte strings, including ones that begin with
// the CHD magic but carry garbage version/header bytes, through Identify.
// The only contract under fuzzing is "never panic, never hang" — Identify
// must degrade to whole-stream hashing for anything it doesn't recognize.
func FuzzIdentify(f *testing.F) {
	f.Add([]byte(""))
	f.Add([]byte("abc"))
	f.Add([]byte("MComprHD"))
	f.Add(append([]byte("MComprHD"), make([]byte, 200)...))

	f.Fuzz(func(t *testing.T, data []byte) {
		if _, err := Identify(bytes.NewReader(data)); err != nil {
			t.Fatalf("Identify returned error for input len %d: %v", len(data), err)
		}
	})
}
