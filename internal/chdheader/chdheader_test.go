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

package chdheader

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// buildV5 constructs a minimal, syntactically valid CHD V5 header followed
// by a map header declaring a given compressed length.
func buildV5(t *testing.T, logicalBytes uint64, hunkBytes uint32, compMapLen uint32) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("MComprHD")
	binary.Write(&buf, binary.BigEndian, uint32(124)) // header size
	binary.Write(&buf, binary.BigEndian, uint32(5))   // version

	for i := 0; i < 4; i++ {
		binary.Write(&buf, binary.BigEndian, uint32(1)) // compressor tags
	}
	binary.Write(&buf, binary.BigEndian, logicalBytes)
	mapOffset := uint64(124)
	binary.Write(&buf, binary.BigEndian, mapOffset)
	binary.Write(&buf, binary.BigEndian, uint64(0)) // meta offset
	binary.Write(&buf, binary.BigEndian, hunkBytes)
	binary.Write(&buf, binary.BigEndian, uint32(2048)) // unit bytes

	buf.Write(make([]byte, 20)) // raw sha1
	buf.Write(make([]byte, 20)) // sha1
	buf.Write(make([]byte, 20)) // parent sha1

	// map header at offset 124: compressed map length + 12 bytes of filler.
	binary.Write(&buf, binary.BigEndian, compMapLen)
	buf.Write(make([]byte, 12))

	return buf.Bytes()
}

func TestParseV5AndMapShape(t *testing.T) {
	data := buildV5(t, 1<<20, 19584, 4096)

	h, err := Parse(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if h.Version != 5 {
		t.Fatalf("Version = %d, want 5", h.Version)
	}
	if h.HunkBytes != 19584 {
		t.Fatalf("HunkBytes = %d, want 19584", h.HunkBytes)
	}

	wantHunks := uint32((1<<20 + 19583) / 19584)
	if h.NumHunks() != wantHunks {
		t.Fatalf("NumHunks() = %d, want %d", h.NumHunks(), wantHunks)
	}

	shape, err := MapShape(bytes.NewReader(data), h)
	if err != nil {
		t.Fatalf("MapShape: %v", err)
	}
	if shape.CompressedBytes != 4096 {
		t.Fatalf("CompressedBytes = %d, want 4096", shape.CompressedBytes)
	}
	if shape.NumHunks != wantHunks {
		t.Fatalf("shape.NumHunks = %d, want %d", shape.NumHunks, wantHunks)
	}
}

func TestParseRejectsBadMagic(t *testing.T) {
	_, err := Parse(bytes.NewReader([]byte("NotACHD!" + "\x00\x00\x00\x00\x00\x00\x00\x05")))
	if err != ErrInvalidMagic {
		t.Fatalf("expected ErrInvalidMagic, got %v", err)
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("MComprHD")
	binary.Write(&buf, binary.BigEndian, uint32(120))
	binary.Write(&buf, binary.BigEndian, uint32(99))

	_, err := Parse(bytes.NewReader(buf.Bytes()))
	if err == nil {
		t.Fatalf("expected an error for an unsupported version")
	}
}
