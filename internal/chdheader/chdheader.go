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

// Package chdheader is a read-only CHD structure inspector used by the
// "chd-info" diagnostic command. It parses the header and reports the
// hunk map's shape (hunk count, compressed vs. uncompressed map size), but
// never decompresses a hunk's payload and is not used by internal/identity,
// which implements the spec's own fixed-offset byte skip independently of
// any structured header layout.
package chdheader

import (
	"errors"
	"fmt"
	"io"

	rbinary "github.com/romkeep/romkeep/internal/binary"
)

var chdMagic = [8]byte{'M', 'C', 'o', 'm', 'p', 'r', 'H', 'D'}

var (
	ErrInvalidMagic       = errors.New("invalid CHD magic: expected MComprHD")
	ErrUnsupportedVersion = errors.New("unsupported CHD version")
)

// Header is the structured, version-independent view of a CHD header: only
// the fields that exist (with consistent meaning) across all three
// supported versions, plus the V5-only compressor tags.
type Header struct {
	Version      uint32
	HeaderSize   uint32
	Compressors  [4]uint32 // V5 only; zero for V3/V4
	LogicalBytes uint64
	MapOffset    uint64
	HunkBytes    uint32
	TotalHunks   uint32 // V3/V4 only; V5 computes NumHunks from LogicalBytes/HunkBytes
	RawSHA1      [20]byte
	SHA1         [20]byte
	ParentSHA1   [20]byte
}

// NumHunks returns the header's hunk count, computing it from LogicalBytes
// for V5 (which doesn't store it directly) and returning TotalHunks for
// V3/V4.
func (h Header) NumHunks() uint32 {
	if h.Version != 5 {
		return h.TotalHunks
	}
	if h.HunkBytes == 0 {
		return 0
	}
	return uint32((h.LogicalBytes + uint64(h.HunkBytes) - 1) / uint64(h.HunkBytes))
}

// HunkMapShape describes the hunk map's size without decoding any entry.
type HunkMapShape struct {
	NumHunks          uint32
	UncompressedBytes int64 // V3/V4: numHunks * 16-byte fixed entries
	CompressedBytes   int64 // V5: the map's own declared compressed length; 0 for V3/V4
}

// Parse reads and validates a CHD header from r, which must support random
// access because the V5 layout is read as one fixed-size block while V3/V4
// headers vary by declared HeaderSize.
func Parse(r io.ReaderAt) (Header, error) {
	magic, err := rbinary.ReadBytesAt(r, 0, 8)
	if err != nil {
		return Header{}, fmt.Errorf("chdheader: %w", err)
	}
	if [8]byte(magic) != chdMagic {
		return Header{}, ErrInvalidMagic
	}

	headerSize, err := rbinary.ReadUint32BEAt(r, 8)
	if err != nil {
		return Header{}, fmt.Errorf("chdheader: %w", err)
	}
	version, err := rbinary.ReadUint32BEAt(r, 12)
	if err != nil {
		return Header{}, fmt.Errorf("chdheader: %w", err)
	}

	h := Header{Version: version, HeaderSize: headerSize}

	switch version {
	case 5:
		err = parseV5(r, &h)
	case 4:
		err = parseV4(r, &h)
	case 3:
		err = parseV3(r, &h)
	default:
		return Header{}, fmt.Errorf("chdheader: %w: version %d", ErrUnsupportedVersion, version)
	}
	if err != nil {
		return Header{}, fmt.Errorf("chdheader: %w", err)
	}

	return h, nil
}

// parseV5 reads the fields at their fixed V5 offsets (see the teacher's
// chd/header.go, whose documented layout this mirrors).
func parseV5(r io.ReaderAt, h *Header) error {
	for i := range h.Compressors {
		v, err := rbinary.ReadUint32BEAt(r, int64(0x10+4*i))
		if err != nil {
			return err
		}
		h.Compressors[i] = v
	}

	logicalBytes, err := readUint64BEAt(r, 0x20)
	if err != nil {
		return err
	}
	h.LogicalBytes = logicalBytes

	mapOffset, err := readUint64BEAt(r, 0x28)
	if err != nil {
		return err
	}
	h.MapOffset = mapOffset

	hunkBytes, err := rbinary.ReadUint32BEAt(r, 0x38)
	if err != nil {
		return err
	}
	h.HunkBytes = hunkBytes

	rawSHA1, err := rbinary.ReadBytesAt(r, 0x40, 20)
	if err != nil {
		return err
	}
	copy(h.RawSHA1[:], rawSHA1)

	sha1, err := rbinary.ReadBytesAt(r, 0x54, 20)
	if err != nil {
		return err
	}
	copy(h.SHA1[:], sha1)

	parentSHA1, err := rbinary.ReadBytesAt(r, 0x68, 20)
	if err != nil {
		return err
	}
	copy(h.ParentSHA1[:], parentSHA1)

	return nil
}

// parseV4 reads the fields at their fixed V4 offsets.
func parseV4(r io.ReaderAt, h *Header) error {
	totalHunks, err := rbinary.ReadUint32BEAt(r, 0x18)
	if err != nil {
		return err
	}
	h.TotalHunks = totalHunks

	logicalBytes, err := readUint64BEAt(r, 0x1C)
	if err != nil {
		return err
	}
	h.LogicalBytes = logicalBytes

	hunkBytes, err := rbinary.ReadUint32BEAt(r, 0x2C)
	if err != nil {
		return err
	}
	h.HunkBytes = hunkBytes
	h.MapOffset = uint64(h.HeaderSize)

	sha1, err := rbinary.ReadBytesAt(r, 0x30, 20)
	if err != nil {
		return err
	}
	copy(h.SHA1[:], sha1)

	parentSHA1, err := rbinary.ReadBytesAt(r, 0x44, 20)
	if err != nil {
		return err
	}
	copy(h.ParentSHA1[:], parentSHA1)

	rawSHA1, err := rbinary.ReadBytesAt(r, 0x58, 20)
	if err != nil {
		return err
	}
	copy(h.RawSHA1[:], rawSHA1)

	return nil
}

// parseV3 reads the fields at their fixed V3 offsets.
func parseV3(r io.ReaderAt, h *Header) error {
	totalHunks, err := rbinary.ReadUint32BEAt(r, 0x18)
	if err != nil {
		return err
	}
	h.TotalHunks = totalHunks

	logicalBytes, err := readUint64BEAt(r, 0x1C)
	if err != nil {
		return err
	}
	h.LogicalBytes = logicalBytes

	hunkBytes, err := rbinary.ReadUint32BEAt(r, 0x4C)
	if err != nil {
		return err
	}
	h.HunkBytes = hunkBytes
	h.MapOffset = uint64(h.HeaderSize)

	sha1, err := rbinary.ReadBytesAt(r, 0x50, 20)
	if err != nil {
		return err
	}
	copy(h.SHA1[:], sha1)

	parentSHA1, err := rbinary.ReadBytesAt(r, 0x64, 20)
	if err != nil {
		return err
	}
	copy(h.ParentSHA1[:], parentSHA1)

	return nil
}

// MapShape reports the hunk map's size for h without decoding any entry:
// for V3/V4 the map is an uncompressed array of fixed 16-byte records, for
// V5 it is itself a compressed block whose length is stored in its own
// 16-byte map header.
func MapShape(r io.ReaderAt, h Header) (HunkMapShape, error) {
	numHunks := h.NumHunks()
	shape := HunkMapShape{NumHunks: numHunks}

	if h.Version != 5 {
		shape.UncompressedBytes = int64(numHunks) * 16
		return shape, nil
	}

	compLen, err := rbinary.ReadUint32BEAt(r, int64(h.MapOffset))
	if err != nil {
		return HunkMapShape{}, fmt.Errorf("chdheader: read map header: %w", err)
	}
	shape.CompressedBytes = int64(compLen)
	return shape, nil
}

func readUint64BEAt(r io.ReaderAt, offset int64) (uint64, error) {
	buf, err := rbinary.ReadBytesAt(r, offset, 8)
	if err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}
