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

// Package identity computes a content Part from a byte stream: a whole-file
// SHA-1 for ordinary ROM files, or a verbatim header SHA-1 short-circuit for
// CHD disc images. The CHD case never decompresses or rehashes disc data —
// it trusts the hash already embedded in the image's header, per the CHD
// format's own self-description.
package identity

import (
	"crypto/sha1"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/romkeep/romkeep/internal/part"
)

// chdMagic is the fixed 8-byte tag at the start of every CHD file.
var chdMagic = [8]byte{'M', 'C', 'o', 'm', 'p', 'r', 'H', 'D'}

// skipAfterVersion is the number of header bytes skipped after the version
// field, per supported CHD header version, before the 20-byte digest that
// Identify reports as the Disk identity. These fixed skips are independent of
// any structured parse of the header (see internal/chdheader, used only by
// the diagnostic CLI, whose per-version field offsets do not line up with
// them): this package reads exactly the bytes the identity model requires and
// no more.
var skipAfterVersion = map[uint32]int64{
	3: 76,
	4: 32,
	5: 100,
}

// ErrUnsupportedCHDVersion describes a file that begins with the CHD magic
// but declares a version this package does not know how to skip past.
// identifyCHD does not return it: it reports that case as a false result,
// and Identify falls back to whole-file hashing.
var ErrUnsupportedCHDVersion = errors.New("unsupported CHD header version")

// Identify returns r's content Part. If r begins with the CHD magic tag and
// a recognized header version, the returned Part is a Disk built from the
// SHA-1 embedded in the header, and the remainder of the stream is not read.
// Otherwise (including a CHD magic followed by an unknown version or a
// header cut short) the returned Part is a Rom built from the SHA-1 of the
// entire stream.
func Identify(r io.Reader) (part.Part, error) {
	br := newPeeker(r)

	prefix, err := br.peek(8)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return part.Part{}, fmt.Errorf("identify: %w", err)
	}

	if len(prefix) == 8 && [8]byte(prefix) == chdMagic {
		p, ok, err := identifyCHD(br)
		if err != nil {
			return part.Part{}, fmt.Errorf("identify: %w", err)
		}
		if ok {
			return p, nil
		}
		// Unsupported version: fall through and hash the whole stream,
		// including the bytes already peeked, as an ordinary ROM.
	}

	return identifyRom(br)
}

// identifyCHD assumes br's next 8 bytes are the CHD magic (already peeked,
// not yet consumed). It first peeks the whole header; if the version is not
// one of the three this package understands, or the stream ends before the
// digest, it returns false with a nil error and consumes nothing. Otherwise
// it consumes the magic, the 4-byte header length (which the spec treats as
// unused), the 4-byte big-endian version, skips the version-specific run of
// header fields, and reads the 20-byte digest.
func identifyCHD(br *peeker) (part.Part, bool, error) {
	// Peek the whole header before consuming anything, so that an unknown
	// version or a truncated header leaves every byte in place for
	// identifyRom to hash from the start.
	hdr, _ := br.peek(16)
	if len(hdr) < 16 {
		return part.Part{}, false, nil
	}
	hdrSkip, known := skipAfterVersion[binary.BigEndian.Uint32(hdr[12:16])]
	if !known {
		return part.Part{}, false, nil
	}
	if full, _ := br.peek(16 + int(hdrSkip) + 20); len(full) < 16+int(hdrSkip)+20 {
		return part.Part{}, false, nil
	}

	if _, err := br.discard(8); err != nil { // magic
		return part.Part{}, false, err
	}
	if _, err := br.discard(4); err != nil { // header length, unused
		return part.Part{}, false, err
	}

	versionBuf, err := br.readN(4)
	if err != nil {
		return part.Part{}, false, err
	}
	version := binary.BigEndian.Uint32(versionBuf)

	skip, ok := skipAfterVersion[version]
	if !ok {
		return part.Part{}, false, nil
	}
	if _, err := br.discard(int(skip)); err != nil {
		return part.Part{}, false, err
	}

	sha1Buf, err := br.readN(20)
	if err != nil {
		return part.Part{}, false, err
	}

	return part.Part{Kind: part.Disk, SHA1: [20]byte(sha1Buf)}, true, nil
}

// identifyRom hashes the entire remaining stream of br, including any bytes
// already buffered by a prior peek.
func identifyRom(br *peeker) (part.Part, error) {
	h := sha1.New()
	if _, err := io.Copy(h, br); err != nil {
		return part.Part{}, fmt.Errorf("hash content: %w", err)
	}
	var sum [20]byte
	copy(sum[:], h.Sum(nil))
	return part.Part{Kind: part.Rom, SHA1: sum}, nil
}
