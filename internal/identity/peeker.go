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

import "io"

// peeker lets Identify inspect the first bytes of a stream, then either
// consume them as part of a CHD header or feed them back into the SHA-1
// hash as ordinary content — without requiring the source to be seekable.
// This matters because romkeep identifies members inside archives, which
// are rarely io.Seeker.
type peeker struct {
	r      io.Reader
	buf    []byte // bytes read ahead but not yet consumed
	bufOff int
}

func newPeeker(r io.Reader) *peeker {
	return &peeker{r: r}
}

// peek returns up to n bytes without consuming them. A short slice (with a
// trailing io.EOF or io.ErrUnexpectedEOF) is returned if the stream ends
// before n bytes are available.
func (p *peeker) peek(n int) ([]byte, error) {
	if avail := len(p.buf) - p.bufOff; avail < n {
		need := n - avail
		extra := make([]byte, need)
		read, err := io.ReadFull(p.r, extra)
		p.buf = append(p.buf[p.bufOff:], extra[:read]...)
		p.bufOff = 0
		if err != nil {
			return p.buf, err
		}
	}
	end := p.bufOff + n
	if end > len(p.buf) {
		end = len(p.buf)
	}
	return p.buf[p.bufOff:end], nil
}

// discard consumes and drops up to n bytes, reading from the underlying
// reader once the peek buffer is exhausted.
func (p *peeker) discard(n int) (int, error) {
	buf, err := p.readN(n)
	return len(buf), err
}

// readN consumes and returns exactly n bytes, or an error if fewer remain.
func (p *peeker) readN(n int) ([]byte, error) {
	out := make([]byte, n)
	read, err := io.ReadFull(p, out)
	return out[:read], err
}

// Read implements io.Reader, draining the peek buffer before falling
// through to the underlying reader.
func (p *peeker) Read(out []byte) (int, error) {
	if p.bufOff < len(p.buf) {
		n := copy(out, p.buf[p.bufOff:])
		p.bufOff += n
		if p.bufOff == len(p.buf) {
			p.buf = nil
			p.bufOff = 0
		}
		return n, nil
	}
	return p.r.Read(out)
}
