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

// Package idcache memoizes the mapping from a file's current content to its
// Part, so that a large tree doesn't pay the cost of re-hashing every file
// on every run. It has two tiers: a persistent one stored as an extended
// attribute on the file itself, and an in-process one keyed by the file's
// (device, inode) identity. Neither tier is consulted unless the caller
// asks for the cached path; Identify (via internal/identity) is always
// available as the ground truth the cache is merely shortcutting.
package idcache

import (
	"fmt"
	"os"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/xattr"

	"github.com/romkeep/romkeep/internal/fileid"
	"github.com/romkeep/romkeep/internal/identity"
	"github.com/romkeep/romkeep/internal/part"
)

// xattrName is the extended attribute under which a Part is persisted.
const xattrName = "user.emupart"

// defaultInProcessCapacity bounds the in-process tier so that scanning a
// multi-million-file tree cannot grow unbounded memory; the persistent
// xattr tier has no such bound since it lives on disk, one entry per file.
const defaultInProcessCapacity = 1 << 20

// Cache is the two-tier identity cache. The zero value is not usable; call
// New.
type Cache struct {
	mem *lru.Cache[fileid.FileId, part.Part]
}

// New creates a Cache with the default in-process capacity.
func New() (*Cache, error) {
	return NewWithCapacity(defaultInProcessCapacity)
}

// NewWithCapacity creates a Cache whose in-process tier holds at most n
// entries, evicting least-recently-used entries beyond that.
func NewWithCapacity(n int) (*Cache, error) {
	mem, err := lru.New[fileid.FileId, part.Part](n)
	if err != nil {
		return nil, fmt.Errorf("idcache: %w", err)
	}
	return &Cache{mem: mem}, nil
}

// Identify returns path's content Part, consulting (and populating) both
// cache tiers. The in-process tier is checked first since it costs no
// syscall; a miss there falls through to the persistent xattr tier; a miss
// there falls through to actually hashing the file, after which both tiers
// are populated.
//
// This is a get-then-insert pattern, not an atomic compute-if-absent: two
// goroutines racing on the same never-before-seen file may both hash it and
// both write the result. That's fine — the result is the same either way,
// and the alternative (holding a lock across a potentially large file read)
// would serialize unrelated files behind slow I/O.
func (c *Cache) Identify(path string) (part.Part, error) {
	info, err := os.Stat(path)
	if err != nil {
		return part.Part{}, fmt.Errorf("idcache: %w", err)
	}

	id, err := fileid.Of(info)
	if err != nil {
		return part.Part{}, fmt.Errorf("idcache: %w", err)
	}

	if p, ok := c.mem.Get(id); ok {
		return p, nil
	}

	if p, ok := readXattr(path); ok {
		c.mem.Add(id, p)
		return p, nil
	}

	p, err := c.IdentifyUncached(path)
	if err != nil {
		return part.Part{}, err
	}

	c.mem.Add(id, p)
	writeXattr(path, p) // best-effort; a failure here never fails Identify

	return p, nil
}

// IdentifyUncached always rehashes path's content, bypassing both cache
// tiers. Its result must equal what Identify would eventually settle on for
// the same unmodified file; it exists for callers (such as the Reconciler's
// cleanup pass) that must not trust a possibly-stale cache entry.
func (c *Cache) IdentifyUncached(path string) (part.Part, error) {
	f, err := os.Open(path)
	if err != nil {
		return part.Part{}, fmt.Errorf("idcache: %w", err)
	}
	defer f.Close()

	p, err := identity.Identify(f)
	if err != nil {
		return part.Part{}, fmt.Errorf("idcache: %s: %w", path, err)
	}
	return p, nil
}

// readXattr returns the Part persisted on path's extended attribute, if
// present and well-formed. Any failure (attribute absent, filesystem
// doesn't support xattrs, corrupt value) is reported as a plain miss: the
// cache degrades to rehashing rather than surfacing a cache-layer error.
func readXattr(path string) (part.Part, bool) {
	data, err := xattr.LGet(path, xattrName)
	if err != nil {
		return part.Part{}, false
	}
	var p part.Part
	if err := p.UnmarshalBinary(data); err != nil {
		return part.Part{}, false
	}
	return p, true
}

// writeXattr persists p on path's extended attribute. Errors are swallowed:
// a read-only filesystem or one without xattr support must not turn a
// successful identification into a failure, it just means the next run
// pays the hashing cost again.
func writeXattr(path string, p part.Part) {
	data, err := p.MarshalBinary()
	if err != nil {
		return
	}
	_ = xattr.LSet(path, xattrName, data)
}

// WriteXattr persists p as path's cached-identity attribute, ignoring any
// failure. Exported so the Reconciler can tag a freshly materialized file
// without constructing a Cache (the in-process tier is irrelevant here:
// the caller already knows p, it isn't hashing anything).
func WriteXattr(path string, p part.Part) {
	writeXattr(path, p)
}

// HasXattr reports whether path currently carries a well-formed cached
// identity attribute, without going through either in-memory tier. The
// Reconciler uses this to decide whether a freshly hardlinked file can skip
// rewriting the attribute it already inherited from its source.
func HasXattr(path string) bool {
	_, ok := readXattr(path)
	return ok
}
