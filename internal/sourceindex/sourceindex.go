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

// Package sourceindex walks a tree of candidate directories and builds a
// map from every Part it finds to a place that Part's bytes can be read
// back from — a plain file, or a member inside a ZIP/7z/RAR archive,
// including one level of archive nested inside another archive. This is
// the supply side the Reconciler draws from when it needs to materialize a
// missing part into a game's directory.
package sourceindex

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/romkeep/romkeep/archive"
	"github.com/romkeep/romkeep/internal/fileid"
	"github.com/romkeep/romkeep/internal/idcache"
	"github.com/romkeep/romkeep/internal/identity"
	"github.com/romkeep/romkeep/internal/part"
)

// RomSource locates the readable bytes of a previously identified Part.
// It is a closed set of three shapes, mirroring a file living at one of
// three depths: on disk directly, one archive deep, or one archive nested
// inside another.
type RomSource struct {
	// Path is the filesystem path of the plain file, or of the
	// outermost archive that contains the part.
	Path string

	// Member is the name of the part within Path, if Path is an
	// archive. Empty for a plain file.
	Member string

	// SubMember is the name of the part within the archive found at
	// Member, if that member is itself an archive. Empty unless the
	// part is nested two levels deep (an archive inside an archive).
	SubMember string

	// HasXattr records whether the plain file already carries a cached
	// identity attribute, letting the Reconciler skip rewriting it
	// after a hardlink. Meaningless for archive members.
	HasXattr bool
}

// IsPlainFile reports whether the source is an ordinary file rather than
// an archive member.
func (s RomSource) IsPlainFile() bool {
	return s.Member == ""
}

// RomSources maps every Part discovered during indexing to one place its
// bytes can be read back from. If the same Part is found more than once,
// the last source discovered overwrites any earlier one; romkeep never
// needs more than one readable copy of a given Part to satisfy a
// Reconciler request, and the sources are interchangeable by definition.
type RomSources map[part.Part]RomSource

// maxArchiveNesting is the deepest an archive-within-archive chain is
// followed. One level (an archive inside an archive) covers every real
// collection romkeep has needed to index; deeper nesting is vanishingly
// rare and risks unbounded recursion on a maliciously crafted archive.
const maxArchiveNesting = 1

// Build walks every root directory and returns the RomSources it finds.
// Cataloging of distinct top-level files is parallelized; concurrency is
// bounded by GOMAXPROCS since cataloging is a mix of I/O and hashing.
func Build(ctx context.Context, roots []string, cache *idcache.Cache) (RomSources, error) {
	sources := make(RomSources)
	var mu sync.Mutex

	seen := make(map[fileid.FileId]bool)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, root := range roots {
		root := root
		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return fmt.Errorf("walk %s: %w", path, err)
			}
			if d.IsDir() {
				return nil
			}

			info, err := d.Info()
			if err != nil {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			id, err := fileid.Of(info)
			if err == nil {
				mu.Lock()
				dup := seen[id]
				seen[id] = true
				mu.Unlock()
				if dup {
					return nil
				}
			}

			g.Go(func() error {
				found, err := catalogFile(path, cache)
				if err != nil {
					return fmt.Errorf("catalog %s: %w", path, err)
				}
				mu.Lock()
				for p, src := range found {
					sources[p] = src
				}
				mu.Unlock()
				return nil
			})

			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return sources, nil
}

// catalogFile identifies one top-level filesystem entry, returning every
// Part it yields. A plain file yields exactly one Part. An archive yields
// its own whole-file Part as a plain File source, *plus* one Part per
// member (and nested member): the archive's bytes are themselves a valid
// source for its own content hash, in addition to whatever its members
// unpack to.
func catalogFile(path string, cache *idcache.Cache) (RomSources, error) {
	wholeFile, err := cache.Identify(path)
	if err != nil {
		return nil, err
	}
	found := RomSources{wholeFile: {Path: path, HasXattr: idcache.HasXattr(path)}}

	ext, ok := sniffArchiveExtension(path)
	if !ok {
		return found, nil
	}

	members, err := catalogArchive(path, ext, 0)
	if err != nil {
		return nil, err
	}
	for p, src := range members {
		found[p] = src
	}
	return found, nil
}

// sniffArchiveExtension reports whether path is a supported archive,
// peeking its content rather than trusting its extension (a renamed or
// extensionless container must still be recognized).
func sniffArchiveExtension(path string) (string, bool) {
	f, err := os.Open(path)
	if err != nil {
		return "", false
	}
	defer f.Close()

	ext, ok := archive.Sniff(f)
	if ok {
		return ext, true
	}

	// Fall back to the extension for archive kinds Sniff may not
	// recognize from a truncated or oddly-aligned read.
	ext = filepath.Ext(path)
	if archive.IsArchiveExtension(ext) {
		return ext, true
	}
	return "", false
}

// catalogArchive opens the archive at path and identifies every member,
// recursing into members that are themselves archives up to
// maxArchiveNesting levels deep.
func catalogArchive(path, ext string, depth int) (RomSources, error) {
	arc, err := openByExt(path, ext)
	if err != nil {
		return nil, err
	}
	defer arc.Close()

	entries, err := arc.List()
	if err != nil {
		return nil, fmt.Errorf("list archive %s: %w", path, err)
	}

	found := make(RomSources)

	for _, entry := range entries {
		if depth < maxArchiveNesting {
			isArchive, nested, err := catalogIfNestedArchive(arc, entry.Name)
			if err != nil {
				return nil, fmt.Errorf("nested archive %s in %s: %w", entry.Name, path, err)
			}
			if isArchive {
				for p, sub := range nested {
					found[p] = RomSource{Path: path, Member: entry.Name, SubMember: sub.Member}
				}
				continue
			}
		}

		r, _, err := arc.Open(entry.Name)
		if err != nil {
			return nil, fmt.Errorf("open %s in %s: %w", entry.Name, path, err)
		}
		p, err := identity.Identify(r)
		_ = r.Close()
		if err != nil {
			return nil, fmt.Errorf("identify %s in %s: %w", entry.Name, path, err)
		}
		found[p] = RomSource{Path: path, Member: entry.Name}
	}

	return found, nil
}

// catalogIfNestedArchive peeks memberName's content; if it's a supported
// archive signature, the member is buffered out to a temporary file (the
// archive libraries in use need a real path or a full in-memory ReaderAt,
// not a sequential stream) and cataloged recursively. The temporary file is
// removed before this function returns.
func catalogIfNestedArchive(arc archive.Archive, memberName string) (bool, RomSources, error) {
	r, _, err := arc.Open(memberName)
	if err != nil {
		return false, nil, err
	}
	defer r.Close()

	memberExt, isArchive := archive.Sniff(r)
	if !isArchive {
		return false, nil, nil
	}

	tmp, err := os.CreateTemp("", "romkeep-nested-*"+memberExt)
	if err != nil {
		return false, nil, fmt.Errorf("buffer nested archive member: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	// Sniff already consumed the magic bytes from r; rewind by
	// re-opening the member so the temp file gets the full content.
	_ = tmp.Close()
	full, _, err := arc.Open(memberName)
	if err != nil {
		return false, nil, err
	}
	defer full.Close()

	if err := writeFile(tmpPath, full); err != nil {
		return false, nil, err
	}

	nested, err := catalogArchive(tmpPath, memberExt, maxArchiveNesting)
	if err != nil {
		return false, nil, err
	}

	return true, nested, nil
}

func writeFile(path string, r io.Reader) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("open temp file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	return nil
}

func openByExt(path, ext string) (archive.Archive, error) {
	switch ext {
	case ".zip":
		return archive.OpenZIP(path)
	case ".7z":
		return archive.OpenSevenZip(path)
	case ".rar":
		return archive.OpenRAR(path)
	default:
		return nil, archive.FormatError{Format: ext}
	}
}
