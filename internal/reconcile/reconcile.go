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

// Package reconcile implements add-and-verify: making a game's directory
// match its manifest by pulling missing or incorrect parts in from a
// RomSources index, then verifying what's left. Games are reconciled one
// at a time, never concurrently with each other, because reconciling a
// game can consume entries out of the shared RomSources index that a
// different game might also want.
package reconcile

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/romkeep/romkeep/archive"
	"github.com/romkeep/romkeep/internal/idcache"
	"github.com/romkeep/romkeep/internal/part"
	"github.com/romkeep/romkeep/internal/sourceindex"
	"github.com/romkeep/romkeep/internal/verify"
)

// ProgressSink receives a line of human-readable progress as the
// Reconciler extracts and renames files. The CLI's implementation writes
// to stdout under a mutex; callers embedding romkeep can substitute their
// own.
type ProgressSink interface {
	Println(line string)
}

// Reconciler runs add-and-verify for one game at a time against a shared
// RomSources index.
type Reconciler struct {
	Sources sourceindex.RomSources
	Cache   *idcache.Cache
	Sink    ProgressSink
}

// New creates a Reconciler over the given (mutable) source index.
func New(sources sourceindex.RomSources, cache *idcache.Cache, sink ProgressSink) *Reconciler {
	return &Reconciler{Sources: sources, Cache: cache, Sink: sink}
}

func (r *Reconciler) println(format string, args ...any) {
	if r.Sink == nil {
		return
	}
	r.Sink.Println(fmt.Sprintf(format, args...))
}

// AddAndVerify reconciles one game's directory (targetRoot/gameName)
// against manifest: files already present and correct are left alone,
// files present but incorrect or files missing entirely are replaced from
// r.Sources when a source is available, and anything left over is
// reported as a Failure. A final cleanup pass (see cleanup.go) turns
// matching Missing/Bad-with-a-known-good-extra pairs into renames before
// returning.
func (r *Reconciler) AddAndVerify(gameName string, manifest map[string]part.Part, targetRoot string) ([]verify.Failure, error) {
	gameDir := filepath.Join(targetRoot, gameName)

	onDisk, err := listFiles(gameDir)
	if err != nil {
		return nil, err
	}

	var failures []verify.Failure

	for name, expected := range manifest {
		target := filepath.Join(gameDir, name)

		existingPath, present := onDisk[name]
		delete(onDisk, name)

		if present {
			actual, idErr := r.Cache.Identify(existingPath)
			if idErr == nil && actual == expected {
				continue
			}

			src, ok := r.Sources[expected]
			if !ok {
				failures = append(failures, verify.Failure{Kind: verify.Bad, Name: name, Expected: expected, Actual: actual})
				continue
			}

			if err := os.Remove(existingPath); err != nil {
				return nil, fmt.Errorf("remove stale %s: %w", existingPath, err)
			}
			if err := r.materialize(expected, src, target); err != nil {
				return nil, err
			}
			continue
		}

		src, ok := r.Sources[expected]
		if !ok {
			failures = append(failures, verify.Failure{Kind: verify.Missing, Name: name, Expected: expected})
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := r.materialize(expected, src, target); err != nil {
			return nil, err
		}
	}

	for leftoverName := range onDisk {
		failures = append(failures, verify.Failure{Kind: verify.Extra, Name: leftoverName})
	}

	return r.cleanup(gameDir, failures), nil
}

// materialize extracts src's bytes to target (hardlink, falling back to
// copy), records target in Sources as a plain-file source so a later game in
// the same run can reuse the freshly written file as its own source, and prints the
// resulting action.
func (r *Reconciler) materialize(p part.Part, src sourceindex.RomSource, target string) error {
	extractOutcome, err := extract(src, target)
	if err != nil {
		return fmt.Errorf("extract %s: %w", describeSource(src), err)
	}

	switch {
	case extractOutcome.Linked:
		if !extractOutcome.HasXattr {
			writeXattr(target, p)
		}
		r.println("%s -> %s", describeSource(src), target)
	default:
		writeXattr(target, p)
		r.println("%s => %s", describeSource(src), target)
	}

	r.Sources[p] = sourceindex.RomSource{Path: target, HasXattr: true}

	return nil
}

// extractOutcome describes how a part's bytes ended up at the target path.
type extractOutcome struct {
	Linked   bool
	HasXattr bool
}

// extract materializes src's bytes at target, preferring a hardlink (which
// is instant and shares the identity xattr the source may already carry)
// and falling back to a full copy when the source and target don't share
// a filesystem, or the source isn't a plain file at all.
func extract(src sourceindex.RomSource, target string) (extractOutcome, error) {
	if src.IsPlainFile() {
		if err := os.Link(src.Path, target); err == nil {
			return extractOutcome{Linked: true, HasXattr: src.HasXattr}, nil
		}
	}

	r, err := openSource(src)
	if err != nil {
		return extractOutcome{}, err
	}
	defer r.Close()

	f, err := os.Create(target)
	if err != nil {
		return extractOutcome{}, fmt.Errorf("create %s: %w", target, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		return extractOutcome{}, fmt.Errorf("copy to %s: %w", target, err)
	}

	return extractOutcome{Linked: false}, nil
}

// openSource returns a reader over src's bytes, descending into an archive
// (and, if needed, a nested archive) when src isn't a plain file.
func openSource(src sourceindex.RomSource) (io.ReadCloser, error) {
	if src.IsPlainFile() {
		return os.Open(src.Path)
	}

	arc, err := openArchive(src.Path)
	if err != nil {
		return nil, err
	}

	if src.SubMember == "" {
		r, _, err := arc.Open(src.Member)
		if err != nil {
			_ = arc.Close()
			return nil, err
		}
		return &closeBoth{ReadCloser: r, other: arc}, nil
	}

	nestedPath, cleanup, err := bufferNestedMember(arc, src.Member)
	if err != nil {
		_ = arc.Close()
		return nil, err
	}
	_ = arc.Close()

	subArc, err := openArchive(nestedPath)
	if err != nil {
		cleanup()
		return nil, err
	}
	r, _, err := subArc.Open(src.SubMember)
	if err != nil {
		_ = subArc.Close()
		cleanup()
		return nil, err
	}
	return &closeBoth{ReadCloser: r, other: closerFunc(func() error {
		err := subArc.Close()
		cleanup()
		return err
	})}, nil
}

func openArchive(path string) (archive.Archive, error) {
	switch filepath.Ext(path) {
	case ".zip":
		return archive.OpenZIP(path)
	case ".7z":
		return archive.OpenSevenZip(path)
	case ".rar":
		return archive.OpenRAR(path)
	default:
		return nil, archive.FormatError{Format: filepath.Ext(path)}
	}
}

// bufferNestedMember writes member out to a temporary file so it can be
// reopened as its own archive (the format's members aren't addressable as
// ReaderAt in general, so a temp file is the simplest uniform approach).
func bufferNestedMember(arc archive.Archive, member string) (path string, cleanup func(), err error) {
	r, _, err := arc.Open(member)
	if err != nil {
		return "", nil, err
	}
	defer r.Close()

	tmp, err := os.CreateTemp("", "romkeep-extract-*"+filepath.Ext(member))
	if err != nil {
		return "", nil, fmt.Errorf("buffer nested member: %w", err)
	}
	defer tmp.Close()

	if _, err := io.Copy(tmp, r); err != nil {
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("buffer nested member: %w", err)
	}

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

// closeBoth closes an inner ReadCloser and an outer io.Closer (typically
// the archive the reader came from) together.
type closeBoth struct {
	io.ReadCloser
	other io.Closer
}

func (c *closeBoth) Close() error {
	err1 := c.ReadCloser.Close()
	err2 := c.other.Close()
	return errors.Join(err1, err2)
}

func describeSource(src sourceindex.RomSource) string {
	switch {
	case src.IsPlainFile():
		return src.Path
	case src.SubMember != "":
		return fmt.Sprintf("%s:%s:%s", src.Path, src.Member, src.SubMember)
	default:
		return fmt.Sprintf("%s:%s", src.Path, src.Member)
	}
}

// writeXattr persists p on target's cached-identity attribute; failure is
// not fatal, it just means a future run re-hashes the file.
func writeXattr(target string, p part.Part) {
	idcache.WriteXattr(target, p)
}

// listFiles returns the regular files directly inside dir, keyed by name,
// or an empty map if dir doesn't exist yet.
func listFiles(dir string) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	files := make(map[string]string, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		files[entry.Name()] = filepath.Join(dir, entry.Name())
	}
	return files, nil
}
