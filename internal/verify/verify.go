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

// Package verify checks a game's expected parts against what's actually
// present in its directory on disk, classifying every discrepancy as
// Missing, Extra, Bad, or Error.
package verify

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/romkeep/romkeep/internal/identity"
	"github.com/romkeep/romkeep/internal/part"
)

// Kind classifies a single verification discrepancy.
type Kind uint8

const (
	// Missing means a manifest entry has no corresponding file present.
	Missing Kind = iota
	// Extra means a file is present that the manifest doesn't expect.
	Extra
	// Bad means a file is present under the expected name but its
	// content doesn't match the expected Part.
	Bad
	// Error means the file couldn't be read or identified at all.
	Error
)

func (k Kind) String() string {
	switch k {
	case Missing:
		return "missing"
	case Extra:
		return "extra"
	case Bad:
		return "bad"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Failure is a single discrepancy found while verifying a game's
// directory. Not every field is meaningful for every Kind: Expected is set
// for Missing and Bad. Actual is set for Bad, and for Extra when the extra
// file could itself be identified. Err is set for Error, and for Extra when
// identifying the extra file failed; an Extra's identity is best-effort and
// never escalates to Error.
type Failure struct {
	Kind     Kind
	Name     string
	Expected part.Part
	Actual   part.Part
	Err      error
}

func (f Failure) String() string {
	switch f.Kind {
	case Missing:
		return fmt.Sprintf("missing: %s (expected %s)", f.Name, f.Expected)
	case Extra:
		if f.Err != nil {
			return fmt.Sprintf("extra: %s (identify failed: %v)", f.Name, f.Err)
		}
		return fmt.Sprintf("extra: %s (%s)", f.Name, f.Actual)
	case Bad:
		return fmt.Sprintf("bad: %s (expected %s, got %s)", f.Name, f.Expected, f.Actual)
	case Error:
		return fmt.Sprintf("error: %s: %v", f.Name, f.Err)
	default:
		return fmt.Sprintf("unknown failure for %s", f.Name)
	}
}

// Verify checks every entry in manifest (filename -> expected Part) against
// gameDir. It returns one Failure per discrepancy; a fully correct
// directory returns a nil slice.
//
// Per-file verification runs concurrently. The working copy of manifest
// (used to detect files that aren't expected) and the failures slice share
// one mutex; for the manifest copy the critical section is kept to the
// lookup and delete needed once a name has been matched.
func Verify(ctx context.Context, manifest map[string]part.Part, gameDir string) ([]Failure, error) {
	entries, err := os.ReadDir(gameDir)
	if err != nil {
		if os.IsNotExist(err) {
			if len(manifest) == 0 {
				return nil, nil
			}
			failures := make([]Failure, 0, len(manifest))
			for name, expected := range manifest {
				failures = append(failures, Failure{Kind: Missing, Name: name, Expected: expected})
			}
			return failures, nil
		}
		return nil, fmt.Errorf("verify %s: %w", gameDir, err)
	}

	remaining := make(map[string]part.Part, len(manifest))
	for name, p := range manifest {
		remaining[name] = p
	}

	var mu sync.Mutex
	var failures []Failure

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()

		mu.Lock()
		expected, wanted := remaining[name]
		if wanted {
			delete(remaining, name)
		}
		mu.Unlock()

		g.Go(func() error {
			failure := verifyOne(gameDir, name, expected, wanted)
			if failure == nil {
				return nil
			}
			mu.Lock()
			failures = append(failures, *failure)
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	for name, expected := range remaining {
		failures = append(failures, Failure{Kind: Missing, Name: name, Expected: expected})
	}

	return failures, nil
}

// verifyOne identifies a single present file and compares it against what
// the manifest expects. If wanted is false, the file is unconditionally
// Extra, and its identity is computed best-effort: a failure to identify it
// is carried inside the Extra failure itself, not escalated to Error.
// Returns nil if the file matches its expected Part.
func verifyOne(gameDir, name string, expected part.Part, wanted bool) *Failure {
	path := filepath.Join(gameDir, name)

	if !wanted {
		actual, err := identifyFile(path)
		if err != nil {
			return &Failure{Kind: Extra, Name: name, Err: err}
		}
		return &Failure{Kind: Extra, Name: name, Actual: actual}
	}

	actual, err := identifyFile(path)
	if err != nil {
		return &Failure{Kind: Error, Name: name, Err: err}
	}

	if actual != expected {
		return &Failure{Kind: Bad, Name: name, Expected: expected, Actual: actual}
	}

	return nil
}

// identifyFile re-identifies the file at path, bypassing the Identity
// Cache entirely: verification must detect content corruption even if a
// stale cached attribute claims otherwise. Verify has no cached variant:
// the Catalog Facade's VerifyGames also goes through this uncached path.
func identifyFile(path string) (part.Part, error) {
	f, err := os.Open(path)
	if err != nil {
		return part.Part{}, fmt.Errorf("identify %s: %w", path, err)
	}
	defer f.Close()
	return identity.Identify(f)
}
