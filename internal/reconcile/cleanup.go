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

package reconcile

import (
	"os"
	"path/filepath"

	"github.com/romkeep/romkeep/internal/part"
	"github.com/romkeep/romkeep/internal/verify"
)

// cleanup rewrites a game's raw failure list in two ways, mirroring what
// the underlying filesystem operations already let us do for free:
//
//  1. If an Extra file's content happens to be exactly what a Missing or
//     Bad entry expects, rename it into place instead of reporting both a
//     Missing and an Extra — the bytes were already on disk, just under
//     the wrong name.
//  2. Any Extra left unclaimed after that is deleted outright, since an
//     extra file the reconciliation didn't need has no further purpose in
//     a game's directory.
//
// Extra failures as produced by the main loop don't carry an identified
// Part, so cleanup re-identifies each one exactly once here.
func (r *Reconciler) cleanup(gameDir string, failures []verify.Failure) []verify.Failure {
	if len(failures) == 0 {
		return failures
	}

	extrasByPart := make(map[part.Part]string) // part -> relative name
	var toCleanup []verify.Failure

	for _, f := range failures {
		if f.Kind != verify.Extra {
			toCleanup = append(toCleanup, f)
			continue
		}
		p, err := r.Cache.IdentifyUncached(filepath.Join(gameDir, f.Name))
		if err != nil {
			toCleanup = append(toCleanup, f)
			continue
		}
		extrasByPart[p] = f.Name
	}

	if len(extrasByPart) == 0 {
		return toCleanup
	}

	var result []verify.Failure
	for _, f := range toCleanup {
		wantPart := wantedPart(f)
		extraName, ok := extrasByPart[wantPart]
		if !ok {
			result = append(result, f)
			continue
		}

		extraPath := filepath.Join(gameDir, extraName)
		targetPath := filepath.Join(gameDir, f.Name)
		if f.Kind == verify.Bad {
			// The bad file is still sitting at targetPath; unlink it
			// first rather than relying on os.Rename's overwrite
			// semantics, which aren't portable to Windows.
			if err := os.Remove(targetPath); err != nil {
				result = append(result, f)
				continue
			}
		}
		if err := os.Rename(extraPath, targetPath); err != nil {
			result = append(result, f)
			continue
		}
		delete(extrasByPart, wantPart)
		r.println("%s -> %s", extraPath, targetPath)
	}

	for _, leftoverName := range extrasByPart {
		leftoverPath := filepath.Join(gameDir, leftoverName)
		if err := os.Remove(leftoverPath); err == nil {
			r.println("removed unclaimed extra %s", leftoverPath)
		}
	}

	return result
}

// wantedPart extracts the Part a Missing or Bad failure is looking for, so
// cleanup can match it against an Extra's actual content. Any other kind
// (Error; Extra was already filtered out above) has no expected Part to
// match and is returned as the zero Part, which extrasByPart will never
// contain.
func wantedPart(f verify.Failure) part.Part {
	switch f.Kind {
	case verify.Missing, verify.Bad:
		return f.Expected
	default:
		return part.Part{}
	}
}
