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

package catalog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/romkeep/romkeep/internal/identity"
	"github.com/romkeep/romkeep/internal/part"
)

// Mover moves a file already present on disk from src to dst. The CLI's
// "rename" command passes os.Rename for real moves, or a dry-run variant
// that only prints what would happen.
type Mover func(src, dst string) error

// Rename renames every file directly inside targetRoot/name whose content
// matches a different expected filename in the same game's manifest into
// that filename, via mover. Files that don't identify as one of the game's
// expected parts, or that are already named correctly, are left alone. A
// nonexistent game directory is not an error: there is nothing to rename.
func (db *GameDb) Rename(targetRoot, name string, mover Mover) error {
	game, ok := db.Games[name]
	if !ok {
		return NoSuchSoftwareError{Name: name}
	}

	gameDir := filepath.Join(targetRoot, name)
	entries, err := os.ReadDir(gameDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read %s: %w", gameDir, err)
	}

	wantedPath := make(map[part.Part]string, len(game.Parts))
	for filename, p := range game.Parts {
		wantedPath[p] = filepath.Join(gameDir, filename)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		entryPath := filepath.Join(gameDir, entry.Name())

		p, err := identifyPath(entryPath)
		if err != nil {
			continue
		}

		target, ok := wantedPath[p]
		if !ok || target == entryPath {
			continue
		}

		if err := mover(entryPath, target); err != nil {
			return fmt.Errorf("move %s to %s: %w", entryPath, target, err)
		}
	}

	return nil
}

// DryRunMover returns a Mover that prints the rename it would perform,
// without touching the filesystem, for the "-dry-run" CLI flag.
func DryRunMover(w io.Writer) Mover {
	return func(src, dst string) error {
		_, err := fmt.Fprintf(w, "%s -> %s\n", src, dst)
		return err
	}
}

func identifyPath(path string) (part.Part, error) {
	f, err := os.Open(path)
	if err != nil {
		return part.Part{}, err
	}
	defer f.Close()
	return identity.Identify(f)
}
