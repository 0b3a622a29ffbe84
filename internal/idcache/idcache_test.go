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

package idcache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIdentifyCachedMatchesUncached(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rom.bin")
	if err := os.WriteFile(path, []byte("abc"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cached, err := c.Identify(path)
	if err != nil {
		t.Fatalf("Identify: %v", err)
	}

	uncached, err := c.IdentifyUncached(path)
	if err != nil {
		t.Fatalf("IdentifyUncached: %v", err)
	}

	if cached != uncached {
		t.Fatalf("cached %v != uncached %v", cached, uncached)
	}
}

func TestIdentifyPopulatesInProcessTierOnSecondCall(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rom.bin")
	if err := os.WriteFile(path, []byte("repeatable content"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	c, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	first, err := c.Identify(path)
	if err != nil {
		t.Fatalf("Identify (first): %v", err)
	}
	second, err := c.Identify(path)
	if err != nil {
		t.Fatalf("Identify (second): %v", err)
	}
	if first != second {
		t.Fatalf("repeated Identify disagreed: %v != %v", first, second)
	}
}
