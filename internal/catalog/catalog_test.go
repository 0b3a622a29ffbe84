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
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/romkeep/romkeep/internal/identity"
	"github.com/romkeep/romkeep/internal/part"
	"github.com/romkeep/romkeep/internal/verify"
)

func identifyString(t *testing.T, s string) part.Part {
	t.Helper()
	p, err := identity.Identify(strings.NewReader(s))
	if err != nil {
		t.Fatalf("identity.Identify: %v", err)
	}
	return p
}

func testDb(t *testing.T) *GameDb {
	t.Helper()
	biosPart := identifyString(t, "bios")
	cartPart := identifyString(t, "cart")

	return &GameDb{
		Games: map[string]Game{
			"bios": {
				Name:     "bios",
				IsDevice: true,
				Parts:    map[string]part.Part{"bios.rom": biosPart},
			},
			"game1": {
				Name:        "game1",
				Description: "Game One (USA)",
				Creator:     "Acme (1994)",
				Year:        "1994",
				Status:      Working,
				Devices:     []string{"bios"},
				Parts:       map[string]part.Part{"game1.bin": cartPart},
			},
			"game2": {
				Name:   "game2",
				Status: NotWorking,
				Parts:  map[string]part.Part{"game2.bin": cartPart},
			},
		},
	}
}

func TestValidateGames(t *testing.T) {
	db := testDb(t)

	if err := db.ValidateGames([]string{"game1", "bios"}); err != nil {
		t.Fatalf("ValidateGames: %v", err)
	}

	err := db.ValidateGames([]string{"nope"})
	var notFound NoSuchSoftwareError
	if !errors.As(err, &notFound) || notFound.Name != "nope" {
		t.Fatalf("expected NoSuchSoftwareError, got %v", err)
	}
}

func TestRequiredPartsUnionsDevices(t *testing.T) {
	db := testDb(t)

	required, err := db.RequiredParts([]string{"game1"})
	if err != nil {
		t.Fatalf("RequiredParts: %v", err)
	}

	if len(required) != 2 {
		t.Fatalf("expected 2 required parts (game1 + bios), got %d", len(required))
	}
}

func TestRetainWorkingDropsNotWorking(t *testing.T) {
	db := testDb(t)
	db.RetainWorking()

	if db.IsGame("game2") {
		t.Fatalf("expected game2 (NotWorking) to be dropped")
	}
	if !db.IsGame("game1") {
		t.Fatalf("expected game1 (Working) to survive")
	}
	if !db.IsGame("bios") {
		t.Fatalf("expected bios device (default Working) to survive")
	}
}

func TestVerifyGamesRecursesIntoDevices(t *testing.T) {
	db := testDb(t)
	root := t.TempDir()

	gameDir := filepath.Join(root, "game1")
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(gameDir, "game1.bin"), []byte("cart"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	results, err := db.VerifyGames(context.Background(), root, []string{"game1"})
	if err != nil {
		t.Fatalf("VerifyGames: %v", err)
	}

	failures := results["game1"]
	if len(failures) != 1 || failures[0].Kind != verify.Missing || failures[0].Name != "bios.rom" {
		t.Fatalf("expected a single Missing bios.rom from the device, got %v", failures)
	}
}

func TestListResultsSkipsDevicesAndAppliesSearch(t *testing.T) {
	db := testDb(t)

	rows := db.ListResults("", false)
	if len(rows) != 2 {
		t.Fatalf("expected 2 non-device rows, got %d", len(rows))
	}

	rows = db.ListResults("Game One", false)
	if len(rows) != 1 || rows[0].Name != "game1" {
		t.Fatalf("expected search to find only game1, got %v", rows)
	}
}

func TestSimpleNameStripsParensAndSlashes(t *testing.T) {
	db := testDb(t)
	rows := db.ListResults("", true)

	for _, r := range rows {
		if r.Name != "game1" {
			continue
		}
		if r.Description != "Game One" {
			t.Fatalf("expected simple description %q, got %q", "Game One", r.Description)
		}
		if r.Creator != "Acme" {
			t.Fatalf("expected simple creator %q, got %q", "Acme", r.Creator)
		}
	}
}

func TestParseInt(t *testing.T) {
	cases := []struct {
		in   string
		want uint64
	}{
		{"10", 10},
		{"0x10", 16},
		{"ff", 255},
		{"  42  ", 42},
	}
	for _, c := range cases {
		got, err := ParseInt(c.in)
		if err != nil {
			t.Fatalf("ParseInt(%q): %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseInt(%q) = %d, want %d", c.in, got, c.want)
		}
	}
}

func TestRenameMatchesByContentNotName(t *testing.T) {
	db := testDb(t)
	root := t.TempDir()

	gameDir := filepath.Join(root, "game1")
	if err := os.MkdirAll(gameDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	misnamed := filepath.Join(gameDir, "wrong.bin")
	if err := os.WriteFile(misnamed, []byte("cart"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if err := db.Rename(root, "game1", os.Rename); err != nil {
		t.Fatalf("Rename: %v", err)
	}

	if _, err := os.Stat(filepath.Join(gameDir, "game1.bin")); err != nil {
		t.Fatalf("expected game1.bin to exist after rename: %v", err)
	}
	if _, err := os.Stat(misnamed); !os.IsNotExist(err) {
		t.Fatalf("expected wrong.bin to be gone, stat err = %v", err)
	}
}
