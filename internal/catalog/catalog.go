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

// Package catalog implements the read-only Catalog Facade: lookups over an
// immutable GameDb, working-subset filtering, recursive required-part
// computation across a game's devices, and parallel batched verification
// across a set of game names. Catalog ingestion (parsing DAT/XML into a
// GameDb) is outside this package's scope; callers construct a GameDb
// however they see fit and hand it to this package fully formed.
package catalog

import (
	"context"
	"path/filepath"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/romkeep/romkeep/internal/part"
	"github.com/romkeep/romkeep/internal/verify"
)

// Status is a game's playability as recorded in the catalog.
type Status int

const (
	Working Status = iota
	Partial
	NotWorking
)

func (s Status) String() string {
	switch s {
	case Working:
		return "working"
	case Partial:
		return "partial"
	case NotWorking:
		return "not working"
	default:
		return "unknown"
	}
}

// Game is a single catalog entry: a directory name, descriptive metadata, a
// working Status, whether it's a dependency-only device, the names of
// devices it depends on, and its manifest of expected filename -> Part.
type Game struct {
	Name        string
	Description string
	Creator     string
	Year        string
	Status      Status
	IsDevice    bool
	Devices     []string
	Parts       map[string]part.Part
}

func (g *Game) isWorking() bool {
	return g.Status == Working || g.Status == Partial
}

// GameDb is an immutable catalog, built once at startup.
type GameDb struct {
	Description string
	Date        string
	Games       map[string]Game
}

// IsGame reports whether name is present in the catalog.
func (db *GameDb) IsGame(name string) bool {
	_, ok := db.Games[name]
	return ok
}

// Game returns the catalog entry for name, if present.
func (db *GameDb) Game(name string) (Game, bool) {
	g, ok := db.Games[name]
	return g, ok
}

// RetainWorking drops every entry whose Status is NotWorking, in place.
func (db *GameDb) RetainWorking() {
	for name, g := range db.Games {
		if !g.isWorking() {
			delete(db.Games, name)
		}
	}
}

// ValidateGames returns a NoSuchSoftwareError for the first name not present
// in the catalog, or nil if every name is present.
func (db *GameDb) ValidateGames(names []string) error {
	for _, name := range names {
		if !db.IsGame(name) {
			return NoSuchSoftwareError{Name: name}
		}
	}
	return nil
}

// RequiredParts returns the union of parts.values() over every named game
// and its transitive devices. Returns NoSuchSoftwareError for an unknown
// top-level name; an unknown device referenced from within a game is
// silently ignored, per the catalog's own consistency invariant.
func (db *GameDb) RequiredParts(names []string) (map[part.Part]struct{}, error) {
	required := make(map[part.Part]struct{})
	for _, name := range names {
		g, ok := db.Games[name]
		if !ok {
			return nil, NoSuchSoftwareError{Name: name}
		}
		db.collectParts(g, required)
	}
	return required, nil
}

func (db *GameDb) collectParts(g Game, into map[part.Part]struct{}) {
	for _, p := range g.Parts {
		into[p] = struct{}{}
	}
	for _, device := range g.Devices {
		if dev, ok := db.Games[device]; ok {
			db.collectParts(dev, into)
		}
	}
}

// VerifyGames verifies every named game (and, recursively, the devices it
// depends on) against root, in parallel across names, returning a map from
// game name to its accumulated failure list. An unknown name produces an
// empty failure slice rather than an error, matching the catalog's
// tolerance for a caller-supplied name set that includes stale entries.
func (db *GameDb) VerifyGames(ctx context.Context, root string, names []string) (map[string][]verify.Failure, error) {
	results := make(map[string][]verify.Failure, len(names))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for _, name := range names {
		name := name
		g.Go(func() error {
			failures, err := db.verifyGame(ctx, root, name)
			if err != nil {
				return err
			}
			mu.Lock()
			results[name] = failures
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (db *GameDb) verifyGame(ctx context.Context, root, name string) ([]verify.Failure, error) {
	game, ok := db.Games[name]
	if !ok {
		return nil, nil
	}

	failures, err := verify.Verify(ctx, game.Parts, filepath.Join(root, name))
	if err != nil {
		return nil, err
	}

	for _, device := range game.Devices {
		deviceFailures, err := db.verifyGame(ctx, root, device)
		if err != nil {
			return nil, err
		}
		failures = append(failures, deviceFailures...)
	}

	return failures, nil
}
