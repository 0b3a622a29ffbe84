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

// Command romkeep curates a local ROM collection against a catalog
// database: verifying, importing, and reconciling files by content hash.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/romkeep/romkeep/internal/catalog"
	"github.com/romkeep/romkeep/internal/chdheader"
	"github.com/romkeep/romkeep/internal/idcache"
	"github.com/romkeep/romkeep/internal/reconcile"
	"github.com/romkeep/romkeep/internal/sourceindex"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "verify":
		err = runVerify(os.Args[2:])
	case "add":
		err = runAdd(os.Args[2:])
	case "list":
		err = runList(os.Args[2:])
	case "parts":
		err = runParts(os.Args[2:])
	case "rename":
		err = runRename(os.Args[2:])
	case "chd-info":
		err = runCHDInfo(os.Args[2:])
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown subcommand %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <verify|add|list|parts|rename|chd-info> [options]\n", os.Args[0])
}

func loadCatalog(dbPath string) (*catalog.GameDb, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("-db is required")
	}
	return catalog.Load(dbPath)
}

func runVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to catalog database (gob.gz file)")
	root := fs.String("root", "", "root directory containing one subdirectory per game (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	names := fs.Args()
	if *root == "" || len(names) == 0 {
		fs.Usage()
		return fmt.Errorf("-root and at least one game name are required")
	}

	db, err := loadCatalog(*dbPath)
	if err != nil {
		return err
	}
	if err := db.ValidateGames(names); err != nil {
		return err
	}

	results, err := db.VerifyGames(context.Background(), *root, names)
	if err != nil {
		return err
	}

	failed := false
	for _, name := range names {
		for _, f := range results[name] {
			failed = true
			fmt.Printf("%s : %s\n", name, f)
		}
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func runAdd(args []string) error {
	fs := flag.NewFlagSet("add", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to catalog database (gob.gz file)")
	root := fs.String("root", "", "target root directory (required)")
	sourcesList := fs.String("sources", "", "comma-separated source root directories to pull missing/bad files from (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	names := fs.Args()
	if *root == "" || *sourcesList == "" || len(names) == 0 {
		fs.Usage()
		return fmt.Errorf("-root, -sources, and at least one game name are required")
	}

	db, err := loadCatalog(*dbPath)
	if err != nil {
		return err
	}
	if err := db.ValidateGames(names); err != nil {
		return err
	}

	required, err := db.RequiredParts(names)
	if err != nil {
		return err
	}

	cache, err := idcache.New()
	if err != nil {
		return err
	}

	roots := strings.Split(*sourcesList, ",")
	sources, err := sourceindex.Build(context.Background(), roots, cache)
	if err != nil {
		return err
	}
	for p := range sources {
		if _, wanted := required[p]; !wanted {
			delete(sources, p)
		}
	}

	sink := &stdoutSink{}
	r := reconcile.New(sources, cache, sink)

	failed := false
	for _, name := range names {
		game, _ := db.Game(name)
		failures, err := r.AddAndVerify(name, game.Parts, *root)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		for _, f := range failures {
			failed = true
			fmt.Printf("%s : %s\n", name, f)
		}
	}
	if failed {
		os.Exit(1)
	}
	return nil
}

func runList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to catalog database (gob.gz file)")
	search := fs.String("search", "", "only show games matching this substring/prefix")
	sortBy := fs.String("sort", "description", "sort column: description|creator|year")
	simple := fs.Bool("simple", false, "strip parenthetical/slash suffixes from names")
	if err := fs.Parse(args); err != nil {
		return err
	}

	db, err := loadCatalog(*dbPath)
	if err != nil {
		return err
	}

	col, err := parseColumn(*sortBy)
	if err != nil {
		return err
	}

	db.List(os.Stdout, *search, col, *simple)
	return nil
}

func runParts(args []string) error {
	fs := flag.NewFlagSet("parts", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to catalog database (gob.gz file)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one game name is required")
	}

	db, err := loadCatalog(*dbPath)
	if err != nil {
		return err
	}
	return db.DisplayParts(os.Stdout, fs.Arg(0))
}

func runRename(args []string) error {
	fs := flag.NewFlagSet("rename", flag.ExitOnError)
	dbPath := fs.String("db", "", "path to catalog database (gob.gz file)")
	dryRun := fs.Bool("dry-run", false, "print renames without performing them")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 2 {
		fs.Usage()
		return fmt.Errorf("a root directory and at least one game name are required")
	}
	root := fs.Arg(0)
	names := fs.Args()[1:]

	db, err := loadCatalog(*dbPath)
	if err != nil {
		return err
	}

	mover := catalog.Mover(os.Rename)
	if *dryRun {
		mover = catalog.DryRunMover(os.Stdout)
	}

	for _, name := range names {
		if err := db.Rename(root, name, mover); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

func runCHDInfo(args []string) error {
	fs := flag.NewFlagSet("chd-info", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return fmt.Errorf("exactly one CHD path is required")
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return err
	}
	defer f.Close()

	h, err := chdheader.Parse(f)
	if err != nil {
		return err
	}
	shape, err := chdheader.MapShape(f, h)
	if err != nil {
		return err
	}

	fmt.Printf("version:        %d\n", h.Version)
	fmt.Printf("hunk bytes:     %d\n", h.HunkBytes)
	fmt.Printf("logical bytes:  %d\n", h.LogicalBytes)
	fmt.Printf("hunks:          %d\n", shape.NumHunks)
	if h.Version == 5 {
		fmt.Printf("compressors:    %v\n", h.Compressors)
		fmt.Printf("map bytes:      %d (compressed)\n", shape.CompressedBytes)
	} else {
		fmt.Printf("map bytes:      %d (uncompressed)\n", shape.UncompressedBytes)
	}
	fmt.Printf("raw sha1:       %x\n", h.RawSHA1)
	fmt.Printf("sha1:           %x\n", h.SHA1)
	fmt.Printf("parent sha1:    %x\n", h.ParentSHA1)
	return nil
}

func parseColumn(s string) (catalog.Column, error) {
	switch s {
	case "description", "":
		return catalog.ByDescription, nil
	case "creator":
		return catalog.ByCreator, nil
	case "year":
		return catalog.ByYear, nil
	default:
		return 0, fmt.Errorf("unknown sort column %q", s)
	}
}

// stdoutSink is the default reconcile.ProgressSink: a mutex-guarded
// fmt.Fprintln(os.Stdout, ...), matching the teacher's own fmt.Fprintf
// reporting rather than a logging framework.
type stdoutSink struct {
	mu sync.Mutex
}

func (s *stdoutSink) Println(line string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(os.Stdout, line)
}
