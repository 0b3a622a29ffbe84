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
	"sort"
	"strings"
	"text/tabwriter"
)

// Column names the field the rows produced by List/Report are sorted by.
type Column int

const (
	ByDescription Column = iota
	ByCreator
	ByYear
)

// Row is a simplified, display-ready projection of a Game, with the
// "simple" name-normalization from original_source applied when requested.
type Row struct {
	Name        string
	Description string
	Creator     string
	Year        string
	Status      Status
}

// Matches reports whether search appears in the row: a name prefix match, a
// description or creator substring match, or an exact year match.
func (r Row) Matches(search string) bool {
	return strings.HasPrefix(r.Name, search) ||
		strings.Contains(r.Description, search) ||
		strings.Contains(r.Creator, search) ||
		r.Year == search
}

func sortKey(r Row, col Column) [3]string {
	switch col {
	case ByCreator:
		return [3]string{r.Creator, r.Description, r.Year}
	case ByYear:
		return [3]string{r.Year, r.Description, r.Creator}
	default:
		return [3]string{r.Description, r.Creator, r.Year}
	}
}

func compareRows(a, b Row, col Column) int {
	ka, kb := sortKey(a, col), sortKey(b, col)
	for i := range ka {
		if ka[i] != kb[i] {
			if ka[i] < kb[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

func noParens(s string) string {
	if i := strings.Index(s, "("); i >= 0 {
		return strings.TrimRight(s[:i], " ")
	}
	return s
}

func noSlashes(s string) string {
	if i := strings.Index(s, " / "); i >= 0 {
		return strings.TrimRight(s[:i], " ")
	}
	return s
}

func (g Game) row(simple bool) Row {
	description, creator := g.Description, g.Creator
	if simple {
		description = noSlashes(noParens(description))
		creator = noParens(creator)
	}
	return Row{Name: g.Name, Description: description, Creator: creator, Year: g.Year, Status: g.Status}
}

// ListResults returns every non-device game as a Row, optionally filtered by
// search.
func (db *GameDb) ListResults(search string, simple bool) []Row {
	var rows []Row
	for _, g := range db.Games {
		if g.IsDevice {
			continue
		}
		row := g.row(simple)
		if search == "" || row.Matches(search) {
			rows = append(rows, row)
		}
	}
	return rows
}

// List writes every non-device game, optionally filtered and sorted, as a
// plain table to w.
func (db *GameDb) List(w io.Writer, search string, sort_ Column, simple bool) {
	rows := db.ListResults(search, simple)
	sortRows(rows, sort_)
	writeReport(w, rows)
}

// ReportResults returns Rows for exactly the named games (skipping devices
// and unknown names), optionally filtered by search.
func (db *GameDb) ReportResults(names []string, search string, simple bool) []Row {
	var rows []Row
	for _, name := range names {
		g, ok := db.Games[name]
		if !ok || g.IsDevice {
			continue
		}
		row := g.row(simple)
		if search == "" || row.Matches(search) {
			rows = append(rows, row)
		}
	}
	return rows
}

// Report writes Rows for exactly the named games to w, sorted by sort_.
func (db *GameDb) Report(w io.Writer, names []string, search string, sort_ Column, simple bool) {
	rows := db.ReportResults(names, search, simple)
	sortRows(rows, sort_)
	writeReport(w, rows)
}

func sortRows(rows []Row, col Column) {
	sort.SliceStable(rows, func(i, j int) bool {
		return compareRows(rows[i], rows[j], col) < 0
	})
}

func writeReport(w io.Writer, rows []Row) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range rows {
		status := ""
		switch row.Status {
		case Partial:
			status = " (partial)"
		case NotWorking:
			status = " (not working)"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s%s\n", row.Description, row.Creator, row.Year, row.Name, status)
	}
	tw.Flush()
}

// DisplayParts writes name's manifest, followed by the manifest of each
// non-empty device it depends on, as a plain table to w.
func (db *GameDb) DisplayParts(w io.Writer, name string) error {
	game, ok := db.Games[name]
	if !ok {
		return NoSuchSoftwareError{Name: name}
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	writePartsTable(tw, game)
	for _, devName := range game.Devices {
		dev, ok := db.Games[devName]
		if !ok || len(dev.Parts) == 0 {
			continue
		}
		fmt.Fprintf(tw, "[%s]\t\n", devName)
		writePartsTable(tw, dev)
	}

	return tw.Flush()
}

func writePartsTable(tw *tabwriter.Writer, g Game) {
	names := make([]string, 0, len(g.Parts))
	for name := range g.Parts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(tw, "%s\t%s\n", name, g.Parts[name].Digest())
	}
}
