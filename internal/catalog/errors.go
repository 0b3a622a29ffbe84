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

import "fmt"

// NoSuchSoftwareError indicates a requested game name is absent from the
// catalog.
type NoSuchSoftwareError struct {
	Name string
}

func (e NoSuchSoftwareError) Error() string {
	return fmt.Sprintf("no such software: %q", e.Name)
}
