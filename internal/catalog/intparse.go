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
	"strconv"
	"strings"
)

// ParseInt parses s as an unsigned integer the way MAME's own DAT files
// write them: plain decimal, bare hex (no prefix), or "0x"-prefixed hex.
// Decimal is tried first so that a string like "10" means ten, not sixteen.
func ParseInt(s string) (uint64, error) {
	s = strings.TrimSpace(s)

	if v, err := strconv.ParseUint(s, 10, 64); err == nil {
		return v, nil
	}

	if v, err := strconv.ParseUint(s, 16, 64); err == nil {
		return v, nil
	}

	if hex, ok := strings.CutPrefix(s, "0x"); ok {
		return strconv.ParseUint(hex, 16, 64)
	}

	return strconv.ParseUint(s, 10, 64)
}
