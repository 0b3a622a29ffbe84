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

// Package fileid identifies a regular file by the (device, inode) pair the
// filesystem assigns it, independent of its current path. This is the key
// the Source Index uses to detect that two directory entries are hardlinks
// to the same underlying file, and the key the in-process tier of the
// Identity Cache uses to recognize a file it has already hashed.
package fileid

// FileId is a filesystem-assigned identity: a device number and an inode
// number. Two paths referring to the same underlying file (via hardlinks,
// or the same path seen twice) report equal FileIds.
type FileId struct {
	Dev uint64
	Ino uint64
}
