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

//go:build unix

package fileid

import (
	"fmt"
	"os"
	"syscall"
)

// New reports the FileId of the file at path, following symlinks.
func New(path string) (FileId, error) {
	info, err := os.Stat(path)
	if err != nil {
		return FileId{}, fmt.Errorf("stat %s: %w", path, err)
	}
	return fromFileInfo(info)
}

// Of reports the FileId of an already-stat'd file.
func Of(info os.FileInfo) (FileId, error) {
	return fromFileInfo(info)
}

func fromFileInfo(info os.FileInfo) (FileId, error) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return FileId{}, fmt.Errorf("fileid: unexpected Sys() type %T", info.Sys())
	}
	return FileId{Dev: uint64(stat.Dev), Ino: uint64(stat.Ino)}, nil
}
