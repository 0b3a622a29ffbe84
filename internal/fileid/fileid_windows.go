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

//go:build windows

package fileid

import (
	"fmt"
	"os"
	"syscall"
)

// New reports the FileId of the file at path. On Windows this opens the
// file to read its BY_HANDLE_FILE_INFORMATION, since os.FileInfo alone
// doesn't expose the volume serial number or file index.
func New(path string) (FileId, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileId{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var info syscall.ByHandleFileInformation
	if err := syscall.GetFileInformationByHandle(syscall.Handle(f.Fd()), &info); err != nil {
		return FileId{}, fmt.Errorf("fileid %s: %w", path, err)
	}

	return FileId{
		Dev: uint64(info.VolumeSerialNumber),
		Ino: uint64(info.FileIndexHigh)<<32 | uint64(info.FileIndexLow),
	}, nil
}

// Of is unsupported on Windows because the required volume/index fields
// are not reachable from an already-obtained os.FileInfo; callers on this
// platform should use New with a path instead.
func Of(info os.FileInfo) (FileId, error) {
	return FileId{}, fmt.Errorf("fileid: Of is not supported on windows, use New")
}
