// Copyright (c) 2026 The tapex Authors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of tapex.
//
// tapex is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// tapex is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with tapex.  If not, see <https://www.gnu.org/licenses/>.

//go:build unix

package tapex

import (
	"os"
	"strings"
	"syscall"
)

// isTapeDevice reports whether path names a character device, the shape
// a tape drive (e.g. /dev/nst0, /dev/st0) or a disc drive takes on Unix.
// Writing to such a device is out of scope; this only gates whether
// OpenImage should treat the path as a raw, possibly non-seekable source.
func isTapeDevice(path string) bool {
	if !strings.HasPrefix(path, "/dev/") {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return false
	}
	return stat.Mode&syscall.S_IFMT == syscall.S_IFCHR
}
