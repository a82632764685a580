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

package driver

import (
	"bytes"
	"errors"
	"unicode/utf16"

	"github.com/tapearchivist/tapex/tapeerr"
)

// splitNulSeparated splits a NUL-separated path component blob into its
// non-empty components, as QIC-Stream/Maynstream subdir fields encode
// directory trees.
func splitNulSeparated(b []byte) []string {
	var out []string
	for _, part := range bytes.Split(b, []byte{0}) {
		if len(part) > 0 {
			out = append(out, string(part))
		}
	}
	return out
}

// utf16LEString decodes a UTF-16LE byte slice (as used by qicstream95
// names) to a Go string, stopping at the first NUL code unit.
func utf16LEString(b []byte) string {
	units := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		u := uint16(b[i]) | uint16(b[i+1])<<8
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}

// endOfInput reports whether err signals the natural end of a scan/read
// (source exhausted), as opposed to a real decode failure.
func endOfInput(err error) bool {
	return errors.Is(err, tapeerr.ErrUnexpectedEOF)
}
