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

// Package ecc strips trailing error-correction bytes from fixed-size tape
// segments. It never validates or corrects the stripped ECC bytes.
package ecc

import (
	"fmt"
	"io"
)

// Strip copies src to dst in fixed segSize windows, writing only the
// first (segSize - eccSize) bytes of each window. A truncated tail
// window (shorter than segSize) is dropped entirely.
func Strip(dst io.Writer, src io.Reader, segSize, eccSize int) (int64, error) {
	if segSize <= 0 {
		return 0, fmt.Errorf("ecc: segSize must be positive, got %d", segSize)
	}
	if eccSize < 0 || eccSize > segSize {
		return 0, fmt.Errorf("ecc: eccSize %d out of range for segSize %d", eccSize, segSize)
	}

	payload := segSize - eccSize
	buf := make([]byte, segSize)
	var written int64

	for {
		_, err := io.ReadFull(src, buf)
		switch err {
		case nil:
			if payload > 0 {
				wn, werr := dst.Write(buf[:payload])
				written += int64(wn)
				if werr != nil {
					return written, fmt.Errorf("ecc: write: %w", werr)
				}
			}
			continue
		case io.EOF:
			// n == 0: clean end on a segment boundary.
			return written, nil
		case io.ErrUnexpectedEOF:
			// A truncated tail window (n < segSize): ignored per spec.
			return written, nil
		default:
			return written, fmt.Errorf("ecc: read: %w", err)
		}
	}
}
