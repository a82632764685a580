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

// Package blockio wraps a ReadSeeker with block-boundary alignment and
// bounded reads, the shape every format driver's header scan needs:
// consume a fixed or variable structure, then jump to the next aligned
// block regardless of how much of the current one was actually read.
package blockio

import (
	"fmt"
	"io"

	"github.com/tapearchivist/tapex/tapeerr"
)

// Reader reads sequentially from an underlying source, tracking the
// current offset for alignment and magic-scan operations.
type Reader struct {
	src io.ReadSeeker
	pos int64
}

// New wraps src, assumed positioned at offset 0.
func New(src io.ReadSeeker) *Reader {
	return &Reader{src: src}
}

// Pos returns the current read offset.
func (r *Reader) Pos() int64 { return r.pos }

// ReadN reads exactly n bytes, failing with UnexpectedEof on a short
// read.
func (r *Reader) ReadN(n int) ([]byte, error) {
	buf := make([]byte, n)
	read, err := io.ReadFull(r.src, buf)
	r.pos += int64(read)
	if err != nil {
		return nil, fmt.Errorf("blockio: read %d bytes at %d: %w", n, r.pos-int64(read), tapeerr.ErrUnexpectedEOF)
	}
	return buf, nil
}

// Skip advances n bytes without returning them.
func (r *Reader) Skip(n int64) error {
	if n == 0 {
		return nil
	}
	newPos, err := r.src.Seek(n, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("blockio: skip %d bytes: %w", n, err)
	}
	r.pos = newPos
	return nil
}

// AlignForward advances to the next multiple of blockSize, or does
// nothing if already aligned.
func (r *Reader) AlignForward(blockSize int64) error {
	rem := r.pos % blockSize
	if rem == 0 {
		return nil
	}
	return r.Skip(blockSize - rem)
}

// SeekTo jumps to an absolute offset.
func (r *Reader) SeekTo(offset int64) error {
	newPos, err := r.src.Seek(offset, io.SeekStart)
	if err != nil {
		return fmt.Errorf("blockio: seek to %d: %w", offset, err)
	}
	r.pos = newPos
	return nil
}

// ScanForMagic advances byte-by-byte until magic is found at the
// current position (tolerating garbage between records, per the format
// drivers' shared requirement), returning the offset it was found at.
// It consumes through the end of the magic.
func (r *Reader) ScanForMagic(magic []byte) (int64, error) {
	window := make([]byte, 0, len(magic))
	for {
		b, err := r.ReadN(1)
		if err != nil {
			return 0, err
		}
		window = append(window, b[0])
		if len(window) > len(magic) {
			window = window[1:]
		}
		if len(window) == len(magic) && bytesEqual(window, magic) {
			return r.pos - int64(len(magic)), nil
		}
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
