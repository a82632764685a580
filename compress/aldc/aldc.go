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

// Package aldc decodes ALDC (QIC-154) compressed frames. It shares its
// type/offset shape with QIC-122 but uses a fixed 11-bit offset, a
// different length code, and a length-based frame terminator instead of
// a zero offset.
package aldc

import (
	"bytes"
	"fmt"

	"github.com/tapearchivist/tapex/bitio"
	"github.com/tapearchivist/tapex/tapeerr"
)

// WindowSize is the fixed ALDC window: 2 KiB, modular indexing.
const WindowSize = 0x800

// terminatorLength is the length value (and above) that signals the end
// of the frame rather than a real copy.
const terminatorLength = 270

type window struct {
	buf    [WindowSize]byte
	cursor int
}

func (w *window) push(b byte) {
	w.buf[w.cursor%WindowSize] = b
	w.cursor++
}

func (w *window) at(offset int) byte {
	idx := (w.cursor - offset) % WindowSize
	if idx < 0 {
		idx += WindowSize
	}
	return w.buf[idx]
}

// Decompress expands a single ALDC frame, returning the decoded bytes.
func Decompress(frame []byte) ([]byte, error) {
	br := bitio.NewReaderFromBytes(frame, bitio.MSBFirst)
	var w window
	var out bytes.Buffer

	for {
		typeBit, err := br.NextBit()
		if err != nil {
			return nil, fmt.Errorf("aldc: read type bit: %w", tapeerr.ErrUnexpectedEOF)
		}

		if typeBit == 0 {
			v, err := br.NextBits(8)
			if err != nil {
				return nil, fmt.Errorf("aldc: read literal: %w", tapeerr.ErrUnexpectedEOF)
			}
			b := byte(v)
			out.WriteByte(b)
			w.push(b)
			continue
		}

		offV, err := br.NextBits(11)
		if err != nil {
			return nil, fmt.Errorf("aldc: read offset: %w", tapeerr.ErrUnexpectedEOF)
		}
		offset := int(offV)

		length, err := nextLength(br)
		if err != nil {
			return nil, err
		}
		if length >= terminatorLength {
			return out.Bytes(), nil
		}

		for i := 0; i < length; i++ {
			b := w.at(offset)
			out.WriteByte(b)
			w.push(b)
		}
	}
}

// nextLength reads ALDC's length code: a 2-bit base selects a short
// (2/3), mid (4..7), or an escape into a unary-prefixed long form. The
// long form's prefix counts consecutive 1 bits (each extending the
// range by 16) until a terminating 0, followed by an 8-bit tail read as
// two 4-bit nibbles.
func nextLength(br *bitio.Reader) (int, error) {
	v2, err := br.NextBits(2)
	if err != nil {
		return 0, fmt.Errorf("aldc: read length base: %w", tapeerr.ErrUnexpectedEOF)
	}
	if v2 < 2 {
		return 2 + int(v2), nil
	}
	if v2 == 2 {
		tail, err := br.NextBits(2)
		if err != nil {
			return 0, fmt.Errorf("aldc: read length mid: %w", tapeerr.ErrUnexpectedEOF)
		}
		return 4 + int(tail), nil
	}

	extra := 0
	for {
		bit, err := br.NextBit()
		if err != nil {
			return 0, fmt.Errorf("aldc: read length prefix: %w", tapeerr.ErrUnexpectedEOF)
		}
		extra++
		if bit == 0 {
			break
		}
		if extra > 32 {
			return 0, fmt.Errorf("aldc: length prefix too long: %w", tapeerr.ErrCorruptFrame)
		}
	}
	tail, err := br.NextBits(8)
	if err != nil {
		return 0, fmt.Errorf("aldc: read length tail: %w", tapeerr.ErrUnexpectedEOF)
	}
	return 8 + (extra-1)*16 + int(tail), nil
}
