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

// Package qic decodes QIC-122 (rev B) LZ77-style compressed frames.
package qic

import (
	"bytes"
	"fmt"

	"github.com/tapearchivist/tapex/bitio"
	"github.com/tapearchivist/tapex/tapeerr"
)

// WindowSize selects which of the two inequivalent QIC-122 window
// implementations a frame was produced with. Both appear in the wild;
// the spec preserves each rather than picking one.
type WindowSize int

const (
	// Window2K is the narrower 2 KiB variant, addressed with plain
	// modular indexing.
	Window2K WindowSize = 0x800
	// Window64K is the wider 64 KiB variant. Once its cursor crosses
	// 0x8000, the most recent 0x4000 bytes slide down to the start of
	// the buffer, so offsets up to 0x4000 stay valid after a slide.
	Window64K WindowSize = 0x10000
)

type window struct {
	buf    []byte
	cursor int
	size   WindowSize
}

func newWindow(size WindowSize) *window {
	return &window{buf: make([]byte, size), size: size}
}

func (w *window) push(b byte) {
	switch w.size {
	case Window2K:
		w.buf[w.cursor%len(w.buf)] = b
		w.cursor++
	default: // Window64K
		w.buf[w.cursor] = b
		w.cursor++
		if w.cursor > 0x8000 {
			copy(w.buf, w.buf[w.cursor-0x4000:w.cursor])
			w.cursor = 0x4000
		}
	}
}

func (w *window) at(offset int) (byte, error) {
	switch w.size {
	case Window2K:
		idx := (w.cursor - offset) % len(w.buf)
		if idx < 0 {
			idx += len(w.buf)
		}
		return w.buf[idx], nil
	default:
		idx := w.cursor - offset
		if idx < 0 || idx >= len(w.buf) {
			return 0, fmt.Errorf("qic: offset %d out of window range (cursor %d): %w", offset, w.cursor, tapeerr.ErrCorruptFrame)
		}
		return w.buf[idx], nil
	}
}

// Decompress expands a single QIC-122 frame using the given window
// variant, returning the decoded bytes.
func Decompress(frame []byte, size WindowSize) ([]byte, error) {
	br := bitio.NewReaderFromBytes(frame, bitio.MSBFirst)
	w := newWindow(size)
	var out bytes.Buffer

	for {
		typeBit, err := br.NextBit()
		if err != nil {
			return nil, fmt.Errorf("qic: read type bit: %w", tapeerr.ErrUnexpectedEOF)
		}

		if typeBit == 0 {
			v, err := br.NextBits(8)
			if err != nil {
				return nil, fmt.Errorf("qic: read literal: %w", tapeerr.ErrUnexpectedEOF)
			}
			b := byte(v)
			out.WriteByte(b)
			w.push(b)
			continue
		}

		offset, err := nextOffset(br)
		if err != nil {
			return nil, err
		}
		if offset == 0 {
			// Frame end.
			return out.Bytes(), nil
		}
		length, err := nextLength(br)
		if err != nil {
			return nil, err
		}
		for i := 0; i < length; i++ {
			b, err := w.at(offset)
			if err != nil {
				return nil, err
			}
			out.WriteByte(b)
			w.push(b)
		}
	}
}

// nextOffset reads the offset field: one selector bit chooses between a
// 7-bit offset (selector == 1) and an 11-bit offset (selector == 0).
func nextOffset(br *bitio.Reader) (int, error) {
	sel, err := br.NextBit()
	if err != nil {
		return 0, fmt.Errorf("qic: read offset selector: %w", tapeerr.ErrUnexpectedEOF)
	}
	bits := 11
	if sel == 1 {
		bits = 7
	}
	v, err := br.NextBits(bits)
	if err != nil {
		return 0, fmt.Errorf("qic: read %d-bit offset: %w", bits, tapeerr.ErrUnexpectedEOF)
	}
	return int(v), nil
}

// nextLength reads the escalating length field: a 2-bit base, extended
// by a further 2 bits once the partial length reaches 5, then by
// repeated 4-bit chunks (each 0xF chunk signals "more follows") once it
// reaches 8.
func nextLength(br *bitio.Reader) (int, error) {
	v2, err := br.NextBits(2)
	if err != nil {
		return 0, fmt.Errorf("qic: read length base: %w", tapeerr.ErrUnexpectedEOF)
	}
	partial := 2 + int(v2)
	if partial < 5 {
		return partial, nil
	}

	v2, err = br.NextBits(2)
	if err != nil {
		return 0, fmt.Errorf("qic: read length extension: %w", tapeerr.ErrUnexpectedEOF)
	}
	partial += int(v2)
	if partial < 8 {
		return partial, nil
	}

	for {
		chunk, err := br.NextBits(4)
		if err != nil {
			return 0, fmt.Errorf("qic: read length chunk: %w", tapeerr.ErrUnexpectedEOF)
		}
		partial += int(chunk)
		if chunk != 0xF {
			return partial, nil
		}
	}
}
