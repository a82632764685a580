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

// Package tx decodes TXPLUS v45's unverified LZ-dictionary compression.
// It is an experimental port: the upstream scheme was never fully
// validated against a reference implementation, so it stays behind an
// Options.Enabled flag that defaults to raw passthrough.
package tx

import (
	"bytes"
	"fmt"

	"github.com/tapearchivist/tapex/bitio"
	"github.com/tapearchivist/tapex/tapeerr"
)

// dictClearCode is the sentinel dictionary index that clears the
// dictionary and restarts coding from single-byte entries.
const dictClearCode = 0x1FF

// Options configures the decompressor.
type Options struct {
	// Enabled gates whether decompression actually runs. When false,
	// Decompress returns the body unmodified (raw passthrough), since
	// the scheme has not been validated against a reference.
	Enabled bool

	// CodeBits is the dictionary code width, in bits, read per symbol.
	CodeBits int
}

// DefaultOptions returns the TXPLUS v45 defaults: disabled, 9-bit codes.
func DefaultOptions() Options {
	return Options{Enabled: false, CodeBits: 9}
}

// Decompress expands body per opts. With opts.Enabled == false it
// returns body unchanged.
func Decompress(body []byte, opts Options) ([]byte, error) {
	if !opts.Enabled {
		out := make([]byte, len(body))
		copy(out, body)
		return out, nil
	}

	br := bitio.NewReaderFromBytes(body, bitio.LSBFirst)
	dict := newDictionary()
	var out bytes.Buffer
	var prev []byte

	for {
		code, err := br.NextBits(opts.CodeBits)
		if err != nil {
			// Clean end of stream.
			break
		}
		if int(code) == dictClearCode {
			dict = newDictionary()
			prev = nil
			continue
		}

		entry, known := dict.lookup(int(code))
		switch {
		case known:
			// ok
		case prev != nil && int(code) == len(dict.slots):
			// KwKwK case: the code names the slot this very step is
			// about to create. Self-reference via prev's own first byte.
			entry = append(append([]byte{}, prev...), prev[0])
		default:
			return nil, fmt.Errorf("tx: dictionary code %d out of range (size %d): %w", code, len(dict.slots), tapeerr.ErrCorruptFrame)
		}

		out.Write(entry)
		if prev != nil {
			dict.push(prev, entry)
		}
		prev = entry
	}
	return out.Bytes(), nil
}

// dictionary is TXPLUS's variable-length-entry code table: each slot is
// a byte sequence. A new slot is always the previously decoded entry
// extended by one "virtual" byte: the first byte of the entry decoded
// right after it (the only entry the reference implementation could
// observe at push time), falling back to the previous entry's own
// first byte when that entry doesn't exist yet (the classic
// code-references-itself case).
type dictionary struct {
	slots [][]byte
}

func newDictionary() *dictionary {
	d := &dictionary{}
	for i := 0; i < 256; i++ {
		d.slots = append(d.slots, []byte{byte(i)})
	}
	return d
}

func (d *dictionary) lookup(code int) ([]byte, bool) {
	if code < 0 || code >= len(d.slots) {
		return nil, false
	}
	return d.slots[code], true
}

// push adds a new slot built from prevEntry plus nextEntry's first byte.
func (d *dictionary) push(prevEntry, nextEntry []byte) {
	extraByte := prevEntry[0]
	if len(nextEntry) > 0 {
		extraByte = nextEntry[0]
	}
	extended := make([]byte, len(prevEntry)+1)
	copy(extended, prevEntry)
	extended[len(prevEntry)] = extraByte
	d.slots = append(d.slots, extended)
}
