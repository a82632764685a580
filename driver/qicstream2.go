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
	"encoding/binary"
	"fmt"
	"io"

	"github.com/tapearchivist/tapex/blockio"
	"github.com/tapearchivist/tapex/catalog"
)

func init() { Register("qicstream2", func() Driver { return &QicStream2{} }) }

const (
	qs2OpContentsStart = 1
	qs2OpCatalogStart  = 2
	qs2OpAscendParent  = 3
	qs2OpFile          = 5
	qs2OpDirectory     = 6
	qs2OpDataChunk     = 9
)

// QicStream2 decodes a QIC-Stream v2 control-code stream: single-byte
// opcodes interleaved with length-prefixed file/directory headers and
// 16-bit-length-prefixed data chunks. A catalog area may precede
// ContentsStart; entries seen before it are walked (to keep the byte
// stream in sync) but never emitted.
type QicStream2 struct{}

func (d *QicStream2) Name() string { return "qicstream2" }

func (d *QicStream2) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	started := false
	var dirStack []string
	var pending *catalog.Entry
	var pendingData bytes.Buffer

	flush := func() error {
		if pending == nil {
			return nil
		}
		e := *pending
		pending = nil
		if !started {
			return nil
		}
		e.Size = int64(pendingData.Len())
		e.Data = bytes.NewReader(pendingData.Bytes())
		return emit(e)
	}

	for {
		opB, err := r.ReadN(1)
		if err != nil {
			if endOfInput(err) {
				return flush()
			}
			return fmt.Errorf("qicstream2: opcode: %w", err)
		}

		switch opB[0] {
		case qs2OpContentsStart:
			if err := flush(); err != nil {
				return err
			}
			started = true

		case qs2OpCatalogStart:
			// Catalog precedes the data stream; nothing to skip here,
			// entries within it are walked like any other and simply
			// not emitted until ContentsStart.

		case qs2OpAscendParent:
			if err := flush(); err != nil {
				return err
			}
			if len(dirStack) > 0 {
				dirStack = dirStack[:len(dirStack)-1]
			}

		case qs2OpFile:
			if err := flush(); err != nil {
				return err
			}
			name, err := readLenPrefixedName(r)
			if err != nil {
				return fmt.Errorf("qicstream2: file name: %w", err)
			}
			path := make([]string, len(dirStack)+1)
			copy(path, dirStack)
			path[len(dirStack)] = name
			pending = &catalog.Entry{Path: path, Kind: catalog.File}
			pendingData.Reset()

		case qs2OpDirectory:
			if err := flush(); err != nil {
				return err
			}
			name, err := readLenPrefixedName(r)
			if err != nil {
				return fmt.Errorf("qicstream2: directory name: %w", err)
			}
			if started {
				path := make([]string, len(dirStack)+1)
				copy(path, dirStack)
				path[len(dirStack)] = name
				if err := emit(catalog.Entry{Path: path, Kind: catalog.Directory}); err != nil {
					return err
				}
			}
			dirStack = append(dirStack, name)

		case qs2OpDataChunk:
			lenB, err := r.ReadN(2)
			if err != nil {
				return fmt.Errorf("qicstream2: data chunk length: %w", err)
			}
			n := int(binary.LittleEndian.Uint16(lenB))
			chunk, err := r.ReadN(n)
			if err != nil {
				return fmt.Errorf("qicstream2: data chunk body: %w", err)
			}
			pendingData.Write(chunk)

		default:
			warnf(warn, "qicstream2: unknown opcode 0x%02x at offset %d", opB[0], r.Pos()-1)
		}
	}
}

func readLenPrefixedName(r *blockio.Reader) (string, error) {
	lenB, err := r.ReadN(1)
	if err != nil {
		return "", err
	}
	name, err := r.ReadN(int(lenB[0]))
	if err != nil {
		return "", err
	}
	return string(name), nil
}
