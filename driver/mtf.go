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
	tbinary "github.com/tapearchivist/tapex/internal/binary"
)

func init() { Register("mtf", func() Driver { return &MTF{} }) }

const (
	mtfBlockSize        = 0x400
	mtfCommonHeaderSize = 0x34
	mtfStreamHeaderSize = 22
)

// mtfTapeAddress is a (size, offset) pair pointing into the raw bytes
// of the descriptor block that contains it.
type mtfTapeAddress struct {
	size, offset uint16
}

type mtfCommonHeader struct {
	typ              string
	firstEventOffset uint16
	osID, osVersion  byte
	osSpecificData   mtfTapeAddress
	stringType       byte
}

func parseMTFCommonHeader(block []byte) mtfCommonHeader {
	return mtfCommonHeader{
		typ:              string(block[0:4]),
		firstEventOffset: binary.LittleEndian.Uint16(block[8:10]),
		osID:             block[10],
		osVersion:        block[11],
		osSpecificData: mtfTapeAddress{
			size:   binary.LittleEndian.Uint16(block[44:46]),
			offset: binary.LittleEndian.Uint16(block[46:48]),
		},
		stringType: block[48],
	}
}

func decodeMTFString(block []byte, addr mtfTapeAddress, stringType byte) string {
	start, end := int(addr.offset), int(addr.offset)+int(addr.size)
	if start < 0 || end > len(block) || start > end {
		return ""
	}
	raw := block[start:end]
	if stringType == 2 {
		return utf16LEString(raw)
	}
	return tbinary.CleanString(raw)
}

// MTF decodes Microsoft Tape Format images: fixed 0x400-byte descriptor
// blocks (TAPE/SSET/VOLB/DIRB/FILE/SPAD), each naming its variable data
// through a TapeAddress into its own block, with FILE descriptors
// followed by a chain of 22-byte StreamHeaders (4-byte-aligned
// payloads) ending at a SPAD stream. Directory nesting by parent ID is
// not modeled: each FILE attaches to the most recently seen DIRB name
// (see DESIGN.md).
type MTF struct{}

func (d *MTF) Name() string { return "mtf" }

func (d *MTF) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	currentDir := ""

	for {
		blockStart := r.Pos()
		block, err := r.ReadN(mtfBlockSize)
		if err != nil {
			if endOfInput(err) {
				return nil
			}
			return fmt.Errorf("mtf: descriptor block: %w", err)
		}
		if bytes.Equal(block[0:4], []byte{0, 0, 0, 0}) {
			return nil
		}
		hdr := parseMTFCommonHeader(block)

		switch hdr.typ {
		case "TAPE", "SSET", "VOLB":
			// Housekeeping descriptors; nothing materializes from them.

		case "DIRB":
			name := decodeMTFString(block, hdr.osSpecificData, hdr.stringType)
			currentDir = name
			if err := emit(catalog.Entry{Path: []string{name}, Kind: catalog.Directory}); err != nil {
				return err
			}

		case "FILE":
			name := decodeMTFString(block, hdr.osSpecificData, hdr.stringType)
			path := []string{name}
			if currentDir != "" {
				path = []string{currentDir, name}
			}

			if err := r.SeekTo(blockStart + int64(hdr.firstEventOffset)); err != nil {
				return fmt.Errorf("mtf: seek to stream headers: %w", err)
			}
			var body bytes.Buffer
			for {
				sh, err := r.ReadN(mtfStreamHeaderSize)
				if err != nil {
					return fmt.Errorf("mtf: stream header for %q: %w", name, err)
				}
				id := string(sh[0:4])
				if id == "SPAD" {
					break
				}
				length := binary.LittleEndian.Uint64(sh[8:16])
				payload, err := r.ReadN(int(length))
				if err != nil {
					return fmt.Errorf("mtf: stream payload for %q: %w", name, err)
				}
				body.Write(payload)
				if pad := (4 - (int(length) % 4)) % 4; pad != 0 {
					if err := r.Skip(int64(pad)); err != nil {
						return fmt.Errorf("mtf: stream alignment for %q: %w", name, err)
					}
				}
			}
			if err := r.AlignForward(mtfBlockSize); err != nil {
				return fmt.Errorf("mtf: realign after %q: %w", name, err)
			}

			entry := catalog.Entry{
				Path: path,
				Kind: catalog.File,
				Size: int64(body.Len()),
				Data: bytes.NewReader(body.Bytes()),
			}
			if err := emit(entry); err != nil {
				return err
			}
			continue

		case "SPAD":
			// A bare SPAD descriptor with no preceding FILE; skip it.

		default:
			warnf(warn, "mtf: unknown descriptor type %q", hdr.typ)
		}

		if err := r.AlignForward(mtfBlockSize); err != nil {
			return fmt.Errorf("mtf: realign: %w", err)
		}
	}
}
