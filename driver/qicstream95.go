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

	"github.com/tapearchivist/tapex/catalog"
	"github.com/tapearchivist/tapex/tapeerr"
)

func init() { Register("qicstream95", func() Driver { return &QicStream95{} }) }

var (
	qicStream95FileMagic = []byte{0x33, 0xCC, 0x33, 0xCC}
	qicStream95DataMagic = []byte{0x66, 0x99, 0x66, 0x99}
)

// QicStream95 decodes qicstream95/qicstream1a images: a file-header
// magic, UTF-16LE name, NUL-separated subdirectory field, then a
// data-header magic whose body runs up to the next file header (file
// size is the inter-header distance minus a 6-byte trailer).
type QicStream95 struct{}

func (d *QicStream95) Name() string { return "qicstream95" }

func (d *QicStream95) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	buf, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("qicstream95: read image: %w", err)
	}

	pos := 0
	for {
		hdr := bytes.Index(buf[pos:], qicStream95FileMagic)
		if hdr < 0 {
			return nil
		}
		pos += hdr + len(qicStream95FileMagic)

		if pos+2 > len(buf) {
			return fmt.Errorf("qicstream95: %w: truncated name length", tapeerr.ErrUnexpectedEOF)
		}
		nameUnits := int(binary.LittleEndian.Uint16(buf[pos : pos+2]))
		pos += 2
		nameBytes := nameUnits * 2
		if pos+nameBytes > len(buf) {
			return fmt.Errorf("qicstream95: %w: truncated name", tapeerr.ErrUnexpectedEOF)
		}
		name := utf16LEString(buf[pos : pos+nameBytes])
		pos += nameBytes

		if pos+1 > len(buf) {
			return fmt.Errorf("qicstream95: %w: truncated subdir length", tapeerr.ErrUnexpectedEOF)
		}
		subdirLen := int(buf[pos])
		pos++
		if pos+subdirLen > len(buf) {
			return fmt.Errorf("qicstream95: %w: truncated subdir", tapeerr.ErrUnexpectedEOF)
		}
		subdir := splitNulSeparated(buf[pos : pos+subdirLen])
		pos += subdirLen

		dataHdr := bytes.Index(buf[pos:], qicStream95DataMagic)
		if dataHdr < 0 {
			warnf(warn, "qicstream95: %q: no data header found, skipping", name)
			return nil
		}
		pos += dataHdr + len(qicStream95DataMagic)
		dataStart := pos

		nextHdr := bytes.Index(buf[pos:], qicStream95FileMagic)
		var dataEnd int
		if nextHdr < 0 {
			dataEnd = len(buf)
		} else {
			dataEnd = pos + nextHdr
		}
		size := dataEnd - dataStart - 6
		if size < 0 {
			size = 0
		}

		entry := catalog.Entry{
			Path: append(subdir, name),
			Kind: catalog.File,
			Size: int64(size),
			Data: bytes.NewReader(buf[dataStart : dataStart+size]),
		}
		if err := emit(entry); err != nil {
			return err
		}

		if nextHdr < 0 {
			return nil
		}
		pos = dataEnd
	}
}
