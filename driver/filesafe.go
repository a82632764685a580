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
	"strings"

	"github.com/tapearchivist/tapex/blockio"
	"github.com/tapearchivist/tapex/catalog"
	tbinary "github.com/tapearchivist/tapex/internal/binary"
)

func init() { Register("filesafe", func() Driver { return &FileSafe{} }) }

const (
	fileSafeVolumeHeaderSize = 0x200
	fileSafeCatalogRecSize   = 0x20
	fileSafeDirMarker        = 0x5C
	fileSafeEndMarker        = 0xFF
)

var fileSafeBodyMagic = []byte{0x55, 0xAA}

type fileSafeCatalogEntry struct {
	path string
	attr catalog.Attributes
	date uint16
	time uint16
	size uint32
}

// FileSafe decodes Mountain FileSafe Ver4/Ver4b images: a 0x200-byte
// volume header, a catalog of 0x20-byte records (terminated by two
// consecutive 0xFF records) each naming a file or the current
// directory, followed by file bodies in catalog order, each prefixed
// by a `55 AA` marker. Every image is read with the Ver4 layout: Ver4b
// and Ver5 are not told apart or rejected, and Ver5's variable-length
// body header is not implemented (see DESIGN.md).
type FileSafe struct{}

func (d *FileSafe) Name() string { return "filesafe" }

func (d *FileSafe) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	if err := r.Skip(fileSafeVolumeHeaderSize); err != nil {
		return fmt.Errorf("filesafe: volume header: %w", err)
	}

	var entries []fileSafeCatalogEntry
	currentDir := ""
	lastWasEnd := false
	for {
		rec, err := r.ReadN(fileSafeCatalogRecSize)
		if err != nil {
			return fmt.Errorf("filesafe: catalog record: %w", err)
		}
		if rec[0] == fileSafeEndMarker {
			if lastWasEnd {
				break
			}
			lastWasEnd = true
			continue
		}
		lastWasEnd = false

		if rec[0] == fileSafeDirMarker {
			currentDir = tbinary.CleanString(rec[1:])
			continue
		}

		name := tbinary.CleanString(rec[0:8])
		ext := tbinary.CleanString(rec[8:11])
		if ext != "" {
			name += "." + ext
		}
		attr := decodeFATAttributes(rec[0x0B])
		t := binary.LittleEndian.Uint16(rec[0x16:0x18])
		dt := binary.LittleEndian.Uint16(rec[0x18:0x1A])
		size := binary.LittleEndian.Uint32(rec[0x1C:0x20])

		path := name
		if currentDir != "" {
			path = currentDir + "/" + name
		}
		entries = append(entries, fileSafeCatalogEntry{path: path, attr: attr, date: dt, time: t, size: size})
	}

	for _, e := range entries {
		marker, err := r.ReadN(2)
		if err != nil {
			return fmt.Errorf("filesafe: body marker for %q: %w", e.path, err)
		}
		if !bytes.Equal(marker, fileSafeBodyMagic) {
			warnf(warn, "filesafe: missing 55 AA body marker before %q", e.path)
		}
		body, err := r.ReadN(int(e.size))
		if err != nil {
			return fmt.Errorf("filesafe: body for %q: %w", e.path, err)
		}

		entry := catalog.Entry{
			Path:          strings.Split(e.path, "/"),
			Kind:          catalog.File,
			Size:          int64(e.size),
			CreateTime:    tbinary.DOSDateTime(e.date, e.time),
			HasCreateTime: true,
			ModifyTime:    tbinary.DOSDateTime(e.date, e.time),
			HasModifyTime: true,
			Attributes:    e.attr,
			Data:          bytes.NewReader(body),
		}
		if err := emit(entry); err != nil {
			return err
		}
	}
	return nil
}
