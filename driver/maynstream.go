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
	"time"

	"github.com/tapearchivist/tapex/blockio"
	"github.com/tapearchivist/tapex/catalog"
)

func init() {
	Register("qicstream4", func() Driver { return &QicStream4{} })
	Register("maynstream", func() Driver { return &QicStream4{Maynstream: true} })
}

const (
	qs4LeadDirectory = 0x08
	qs4LeadFile      = 0x09

	qs4HeaderSize  = 0x50
	qs4SkipOnJunk  = 0x1FE
	qs4RealignSize = 0x200
)

// QicStream4 decodes QIC-Stream v4 and its Maynstream sibling: a
// lead-byte-tagged, fixed 0x50-byte header (size, a six-field LE16 date,
// an optional 0x24-byte extension flag, and a name-length field), garbage
// between records skipped by realigning to the next 0x200 boundary.
// Maynstream additionally treats a non-zero primary size as a
// continuation of a file begun on a previous tape.
type QicStream4 struct {
	Maynstream bool
}

func (d *QicStream4) Name() string {
	if d.Maynstream {
		return "maynstream"
	}
	return "qicstream4"
}

func (d *QicStream4) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	for {
		leadB, err := r.ReadN(1)
		if err != nil {
			if endOfInput(err) {
				return nil
			}
			return fmt.Errorf("qicstream4: lead byte: %w", err)
		}
		lead := leadB[0]
		if lead != qs4LeadDirectory && lead != qs4LeadFile {
			if err := r.Skip(qs4SkipOnJunk); err != nil {
				return fmt.Errorf("qicstream4: skip junk: %w", err)
			}
			if err := r.AlignForward(qs4RealignSize); err != nil {
				return fmt.Errorf("qicstream4: realign: %w", err)
			}
			continue
		}

		rest, err := r.ReadN(qs4HeaderSize - 1)
		if err != nil {
			return fmt.Errorf("qicstream4: header: %w", err)
		}
		header := append([]byte{lead}, rest...)

		primary := binary.LittleEndian.Uint32(header[0x04:0x08])
		secondary := binary.LittleEndian.Uint64(header[0x08:0x10])
		hasExtension := header[0x16]&0x01 != 0
		year := binary.LittleEndian.Uint16(header[0x18:0x1A])
		month := binary.LittleEndian.Uint16(header[0x1A:0x1C])
		day := binary.LittleEndian.Uint16(header[0x1C:0x1E])
		hour := binary.LittleEndian.Uint16(header[0x1E:0x20])
		minute := binary.LittleEndian.Uint16(header[0x20:0x22])
		second := binary.LittleEndian.Uint16(header[0x22:0x24])
		nameLen := int(binary.LittleEndian.Uint16(header[0x4C:0x4E]))

		nameB, err := r.ReadN(nameLen)
		if err != nil {
			return fmt.Errorf("qicstream4: name: %w", err)
		}
		if hasExtension {
			if err := r.Skip(0x24); err != nil {
				return fmt.Errorf("qicstream4: name extension: %w", err)
			}
		}

		var size uint64
		switch {
		case primary != 0:
			size = uint64(primary)
			if secondary != 0 && secondary != uint64(primary) {
				warnf(warn, "qicstream4: primary size %d disagrees with secondary %d, using primary", primary, secondary)
			}
		default:
			size = secondary
		}

		path := splitNulSeparated(nameB)
		if len(path) == 0 {
			path = []string{"."}
		}

		modTime := time.Date(int(year), time.Month(month), int(day), int(hour), int(minute), int(second), 0, time.UTC)

		if lead == qs4LeadDirectory {
			entry := catalog.Entry{
				Path:          path,
				Kind:          catalog.Directory,
				ModifyTime:    modTime,
				HasModifyTime: true,
			}
			if err := emit(entry); err != nil {
				return err
			}
			continue
		}

		continuation := d.Maynstream && primary != 0
		if continuation {
			if err := r.AlignForward(qs4RealignSize); err != nil {
				return fmt.Errorf("qicstream4: continuation realign: %w", err)
			}
		}

		body, err := r.ReadN(int(size))
		if err != nil {
			return fmt.Errorf("qicstream4: body for %q: %w", nameB, err)
		}

		entry := catalog.Entry{
			Path:          path,
			Kind:          catalog.File,
			Size:          int64(size),
			ModifyTime:    modTime,
			HasModifyTime: true,
			Data:          bytes.NewReader(body),
			Continuation:  continuation,
		}
		if err := emit(entry); err != nil {
			return err
		}
	}
}
