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

func init() { Register("qicstream1", func() Driver { return &QicStream1{} }) }

// qic113Magic is the DOS QIC-113 record magic, 0x33 0xCC 0x33 0xCC on the
// wire (0xCC33CC33 read as a little-endian uint32).
var qic113Magic = []byte{0x33, 0xCC, 0x33, 0xCC}

const (
	qic113AttrNotReadOnly = 0x02
	qic113AttrHidden      = 0x08
	qic113AttrSystem      = 0x10
	qic113AttrDirectory   = 0x20
	qic113AttrLastEntry   = 0x40
	qic113AttrFinalEntry  = 0x80
)

// QicStream1 decodes DOS QIC-113 (QIC-Stream v1) images: a magic-prefixed
// header carrying flags, a packed date, and the record's total size,
// followed immediately by file data.
type QicStream1 struct{}

func (d *QicStream1) Name() string { return "qicstream1" }

// Qic113Attributes decodes a QIC-113 v1 attribute flags byte (spec
// testable property 8).
func Qic113Attributes(flags byte) catalog.Attributes {
	var a catalog.Attributes
	if flags&qic113AttrNotReadOnly == 0 {
		a = a.Set(catalog.ReadOnly)
	}
	if flags&qic113AttrHidden != 0 {
		a = a.Set(catalog.Hidden)
	}
	if flags&qic113AttrSystem != 0 {
		a = a.Set(catalog.System)
	}
	if flags&qic113AttrDirectory != 0 {
		a = a.Set(catalog.AttrDirectory)
	}
	return a
}

func (d *QicStream1) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	for {
		if _, err := r.ScanForMagic(qic113Magic); err != nil {
			if endOfInput(err) {
				return nil
			}
			return fmt.Errorf("qicstream1: scan for magic: %w", err)
		}

		mLenB, err := r.ReadN(1)
		if err != nil {
			return fmt.Errorf("qicstream1: metadata length: %w", err)
		}
		meta, err := r.ReadN(int(mLenB[0]))
		if err != nil {
			return fmt.Errorf("qicstream1: metadata: %w", err)
		}
		if len(meta) < 9 {
			warnf(warn, "qicstream1: metadata too short (%d bytes), skipping record", len(meta))
			continue
		}
		flags := meta[0]
		packedDate := binary.LittleEndian.Uint32(meta[1:5])
		totalSize := binary.LittleEndian.Uint32(meta[5:9])
		headerLen := uint32(4 + 1 + len(meta))

		nameLenB, err := r.ReadN(1)
		if err != nil {
			return fmt.Errorf("qicstream1: name length: %w", err)
		}
		nameB, err := r.ReadN(int(nameLenB[0]))
		if err != nil {
			return fmt.Errorf("qicstream1: name: %w", err)
		}
		headerLen += uint32(1 + len(nameB))

		subdirLenB, err := r.ReadN(1)
		if err != nil {
			return fmt.Errorf("qicstream1: subdir length: %w", err)
		}
		subdirB, err := r.ReadN(int(subdirLenB[0]))
		if err != nil {
			return fmt.Errorf("qicstream1: subdir: %w", err)
		}
		headerLen += uint32(1 + len(subdirB))

		attrs := Qic113Attributes(flags)
		isDir := attrs.Has(catalog.AttrDirectory)

		var dataSize uint32
		if !isDir && totalSize > headerLen {
			dataSize = totalSize - headerLen
		}

		path := append(splitNulSeparated(subdirB), tbinary.CleanString(nameB))

		var data catalog.DataSource
		if !isDir {
			body, err := r.ReadN(int(dataSize))
			if err != nil {
				return fmt.Errorf("qicstream1: body for %q: %w", nameB, err)
			}
			data = bytes.NewReader(body)
		}

		kind := catalog.File
		if isDir {
			kind = catalog.Directory
		}

		entry := catalog.Entry{
			Path:          path,
			Kind:          kind,
			Size:          int64(dataSize),
			ModifyTime:    tbinary.QICPackedDate(packedDate),
			HasModifyTime: true,
			Attributes:    attrs,
			Data:          data,
		}
		if err := emit(entry); err != nil {
			return err
		}

		if flags&qic113AttrFinalEntry != 0 {
			return nil
		}
	}
}
