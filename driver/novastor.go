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

func init() { Register("novastor", func() Driver { return &NovaStor{} }) }

const (
	novaStorHeaderSize = 0x80
	novaStorAlign      = 0x400
	novaStorExtBlock   = 0x100
	novaStorNameOffset = 0x0E
	novaStorNameLen    = 0x52
	novaStorMagicOff   = 0x74
)

var novaStorMagic = []byte("<<NoVaStOr>>")

// NovaStor decodes NovaStor v4 images: a fixed 0x80-byte per-file header
// aligned to 0x400 boundaries, terminated by the first header whose
// magic fails to match (no trailing record count is given).
type NovaStor struct{}

func (d *NovaStor) Name() string { return "novastor" }

func (d *NovaStor) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	for {
		if err := r.AlignForward(novaStorAlign); err != nil {
			return fmt.Errorf("novastor: align: %w", err)
		}
		header, err := r.ReadN(novaStorHeaderSize)
		if err != nil {
			if endOfInput(err) {
				return nil
			}
			return fmt.Errorf("novastor: header: %w", err)
		}

		if !bytes.Equal(header[novaStorMagicOff:novaStorMagicOff+len(novaStorMagic)], novaStorMagic) {
			// Ran off the end of the real header table.
			return nil
		}

		size := binary.LittleEndian.Uint32(header[0:4])
		createDate := binary.LittleEndian.Uint16(header[4:6])
		createTime := binary.LittleEndian.Uint16(header[6:8])
		modDate := binary.LittleEndian.Uint16(header[8:10])
		modTime := binary.LittleEndian.Uint16(header[10:12])
		attrs := decodeFATAttributes(header[0x0D])

		var name string
		if header[novaStorNameOffset] == 0xFF {
			ext, err := r.ReadN(novaStorExtBlock)
			if err != nil {
				return fmt.Errorf("novastor: extended name block: %w", err)
			}
			name = tbinary.CleanString(ext)
		} else {
			name = tbinary.CleanString(header[novaStorNameOffset : novaStorNameOffset+novaStorNameLen])
		}

		kind := catalog.File
		if attrs.Has(catalog.AttrDirectory) {
			kind = catalog.Directory
		}

		entry := catalog.Entry{
			Path:          []string{name},
			Kind:          kind,
			Size:          int64(size),
			CreateTime:    tbinary.DOSDateTime(createDate, createTime),
			HasCreateTime: createDate != 0,
			ModifyTime:    tbinary.DOSDateTime(modDate, modTime),
			HasModifyTime: modDate != 0,
			Attributes:    attrs,
		}
		if kind == catalog.File {
			body, err := r.ReadN(int(size))
			if err != nil {
				return fmt.Errorf("novastor: body for %q: %w", name, err)
			}
			entry.Data = bytes.NewReader(body)
		}
		if err := emit(entry); err != nil {
			return err
		}
		if name == "" {
			warnf(warn, "novastor: empty name at offset %d", r.Pos())
		}
	}
}
