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
	"github.com/tapearchivist/tapex/compress/tx"
	"github.com/tapearchivist/tapex/ecc"
	tbinary "github.com/tapearchivist/tapex/internal/binary"
)

func init() { Register("txplus", func() Driver { return &TxPlus{} }) }

const (
	txPlusSectorSize   = 512
	txPlusChecksumSize = 2
	txPlusTapeMagic    = "?TXVer-45"
	txPlusFileHeader   = 0x60
	txPlusPathSize     = 80
)

var txPlusFileMagic = []byte{0x3A, 0x3A, 0x3A, 0x3A}

// TxPlus decodes TXPLUS v45 tape images: 512-byte sectors with a
// trailing 2-byte checksum (stripped, never validated), a tape header
// beginning with "?TXVer-45", and a run of 0x60-byte file headers each
// followed by its body. When Decompress is false (the default), a body
// whose first byte is 0 is emitted as-is rather than run through the
// unverified LZ77-style scheme (see DESIGN.md).
type TxPlus struct {
	Decompress bool
}

func (d *TxPlus) Name() string { return "txplus" }

func (d *TxPlus) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	var stripped bytes.Buffer
	if _, err := ecc.Strip(&stripped, src, txPlusSectorSize, txPlusChecksumSize); err != nil {
		return fmt.Errorf("txplus: checksum strip: %w", err)
	}

	r := blockio.New(bytes.NewReader(stripped.Bytes()))
	magic, err := r.ReadN(len(txPlusTapeMagic))
	if err != nil {
		return fmt.Errorf("txplus: tape header: %w", err)
	}
	if string(magic) != txPlusTapeMagic {
		return fmt.Errorf("txplus: bad tape magic %q", magic)
	}
	if err := r.AlignForward(txPlusSectorSize - txPlusChecksumSize); err != nil {
		return fmt.Errorf("txplus: align past tape header: %w", err)
	}

	for {
		pos, err := r.ScanForMagic(txPlusFileMagic)
		if err != nil {
			if endOfInput(err) {
				return nil
			}
			return fmt.Errorf("txplus: scan for file header: %w", err)
		}
		if err := r.SeekTo(pos); err != nil {
			return fmt.Errorf("txplus: seek to file header: %w", err)
		}
		header, err := r.ReadN(txPlusFileHeader)
		if err != nil {
			return fmt.Errorf("txplus: file header: %w", err)
		}

		size := binary.LittleEndian.Uint32(header[4:8])
		date := binary.LittleEndian.Uint16(header[8:10])
		timeField := binary.LittleEndian.Uint16(header[10:12])
		attr := header[12]
		path := splitBackslashPath(tbinary.CleanString(header[16 : 16+txPlusPathSize]))

		body, err := r.ReadN(int(size))
		if err != nil {
			return fmt.Errorf("txplus: body for %v: %w", path, err)
		}

		data := body
		if len(body) > 0 && body[0] == 0 {
			if d.Decompress {
				decoded, derr := tx.Decompress(body[1:], tx.Options{Enabled: true, CodeBits: 9})
				if derr != nil {
					warnf(warn, "txplus: decompress %v: %v", path, derr)
				} else {
					data = decoded
				}
			}
		}

		entry := catalog.Entry{
			Path:          path,
			Kind:          catalog.File,
			Size:          int64(len(data)),
			CreateTime:    tbinary.DOSDateTime(date, timeField),
			HasCreateTime: true,
			ModifyTime:    tbinary.DOSDateTime(date, timeField),
			HasModifyTime: true,
			Attributes:    decodeFATAttributes(attr),
			Data:          bytes.NewReader(data),
		}
		if err := emit(entry); err != nil {
			return err
		}
	}
}
