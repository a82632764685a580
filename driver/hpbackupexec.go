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
	"time"

	"github.com/tapearchivist/tapex/blockio"
	"github.com/tapearchivist/tapex/catalog"
	tbinary "github.com/tapearchivist/tapex/internal/binary"
)

func init() { Register("hpbackupexec", func() Driver { return &HPBackupExec{} }) }

const hpBackupExecAlign = 0x4000

// HPBackupExec decodes HP/Backup-Exec images: a catalog stream of
// variable-length records (16-bit length prefix, flags, packed date,
// packed time, size, name) paired with a separate data stream that
// concatenates file bodies in catalog order, block-aligned to 0x4000.
// Data is the data-file reader; when nil, entries are still emitted
// (sizes and names only, as for --catdump) but carry no body.
type HPBackupExec struct {
	Data io.ReaderAt
}

func (d *HPBackupExec) Name() string { return "hpbackupexec" }

func (d *HPBackupExec) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	var dataPos int64

	for {
		lenB, err := r.ReadN(2)
		if err != nil {
			if endOfInput(err) {
				return nil
			}
			return fmt.Errorf("hpbackupexec: record length: %w", err)
		}
		recLen := int(binary.LittleEndian.Uint16(lenB))
		if recLen < 13 {
			return fmt.Errorf("hpbackupexec: record length %d too short for fixed fields", recLen)
		}
		body, err := r.ReadN(recLen)
		if err != nil {
			return fmt.Errorf("hpbackupexec: record body: %w", err)
		}

		flags := body[0]
		packedDate := binary.LittleEndian.Uint32(body[1:5])
		packedTime := binary.LittleEndian.Uint32(body[5:9])
		size := binary.LittleEndian.Uint32(body[9:13])
		name := tbinary.CleanString(body[13:])

		attrs := decodeFATAttributes(flags)
		kind := catalog.File
		if attrs.Has(catalog.AttrDirectory) {
			kind = catalog.Directory
		}

		entry := catalog.Entry{
			Path:       splitBackslashPath(name),
			Kind:       kind,
			Size:       int64(size),
			ModifyTime: tbinary.QICPackedDate(packedDate).Add(packedTimeOfDay(packedTime)),
			Attributes: attrs,
		}
		entry.HasModifyTime = packedDate != 0 || packedTime != 0

		if kind == catalog.File {
			if d.Data != nil {
				buf := make([]byte, size)
				if _, err := d.Data.ReadAt(buf, dataPos); err != nil {
					return fmt.Errorf("hpbackupexec: data for %q at %d: %w", name, dataPos, err)
				}
				entry.Data = bytes.NewReader(buf)
			}
			dataPos += int64(size)
			if rem := dataPos % hpBackupExecAlign; rem != 0 {
				dataPos += hpBackupExecAlign - rem
			}
		}

		if err := emit(entry); err != nil {
			return err
		}
		if flags == 0 && packedDate == 0 && packedTime == 0 && size == 0 && name == "" {
			warnf(warn, "hpbackupexec: empty catalog record, continuing")
		}
	}
}

// packedTimeOfDay decodes a 32-bit packed time: bits 16-20 hour, bits
// 8-13 minute, bits 0-5 second.
func packedTimeOfDay(packed uint32) time.Duration {
	hour := (packed >> 16) & 0x1F
	minute := (packed >> 8) & 0x3F
	second := packed & 0x3F
	return time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute + time.Duration(second)*time.Second
}

// splitBackslashPath splits a Windows-style path (optionally with a
// drive letter) into non-empty components, dropping the drive letter.
func splitBackslashPath(name string) []string {
	name = strings.TrimPrefix(name, "\\")
	if len(name) >= 2 && name[1] == ':' {
		name = name[2:]
		name = strings.TrimPrefix(name, "\\")
	}
	var out []string
	for _, part := range strings.Split(name, "\\") {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// decodeFATAttributes decodes a conventional FAT/DOS attribute byte:
// 0x01 ReadOnly, 0x02 Hidden, 0x04 System, 0x10 Directory, 0x20 Archive.
func decodeFATAttributes(flags byte) catalog.Attributes {
	var a catalog.Attributes
	if flags&0x01 != 0 {
		a = a.Set(catalog.ReadOnly)
	}
	if flags&0x02 != 0 {
		a = a.Set(catalog.Hidden)
	}
	if flags&0x04 != 0 {
		a = a.Set(catalog.System)
	}
	if flags&0x10 != 0 {
		a = a.Set(catalog.AttrDirectory)
	}
	if flags&0x20 != 0 {
		a = a.Set(catalog.Archive)
	}
	return a
}
