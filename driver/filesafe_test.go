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
	"testing"
	"time"

	"github.com/tapearchivist/tapex/catalog"
)

func buildFileSafeCatalogRecord(name, ext string, attr byte, date, time16 uint16, size uint32) []byte {
	rec := make([]byte, fileSafeCatalogRecSize)
	copy(rec[0:8], []byte(name))
	copy(rec[8:11], []byte(ext))
	rec[0x0B] = attr
	binary.LittleEndian.PutUint16(rec[0x16:0x18], time16)
	binary.LittleEndian.PutUint16(rec[0x18:0x1A], date)
	binary.LittleEndian.PutUint32(rec[0x1C:0x20], size)
	return rec
}

// TestSeed4FileSafeCatalogEntry reproduces spec seed S4: a Mountain
// FileSafe Ver4 catalog listing README.TXT, DOS time 1994-07-04
// 12:30:00, size 42.
func TestSeed4FileSafeCatalogEntry(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte{'R'}, 42)
	// 1994-07-04: yearOffset=14, month=7, day=4. 12:30:00: hour=12, min=30.
	date := uint16(14<<9 | 7<<5 | 4)
	dosTime := uint16(12<<11 | 30<<5)

	var buf bytes.Buffer
	buf.Write(make([]byte, fileSafeVolumeHeaderSize))
	buf.Write(buildFileSafeCatalogRecord("README", "TXT", 0, date, dosTime, uint32(len(body))))
	buf.Write(bytes.Repeat([]byte{0xFF}, fileSafeCatalogRecSize))
	buf.Write(bytes.Repeat([]byte{0xFF}, fileSafeCatalogRecSize))
	buf.Write(fileSafeBodyMagic)
	buf.Write(body)

	var got []catalog.Entry
	d := &FileSafe{}
	if err := d.Walk(bytes.NewReader(buf.Bytes()), func(e catalog.Entry) error {
		got = append(got, e)
		return nil
	}, nil); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	e := got[0]
	if e.JoinedPath() != "README.TXT" {
		t.Fatalf("path = %q, want README.TXT", e.JoinedPath())
	}
	if e.Size != 42 {
		t.Fatalf("size = %d, want 42", e.Size)
	}
	want := time.Date(1994, 7, 4, 12, 30, 0, 0, time.UTC)
	if !e.CreateTime.Equal(want) || !e.ModifyTime.Equal(want) {
		t.Fatalf("times = %v / %v, want %v", e.CreateTime, e.ModifyTime, want)
	}
}
