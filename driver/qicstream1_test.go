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

// buildQic113Record assembles one DOS QIC-113 record: magic, 1-byte
// metadata length + metadata{flags, packedDate, totalSize}, 1-byte name
// length + name, 1-byte subdir length + subdir, then body bytes.
func buildQic113Record(flags byte, packedDate uint32, name, subdir string, body []byte) []byte {
	meta := make([]byte, 9)
	meta[0] = flags
	binary.LittleEndian.PutUint32(meta[1:5], packedDate)

	headerLen := 4 + 1 + len(meta) + 1 + len(name) + 1 + len(subdir)
	totalSize := uint32(headerLen + len(body))
	binary.LittleEndian.PutUint32(meta[5:9], totalSize)

	var buf bytes.Buffer
	buf.Write(qic113Magic)
	buf.WriteByte(byte(len(meta)))
	buf.Write(meta)
	buf.WriteByte(byte(len(name)))
	buf.WriteString(name)
	buf.WriteByte(byte(len(subdir)))
	buf.WriteString(subdir)
	buf.Write(body)
	return buf.Bytes()
}

// TestSeed1SingleRootFile reproduces spec seed S1: a single file FOO.TXT
// ("Hello, world!") in the root, dated 1996-03-14.
func TestSeed1SingleRootFile(t *testing.T) {
	t.Parallel()

	// day=14, month=3, yearOffset=1996-1970=26.
	packed := uint32(14) | uint32(3)<<5 | uint32(26)<<9
	body := []byte("Hello, world!")
	data := buildQic113Record(0xFF&^qic113AttrDirectory, packed, "FOO.TXT", "", body)

	var got []catalog.Entry
	d := &QicStream1{}
	err := d.Walk(bytes.NewReader(data), func(e catalog.Entry) error {
		got = append(got, e)
		return nil
	}, nil)
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	e := got[0]
	if e.JoinedPath() != "FOO.TXT" {
		t.Fatalf("path = %q, want FOO.TXT", e.JoinedPath())
	}
	if e.Size != int64(len(body)) {
		t.Fatalf("size = %d, want %d", e.Size, len(body))
	}
	content, _ := bodyBytes(e.Data)
	if !bytes.Equal(content, body) {
		t.Fatalf("content = %q, want %q", content, body)
	}
	want := time.Date(1996, 3, 14, 0, 0, 0, 0, time.UTC)
	if !e.ModifyTime.Equal(want) {
		t.Fatalf("modify time = %v, want %v", e.ModifyTime, want)
	}
}

func TestQic113AttributesDirectoryHasNoData(t *testing.T) {
	t.Parallel()

	packed := uint32(1) | uint32(1)<<5 | uint32(0)<<9
	data := buildQic113Record(qic113AttrDirectory|qic113AttrFinalEntry, packed, "SUBDIR", "", nil)

	var got []catalog.Entry
	d := &QicStream1{}
	if err := (d).Walk(bytes.NewReader(data), func(e catalog.Entry) error {
		got = append(got, e)
		return nil
	}, nil); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 1 || got[0].Kind != catalog.Directory {
		t.Fatalf("got %+v, want one Directory entry", got)
	}
	if got[0].Data != nil {
		t.Fatalf("directory entry has non-nil Data")
	}
}

func bodyBytes(d catalog.DataSource) ([]byte, error) {
	if d == nil {
		return nil, nil
	}
	var buf bytes.Buffer
	_, err := buf.ReadFrom(d)
	return buf.Bytes(), err
}
