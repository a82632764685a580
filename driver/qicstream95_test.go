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
	"unicode/utf16"

	"github.com/tapearchivist/tapex/catalog"
)

func buildQicStream95Entry(name string, body []byte, trailer int) []byte {
	var buf bytes.Buffer
	buf.Write(qicStream95FileMagic)
	units := utf16.Encode([]rune(name))
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(units)))
	buf.Write(lenBuf[:])
	for _, u := range units {
		var ub [2]byte
		binary.LittleEndian.PutUint16(ub[:], u)
		buf.Write(ub[:])
	}
	buf.WriteByte(0) // empty subdir
	buf.Write(qicStream95DataMagic)
	buf.Write(body)
	buf.Write(make([]byte, trailer))
	return buf.Bytes()
}

func TestQicStream95SingleFile(t *testing.T) {
	t.Parallel()

	body := []byte("contents of a win95 qicstream file")
	data := buildQicStream95Entry("DOC.TXT", body, 6)

	var got []catalog.Entry
	d := &QicStream95{}
	if err := d.Walk(bytes.NewReader(data), func(e catalog.Entry) error {
		got = append(got, e)
		return nil
	}, nil); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0].JoinedPath() != "DOC.TXT" {
		t.Fatalf("path = %q", got[0].JoinedPath())
	}
	if got[0].Size != int64(len(body)) {
		t.Fatalf("size = %d, want %d", got[0].Size, len(body))
	}
	content, _ := bodyBytes(got[0].Data)
	if !bytes.Equal(content, body) {
		t.Fatalf("content = %q, want %q", content, body)
	}
}
