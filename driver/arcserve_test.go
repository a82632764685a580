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

	"github.com/tapearchivist/tapex/catalog"
)

func buildArcServeChunk(chunkType byte, payload []byte) []byte {
	lenOffset := arcServeLenOffsetDefault
	if chunkType == arcServeChunkVariantLen {
		lenOffset = arcServeLenOffsetVariant
	}
	var buf bytes.Buffer
	buf.Write(arcServeChunkMagic)
	buf.WriteByte(chunkType)
	buf.Write(make([]byte, lenOffset-5))
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(payload)))
	buf.Write(lenBuf[:])
	buf.Write(payload)
	return buf.Bytes()
}

func TestArcServeFileWithDataAndEndChunk(t *testing.T) {
	t.Parallel()

	var data []byte
	data = append(data, arcServeFileMagic...)
	name := "SETUP.EXE"
	data = append(data, byte(len(name)))
	data = append(data, name...)
	data = append(data, buildArcServeChunk(arcServeChunkDataStart, []byte("part1-"))...)
	data = append(data, buildArcServeChunk(arcServeChunkDataStart, []byte("part2"))...)
	data = append(data, buildArcServeChunk(arcServeChunkEnd, nil)...)

	var got []catalog.Entry
	d := &ArcServe{}
	if err := d.Walk(bytes.NewReader(data), func(e catalog.Entry) error {
		got = append(got, e)
		return nil
	}, nil); err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d entries, want 1", len(got))
	}
	if got[0].JoinedPath() != "SETUP.EXE" {
		t.Fatalf("path = %q", got[0].JoinedPath())
	}
	content, _ := bodyBytes(got[0].Data)
	if string(content) != "part1-part2" {
		t.Fatalf("content = %q, want part1-part2", content)
	}
}
