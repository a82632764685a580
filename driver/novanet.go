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
)

func init() { Register("novanet", func() Driver { return &NovaNET{} }) }

var novaNetMagic = []byte("F600")

const (
	novaNetHeaderSize = 0x20
	novaNetTailSize   = novaNetHeaderSize - 4 - 4 - 4 - 4 // after magic/index/length/type

	novaNetSegServer   = 1
	novaNetSegNetwork  = 2
	novaNetSegNode     = 3
	novaNetSegPath     = 4
	novaNetSegRegistry = 0x0D
)

// novaNetObject is one open object (file) on a stream's OBGN/OEND stack:
// a metadata DATA block supplies the path, subsequent DATA blocks
// supply the body.
type novaNetObject struct {
	path         []string
	buf          bytes.Buffer
	gotMetadata  bool
	nextExpected int64
}

// NovaNET decodes a NovaNET 8 block stream: fixed 0x20-byte headers
// (magic, stream index, block length, 4-char type, type-specific tail)
// with per-stream object stacks opened by OBGN and closed by OEND, per
// the "explicit map from stream index to a vector of open objects"
// design note.
type NovaNET struct{}

func (d *NovaNET) Name() string { return "novanet" }

func (d *NovaNET) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	streams := make(map[uint32][]*novaNetObject)

	for {
		header, err := r.ReadN(novaNetHeaderSize)
		if err != nil {
			if endOfInput(err) {
				return nil
			}
			return fmt.Errorf("novanet: block header: %w", err)
		}
		if !bytes.Equal(header[0:4], novaNetMagic) {
			warnf(warn, "novanet: bad block magic at offset %d, stopping", r.Pos()-novaNetHeaderSize)
			return nil
		}
		streamIdx := binary.LittleEndian.Uint32(header[4:8])
		blockLen := binary.LittleEndian.Uint32(header[8:12])
		blockType := string(header[12:16])
		tail := header[16:novaNetHeaderSize]

		payload, err := r.ReadN(int(blockLen))
		if err != nil {
			return fmt.Errorf("novanet: block payload: %w", err)
		}

		switch blockType {
		case "MHDR":
			// Stream/media header; nothing materializes from it.

		case "OBGN":
			streams[streamIdx] = append(streams[streamIdx], &novaNetObject{})

		case "OEND":
			stack := streams[streamIdx]
			if len(stack) == 0 {
				warnf(warn, "novanet: OEND with no open object on stream %d", streamIdx)
				continue
			}
			obj := stack[len(stack)-1]
			streams[streamIdx] = stack[:len(stack)-1]

			path := obj.path
			if len(path) == 0 {
				path = []string{fmt.Sprintf("stream%d", streamIdx)}
			}
			entry := catalog.Entry{
				Path: path,
				Kind: catalog.File,
				Size: int64(obj.buf.Len()),
				Data: bytes.NewReader(obj.buf.Bytes()),
			}
			if err := emit(entry); err != nil {
				return err
			}

		case "SBGN", "SEND":
			// Sub-stream bracketing; no per-entry effect modeled.

		case "DATA":
			stack := streams[streamIdx]
			if len(stack) == 0 {
				warnf(warn, "novanet: DATA with no open object on stream %d", streamIdx)
				continue
			}
			obj := stack[len(stack)-1]
			if !obj.gotMetadata {
				obj.path = decodeNovaNetPathSegments(payload)
				obj.gotMetadata = true
				continue
			}
			absOffset := int64(binary.LittleEndian.Uint32(tail[0:4]))
			if absOffset != obj.nextExpected {
				warnf(warn, "novanet: stream %d out-of-order DATA offset %d, expected %d", streamIdx, absOffset, obj.nextExpected)
			}
			obj.buf.Write(payload)
			obj.nextExpected = absOffset + int64(len(payload))

		default:
			warnf(warn, "novanet: unknown block type %q on stream %d", blockType, streamIdx)
		}
	}
}

// decodeNovaNetPathSegments parses a metadata DATA block's TLV stream
// (segType byte, 16-bit length, value) and builds a path from the
// "path" segment, falling back to the "node" segment.
func decodeNovaNetPathSegments(payload []byte) []string {
	var pathSeg, nodeSeg []byte
	for i := 0; i+3 <= len(payload); {
		segType := payload[i]
		segLen := int(binary.LittleEndian.Uint16(payload[i+1 : i+3]))
		i += 3
		if i+segLen > len(payload) {
			break
		}
		value := payload[i : i+segLen]
		i += segLen
		switch segType {
		case novaNetSegPath:
			pathSeg = value
		case novaNetSegNode:
			nodeSeg = value
		}
	}
	if len(pathSeg) > 0 {
		return splitNulSeparated(pathSeg)
	}
	if len(nodeSeg) > 0 {
		return []string{string(bytes.TrimRight(nodeSeg, "\x00"))}
	}
	return nil
}
