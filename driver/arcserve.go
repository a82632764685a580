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

func init() { Register("arcserve", func() Driver { return &ArcServe{} }) }

var (
	arcServeFileMagic  = []byte{0xAB, 0xBA, 0xAB, 0xBA}
	arcServeChunkMagic = []byte{0xAC, 0xCA, 0xAC, 0xCA}
)

const (
	arcServeChunkEnd        = 0x00
	arcServeChunkAltName    = 0x0C
	arcServeChunkDataStart  = 0x01
	arcServeChunkVariantLen = 0x10

	arcServeLenOffsetDefault = 0x0C
	arcServeLenOffsetVariant = 0x14
)

// ArcServe decodes ArcServe/Arcada images: a magic-tagged file header
// followed by a sequence of magic-tagged chunks (end, alternate name,
// data, variant-length-encoded data) until the next file header or the
// end of input.
//
// Note: the original FileHeader parser has an unreachable block after
// its return statement; that dead code is not ported here (spec design
// note, not a functional requirement).
type ArcServe struct{}

func (d *ArcServe) Name() string { return "arcserve" }

func (d *ArcServe) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	for {
		if _, err := r.ScanForMagic(arcServeFileMagic); err != nil {
			if endOfInput(err) {
				return nil
			}
			return fmt.Errorf("arcserve: scan for file header: %w", err)
		}

		nameLenB, err := r.ReadN(1)
		if err != nil {
			return fmt.Errorf("arcserve: name length: %w", err)
		}
		nameB, err := r.ReadN(int(nameLenB[0]))
		if err != nil {
			return fmt.Errorf("arcserve: name: %w", err)
		}
		name := string(nameB)

		var data bytes.Buffer
		done := false
		for !done {
			peek, err := r.ReadN(4)
			if err != nil {
				if endOfInput(err) {
					done = true
					break
				}
				return fmt.Errorf("arcserve: chunk magic: %w", err)
			}
			if bytes.Equal(peek, arcServeFileMagic) {
				if err := r.SeekTo(r.Pos() - 4); err != nil {
					return fmt.Errorf("arcserve: rewind to next file header: %w", err)
				}
				done = true
				break
			}
			if !bytes.Equal(peek, arcServeChunkMagic) {
				warnf(warn, "arcserve: unexpected bytes where a chunk magic was expected, skipping file %q", name)
				done = true
				break
			}

			typeB, err := r.ReadN(1)
			if err != nil {
				return fmt.Errorf("arcserve: chunk type: %w", err)
			}
			chunkType := typeB[0]

			lenOffset := arcServeLenOffsetDefault
			if chunkType == arcServeChunkVariantLen {
				lenOffset = arcServeLenOffsetVariant
			}
			if err := r.Skip(int64(lenOffset - 5)); err != nil {
				return fmt.Errorf("arcserve: chunk padding: %w", err)
			}
			lenB, err := r.ReadN(2)
			if err != nil {
				return fmt.Errorf("arcserve: chunk length: %w", err)
			}
			payloadLen := int(binary.LittleEndian.Uint16(lenB))
			payload, err := r.ReadN(payloadLen)
			if err != nil {
				return fmt.Errorf("arcserve: chunk payload: %w", err)
			}

			switch chunkType {
			case arcServeChunkEnd:
				done = true
			case arcServeChunkAltName:
				name = string(bytes.TrimRight(payload, "\x00"))
			case arcServeChunkDataStart, arcServeChunkVariantLen:
				data.Write(payload)
			default:
				warnf(warn, "arcserve: unknown chunk type 0x%02x", chunkType)
			}
		}

		entry := catalog.Entry{
			Path: []string{name},
			Kind: catalog.File,
			Size: int64(data.Len()),
			Data: bytes.NewReader(data.Bytes()),
		}
		if err := emit(entry); err != nil {
			return err
		}
	}
}
