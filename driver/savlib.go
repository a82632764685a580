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

	"github.com/tapearchivist/tapex/blockio"
	"github.com/tapearchivist/tapex/catalog"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

func init() { Register("savlib", func() Driver { return &SavLib{} }) }

const (
	savLibBlockSize          = 0x200
	savLibDescriptorNameSize = 30
)

var (
	savLibDescriptorMagic = []byte{0xFF, 0xFF, 0xFF, 0xFF}
	savLibCompressedMagic = []byte{0xC4, 0xFF}
)

// SavLib decodes AS/400 SAV/LIB images: EBCDIC throughout, 0x200-byte
// blocks, an object descriptor (name, type, block count, data size,
// version) per object, with optional RLE-style content compression and
// a QSRDSSPC.1 secondary catalog re-attaching file extensions dropped
// by the AS/400 library naming convention.
type SavLib struct{}

func (d *SavLib) Name() string { return "savlib" }

func (d *SavLib) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)
	decoder := charmap.CodePage037.NewDecoder()

	extensions := make(map[string]string)
	type pendingObject struct {
		library string
		name    string
		kind    uint16
		data    []byte
	}
	var pending []pendingObject
	library := ""

	for {
		blockStart := r.Pos()
		magic, err := r.ReadN(4)
		if err != nil {
			if endOfInput(err) {
				break
			}
			return fmt.Errorf("savlib: descriptor magic: %w", err)
		}
		if !bytes.Equal(magic, savLibDescriptorMagic) {
			if err := r.SeekTo(blockStart); err != nil {
				return err
			}
			if err := r.AlignForward(savLibBlockSize); err != nil {
				return fmt.Errorf("savlib: realign: %w", err)
			}
			if r.Pos() == blockStart {
				return fmt.Errorf("savlib: bad descriptor magic at offset %d", blockStart)
			}
			continue
		}

		tag, err := r.ReadN(21) // "L/D OBJECT DESCRIPTOR"
		if err != nil {
			return fmt.Errorf("savlib: descriptor tag: %w", err)
		}
		_ = tag

		rest, err := r.ReadN(savLibBlockSize - 4 - 21)
		if err != nil {
			return fmt.Errorf("savlib: descriptor body: %w", err)
		}
		if len(rest) < savLibDescriptorNameSize+2+4+4+4 {
			return fmt.Errorf("savlib: descriptor body too short")
		}
		nameRaw, err := decoder.Bytes(rest[0:savLibDescriptorNameSize])
		if err != nil {
			return fmt.Errorf("savlib: name EBCDIC decode: %w", err)
		}
		name := strings.TrimRight(string(nameRaw), " \x00")
		objType := binary.BigEndian.Uint16(rest[savLibDescriptorNameSize : savLibDescriptorNameSize+2])
		blockCount := binary.BigEndian.Uint32(rest[savLibDescriptorNameSize+2 : savLibDescriptorNameSize+6])
		dataSize := binary.BigEndian.Uint32(rest[savLibDescriptorNameSize+6 : savLibDescriptorNameSize+10])
		version := rest[savLibDescriptorNameSize+10 : savLibDescriptorNameSize+14]

		size := dataSize
		if string(version) == "6380" {
			if blockCount >= 0x10 {
				size = (blockCount - 0x10) * 512
			} else {
				size = 0
			}
		}

		body, err := r.ReadN(int(size))
		if err != nil {
			return fmt.Errorf("savlib: object body for %q: %w", name, err)
		}

		var decoded []byte
		if bytes.HasPrefix(body, savLibCompressedMagic) {
			decoded, err = decodeSavLibRLE(body[len(savLibCompressedMagic):], decoder, warn)
			if err != nil {
				return fmt.Errorf("savlib: RLE decode for %q: %w", name, err)
			}
		} else {
			decoded, err = decoder.Bytes(substituteSavLibNewlines(body))
			if err != nil {
				return fmt.Errorf("savlib: EBCDIC decode for %q: %w", name, err)
			}
		}

		if err := r.AlignForward(savLibBlockSize); err != nil {
			return fmt.Errorf("savlib: post-object realign: %w", err)
		}

		if name == "QSRDSSPC.1" {
			parseSavLibExtensionCatalog(decoded, extensions)
			continue
		}

		if objType == 1 { // library/subdirectory-style object
			library = name
			if err := emit(catalog.Entry{Path: []string{name}, Kind: catalog.Directory}); err != nil {
				return err
			}
			continue
		}
		pending = append(pending, pendingObject{library: library, name: name, kind: objType, data: decoded})
	}

	for _, obj := range pending {
		name := obj.name
		if ext, ok := extensions[obj.name]; ok && ext != "" {
			name = obj.name + "." + ext
		}
		path := []string{name}
		if obj.library != "" {
			path = []string{obj.library, name}
		}
		if err := emit(catalog.Entry{
			Path: path,
			Kind: catalog.File,
			Size: int64(len(obj.data)),
			Data: bytes.NewReader(obj.data),
		}); err != nil {
			return err
		}
	}
	return nil
}

// decodeSavLibRLE expands the AS/400 content opcode stream: each byte
// packs a 2-bit code in the high bits and a 6-bit count in the low
// bits. Code 3 repeats the next byte count times, code 2 emits count
// EBCDIC spaces, code 0 copies count literal bytes, and code 1
// ("compacted characters") is not implemented and only warned about.
func decodeSavLibRLE(b []byte, decoder *encoding.Decoder, warn Warn) ([]byte, error) {
	var out bytes.Buffer
	for i := 0; i < len(b); {
		op := b[i]
		i++
		code := op >> 6
		count := int(op & 0x3F)
		switch code {
		case 3:
			if i >= len(b) {
				return nil, fmt.Errorf("savlib rle: repeat opcode missing operand")
			}
			for j := 0; j < count; j++ {
				out.WriteByte(b[i])
			}
			i++
		case 2:
			for j := 0; j < count; j++ {
				out.WriteByte(0x40)
			}
		case 0:
			if i+count > len(b) {
				return nil, fmt.Errorf("savlib rle: literal run exceeds input")
			}
			out.Write(b[i : i+count])
			i += count
		case 1:
			warnf(warn, "savlib: compacted-character opcode not implemented, skipping %d bytes", count)
			i += count
		}
	}
	return decoder.Bytes(substituteSavLibNewlines(out.Bytes()))
}

// substituteSavLibNewlines rewrites raw EBCDIC byte 0x80 to the EBCDIC
// line-feed codepoint (0x25) before charmap decoding, so it surfaces
// as an ASCII newline in the decoded output. Real AS/400 CL source
// members use 0x80 this way even though it has no standard CP037
// mapping; the substitution is a heuristic (see DESIGN.md).
func substituteSavLibNewlines(b []byte) []byte {
	out := make([]byte, len(b))
	for i, c := range b {
		if c == 0x80 {
			out[i] = 0x25
		} else {
			out[i] = c
		}
	}
	return out
}

// ExtensionMap opens src as a SAV/LIB image and returns the base-name to
// extension mapping recorded in its QSRDSSPC.1 object, without
// extracting or materializing any file bodies. cmd/savlibext uses this to
// inspect an image's naming catalog ahead of a full extraction.
func ExtensionMap(src io.ReadSeeker) (map[string]string, error) {
	r := blockio.New(src)
	decoder := charmap.CodePage037.NewDecoder()
	extensions := make(map[string]string)

	for {
		blockStart := r.Pos()
		magic, err := r.ReadN(4)
		if err != nil {
			if endOfInput(err) {
				break
			}
			return nil, fmt.Errorf("savlib: descriptor magic: %w", err)
		}
		if !bytes.Equal(magic, savLibDescriptorMagic) {
			if err := r.SeekTo(blockStart); err != nil {
				return nil, err
			}
			if err := r.AlignForward(savLibBlockSize); err != nil {
				return nil, fmt.Errorf("savlib: realign: %w", err)
			}
			if r.Pos() == blockStart {
				return nil, fmt.Errorf("savlib: bad descriptor magic at offset %d", blockStart)
			}
			continue
		}

		if _, err := r.ReadN(21); err != nil {
			return nil, fmt.Errorf("savlib: descriptor tag: %w", err)
		}
		rest, err := r.ReadN(savLibBlockSize - 4 - 21)
		if err != nil {
			return nil, fmt.Errorf("savlib: descriptor body: %w", err)
		}
		if len(rest) < savLibDescriptorNameSize+2+4+4+4 {
			return nil, fmt.Errorf("savlib: descriptor body too short")
		}
		nameRaw, err := decoder.Bytes(rest[0:savLibDescriptorNameSize])
		if err != nil {
			return nil, fmt.Errorf("savlib: name EBCDIC decode: %w", err)
		}
		name := strings.TrimRight(string(nameRaw), " \x00")
		blockCount := binary.BigEndian.Uint32(rest[savLibDescriptorNameSize+2 : savLibDescriptorNameSize+6])
		dataSize := binary.BigEndian.Uint32(rest[savLibDescriptorNameSize+6 : savLibDescriptorNameSize+10])
		version := rest[savLibDescriptorNameSize+10 : savLibDescriptorNameSize+14]

		size := dataSize
		if string(version) == "6380" {
			if blockCount >= 0x10 {
				size = (blockCount - 0x10) * 512
			} else {
				size = 0
			}
		}

		body, err := r.ReadN(int(size))
		if err != nil {
			return nil, fmt.Errorf("savlib: object body for %q: %w", name, err)
		}

		if err := r.AlignForward(savLibBlockSize); err != nil {
			return nil, fmt.Errorf("savlib: post-object realign: %w", err)
		}

		if name != "QSRDSSPC.1" {
			continue
		}

		var decoded []byte
		if bytes.HasPrefix(body, savLibCompressedMagic) {
			decoded, err = decodeSavLibRLE(body[len(savLibCompressedMagic):], decoder, nil)
			if err != nil {
				return nil, fmt.Errorf("savlib: RLE decode for QSRDSSPC.1: %w", err)
			}
		} else {
			decoded, err = decoder.Bytes(substituteSavLibNewlines(body))
			if err != nil {
				return nil, fmt.Errorf("savlib: EBCDIC decode for QSRDSSPC.1: %w", err)
			}
		}
		parseSavLibExtensionCatalog(decoded, extensions)
	}
	return extensions, nil
}

// parseSavLibExtensionCatalog reads the already-EBCDIC-decoded
// QSRDSSPC.1 body: fixed-width lines of an 8-byte base name and a
// 3-byte extension, whitespace padded.
func parseSavLibExtensionCatalog(decoded []byte, extensions map[string]string) {
	const lineLen = 11
	for i := 0; i+lineLen <= len(decoded); i += lineLen {
		base := strings.TrimSpace(string(decoded[i : i+8]))
		ext := strings.TrimSpace(string(decoded[i+8 : i+11]))
		if base == "" {
			continue
		}
		extensions[base] = ext
	}
}
