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

func init() { Register("macait", func() Driver { return &MacAIT{} }) }

const (
	macAITBlockHeaderSize = 8
	macAITForkHeaderSize  = 0x16
	macAITRxvrSkip        = 0x2000
	macAITRealign         = 0x200
)

// MacAIT decodes MacAIT (Retrospect-lineage) FourCC images, big-endian
// throughout: name[4]|length[4]|body blocks, with File/Diry naming
// blocks, Fork/Cont carrying file body data, and realignment to the
// next 0x200 boundary after an all-zero block name.
type MacAIT struct{}

func (d *MacAIT) Name() string { return "macait" }

func (d *MacAIT) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	r := blockio.New(src)

	var pending *catalog.Entry
	var pendingBuf bytes.Buffer
	flush := func() error {
		if pending == nil {
			return nil
		}
		e := *pending
		pending = nil
		e.Size = int64(pendingBuf.Len())
		e.Data = bytes.NewReader(pendingBuf.Bytes())
		return emit(e)
	}

	for {
		hdr, err := r.ReadN(macAITBlockHeaderSize)
		if err != nil {
			if endOfInput(err) {
				return flush()
			}
			return fmt.Errorf("macait: block header: %w", err)
		}
		name := hdr[0:4]
		length := binary.BigEndian.Uint32(hdr[4:8])

		if bytes.Equal(name, []byte{0, 0, 0, 0}) {
			if err := flush(); err != nil {
				return err
			}
			if err := r.AlignForward(macAITRealign); err != nil {
				return fmt.Errorf("macait: realign: %w", err)
			}
			continue
		}
		if length < macAITBlockHeaderSize {
			return fmt.Errorf("macait: block %q length %d shorter than header", name, length)
		}
		body, err := r.ReadN(int(length) - macAITBlockHeaderSize)
		if err != nil {
			return fmt.Errorf("macait: block %q body: %w", name, err)
		}

		switch string(name) {
		case "Rxvr":
			if err := flush(); err != nil {
				return err
			}
			if err := r.Skip(macAITRxvrSkip); err != nil {
				return fmt.Errorf("macait: Rxvr skip: %w", err)
			}

		case "Diry":
			if err := flush(); err != nil {
				return err
			}
			if err := emit(catalog.Entry{Path: []string{tbinary.CleanString(body)}, Kind: catalog.Directory}); err != nil {
				return err
			}

		case "File":
			if err := flush(); err != nil {
				return err
			}
			pending = &catalog.Entry{Path: []string{tbinary.CleanString(body)}, Kind: catalog.File}
			pendingBuf.Reset()

		case "Fork":
			if len(body) < macAITForkHeaderSize {
				return fmt.Errorf("macait: Fork block shorter than its 0x16-byte header")
			}
			pendingBuf.Write(body[macAITForkHeaderSize:])

		case "Cont":
			pendingBuf.Write(body)

		default:
			warnf(warn, "macait: unknown block type %q", name)
		}
	}
}
