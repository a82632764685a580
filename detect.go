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

package tapex

import (
	"bytes"
	"fmt"
	"io"
)

// detectScanWindow bounds how much of the image DetectFormat reads while
// probing for a format magic. Every probed magic in this file is known to
// occur within the first segment or two of a real image.
const detectScanWindow = 0x8000

// magicProbe pairs a driver registry name with a byte sequence that
// identifies it. offset is -1 when the magic may occur anywhere within
// the scan window (formats that realign past leading garbage), or a
// fixed byte offset when the magic is anchored to the start of the image.
type magicProbe struct {
	driver string
	magic  []byte
	offset int
}

// magicProbes holds formats detectable from the raw byte stream alone,
// tried in order. Ambiguous pairs (qicstream1 and qicstream95 share the
// 0x33CC33CC record magic) are resolved by a following disambiguation
// check rather than registry order.
var magicProbes = []magicProbe{
	{driver: "txplus", magic: []byte("?TXVer-45"), offset: 0},
	{driver: "novastor", magic: []byte("<<NoVaStOr>>"), offset: 0x74},
	{driver: "novanet", magic: []byte("F600"), offset: 0},
	{driver: "arcserve", magic: []byte{0xAB, 0xBA, 0xAB, 0xBA}, offset: -1},
	{driver: "savlib", magic: []byte{0xFF, 0xFF, 0xFF, 0xFF}, offset: 0},
	{driver: "mtf", magic: []byte("TAPE"), offset: 0},
	{driver: "mtf", magic: []byte("SSET"), offset: 0},
	{driver: "mtf", magic: []byte("VOLB"), offset: 0},
	{driver: "qicstream1", magic: []byte{0x33, 0xCC, 0x33, 0xCC}, offset: -1},
}

// qicStream95DataMagic, present soon after the file magic in the Win95
// flavor of QIC-113, disambiguates it from qicstream1's DOS flavor.
var qicStream95DataMagic = []byte{0x66, 0x99, 0x66, 0x99}

// AmbiguousFormatError reports that the image's bytes don't carry any
// magic DetectFormat recognizes; the caller must pick a driver name
// explicitly (see Names).
type AmbiguousFormatError struct {
	Candidates []string
}

func (e AmbiguousFormatError) Error() string {
	return fmt.Sprintf("tapex: could not auto-detect format; pass one of %v explicitly", e.Candidates)
}

// DetectFormat reads a bounded prefix of src and returns the registered
// driver name whose magic matched. src's position is left wherever the
// final read happened to leave it; callers that need the original offset
// should seek back to 0 before calling Lookup/Walk.
func DetectFormat(src io.ReadSeeker) (string, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("tapex: seek to start: %w", err)
	}
	window := make([]byte, detectScanWindow)
	n, err := io.ReadFull(src, window)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", fmt.Errorf("tapex: read detection window: %w", err)
	}
	window = window[:n]

	for _, probe := range magicProbes {
		if !probeMatches(window, probe) {
			continue
		}
		if probe.driver == "qicstream1" {
			if idx := bytes.Index(window, probe.magic); idx >= 0 {
				tail := window[idx+len(probe.magic):]
				if bytes.Contains(tail, qicStream95DataMagic) {
					return "qicstream95", nil
				}
			}
			return "qicstream1", nil
		}
		return probe.driver, nil
	}

	return "", AmbiguousFormatError{Candidates: Names()}
}

func probeMatches(window []byte, probe magicProbe) bool {
	if probe.offset < 0 {
		return bytes.Contains(window, probe.magic)
	}
	end := probe.offset + len(probe.magic)
	if end > len(window) {
		return false
	}
	return bytes.Equal(window[probe.offset:end], probe.magic)
}
