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

// Package segment expands fixed-size on-tape segments, each carrying an
// absolute-position prefix and a sequence of compression frames, into a
// flat byte stream that mirrors original file offsets.
package segment

import (
	"fmt"
	"io"

	"github.com/tapearchivist/tapex/tapeerr"
)

// maxFrameSize is the largest frame-size value the format allows; a
// larger value is a corrupt stream, not a recoverable one.
const maxFrameSize = 0xFFFF

// segmentAlign is the boundary segments are aligned to before each
// absolute-position field.
const segmentAlign = 0x100

// minBudgetForFrame is the smallest remaining segment budget (bytes)
// that could still hold another frame header and payload.
const minBudgetForFrame = 18

// uncompressedFlag is the high bit of the frame-size field.
const uncompressedFlag = 0x8000

// Decompressor expands one compressed frame's payload into its original
// bytes.
type Decompressor interface {
	Decompress(frame []byte) ([]byte, error)
}

// Params configures how segments are laid out in the source stream.
type Params struct {
	SegSize          int64
	AbsPosWidth      int // 4 or 8
	FrameSizeWidth   int // 2 or 4
	HaveExtentOffset bool
	// HonourAbsPos enables the out-of-order/seek-ahead handling of
	// §4.4 steps d/e. When false, frames are written back-to-back in
	// stream order, ignoring recorded absolute positions.
	HonourAbsPos bool
}

// Output is the destination the expander writes to. Seek is used to
// pad the output forward (sparse holes) when a frame's absolute
// position is ahead of the current cursor.
type Output interface {
	io.Writer
	io.Seeker
	// NewSplit is called when an out-of-order absolute position is
	// seen; it must return a fresh Output (e.g. a new "_"-suffixed
	// file) to continue writing to. Expand counts the splits itself.
	NewSplit() (Output, error)
}

// Expand reads segments from src until exhausted, driving decompressor
// for compressed frames and writing the expanded payload to out.
// Returns the final Output written to (it may differ from out if a
// split occurred) and the number of splits that occurred.
func Expand(src io.ReadSeeker, out Output, p Params, decompressor Decompressor) (Output, int, error) {
	var outPos int64
	var absPos int64
	splits := 0

	for {
		if err := alignForward(src, segmentAlign); err != nil {
			if err == io.EOF {
				return out, splits, nil
			}
			return out, splits, err
		}

		budget := p.SegSize
		if p.HaveExtentOffset {
			if _, err := readExact(src, 2); err != nil {
				if err == io.EOF {
					return out, splits, nil
				}
				return out, splits, fmt.Errorf("segment: read extent offset: %w", err)
			}
			budget -= 2
		}

		absBuf, err := readExact(src, p.AbsPosWidth)
		if err != nil {
			if err == io.EOF {
				return out, splits, nil
			}
			return out, splits, fmt.Errorf("segment: read absolute position: %w", err)
		}
		absPos = int64(leUint(absBuf))
		budget -= int64(p.AbsPosWidth)

		for budget >= minBudgetForFrame {
			sizeBuf, err := readExact(src, p.FrameSizeWidth)
			if err != nil {
				return out, splits, fmt.Errorf("segment: read frame size: %w", err)
			}
			budget -= int64(p.FrameSizeWidth)

			rawSize := leUint(sizeBuf)
			if rawSize == 0 {
				break
			}
			uncompressed := rawSize&uncompressedFlag != 0
			frameSize := int64(rawSize &^ uncompressedFlag)
			if frameSize > maxFrameSize {
				return out, splits, fmt.Errorf("segment: frame size %d exceeds maximum: %w", frameSize, tapeerr.ErrCorruptFrame)
			}

			payload, err := readExact(src, int(frameSize))
			if err != nil {
				return out, splits, fmt.Errorf("segment: read frame payload: %w", err)
			}
			budget -= frameSize

			if p.HonourAbsPos {
				switch {
				case absPos < outPos:
					newOut, err := out.NewSplit()
					if err != nil {
						return out, splits, fmt.Errorf("segment: open split output: %w", err)
					}
					out = newOut
					splits++
					outPos = 0
				case absPos > outPos:
					if _, err := out.Seek(absPos, io.SeekStart); err != nil {
						return out, splits, fmt.Errorf("segment: seek output forward: %w", err)
					}
					outPos = absPos
				}
			}

			var expanded []byte
			if uncompressed {
				expanded = payload
			} else {
				expanded, err = decompressor.Decompress(payload)
				if err != nil {
					// A single decompression failure skips the frame; it
					// is not fatal to the stream, and the error is
					// neither returned nor reported.
					continue
				}
			}

			n, err := out.Write(expanded)
			if err != nil {
				return out, splits, fmt.Errorf("segment: write expanded frame: %w", err)
			}
			outPos += int64(n)
			absPos = outPos
		}
	}
}

func alignForward(src io.ReadSeeker, align int64) error {
	cur, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	rem := cur % align
	if rem == 0 {
		// Confirm there's still data; probe a single byte and rewind.
		probe := make([]byte, 1)
		n, err := src.Read(probe)
		if n == 0 && err != nil {
			return io.EOF
		}
		if _, serr := src.Seek(cur, io.SeekStart); serr != nil {
			return serr
		}
		return nil
	}
	_, err = src.Seek(align-rem, io.SeekCurrent)
	return err
}

func readExact(src io.Reader, n int) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(src, buf)
	if err != nil {
		if err == io.ErrUnexpectedEOF || (err == io.EOF && read == 0) {
			return nil, io.EOF
		}
		return nil, err
	}
	return buf, nil
}

// leUint decodes a little-endian unsigned integer of the buffer's
// length, matching the format drivers' default byte order.
func leUint(b []byte) uint64 {
	var v uint64
	for i := len(b) - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}
