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

// Command segexpand walks a QIC-113-style compressed segment layout and
// writes the expanded byte stream, driving whichever sliding-window
// decompressor the source format used.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/tapearchivist/tapex/compress/aldc"
	"github.com/tapearchivist/tapex/compress/qic"
	"github.com/tapearchivist/tapex/compress/tx"
	"github.com/tapearchivist/tapex/segment"
)

var (
	inputFile        = flag.String("f", "", "input image path (required)")
	outFile          = flag.String("o", "", "output path prefix (required); out-of-order splits append _ suffixes")
	offsetFlag       = flag.Int64("offset", 0, "bytes to skip before the first segment")
	segSize          = flag.Int64("segsize", 0x8000, "logical segment size")
	absPosWidth      = flag.Int("absposwidth", 4, "absolute-position field width (4 or 8)")
	frameSizeWidth   = flag.Int("framesizewidth", 2, "frame-size field width (2 or 4)")
	haveExtentOffset = flag.Bool("haveextentoffset", false, "segment carries a 2-byte extent offset prefix")
	honourAbsPos     = flag.Bool("abspos", true, "honour segment absolute positions when expanding")
	codec            = flag.String("codec", "qic122", "decompressor: qic122, qic122-wide, aldc, or tx")
	zOut             = flag.Bool("zout", false, "zstd-compress the expanded output")
	xzOut            = flag.Bool("xzout", false, "xz-compress the expanded output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -f <image> -o <output> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Expands a QIC-113-style compressed segment layout.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *inputFile == "" || *outFile == "" {
		fmt.Fprintln(os.Stderr, "Error: both -f and -o are required")
		flag.Usage()
		os.Exit(1)
	}
	if *zOut && *xzOut {
		fmt.Fprintln(os.Stderr, "Error: -zout and -xzout are mutually exclusive")
		os.Exit(1)
	}

	decompressor, err := resolveCodec(*codec)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(decompressor); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func run(decompressor segment.Decompressor) error {
	src, err := os.Open(*inputFile) //nolint:gosec // path is user-supplied by design
	if err != nil {
		return fmt.Errorf("open %s: %w", *inputFile, err)
	}
	defer func() { _ = src.Close() }()

	if *offsetFlag != 0 {
		if _, err := src.Seek(*offsetFlag, 0); err != nil {
			return fmt.Errorf("seek to offset %d: %w", *offsetFlag, err)
		}
	}

	out, err := newFileOutput(*outFile, *zOut, *xzOut)
	if err != nil {
		return err
	}

	params := segment.Params{
		SegSize:          *segSize,
		AbsPosWidth:      *absPosWidth,
		FrameSizeWidth:   *frameSizeWidth,
		HaveExtentOffset: *haveExtentOffset,
		HonourAbsPos:     *honourAbsPos,
	}

	_, splits, err := segment.Expand(src, out, params, decompressor)
	closeErr := out.CloseAll()
	if err != nil {
		return fmt.Errorf("expand: %w", err)
	}
	if closeErr != nil {
		return closeErr
	}

	fmt.Fprintf(os.Stderr, "expanded %s; %d out-of-order split(s)\n", *inputFile, splits)
	return nil
}

func resolveCodec(name string) (segment.Decompressor, error) {
	switch strings.ToLower(name) {
	case "qic122":
		return qicDecompressor{window: qic.Window2K}, nil
	case "qic122-wide":
		return qicDecompressor{window: qic.Window64K}, nil
	case "aldc":
		return aldcDecompressor{}, nil
	case "tx":
		return txDecompressor{}, nil
	default:
		return nil, fmt.Errorf("unknown -codec %q (want qic122, qic122-wide, aldc, or tx)", name)
	}
}

type qicDecompressor struct{ window qic.WindowSize }

func (d qicDecompressor) Decompress(frame []byte) ([]byte, error) {
	return qic.Decompress(frame, d.window)
}

type aldcDecompressor struct{}

func (aldcDecompressor) Decompress(frame []byte) ([]byte, error) {
	return aldc.Decompress(frame)
}

type txDecompressor struct{}

func (txDecompressor) Decompress(frame []byte) ([]byte, error) {
	return tx.Decompress(frame, tx.DefaultOptions())
}
