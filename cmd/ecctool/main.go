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

// Command ecctool strips trailing error-correction bytes from a fixed
// segment layout, without validating or correcting them.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/tapearchivist/tapex/ecc"
)

var (
	inputFile = flag.String("f", "", "input image path (required)")
	outFile   = flag.String("o", "", "output path (required)")
	segSize   = flag.Int("segsize", 0x8000, "logical segment size")
	eccSize   = flag.Int("eccsize", 0, "trailing ECC byte count per segment")
	zOut      = flag.Bool("zout", false, "zstd-compress the stripped output")
	xzOut     = flag.Bool("xzout", false, "xz-compress the stripped output")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -f <image> -o <output> --segsize N --eccsize N\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Strips trailing ECC bytes from fixed-size tape segments.\n\n")
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

	if err := run(*inputFile, *outFile, *segSize, *eccSize, *zOut, *xzOut); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func run(inPath, outPath string, segSize, eccSize int, zOut, xzOut bool) error {
	src, err := os.Open(inPath) //nolint:gosec // path is user-supplied by design
	if err != nil {
		return fmt.Errorf("open %s: %w", inPath, err)
	}
	defer func() { _ = src.Close() }()

	dst, err := os.Create(outPath) //nolint:gosec // path is user-supplied by design
	if err != nil {
		return fmt.Errorf("create %s: %w", outPath, err)
	}
	defer func() { _ = dst.Close() }()

	writer, closeWriter, err := wrapScratchWriter(dst, zOut, xzOut)
	if err != nil {
		return err
	}

	written, err := ecc.Strip(writer, src, segSize, eccSize)
	if closeErr := closeWriter(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("strip ECC: %w", err)
	}

	fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", written, outPath)
	return nil
}

// wrapScratchWriter optionally layers a zstd or xz encoder over dst, for
// keeping large intermediate ECC-stripped captures cheap to retain on
// disk. The returned close func must run before dst itself is closed.
func wrapScratchWriter(dst io.Writer, zOut, xzOut bool) (io.Writer, func() error, error) {
	switch {
	case zOut:
		enc, err := zstd.NewWriter(dst)
		if err != nil {
			return nil, nil, fmt.Errorf("zstd writer: %w", err)
		}
		return enc, enc.Close, nil
	case xzOut:
		w, err := xz.NewWriter(dst)
		if err != nil {
			return nil, nil, fmt.Errorf("xz writer: %w", err)
		}
		return w, w.Close, nil
	default:
		return dst, func() error { return nil }, nil
	}
}
