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

// Command tapex recovers files and directories from a tape/backup dump
// image, auto-detecting its format unless one is given explicitly.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/tapearchivist/tapex"
	"github.com/tapearchivist/tapex/catalog"
)

var (
	inputFile   = flag.String("f", "", "input image path (required)")
	outDir      = flag.String("d", "out", "base output directory")
	offsetFlag  = flag.String("offset", "0", "bytes to skip before decoding (decimal or 0x-prefixed hex)")
	dryRun      = flag.Bool("dry", false, "inspect and list entries without writing")
	catalogOnly = flag.Bool("catdump", false, "list catalog entries only")
	format      = flag.String("format", "", "format driver name (auto-detect if omitted; see -list-formats)")
	listFormats = flag.Bool("list-formats", false, "list supported format driver names and exit")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -f <image> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Recovers files and directories from a tape/backup dump image.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -f QIC80.DAT -d recovered\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f backup.zip --catdump\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f dump.bin -format mtf -d out\n", os.Args[0])
	}
	flag.Parse()

	if *listFormats {
		for _, name := range tapex.Names() {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: input image required (-f)")
		flag.Usage()
		os.Exit(1)
	}

	offset, err := parseOffset(*offsetFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	opts := tapex.Options{
		Offset:      offset,
		DryRun:      *dryRun,
		CatalogOnly: *catalogOnly,
		Report:      reportEntry,
		Warn:        warnLine,
	}

	var result *tapex.Result
	if *format != "" {
		result, err = tapex.ExtractWithDriver(*inputFile, *format, *outDir, opts)
	} else {
		result, err = tapex.Extract(*inputFile, *outDir, opts)
	}
	if err != nil {
		var ambiguous tapex.AmbiguousFormatError
		if errors.As(err, &ambiguous) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	fmt.Fprintf(os.Stderr, "%s: %d entries\n", result.Format, result.Entries)
}

func reportEntry(entry catalog.Entry) {
	var when string
	if entry.HasModifyTime {
		when = entry.ModifyTime.Format("2006-01-02 15:04:05")
	}
	fmt.Printf("%-9s %10d  %-19s  %s\n", entry.Kind, entry.Size, when, entry.JoinedPath())
}

func warnLine(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

func parseOffset(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	base := 10
	if strings.HasPrefix(strings.ToLower(s), "0x") {
		s = s[2:]
		base = 16
	}
	n, err := strconv.ParseInt(s, base, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid --offset %q: %w", s, err)
	}
	return n, nil
}
