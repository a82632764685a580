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

// Command savlibext prints the base-name to extension mapping recorded
// in a SAV/LIB image's QSRDSSPC.1 catalog, without extracting any file
// bodies. Useful for inspecting what a full extraction will name things
// before committing to it.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/tapearchivist/tapex/driver"
)

var inputFile = flag.String("f", "", "input SAV/LIB image path (required)")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s -f <image>\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Prints the SAV/LIB extension catalog (name=ext, one per line).\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Error: -f is required")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(*inputFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}
}

func run(path string) error {
	src, err := os.Open(path) //nolint:gosec // path is user-supplied by design
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer func() { _ = src.Close() }()

	extensions, err := driver.ExtensionMap(src)
	if err != nil {
		return fmt.Errorf("read extension catalog: %w", err)
	}

	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		fmt.Printf("%s=%s\n", name, extensions[name])
	}
	fmt.Fprintf(os.Stderr, "%d entries\n", len(names))
	return nil
}
