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

// Package tapex recovers files and directories from binary dump images of
// legacy magnetic-tape and floppy backups. It ties together format
// auto-detection (detect.go), the per-format drivers in package driver,
// and the filesystem materializer in package output.
package tapex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/tapearchivist/tapex/archive"
	"github.com/tapearchivist/tapex/catalog"
	"github.com/tapearchivist/tapex/driver"
	"github.com/tapearchivist/tapex/output"
)

// Names returns the registered format driver names, for CLI help text and
// AmbiguousFormatError's candidate list.
func Names() []string { return driver.Names() }

// Options configures Extract and ExtractWithDriver.
type Options struct {
	// Offset skips this many bytes of the (possibly archive-unwrapped)
	// input before detection and decoding begin.
	Offset int64

	// DryRun inspects and reports entries without writing any output.
	DryRun bool

	// CatalogOnly lists catalog entries only; implies DryRun.
	CatalogOnly bool

	// Report, if non-nil, is called once per entry in source order,
	// before it is materialized (or skipped, under DryRun/CatalogOnly).
	Report func(entry catalog.Entry)

	// Warn, if non-nil, receives non-fatal PolicyWarning-class messages.
	Warn func(format string, args ...any)
}

// Result summarizes one completed extraction.
type Result struct {
	// Format is the driver name used, whether chosen by DetectFormat or
	// passed explicitly to ExtractWithDriver.
	Format string

	// Entries is the number of entries the driver emitted, including
	// directories, skipped records, and catalog-only records.
	Entries int
}

// Extract auto-detects path's format and recovers its contents into
// outDir. path may itself be a zip/7z/rar archive wrapping a sole dump
// image, in which case it is transparently unwrapped first.
func Extract(path, outDir string, opts Options) (*Result, error) {
	src, closer, err := OpenImage(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()

	view, err := applyOffset(src, opts.Offset)
	if err != nil {
		return nil, err
	}

	format, err := DetectFormat(view)
	if err != nil {
		return nil, err
	}

	return extractWithFormat(view, format, outDir, opts)
}

// ExtractWithDriver behaves like Extract but skips auto-detection,
// decoding path with the named driver directly. Use this when
// DetectFormat returns AmbiguousFormatError or guesses wrong.
func ExtractWithDriver(path, driverName, outDir string, opts Options) (*Result, error) {
	src, closer, err := OpenImage(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = closer.Close() }()

	view, err := applyOffset(src, opts.Offset)
	if err != nil {
		return nil, err
	}

	return extractWithFormat(view, driverName, outDir, opts)
}

func extractWithFormat(src io.ReadSeeker, format, outDir string, opts Options) (*Result, error) {
	d, err := driver.Lookup(format)
	if err != nil {
		return nil, err
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("tapex: seek to start: %w", err)
	}

	var sink *output.Sink
	if !opts.DryRun && !opts.CatalogOnly {
		sink, err = output.New(afero.NewOsFs(), outDir)
		if err != nil {
			return nil, fmt.Errorf("tapex: create output sink: %w", err)
		}
	}

	outWarn := output.Warn(func(format string, args ...any) {
		if opts.Warn != nil {
			opts.Warn(format, args...)
		}
	})
	drvWarn := driver.Warn(func(format string, args ...any) {
		if opts.Warn != nil {
			opts.Warn(format, args...)
		}
	})

	count := 0
	emit := driver.Emit(func(entry catalog.Entry) error {
		count++
		if opts.Report != nil {
			opts.Report(entry)
		}
		if sink == nil {
			return nil
		}
		return sink.Write(entry, outWarn)
	})

	if err := d.Walk(src, emit, drvWarn); err != nil {
		return nil, fmt.Errorf("tapex: %s: %w", format, err)
	}

	return &Result{Format: format, Entries: count}, nil
}

// OpenImage opens path for decoding. path may name an archive member
// directly ("dump.zip/TAPE.IMG", per archive.ParsePath) to pin the exact
// image in a multi-volume archive rather than let DetectImageFile guess;
// a bare zip/7z/rar path instead has its sole dump image (per
// archive.DetectImageFile) unwrapped transparently; otherwise path is
// opened directly. The returned io.Closer releases every resource
// OpenImage acquired.
func OpenImage(path string) (io.ReadSeeker, io.Closer, error) {
	if archivePath, err := archive.ParsePath(path); err != nil {
		return nil, nil, fmt.Errorf("tapex: parse archive path %s: %w", path, err)
	} else if archivePath != nil && archivePath.InternalPath != "" {
		return openArchiveMember(archivePath.ArchivePath, archivePath.InternalPath)
	}

	ext := strings.ToLower(filepath.Ext(path))
	if archive.IsArchiveExtension(ext) {
		return openArchivedImage(path)
	}

	f, err := os.Open(path) //nolint:gosec // path is user-supplied by design (CLI -f)
	if err != nil {
		return nil, nil, fmt.Errorf("tapex: open %s: %w", path, err)
	}
	return f, f, nil
}

func openArchivedImage(path string) (io.ReadSeeker, io.Closer, error) {
	arc, name, err := archive.OpenImage(path)
	if err != nil {
		return nil, nil, fmt.Errorf("tapex: open image in %s: %w", path, err)
	}

	readerAt, size, closer, err := arc.OpenReaderAt(name)
	if err != nil {
		_ = arc.Close()
		return nil, nil, fmt.Errorf("tapex: open %s in archive %s: %w", name, path, err)
	}

	return io.NewSectionReader(readerAt, 0, size), multiCloser{closer, arc}, nil
}

func openArchiveMember(archivePath, internalPath string) (io.ReadSeeker, io.Closer, error) {
	arc, err := archive.Open(archivePath)
	if err != nil {
		return nil, nil, fmt.Errorf("tapex: open archive %s: %w", archivePath, err)
	}

	readerAt, size, closer, err := arc.OpenReaderAt(internalPath)
	if err != nil {
		_ = arc.Close()
		return nil, nil, fmt.Errorf("tapex: open %s in archive %s: %w", internalPath, archivePath, err)
	}

	return io.NewSectionReader(readerAt, 0, size), multiCloser{closer, arc}, nil
}

// multiCloser closes every Closer it holds, in order, returning the first
// error encountered but still attempting the rest.
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// applyOffset returns a view of src whose position 0 is offset bytes into
// the underlying stream. When offset is zero, src is returned unchanged.
func applyOffset(src io.ReadSeeker, offset int64) (io.ReadSeeker, error) {
	if offset == 0 {
		return src, nil
	}
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("tapex: seek to offset %d: %w", offset, err)
	}
	return &offsetView{ReadSeeker: src, base: offset}, nil
}

// offsetView translates Seek's io.SeekStart requests by a fixed base, so
// callers see a stream that begins at the configured offset.
type offsetView struct {
	io.ReadSeeker
	base int64
}

func (o *offsetView) Seek(offset int64, whence int) (int64, error) {
	if whence == io.SeekStart {
		pos, err := o.ReadSeeker.Seek(o.base+offset, io.SeekStart)
		if err != nil {
			return 0, err
		}
		return pos - o.base, nil
	}
	pos, err := o.ReadSeeker.Seek(offset, whence)
	if err != nil {
		return 0, err
	}
	if pos < o.base {
		return 0, fmt.Errorf("tapex: seek landed before the configured offset")
	}
	return pos - o.base, nil
}
