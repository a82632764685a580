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

package main

import (
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"

	"github.com/tapearchivist/tapex/segment"
)

// fileOutput is a segment.Output backed by a plain file. NewSplit opens
// a fresh file with one more trailing "_" than the path it was split
// from, per §7's out-of-order handling, and tracks every file opened so
// CloseAll can release them all at the end of a run.
type fileOutput struct {
	path        string
	file        *os.File
	codecClose  func() error
	writer      io.Writer
	zOut, xzOut bool
	all         *[]*fileOutput
}

func newFileOutput(path string, zOut, xzOut bool) (*fileOutput, error) {
	all := &[]*fileOutput{}
	return openFileOutput(path, zOut, xzOut, all)
}

func openFileOutput(path string, zOut, xzOut bool, all *[]*fileOutput) (*fileOutput, error) {
	f, err := os.Create(path) //nolint:gosec // path is user-supplied by design
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}

	writer, codecClose, err := wrapScratchWriter(f, zOut, xzOut)
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	out := &fileOutput{path: path, file: f, codecClose: codecClose, writer: writer, zOut: zOut, xzOut: xzOut, all: all}
	*all = append(*all, out)
	return out, nil
}

func (o *fileOutput) Write(p []byte) (int, error) {
	return o.writer.Write(p)
}

func (o *fileOutput) Seek(offset int64, whence int) (int64, error) {
	if seeker, ok := o.writer.(io.Seeker); ok {
		return seeker.Seek(offset, whence)
	}
	return o.file.Seek(offset, whence)
}

// NewSplit opens path with one more "_" suffix than the last split
// produced from the same logical stream, reusing this output's codec
// choice.
func (o *fileOutput) NewSplit() (segment.Output, error) {
	return openFileOutput(o.path+"_", o.zOut, o.xzOut, o.all)
}

// CloseAll flushes and closes every file this output (and its splits)
// opened, returning the first error encountered.
func (o *fileOutput) CloseAll() error {
	var first error
	for _, out := range *o.all {
		if out.codecClose != nil {
			if err := out.codecClose(); err != nil && first == nil {
				first = err
			}
		}
		if err := out.file.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

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
		return dst, nil, nil
	}
}

