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

// Package output materializes catalog.Entry records onto a filesystem:
// path sanitization, idempotent directory creation, collision
// resolution, bounded body copy with a best-effort magic check, and
// best-effort timestamp/attribute application.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"

	"github.com/tapearchivist/tapex/catalog"
)

// Warn receives a non-fatal diagnostic (name too long, path already
// existed, magic mismatch). A nil Warn discards messages.
type Warn func(format string, args ...any)

func warnf(w Warn, format string, args ...any) {
	if w == nil {
		return
	}
	w(format, args...)
}

// maxPathLength is the fully qualified path length past which the
// output sink truncates the final component.
const maxPathLength = 259

// magicByExt holds the signature bytes expected at the start of a file
// whose extension claims one of these well-known formats.
var magicByExt = map[string][]byte{
	".exe": []byte("MZ"),
	".zip": []byte("PK"),
	".dwg": []byte("AC"),
}

// invalidPathChars are characters that cannot appear in a path
// component on at least one of the platforms tapex targets.
const invalidPathChars = `<>:"/\|?*`

// Sink writes decoded entries to a base directory on fs. The zero value
// is not usable; construct with New.
type Sink struct {
	Fs      afero.Fs
	BaseDir string

	// seen bounds repeated existence checks for paths already resolved
	// in this run, avoiding a re-Stat of the filesystem on every entry
	// under a directory with many siblings.
	seen *lru.Cache[string, struct{}]

	// continuations records every resolved output path already written
	// in this run, so a later Continuation entry for that path appends
	// to it. Later fragments do not re-apply timestamps or attributes.
	continuations map[string]bool
}

// New builds a Sink rooted at baseDir on fs.
func New(fs afero.Fs, baseDir string) (*Sink, error) {
	cache, err := lru.New[string, struct{}](4096)
	if err != nil {
		return nil, fmt.Errorf("output: path cache: %w", err)
	}
	return &Sink{
		Fs:            fs,
		BaseDir:       baseDir,
		seen:          cache,
		continuations: make(map[string]bool),
	}, nil
}

// sanitizeComponent replaces characters invalid in a path component
// with '_' and trims trailing dots/spaces a Windows target would
// otherwise reject.
func sanitizeComponent(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "_"
	}
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || strings.ContainsRune(invalidPathChars, r) {
			b.WriteByte('_')
			continue
		}
		b.WriteRune(r)
	}
	out := strings.TrimRight(b.String(), " .")
	if out == "" {
		return "_"
	}
	return out
}

func (s *Sink) sanitizedPath(entry catalog.Entry) string {
	comps := make([]string, 0, len(entry.Path)+1)
	comps = append(comps, s.BaseDir)
	for _, c := range entry.Path {
		comps = append(comps, sanitizeComponent(c))
	}
	return filepath.Join(comps...)
}

// truncateFileName shortens the final path component so the full path
// fits within maxPathLength, preserving the extension where possible.
func truncateFileName(path string) string {
	if len(path) <= maxPathLength {
		return path
	}
	dir, name := filepath.Split(path)
	overflow := len(path) - maxPathLength
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	if len(base) <= overflow {
		base = ""
	} else {
		base = base[:len(base)-overflow]
	}
	if base == "" {
		base = "_"
	}
	return filepath.Join(dir, base+ext)
}

// exists reports whether path is already present on the filesystem,
// consulting and updating the bounded recent-path cache first.
func (s *Sink) exists(path string) bool {
	if _, ok := s.seen.Get(path); ok {
		return true
	}
	if _, err := s.Fs.Stat(path); err == nil {
		s.seen.Add(path, struct{}{})
		return true
	}
	return false
}

// isDir reports whether path exists and is a directory.
func (s *Sink) isDir(path string) bool {
	info, err := s.Fs.Stat(path)
	return err == nil && info.IsDir()
}

// uniquify appends '_' to the final component until path does not
// collide with an existing entry, except when allowDir is set and the
// existing entry at path is itself a directory (idempotent mkdir).
func (s *Sink) uniquify(path string, allowDir bool) string {
	for s.exists(path) {
		if allowDir && s.isDir(path) {
			return path
		}
		ext := filepath.Ext(path)
		base := strings.TrimSuffix(path, ext)
		path = base + "_" + ext
	}
	return path
}

// Write materializes one entry under the sink's base directory.
// Directories are created idempotently; files are opened truncated
// (or appended, for a Continuation entry), their body copied with a
// best-effort magic check, and timestamps/attributes applied
// best-effort afterward.
func (s *Sink) Write(entry catalog.Entry, warn Warn) error {
	path := s.sanitizedPath(entry)

	switch entry.Kind {
	case catalog.Directory:
		return s.writeDirectory(path, warn)
	case catalog.File:
		return s.writeFile(path, entry, warn)
	default:
		return nil
	}
}

func (s *Sink) writeDirectory(path string, warn Warn) error {
	resolved := s.uniquify(path, true)
	if resolved != path {
		warnf(warn, "output: %s exists as a file, creating %s instead", path, resolved)
	}
	if err := s.Fs.MkdirAll(resolved, 0o755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", resolved, err)
	}
	s.seen.Add(resolved, struct{}{})
	return nil
}

func (s *Sink) writeFile(path string, entry catalog.Entry, warn Warn) error {
	if err := s.Fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("output: mkdir %s: %w", filepath.Dir(path), err)
	}

	truncated := truncateFileName(path)
	if truncated != path {
		warnf(warn, "output: path %s exceeds %d characters, truncated to %s", path, maxPathLength, truncated)
	}
	path = truncated

	first := !s.continuations[path]
	if !entry.Continuation && s.exists(path) {
		resolved := s.uniquify(path, false)
		warnf(warn, "output: %s already exists, writing %s instead", path, resolved)
		path = resolved
	}
	s.continuations[path] = true
	s.seen.Add(path, struct{}{})

	flags := os.O_WRONLY | os.O_CREATE
	if entry.Continuation && !first {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	f, err := s.Fs.OpenFile(path, flags, 0o644)
	if err != nil {
		return fmt.Errorf("output: open %s: %w", path, err)
	}
	defer f.Close()

	if err := copyAndCheckMagic(f, entry.Data, path, warn); err != nil {
		return fmt.Errorf("output: write %s: %w", path, err)
	}

	if !entry.Continuation || first {
		applyMetadata(s.Fs, path, entry, warn)
	}
	return nil
}

// copyAndCheckMagic copies src into dst, and on the first bytes read,
// validates them against magicByExt when the destination's extension
// names a known format. A mismatch is a warning, not a failure.
func copyAndCheckMagic(dst io.Writer, src io.Reader, path string, warn Warn) error {
	if src == nil {
		return nil
	}
	ext := strings.ToLower(filepath.Ext(path))
	magic, wantMagic := magicByExt[ext]

	if !wantMagic {
		_, err := io.Copy(dst, src)
		return err
	}

	head := make([]byte, len(magic))
	n, rerr := io.ReadFull(src, head)
	if n > 0 {
		if _, werr := dst.Write(head[:n]); werr != nil {
			return werr
		}
		if n < len(magic) || string(head[:len(magic)]) != string(magic) {
			warnf(warn, "output: %s does not match expected %s signature", path, ext)
		}
	}
	if rerr != nil && rerr != io.EOF && rerr != io.ErrUnexpectedEOF {
		return rerr
	}
	_, err := io.Copy(dst, src)
	return err
}

// applyMetadata sets creation/modification time and a best-effort
// read-only attribute. Failures are logged as warnings, never fatal:
// not every afero.Fs backend supports Chtimes or Chmod, and tape
// catalogs frequently carry zero or missing timestamps.
func applyMetadata(fs afero.Fs, path string, entry catalog.Entry, warn Warn) {
	if entry.HasModifyTime || entry.HasCreateTime {
		mtime := entry.ModifyTime
		if !entry.HasModifyTime {
			mtime = entry.CreateTime
		}
		atime := entry.AccessTime
		if !entry.HasAccessTime {
			atime = mtime
		}
		if atime.IsZero() {
			atime = time.Unix(0, 0)
		}
		if err := fs.Chtimes(path, atime, mtime); err != nil {
			warnf(warn, "output: %s: set times: %v", path, err)
		}
	}
	if entry.Attributes.Has(catalog.ReadOnly) {
		if err := fs.Chmod(path, 0o444); err != nil {
			warnf(warn, "output: %s: set read-only: %v", path, err)
		}
	}
}
