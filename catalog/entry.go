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

// Package catalog defines EntryMeta, the common record every format driver
// emits regardless of which tape/backup format it decodes.
package catalog

import (
	"io"
	"time"
)

// Kind is the type of filesystem object an entry represents.
type Kind int

const (
	// File is a regular file with data.
	File Kind = iota
	// Directory carries no data; size is always zero.
	Directory
	// Volume is a top-level container record (rarely materialized).
	Volume
	// Catalog is a self-contained index entry that precedes file bodies;
	// usually consumed by the driver and not materialized itself.
	Catalog
	// Skip is neither a file nor a directory and is not materialized.
	Skip
)

func (k Kind) String() string {
	switch k {
	case File:
		return "file"
	case Directory:
		return "directory"
	case Volume:
		return "volume"
	case Catalog:
		return "catalog"
	case Skip:
		return "skip"
	default:
		return "unknown"
	}
}

// Attribute is a single bit in an Attributes set.
type Attribute uint8

const (
	ReadOnly Attribute = 1 << iota
	Hidden
	System
	Archive
	AttrDirectory
)

// Attributes is a bitset of Attribute flags.
type Attributes uint8

// Has reports whether a is set in attrs.
func (attrs Attributes) Has(a Attribute) bool { return attrs&Attributes(a) != 0 }

// Set returns attrs with a set.
func (attrs Attributes) Set(a Attribute) Attributes { return attrs | Attributes(a) }

// DataSource is a lazily-read, size-bounded byte source for an entry's
// body. A directory's DataSource is nil.
type DataSource interface {
	io.Reader
}

// Entry is the common semantic record emitted by every format driver.
type Entry struct {
	// Path is the ordered sequence of path components: no drive letter,
	// no "..", no leading separator.
	Path []string

	Kind Kind

	// Size is the total logical byte count of Data. Zero for
	// directories.
	Size int64

	CreateTime time.Time
	ModifyTime time.Time
	AccessTime time.Time

	// HasCreateTime / HasModifyTime / HasAccessTime distinguish "zero
	// time" from "time field absent in the source format".
	HasCreateTime bool
	HasModifyTime bool
	HasAccessTime bool

	Attributes Attributes

	// Data is bounded by Size; nil for directories and Skip entries.
	Data DataSource

	// Continuation marks an entry as a later fragment of a file whose
	// earlier fragment was already materialized (Maynstream, Mountain
	// FileSafe spanning tapes). The output sink appends rather than
	// truncates, and keeps the first fragment's timestamps.
	Continuation bool
}

// JoinedPath returns the path components joined with '/', for logging.
func (e Entry) JoinedPath() string {
	out := ""
	for i, c := range e.Path {
		if i > 0 {
			out += "/"
		}
		out += c
	}
	return out
}
