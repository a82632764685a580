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

package archive

import "fmt"

// FormatError indicates an unsupported or invalid archive format.
type FormatError struct {
	Format string
	Reason string
}

func (e FormatError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("unsupported archive format %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("unsupported archive format: %s", e.Format)
}

// FileNotFoundError indicates a file was not found in the archive.
type FileNotFoundError struct {
	Archive      string
	InternalPath string
}

func (e FileNotFoundError) Error() string {
	return fmt.Sprintf("file %q not found in archive %q", e.InternalPath, e.Archive)
}

// NoImageFilesError indicates an archive was opened but holds no member
// that could plausibly be a tape/backup dump image.
type NoImageFilesError struct {
	Archive string
}

func (e NoImageFilesError) Error() string {
	return fmt.Sprintf("no dump image found in archive %q", e.Archive)
}

// MultiVolumeArchiveError indicates an archive holds what looks like more
// than one tape in a multi-volume set; callers should open each member
// explicitly by name rather than treating the archive as a single image.
type MultiVolumeArchiveError struct {
	Archive string
	Count   int
}

func (e MultiVolumeArchiveError) Error() string {
	return fmt.Sprintf("archive %q holds %d candidate volumes, not a single image", e.Archive, e.Count)
}
