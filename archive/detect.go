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

import (
	"fmt"
	"path/filepath"
	"strings"
)

// imageExtensions are file extensions conventionally used for raw
// tape/floppy dump images, used only as a tiebreaker when an archive holds
// more than one candidate member. Unlike a cartridge ROM, a tape dump
// rarely carries a format-specific extension, so this list is a weak hint,
// not an authoritative check the way a catalog driver's own magic scan is.
var imageExtensions = map[string]bool{
	".img": true,
	".dd":  true,
	".raw": true,
	".dmp": true,
	".bin": true,
	".tap": true,
	".qic": true,
}

// IsImageExtension reports whether filename carries one of the weak
// raw-dump-image extension hints.
func IsImageExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	return imageExtensions[ext]
}

// DetectImageFile picks the dump image to decode out of an archive holding
// more than one member. A lone file is chosen outright. With several
// members, more than one carrying a recognized image extension is treated
// as a multi-volume tape set rather than guessed at; a single recognized
// extension wins outright; failing that, the largest file in the archive
// is chosen (a raw dump dwarfs any README or catalog sidecar a backup
// utility might have bundled alongside it).
func DetectImageFile(arc Archive) (string, error) {
	files, err := arc.List()
	if err != nil {
		return "", fmt.Errorf("list archive files: %w", err)
	}
	if len(files) == 0 {
		return "", NoImageFilesError{Archive: "archive"}
	}
	if len(files) == 1 {
		return files[0].Name, nil
	}

	var candidates []FileInfo
	var best FileInfo
	haveBest := false
	for _, file := range files {
		if file.Likely {
			candidates = append(candidates, file)
		}
		if !haveBest || file.Size > best.Size {
			best = file
			haveBest = true
		}
	}
	switch len(candidates) {
	case 1:
		return candidates[0].Name, nil
	case 0:
		return best.Name, nil
	default:
		return "", MultiVolumeArchiveError{Archive: "archive", Count: len(candidates)}
	}
}
