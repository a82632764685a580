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

package archive_test

import (
	"errors"
	"testing"

	"github.com/tapearchivist/tapex/archive"
)

func TestIsImageExtension(t *testing.T) {
	t.Parallel()

	tests := []struct {
		filename string
		want     bool
	}{
		{"dump.img", true},
		{"DUMP.IMG", true},
		{"tape.dd", true},
		{"tape.raw", true},
		{"tape.dmp", true},
		{"tape.bin", true},
		{"streamer.tap", true},
		{"cartridge.qic", true},

		{"readme.txt", false},
		{"notes.doc", false},
		{"tape.zip", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			t.Parallel()

			got := archive.IsImageExtension(tt.filename)
			if got != tt.want {
				t.Errorf("IsImageExtension(%q) = %v, want %v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestDetectImageFile_SoleMember(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	files := map[string][]byte{"QIC80.DAT": make([]byte, 100)}
	zipPath := createTestZIP(t, tmpDir, "tape.zip", files)

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	got, err := archive.DetectImageFile(arc)
	if err != nil {
		t.Fatalf("detect image file: %v", err)
	}
	if got != "QIC80.DAT" {
		t.Errorf("got %q, want %q", got, "QIC80.DAT")
	}
}

func TestDetectImageFile_RecognizedExtensionWinsOverSidecars(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	files := map[string][]byte{
		"readme.txt": []byte("readme"),
		"dump.img":   make([]byte, 1024),
		"notes.doc":  []byte("notes"),
	}
	zipPath := createTestZIP(t, tmpDir, "dump.zip", files)

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	got, err := archive.DetectImageFile(arc)
	if err != nil {
		t.Fatalf("detect image file: %v", err)
	}
	if got != "dump.img" {
		t.Errorf("got %q, want %q", got, "dump.img")
	}
}

func TestDetectImageFile_NoCandidatesFallsBackToLargest(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	files := map[string][]byte{
		"readme.txt": []byte("readme"),
		"TAPE0001":   make([]byte, 4096),
	}
	zipPath := createTestZIP(t, tmpDir, "untagged.zip", files)

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	got, err := archive.DetectImageFile(arc)
	if err != nil {
		t.Fatalf("detect image file: %v", err)
	}
	if got != "TAPE0001" {
		t.Errorf("got %q, want %q", got, "TAPE0001")
	}
}

func TestDetectImageFile_Empty(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	zipPath := createTestZIP(t, tmpDir, "empty.zip", map[string][]byte{})

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	_, err = archive.DetectImageFile(arc)
	if err == nil {
		t.Error("expected error for empty archive")
	}
	var noImagesErr archive.NoImageFilesError
	if !errors.As(err, &noImagesErr) {
		t.Errorf("expected NoImageFilesError, got %T", err)
	}
}

func TestDetectImageFile_MultipleVolumes(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	files := map[string][]byte{
		"VOL1.IMG": make([]byte, 100),
		"VOL2.IMG": make([]byte, 200),
	}
	zipPath := createTestZIP(t, tmpDir, "multivolume.zip", files)

	arc, err := archive.Open(zipPath)
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	defer func() { _ = arc.Close() }()

	_, err = archive.DetectImageFile(arc)
	if err == nil {
		t.Fatal("expected a multi-volume error")
	}
	var multiErr archive.MultiVolumeArchiveError
	if !errors.As(err, &multiErr) {
		t.Errorf("expected MultiVolumeArchiveError, got %T", err)
	}
	if multiErr.Count != 2 {
		t.Errorf("Count = %d, want 2", multiErr.Count)
	}
}
