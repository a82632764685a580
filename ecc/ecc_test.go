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

package ecc

import (
	"bytes"
	"testing"
)

func TestStripExactMultiple(t *testing.T) {
	t.Parallel()
	const segSize = 16
	const eccSize = 4
	const k = 5

	src := make([]byte, segSize*k)
	for i := range src {
		src[i] = byte(i)
	}

	var dst bytes.Buffer
	n, err := Strip(&dst, bytes.NewReader(src), segSize, eccSize)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}

	wantLen := k * (segSize - eccSize)
	if n != int64(wantLen) || dst.Len() != wantLen {
		t.Fatalf("got length %d (dst.Len()=%d), want %d", n, dst.Len(), wantLen)
	}

	out := dst.Bytes()
	for i := 0; i < k; i++ {
		for j := 0; j < segSize-eccSize; j++ {
			got := out[i*(segSize-eccSize)+j]
			want := src[i*segSize+j]
			if got != want {
				t.Fatalf("segment %d byte %d: got %d want %d", i, j, got, want)
			}
		}
	}
}

func TestStripIgnoresTruncatedTail(t *testing.T) {
	t.Parallel()
	const segSize = 16
	const eccSize = 4

	src := make([]byte, segSize+5) // one full segment plus a short tail
	var dst bytes.Buffer
	n, err := Strip(&dst, bytes.NewReader(src), segSize, eccSize)
	if err != nil {
		t.Fatalf("Strip: %v", err)
	}
	if n != int64(segSize-eccSize) {
		t.Fatalf("got %d, want %d (tail should be dropped)", n, segSize-eccSize)
	}
}
