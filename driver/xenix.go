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

package driver

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	"github.com/tapearchivist/tapex/catalog"
	tbinary "github.com/tapearchivist/tapex/internal/binary"
)

func init() { Register("xenix", func() Driver { return &Xenix{Version: 2} }) }

const (
	xenixInodeSize   = 0x40
	xenixDirEntrySize = 0x10
	xenixDirNameSize  = 14
	xenixRootInode    = 2
	xenixIFDIR        = 0x4000
	xenixIFMT         = 0xF000
)

type xenixInode struct {
	mode            uint16
	nlink           uint16
	size            uint32
	direct          [10]uint32
	indirect        [3]uint32
	atime           uint32
	mtime           uint32
	ctime           uint32
}

func (in xenixInode) isDir() bool { return in.mode&xenixIFMT == xenixIFDIR }

// Xenix decodes a Xenix on-disk filesystem (v2 or v3): a 0x40-byte
// inode table starting at block 2, 0x10-byte directory entries (2-byte
// inode number, 14-byte NUL-padded name), and direct block pointers
// stored as 3-byte integers, optionally in PDP-11 byte order. Only
// direct block pointers are followed; files spanning indirect blocks
// are truncated to their direct-block content; no warning is emitted. Because
// the spec does not define a verifiable superblock layout, BlockSize
// derivation inputs (FsType for v3) and InodeCount are caller-supplied
// rather than parsed from an assumed superblock offset (see
// DESIGN.md).
type Xenix struct {
	BaseOffset int64
	Version    int // 2 or 3
	FsType     int // v3 only: 1 -> 0x200 block size, 2 -> 0x400
	PDP11      bool
	InodeCount int

	// Heuristic enables the v3 orphan-recovery scan: every block is
	// searched for a "."/".." directory-entry pair, and inodes not
	// reached from the root are grafted under their discovered parent,
	// or named unknownN when no parent is known either.
	Heuristic bool
}

func (d *Xenix) Name() string { return "xenix" }

func (d *Xenix) blockSize() int64 {
	if d.Version == 3 {
		if d.FsType == 1 {
			return 0x200
		}
		return 0x400
	}
	return 0x400
}

func xenixUint24PDP11(b []byte) uint32 {
	_ = b[2]
	return uint32(b[1]) | uint32(b[0])<<8 | uint32(b[2])<<16
}

func readXenixInodeAt(src io.ReadSeeker, offset int64, pdp11 bool) (xenixInode, error) {
	if _, err := src.Seek(offset, io.SeekStart); err != nil {
		return xenixInode{}, err
	}
	buf := make([]byte, xenixInodeSize)
	if _, err := io.ReadFull(src, buf); err != nil {
		return xenixInode{}, err
	}
	var in xenixInode
	in.mode = binary.LittleEndian.Uint16(buf[0:2])
	in.nlink = binary.LittleEndian.Uint16(buf[2:4])
	in.size = binary.LittleEndian.Uint32(buf[8:12])
	decode24 := tbinary.Uint24LE
	if pdp11 {
		decode24 = xenixUint24PDP11
	}
	for i := 0; i < 10; i++ {
		off := 12 + i*3
		in.direct[i] = decode24(buf[off : off+3])
	}
	for i := 0; i < 3; i++ {
		off := 42 + i*3
		in.indirect[i] = decode24(buf[off : off+3])
	}
	in.atime = binary.LittleEndian.Uint32(buf[51:55])
	in.mtime = binary.LittleEndian.Uint32(buf[55:59])
	in.ctime = binary.LittleEndian.Uint32(buf[59:63])
	return in, nil
}

func readXenixBlock(src io.ReadSeeker, base int64, blockNum uint32, blockSize int64) ([]byte, error) {
	if blockNum == 0 {
		return nil, nil
	}
	if _, err := src.Seek(base+int64(blockNum)*blockSize, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, blockSize)
	if _, err := io.ReadFull(src, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

type xenixDirEntry struct {
	inode int
	name  string
}

func parseXenixDirBlock(block []byte) []xenixDirEntry {
	var out []xenixDirEntry
	for off := 0; off+xenixDirEntrySize <= len(block); off += xenixDirEntrySize {
		ino := binary.LittleEndian.Uint16(block[off : off+2])
		if ino == 0 {
			continue
		}
		name := tbinary.CleanString(block[off+2 : off+xenixDirEntrySize])
		if name == "" || name == "." || name == ".." {
			continue
		}
		out = append(out, xenixDirEntry{inode: int(ino), name: name})
	}
	return out
}

func (d *Xenix) Walk(src io.ReadSeeker, emit Emit, warn Warn) error {
	if d.InodeCount <= 0 {
		return fmt.Errorf("xenix: InodeCount must be configured")
	}
	blockSize := d.blockSize()
	tableOffset := d.BaseOffset + 2*blockSize

	arena := make([]*xenixInode, d.InodeCount+1)
	for i := 1; i <= d.InodeCount; i++ {
		in, err := readXenixInodeAt(src, tableOffset+int64(i-1)*xenixInodeSize, d.PDP11)
		if err != nil {
			return fmt.Errorf("xenix: inode %d: %w", i, err)
		}
		if in.mode == 0 {
			continue
		}
		cp := in
		arena[i] = &cp
	}

	visited := make(map[int]bool)
	paths := make(map[int][]string)

	var walkDir func(inodeNum int, path []string) error
	walkDir = func(inodeNum int, path []string) error {
		if visited[inodeNum] {
			return nil
		}
		visited[inodeNum] = true
		in := arena[inodeNum]
		if in == nil {
			return nil
		}
		paths[inodeNum] = path

		for _, blk := range in.direct {
			block, err := readXenixBlock(src, d.BaseOffset, blk, blockSize)
			if err != nil {
				return fmt.Errorf("xenix: directory block for inode %d: %w", inodeNum, err)
			}
			if block == nil {
				continue
			}
			for _, ent := range parseXenixDirBlock(block) {
				child := arena[ent.inode]
				if child == nil {
					continue
				}
				childPath := append(append([]string{}, path...), ent.name)
				if child.isDir() {
					if err := emit(catalog.Entry{Path: childPath, Kind: catalog.Directory}); err != nil {
						return err
					}
					if err := walkDir(ent.inode, childPath); err != nil {
						return err
					}
				} else {
					if err := emitXenixFile(src, d.BaseOffset, blockSize, ent.inode, child, childPath, emit); err != nil {
						return err
					}
					visited[ent.inode] = true
					paths[ent.inode] = childPath
				}
			}
		}
		return nil
	}

	if arena[xenixRootInode] != nil {
		if err := walkDir(xenixRootInode, nil); err != nil {
			return err
		}
	} else {
		warnf(warn, "xenix: root inode %d missing or unallocated", xenixRootInode)
	}

	if d.Heuristic {
		if err := d.recoverOrphans(src, blockSize, arena, visited, paths, emit, warn); err != nil {
			return err
		}
	}
	return nil
}

func emitXenixFile(src io.ReadSeeker, base, blockSize int64, inodeNum int, in *xenixInode, path []string, emit Emit) error {
	var buf bytes.Buffer
	remaining := int64(in.size)
	for _, blk := range in.direct {
		if remaining <= 0 {
			break
		}
		block, err := readXenixBlock(src, base, blk, blockSize)
		if err != nil {
			return fmt.Errorf("xenix: data block for inode %d: %w", inodeNum, err)
		}
		if block == nil {
			block = make([]byte, blockSize)
		}
		n := int64(len(block))
		if n > remaining {
			n = remaining
		}
		buf.Write(block[:n])
		remaining -= n
	}

	entry := catalog.Entry{
		Path:          path,
		Kind:          catalog.File,
		Size:          int64(buf.Len()),
		CreateTime:    time.Unix(int64(in.ctime), 0).UTC(),
		HasCreateTime: true,
		ModifyTime:    time.Unix(int64(in.mtime), 0).UTC(),
		HasModifyTime: true,
		Data:          bytes.NewReader(buf.Bytes()),
	}
	return emit(entry)
}

// recoverOrphans implements the two-pass heuristic: scan every block
// for a "."/".." entry pair to learn (self, parent) inode numbers,
// then graft any inode not already reached from the root under its
// discovered parent's path, or as a top-level unknownN when the
// parent is itself unknown.
func (d *Xenix) recoverOrphans(src io.ReadSeeker, blockSize int64, arena []*xenixInode, visited map[int]bool, paths map[int][]string, emit Emit, warn Warn) error {
	if _, err := src.Seek(d.BaseOffset, io.SeekStart); err != nil {
		return fmt.Errorf("xenix: heuristic seek: %w", err)
	}
	parentOf := make(map[int]int)

	buf := make([]byte, blockSize)
	for {
		n, err := io.ReadFull(src, buf)
		if n >= 2*xenixDirEntrySize {
			selfIno := binary.LittleEndian.Uint16(buf[0:2])
			selfName := buf[2:xenixDirEntrySize]
			parentIno := binary.LittleEndian.Uint16(buf[xenixDirEntrySize : xenixDirEntrySize+2])
			parentName := buf[xenixDirEntrySize+2 : xenixDirEntrySize+xenixDirEntrySize]
			if selfIno != 0 && selfName[0] == '.' && isXenixNamePadding(selfName[1:]) &&
				parentIno != 0 && parentName[0] == '.' && parentName[1] == '.' && isXenixNamePadding(parentName[2:]) {
				parentOf[int(selfIno)] = int(parentIno)
			}
		}
		if err != nil {
			break
		}
	}

	unknownN := 0
	for i := 1; i < len(arena); i++ {
		in := arena[i]
		if in == nil || visited[i] {
			continue
		}
		var path []string
		if parent, ok := parentOf[i]; ok {
			if parentPath, ok := paths[parent]; ok {
				path = append(append([]string{}, parentPath...), fmt.Sprintf("inode%d", i))
			}
		}
		if path == nil {
			path = []string{fmt.Sprintf("unknown%d", unknownN)}
			unknownN++
		}
		visited[i] = true
		paths[i] = path
		if in.isDir() {
			if err := emit(catalog.Entry{Path: path, Kind: catalog.Directory}); err != nil {
				return err
			}
			continue
		}
		if err := emitXenixFile(src, d.BaseOffset, blockSize, i, in, path, emit); err != nil {
			return err
		}
	}
	return nil
}

func isXenixNamePadding(b []byte) bool {
	for _, c := range b {
		if c != 0 {
			return false
		}
	}
	return true
}
