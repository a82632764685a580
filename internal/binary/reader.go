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

// Package binary provides little/big/PDP-11 endian integer readers and the
// handful of packed-date decoders the format drivers need (DOS, QIC
// "packed", MTF's 40-bit field, Unix time_t, and the Mac 1904 epoch).
package binary

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"time"
)

// ReadAt reads len(buf) bytes from r at offset, failing on a short read.
func ReadAt(r io.ReaderAt, offset int64, buf []byte) error {
	n, err := r.ReadAt(buf, offset)
	if err != nil && !(err == io.EOF && n == len(buf)) {
		return fmt.Errorf("read at offset %d: %w", offset, err)
	}
	if n != len(buf) {
		return fmt.Errorf("read at offset %d: short read (%d of %d bytes)", offset, n, len(buf))
	}
	return nil
}

// ReadBytesAt reads n bytes from r at offset.
func ReadBytesAt(r io.ReaderAt, offset int64, n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := ReadAt(r, offset, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// ReadUint8At reads a single byte from r at offset.
func ReadUint8At(r io.ReaderAt, offset int64) (uint8, error) {
	buf := make([]byte, 1)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return buf[0], nil
}

// ReadUint16LEAt reads a little-endian uint16 from r at offset.
func ReadUint16LEAt(r io.ReaderAt, offset int64) (uint16, error) {
	buf := make([]byte, 2)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf), nil
}

// ReadUint16BEAt reads a big-endian uint16 from r at offset.
func ReadUint16BEAt(r io.ReaderAt, offset int64) (uint16, error) {
	buf := make([]byte, 2)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(buf), nil
}

// ReadUint32LEAt reads a little-endian uint32 from r at offset.
func ReadUint32LEAt(r io.ReaderAt, offset int64) (uint32, error) {
	buf := make([]byte, 4)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf), nil
}

// ReadUint32BEAt reads a big-endian uint32 from r at offset.
func ReadUint32BEAt(r io.ReaderAt, offset int64) (uint32, error) {
	buf := make([]byte, 4)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(buf), nil
}

// ReadUint64LEAt reads a little-endian uint64 from r at offset.
func ReadUint64LEAt(r io.ReaderAt, offset int64) (uint64, error) {
	buf := make([]byte, 8)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// ReadUint64BEAt reads a big-endian uint64 from r at offset.
func ReadUint64BEAt(r io.ReaderAt, offset int64) (uint64, error) {
	buf := make([]byte, 8)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(buf), nil
}

// Uint32PDP11 interprets 4 bytes stored in PDP-11 "middle endian" order:
// the two 16-bit little-endian words appear in swapped order, so byte
// order on the wire is [b2, b3, b0, b1] relative to a little-endian
// uint32. Used by Xenix inodes when configured for PDP-11 byte order.
func Uint32PDP11(b []byte) uint32 {
	_ = b[3]
	lo := uint32(b[0]) | uint32(b[1])<<8
	hi := uint32(b[2]) | uint32(b[3])<<8
	return hi | lo<<16
}

// ReadUint32PDP11At reads a PDP-11 ordered uint32 from r at offset.
func ReadUint32PDP11At(r io.ReaderAt, offset int64) (uint32, error) {
	buf := make([]byte, 4)
	if err := ReadAt(r, offset, buf); err != nil {
		return 0, err
	}
	return Uint32PDP11(buf), nil
}

// Uint24LE interprets 3 little-endian bytes as a uint32. Used for Xenix
// inode direct/indirect block pointers.
func Uint24LE(b []byte) uint32 {
	_ = b[2]
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

// ReadStringAt reads a string of n bytes from r at offset, trimming null
// bytes and surrounding whitespace.
func ReadStringAt(r io.ReaderAt, offset int64, n int) (string, error) {
	buf, err := ReadBytesAt(r, offset, n)
	if err != nil {
		return "", err
	}
	return CleanString(buf), nil
}

// CleanString converts bytes to a string, trimming at the first null byte
// and surrounding whitespace.
func CleanString(data []byte) string {
	end := len(data)
	for i, c := range data {
		if c == 0 {
			end = i
			break
		}
	}
	return strings.TrimSpace(string(data[:end]))
}

// ExtractPrintable keeps only printable ASCII characters (0x20-0x7E).
func ExtractPrintable(b []byte) string {
	var result strings.Builder
	for _, c := range b {
		if c >= 0x20 && c <= 0x7E {
			_ = result.WriteByte(c)
		}
	}
	return strings.TrimSpace(result.String())
}

// FindBytes searches for needle in haystack and returns the offset, or -1.
func FindBytes(haystack, needle []byte) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i <= len(haystack)-len(needle); i++ {
		if string(haystack[i:i+len(needle)]) == string(needle) {
			return i
		}
	}
	return -1
}

// BytesEqual reports whether a and b hold identical contents.
func BytesEqual(a, b []byte) bool {
	return bytes.Equal(a, b)
}

// FindBytesInRange searches r for needle within [start, end), returning the
// absolute offset of the first match or -1 if none is found.
func FindBytesInRange(r io.ReaderAt, start, end int64, needle []byte) (int64, error) {
	if end <= start || len(needle) == 0 {
		return -1, nil
	}
	span := end - start
	buf := make([]byte, span)
	n, err := r.ReadAt(buf, start)
	if err != nil && err != io.EOF {
		return -1, fmt.Errorf("find bytes in range [%d,%d): %w", start, end, err)
	}
	buf = buf[:n]
	idx := FindBytes(buf, needle)
	if idx < 0 {
		return -1, nil
	}
	return start + int64(idx), nil
}

// ReadPrintableStringAt reads n bytes at offset and keeps only printable
// ASCII characters.
func ReadPrintableStringAt(r io.ReaderAt, offset int64, n int) (string, error) {
	buf, err := ReadBytesAt(r, offset, n)
	if err != nil {
		return "", err
	}
	return ExtractPrintable(buf), nil
}

// DOSDateTime decodes a 16-bit DOS packed date and 16-bit DOS packed time
// into a time.Time (naive UTC, as DOS carried no timezone).
//
// date: bits 15-9 year-1980, bits 8-5 month, bits 4-0 day.
// time: bits 15-11 hour, bits 10-5 minute, bits 4-0 second/2.
func DOSDateTime(date, t uint16) time.Time {
	year := 1980 + int(date>>9)
	month := int((date >> 5) & 0x0F)
	day := int(date & 0x1F)
	hour := int(t >> 11)
	minute := int((t >> 5) & 0x3F)
	second := int(t&0x1F) * 2

	if month < 1 {
		month = 1
	}
	if day < 1 {
		day = 1
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

// QICPackedDate decodes the 32-bit "QIC packed date" used by QIC-113
// catalogs: bits 0-4 day, bits 5-8 month, bits 9-onward year offset
// from 1970.
func QICPackedDate(packed uint32) time.Time {
	day := int(packed & 0x1F)
	month := int((packed >> 5) & 0x0F)
	year := 1970 + int((packed>>9)&0xFFF)

	if day < 1 {
		day = 1
	}
	if month < 1 {
		month = 1
	}
	return time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
}

// MTFDate decodes MTF's packed 40-bit date field (5 bytes, most
// significant byte first): 14 bits year, 4 bits month, 5 bits day, 5 bits
// hour, 6 bits minute, 6 bits second.
func MTFDate(b [5]byte) time.Time {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	second := int(v & 0x3F)
	v >>= 6
	minute := int(v & 0x3F)
	v >>= 6
	hour := int(v & 0x1F)
	v >>= 5
	day := int(v & 0x1F)
	v >>= 5
	month := int(v & 0x0F)
	v >>= 4
	year := int(v & 0x3FFF)

	if day < 1 {
		day = 1
	}
	if month < 1 {
		month = 1
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

// UnixTime decodes a 32-bit Unix time_t as used by Xenix inode timestamps.
func UnixTime(t uint32) time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// MacEpoch1904 decodes a 32-bit big-endian seconds-since-1904-01-01 value,
// as used by MacAIT/Retrospect FourCC blocks.
func MacEpoch1904(seconds uint32) time.Time {
	epoch := time.Date(1904, 1, 1, 0, 0, 0, 0, time.UTC)
	return epoch.Add(time.Duration(seconds) * time.Second)
}
