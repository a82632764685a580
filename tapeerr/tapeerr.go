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

// Package tapeerr defines the error taxonomy shared by every decoder and
// format driver in tapex: sentinel errors for conditions every driver needs
// to recognize, plus typed errors that carry enough context for a
// per-entry diagnostic line.
package tapeerr

import (
	"errors"
	"fmt"
)

// Sentinel errors. Drivers compare against these with errors.Is.
var (
	// ErrUnexpectedEOF means a fixed-size structure could not be read
	// in full because the underlying source was exhausted.
	ErrUnexpectedEOF = errors.New("tapex: unexpected end of input")

	// ErrBadMagic means a magic value did not match at a position where
	// one was required. Some drivers treat this as recoverable (scan
	// forward for the next occurrence); others treat it as fatal.
	ErrBadMagic = errors.New("tapex: bad magic")

	// ErrCorruptFrame means a frame's size or contents are out of bounds,
	// or a decompressor encountered an unknown opcode or terminator
	// where data was expected.
	ErrCorruptFrame = errors.New("tapex: corrupt frame")

	// ErrOutOfSync means the segment expander observed an absolute
	// position earlier than its current output cursor.
	ErrOutOfSync = errors.New("tapex: segment out of sync")

	// ErrIO wraps an underlying read/write failure.
	ErrIO = errors.New("tapex: io error")
)

// PolicyWarning is non-fatal: a name was too long, an output path already
// existed, a well-known file extension's magic did not match, or a block
// type was unrecognized. Drivers and the output sink collect these and
// continue rather than aborting the current entry.
type PolicyWarning struct {
	Context string
	Detail  string
}

func (w PolicyWarning) Error() string {
	if w.Detail == "" {
		return fmt.Sprintf("warning: %s", w.Context)
	}
	return fmt.Sprintf("warning: %s: %s", w.Context, w.Detail)
}

// BadMagicError gives BadMagic a concrete offset and expected/actual value
// for diagnostics, while still matching errors.Is(err, ErrBadMagic).
type BadMagicError struct {
	Offset   int64
	Expected string
	Actual   string
}

func (e BadMagicError) Error() string {
	return fmt.Sprintf("bad magic at offset %d: expected %s, got %s", e.Offset, e.Expected, e.Actual)
}

func (e BadMagicError) Is(target error) bool { return target == ErrBadMagic }

// CorruptFrameError gives CorruptFrame a reason string for diagnostics.
type CorruptFrameError struct {
	Reason string
}

func (e CorruptFrameError) Error() string { return "corrupt frame: " + e.Reason }

func (e CorruptFrameError) Is(target error) bool { return target == ErrCorruptFrame }

// OutOfSyncError records the cursor and absolute-position values that
// disagreed, and the suffix assigned to the newly opened output stream.
type OutOfSyncError struct {
	Cursor     int64
	AbsPos     int64
	NewSuffix  int
}

func (e OutOfSyncError) Error() string {
	return fmt.Sprintf("segment out of sync: cursor=%d absPos=%d, opening split #%d", e.Cursor, e.AbsPos, e.NewSuffix)
}

func (e OutOfSyncError) Is(target error) bool { return target == ErrOutOfSync }

// Wrap annotates err with a stage label, using ErrIO as the sentinel so
// callers can still use errors.Is(err, ErrIO).
func Wrap(stage string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", stage, ErrIO, err)
}
