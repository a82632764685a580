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

// Package driver holds the per-format control flow ("FrameWalker /
// FormatDriver" in the design): one file per tape/backup format, each
// locating records in a BlockReader, parsing its catalog/header layout,
// and emitting catalog.Entry records through an Emit callback.
package driver

import (
	"fmt"
	"io"
	"sync"

	"github.com/tapearchivist/tapex/catalog"
)

// Emit receives one decoded entry. Returning a non-nil error aborts the
// walk; drivers use this to propagate OutputSink failures without caring
// about the sink's concrete type.
type Emit func(catalog.Entry) error

// Warn receives a non-fatal PolicyWarning-class message (unknown block
// type, name too long, catalog/body mismatch). A nil Warn is valid and
// discards warnings.
type Warn func(format string, args ...any)

// Driver walks one tape/backup image format, emitting entries in source
// order: directories before their contents, file bodies in the order
// their data appears in the image.
type Driver interface {
	// Name identifies the format, used for registry lookup and CLI
	// format selection.
	Name() string

	// Walk consumes src from its current position and calls emit once
	// per decoded entry. src must support seeking for formats that
	// realign or scan forward past garbage.
	Walk(src io.ReadSeeker, emit Emit, warn Warn) error
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]func() Driver)
)

// Register adds a driver factory under name. Called from each driver
// file's init().
func Register(name string, factory func() Driver) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = factory
}

// Lookup returns a fresh Driver instance for name.
func Lookup(name string) (Driver, error) {
	registryMu.RLock()
	factory, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("driver: unknown format %q", name)
	}
	return factory(), nil
}

// Names returns the registered format names.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// warnf calls w if non-nil, otherwise discards the message.
func warnf(w Warn, format string, args ...any) {
	if w == nil {
		return
	}
	w(format, args...)
}
