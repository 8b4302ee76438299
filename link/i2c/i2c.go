// go-nfctag
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-nfctag.
//
// go-nfctag is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-nfctag is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-nfctag; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package i2c provides the I2C link to a bridge device
package i2c

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"
)

const (
	// DefaultAddress is the bridge device's 7-bit I2C address
	DefaultAddress = 0x24
	// DefaultPollInterval is the pause between reads while the device has
	// nothing to send
	DefaultPollInterval = 2 * time.Millisecond

	// maxChunk is the largest payload moved in one bus transaction
	maxChunk = 64

	// Max clock frequency (400 kHz).
	maxClockFreq = 400 * physic.KiloHertz
)

// ErrLinkClosed is returned by Read and Write after Close
var ErrLinkClosed = errors.New("i2c link closed")

// Link is a byte stream to a bridge device on an I2C bus. Writes are sent
// in chunks; reads poll the device, whose reply to a read transaction is a
// count byte followed by that many stream bytes.
type Link struct {
	bus          i2c.Bus
	closer       interface{ Close() error }
	dev          *i2c.Dev
	busName      string
	pollInterval time.Duration
	closed       atomic.Bool
}

// Open initializes the host drivers and opens the device at addr on the
// named bus. An empty name picks the first bus.
func Open(busName string, addr uint16, opts ...Option) (*Link, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("failed to open I2C bus %s: %w", busName, err)
	}

	// Ignore error, continue with default speed
	_ = bus.SetSpeed(maxClockFreq)

	l, err := NewLink(bus, addr, opts...)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	l.closer = bus
	l.busName = bus.String()
	return l, nil
}

// NewLink creates a link on an already opened bus. Closing the link does
// not close the bus.
func NewLink(bus i2c.Bus, addr uint16, opts ...Option) (*Link, error) {
	if bus == nil {
		return nil, errors.New("i2c bus cannot be nil")
	}
	if addr == 0 || addr > 0x7F {
		return nil, fmt.Errorf("invalid 7-bit I2C address 0x%X", addr)
	}

	l := &Link{
		bus:          bus,
		dev:          &i2c.Dev{Addr: addr, Bus: bus},
		busName:      bus.String(),
		pollInterval: DefaultPollInterval,
	}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, err
		}
	}
	return l, nil
}

// String returns the bus and address of the link
func (l *Link) String() string {
	return fmt.Sprintf("%s:0x%02X", l.busName, l.dev.Addr)
}

// Write implements io.Writer
func (l *Link) Write(p []byte) (int, error) {
	written := 0
	for written < len(p) {
		if l.closed.Load() {
			return written, ErrLinkClosed
		}
		end := min(written+maxChunk, len(p))
		if err := l.dev.Tx(p[written:end], nil); err != nil {
			return written, fmt.Errorf("I2C write to %s failed: %w", l, err)
		}
		written = end
	}
	return written, nil
}

// Read implements io.Reader. It polls the device until it has stream bytes
// to hand over or the link is closed.
func (l *Link) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	chunk := min(len(p), maxChunk)
	buf := make([]byte, 1+chunk)

	for {
		if l.closed.Load() {
			return 0, ErrLinkClosed
		}
		if err := l.dev.Tx(nil, buf); err != nil {
			return 0, fmt.Errorf("I2C read from %s failed: %w", l, err)
		}
		if n := int(buf[0]); n > 0 {
			if n > chunk {
				return 0, fmt.Errorf("I2C device %s announced %d bytes for a %d byte read", l, n, chunk)
			}
			return copy(p, buf[1:1+n]), nil
		}
		time.Sleep(l.pollInterval)
	}
}

// Close stops the link and closes the bus if the link opened it
func (l *Link) Close() error {
	if !l.closed.CompareAndSwap(false, true) {
		return nil
	}
	if l.closer == nil {
		return nil
	}
	if err := l.closer.Close(); err != nil {
		return fmt.Errorf("failed to close I2C bus %s: %w", l.busName, err)
	}
	return nil
}
