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

// Package uart provides the serial link to a bridge device
package uart

import (
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"go.bug.st/serial"
)

// ErrPortClosed is returned by Read and Write after Close
var ErrPortClosed = errors.New("serial port closed")

const (
	// DefaultBaudRate is the bridge firmware's line speed
	DefaultBaudRate = 115200
	// DefaultReadTimeout bounds a single read so that Close is noticed
	DefaultReadTimeout = 100 * time.Millisecond
)

// Port is a serial link. Read blocks until data arrives or the port is
// closed; the underlying read timeout only paces the closed check.
type Port struct {
	raw         io.ReadWriteCloser
	path        string
	baudRate    int
	readTimeout time.Duration
	closed      atomic.Bool
}

// Open opens the serial device at path at 115200 8N1 unless overridden
func Open(path string, opts ...Option) (*Port, error) {
	p := &Port{
		path:        path,
		baudRate:    DefaultBaudRate,
		readTimeout: DefaultReadTimeout,
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}

	mode := &serial.Mode{
		BaudRate: p.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", path, err)
	}
	if err := port.SetReadTimeout(p.readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", path, err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to flush %s: %w", path, err)
	}

	p.raw = port
	return p, nil
}

// Path returns the device path the port was opened on
func (p *Port) Path() string {
	return p.path
}

// BaudRate returns the configured line speed
func (p *Port) BaudRate() int {
	return p.baudRate
}

// Read implements io.Reader
func (p *Port) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	for {
		if p.closed.Load() {
			return 0, ErrPortClosed
		}
		n, err := p.raw.Read(buf)
		if err != nil {
			if p.closed.Load() {
				return n, ErrPortClosed
			}
			return n, fmt.Errorf("serial read on %s: %w", p.path, err)
		}
		if n > 0 {
			return n, nil
		}
		// read timeout expired without data
	}
}

// Write implements io.Writer
func (p *Port) Write(buf []byte) (int, error) {
	if p.closed.Load() {
		return 0, ErrPortClosed
	}
	n, err := p.raw.Write(buf)
	if err != nil {
		return n, fmt.Errorf("serial write on %s: %w", p.path, err)
	}
	return n, nil
}

// Close closes the port. Pending reads return ErrPortClosed.
func (p *Port) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.raw.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", p.path, err)
	}
	return nil
}
