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

package nfctag

import (
	"context"

	"go.uber.org/zap"
)

// TagConfig contains configuration options for a Tag
type TagConfig struct {
	// Logger receives syscall failures and release errors. Nil means the
	// package logger.
	Logger *zap.Logger
	// Driver is the driver number the tag addresses
	Driver DriverNum
}

// DefaultTagConfig returns the default tag configuration
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		Driver: DriverNumber,
	}
}

// RecvOp is the outcome of a completed receive
type RecvOp struct {
	// ResultCode is the code the driver reported for the reception
	ResultCode ReturnCode
	// Amount is the number of bytes the driver wrote into the buffer
	Amount int
}

// Err returns the result code as an error, nil on success
func (r RecvOp) Err() error {
	return r.ResultCode.Err()
}

// Tag is the userland binding to the NFC tag emulation driver.
//
// Thread Safety: Tag is NOT thread-safe. The driver serves one request at a
// time and the binding does no locking of its own; call it from a single
// goroutine.
type Tag struct {
	kernel Kernel
	config *TagConfig
}

// New creates a tag binding on top of kernel
func New(kernel Kernel, opts ...Option) (*Tag, error) {
	if kernel == nil {
		return nil, ErrNilKernel
	}

	tag := &Tag{
		kernel: kernel,
		config: DefaultTagConfig(),
	}

	for _, opt := range opts {
		if err := opt(tag); err != nil {
			return nil, err
		}
	}

	return tag, nil
}

// Kernel returns the underlying kernel
func (t *Tag) Kernel() Kernel {
	return t.kernel
}

// Driver returns the driver number the tag addresses
func (t *Tag) Driver() DriverNum {
	return t.config.Driver
}

func (t *Tag) log() *zap.Logger {
	if t.config.Logger != nil {
		return t.config.Logger
	}
	return Logger()
}

// Setup checks the existence of the NFC driver.
func (t *Tag) Setup() bool {
	return t.accepted(CommandCheck, 0)
}

// EnableEmulation turns tag emulation on
func (t *Tag) EnableEmulation() bool {
	return t.emulate(true)
}

// DisableEmulation turns tag emulation off
func (t *Tag) DisableEmulation() bool {
	return t.emulate(false)
}

func (t *Tag) emulate(enabled bool) bool {
	var arg uint32
	if enabled {
		arg = 1
	}
	return t.accepted(CommandEmulate, arg)
}

// Configure sets the tag type the driver emulates.
func (t *Tag) Configure(tagType TagType) bool {
	return t.accepted(CommandConfigure, uint32(tagType))
}

// SetFrameDelayMax sets the maximum frame delay value to support
// transmission with the reader.
func (t *Tag) SetFrameDelayMax(delay uint32) bool {
	return t.accepted(CommandFrameDelayMax, delay)
}

// Selected blocks until a reader selects the emulated tag. It returns false
// without blocking if the selection upcall cannot be registered.
func (t *Tag) Selected() bool {
	return t.SelectedContext(context.Background())
}

// Receive lends buf to the driver and blocks until a frame from the reader
// has been written into it.
//
//  1. Share buf with the driver.
//  2. Subscribe to the reception upcall.
//  3. Issue the reception request.
func (t *Tag) Receive(buf *[RecvBufferSize]byte) (RecvOp, error) {
	return t.ReceiveContext(context.Background(), buf)
}

// Transmit lends buf to the driver and blocks until its first amount bytes
// have been sent to the reader. It returns the code the driver reported for
// the transmission.
//
//  1. Share buf, holding the reply, with the driver.
//  2. Subscribe to the transmission upcall.
//  3. Issue the transmission request.
func (t *Tag) Transmit(buf []byte, amount int) (ReturnCode, error) {
	return t.TransmitContext(context.Background(), buf, amount)
}

// accepted issues a command and collapses the outcome to a boolean
func (t *Tag) accepted(cmd Command, arg uint32) bool {
	if err := t.kernel.Command(t.config.Driver, cmd, arg, 0); err != nil {
		debugf(t.log(), "command %s(%d) rejected: %v", cmd, arg, err)
		return false
	}
	return true
}

func (t *Tag) release(g Grant, what string) {
	if err := g.Release(); err != nil {
		t.log().Warn("failed to release kernel grant",
			zap.String("grant", what),
			zap.Stringer("driver", t.config.Driver),
			zap.Error(err))
	}
}
