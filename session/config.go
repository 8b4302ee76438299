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

package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/ZaparooProject/go-nfctag"
	"go.uber.org/zap"
)

// Config holds the settings of an emulation session
type Config struct {
	// Logger receives session events. Nil means the nfctag package logger.
	Logger *zap.Logger
	// TagType is the tag type the driver is configured to emulate
	TagType nfctag.TagType
	// FrameDelayMax is the maximum frame delay passed to the driver. Zero
	// leaves the driver default in place.
	FrameDelayMax uint32
	// RetryDelay is the pause before re-arming emulation after a failed
	// syscall, and between driver checks at start-up
	RetryDelay time.Duration
	// SetupRetries is how many more times the driver check is tried when
	// the driver is not there yet. Bridge boards that reset when the link
	// opens need a moment before their kernel answers.
	SetupRetries int
}

// DefaultConfig returns the configuration for a Type 4 tag with the driver's
// default frame delay
func DefaultConfig() *Config {
	return &Config{
		TagType:      nfctag.TagType4,
		RetryDelay:   100 * time.Millisecond,
		SetupRetries: 3,
	}
}

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid session config")

// Validate checks that the configuration can be used
func (c *Config) Validate() error {
	if c.TagType < nfctag.TagType1 || c.TagType > nfctag.TagType5 {
		return fmt.Errorf("%w: unsupported tag type %s", ErrInvalidConfig, c.TagType)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: negative retry delay %v", ErrInvalidConfig, c.RetryDelay)
	}
	if c.SetupRetries < 0 {
		return fmt.Errorf("%w: negative setup retries %d", ErrInvalidConfig, c.SetupRetries)
	}
	return nil
}

func (c *Config) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return nfctag.Logger()
}
