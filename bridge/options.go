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

package bridge

import (
	"time"

	"go.uber.org/zap"
)

// Option configures a Kernel
type Option func(*Kernel)

// WithLogger sets the logger for link diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(k *Kernel) {
		if l != nil {
			k.logger = l
		}
	}
}

// WithRequestTimeout bounds the wait for the device's answer to a request.
// A timed out request closes the link. Zero, the default, waits forever.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(k *Kernel) {
		k.timeout = timeout
	}
}
