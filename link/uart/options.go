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

package uart

import (
	"fmt"
	"time"
)

// Option is a functional option for opening a Port
type Option func(*Port) error

// WithBaudRate sets the line speed
func WithBaudRate(baud int) Option {
	return func(p *Port) error {
		if baud <= 0 {
			return fmt.Errorf("invalid baud rate %d", baud)
		}
		p.baudRate = baud
		return nil
	}
}

// WithReadTimeout sets how long a single read waits before the port checks
// whether it has been closed
func WithReadTimeout(timeout time.Duration) Option {
	return func(p *Port) error {
		if timeout <= 0 {
			return fmt.Errorf("invalid read timeout %v", timeout)
		}
		p.readTimeout = timeout
		return nil
	}
}
