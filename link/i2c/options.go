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

package i2c

import (
	"fmt"
	"time"
)

// Option is a functional option for creating a Link
type Option func(*Link) error

// WithPollInterval sets the pause between reads while the device has
// nothing to send
func WithPollInterval(interval time.Duration) Option {
	return func(l *Link) error {
		if interval <= 0 {
			return fmt.Errorf("invalid poll interval %v", interval)
		}
		l.pollInterval = interval
		return nil
	}
}
