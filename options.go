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

import "go.uber.org/zap"

// Option is a functional option for configuring a Tag
type Option func(*Tag) error

// WithDriverNumber addresses a driver other than DriverNumber, for kernels
// that install the NFC driver under a different number.
func WithDriverNumber(driver DriverNum) Option {
	return func(t *Tag) error {
		t.config.Driver = driver
		return nil
	}
}

// WithLogger sets the logger used by the tag. The package logger is used
// when unset.
func WithLogger(l *zap.Logger) Option {
	return func(t *Tag) error {
		if l == nil {
			return ErrInvalidParameter
		}
		t.config.Logger = l
		return nil
	}
}
