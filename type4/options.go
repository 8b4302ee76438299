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

package type4

import "go.uber.org/zap"

// Option is a functional option for configuring a Tag
type Option func(*Tag)

// WithLogger sets the logger used for protocol traces
func WithLogger(l *zap.Logger) Option {
	return func(t *Tag) {
		if l != nil {
			t.log = l
		}
	}
}

// WithATS replaces the answer to RATS
func WithATS(ats []byte) Option {
	return func(t *Tag) {
		if len(ats) > 0 {
			t.ats = append([]byte(nil), ats...)
		}
	}
}
