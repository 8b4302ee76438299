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

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// BusInfo describes an I2C bus registered with the host
type BusInfo struct {
	Name    string
	Aliases []string
	Number  int
	// PlainI2C reports whether the adapter supports plain I2C transfers.
	// It is only probed on Linux and is true elsewhere.
	PlainI2C bool
}

func (b BusInfo) String() string {
	if len(b.Aliases) == 0 {
		return b.Name
	}
	return fmt.Sprintf("%s %v", b.Name, b.Aliases)
}

// ListBuses initializes the host drivers and returns the registered buses
// that can carry a link
func ListBuses() ([]BusInfo, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	refs := i2creg.All()
	buses := make([]BusInfo, 0, len(refs))
	for _, ref := range refs {
		info := BusInfo{
			Name:     ref.Name,
			Aliases:  append([]string(nil), ref.Aliases...),
			Number:   ref.Number,
			PlainI2C: true,
		}
		if ref.Number >= 0 {
			info.PlainI2C = supportsPlainI2C(ref.Number)
		}
		if info.PlainI2C {
			buses = append(buses, info)
		}
	}
	return buses, nil
}
