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

//go:build linux

package i2c

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"
)

const (
	// i2cFuncs is the ioctl command to get adapter functionality
	i2cFuncs = 0x0705

	// i2cFuncI2C indicates plain I2C support
	i2cFuncI2C = 0x00000001
)

// supportsPlainI2C asks the adapter driver behind /dev/i2c-N whether it can
// do plain I2C transfers. Adapters that cannot be opened are skipped.
func supportsPlainI2C(number int) bool {
	funcs, err := adapterFuncs(fmt.Sprintf("/dev/i2c-%d", number))
	if err != nil {
		return false
	}
	return funcs&i2cFuncI2C != 0
}

func adapterFuncs(path string) (uint, error) {
	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = unix.Close(fd) }()

	// the kernel writes an unsigned long
	var funcs uint
	// #nosec G103 -- unsafe pointer required for ioctl system call
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), i2cFuncs, uintptr(unsafe.Pointer(&funcs)))
	if errno != 0 {
		return 0, fmt.Errorf("I2C_FUNCS on %s: %w", path, errno)
	}
	return funcs, nil
}
