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

import "context"

// Kernel defines the syscall surface the binding is built on. Implementations
// address a driver by number and a sub-operation by selector.
type Kernel interface {
	// Command issues a driver command. A nil error means the kernel accepted it.
	Command(driver DriverNum, cmd Command, arg1, arg2 uint32) error

	// Subscribe registers upcall for the given slot until the returned grant
	// is released.
	Subscribe(driver DriverNum, num SubscribeNum, upcall Upcall) (Grant, error)

	// Allow lends buf to the kernel until the returned grant is released. The
	// caller must not touch buf while it is lent.
	Allow(driver DriverNum, num AllowNum, buf []byte) (Grant, error)
}

// Upcall is invoked by the kernel when a subscribed event fires. Unused
// arguments are zero.
type Upcall func(arg0, arg1, arg2 uint32)

// Grant is a kernel-side resource (subscription or buffer lending) held by
// the caller.
type Grant interface {
	// Release returns the resource to the kernel. Releasing twice is a no-op.
	Release() error
}

// Yielder is implemented by cooperative kernels that only deliver upcalls
// while the application yields. Kernels that deliver upcalls from their own
// goroutine do not implement it.
type Yielder interface {
	// Yield blocks until at least one pending upcall has been delivered or
	// ctx is done.
	Yield(ctx context.Context) error
}
