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

/*
Package nfctag is the userland binding to an NFC tag emulation driver.

The driver is reached through a small kernel syscall surface: commands,
upcall subscriptions and buffer lending ("allow"), each addressed by a driver
number and a sub-operation number. Every operation of this package maps to
one or two of those syscalls plus, for the blocking ones, a wait until the
kernel delivers the matching upcall.

Kernels:

The binding only depends on the Kernel interface:

  - bridge.Kernel forwards syscalls to a device over a UART or I2C link
  - SimKernel is a scripted in-process kernel for tests

Cooperative kernels implement Yielder; the binding then yields to them until
the awaited upcall has been delivered.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-nfctag"
	    "github.com/ZaparooProject/go-nfctag/bridge"
	    "github.com/ZaparooProject/go-nfctag/link/uart"
	)

	link, err := uart.Open("/dev/ttyACM0")
	if err != nil {
	    log.Fatal(err)
	}
	kernel := bridge.New(link)
	defer kernel.Close()

	tag, err := nfctag.New(kernel)
	if err != nil {
	    log.Fatal(err)
	}
	if !tag.Setup() {
	    log.Fatal("no NFC driver")
	}

	tag.Configure(nfctag.TagType4)
	tag.EnableEmulation()
	tag.Selected()

	var buf [nfctag.RecvBufferSize]byte
	op, err := tag.Receive(&buf)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("reader sent % X\n", buf[:op.Amount])

Error Handling:

Setup, EnableEmulation, DisableEmulation, Selected, Configure and
SetFrameDelayMax report only whether the kernel accepted the request. Receive
and Transmit return a *SyscallError naming the failed step; the kernel's
ReturnCode can be matched directly:

	if errors.Is(err, nfctag.ErrBusy) {
	    // driver busy
	}

Grants taken by an operation are always released before it returns.

Thread Safety:

Tag operations are not thread-safe. The driver serves one request at a time;
use a single goroutine per Tag.
*/
package nfctag
