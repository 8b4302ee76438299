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

import "fmt"

// DriverNum addresses a kernel driver.
type DriverNum uint32

// DriverNumber is the driver number of the NFC tag emulation driver.
const DriverNumber DriverNum = 0x30003

// Command selects a driver command sub-operation.
type Command uint32

// NFC driver command numbers
const (
	CommandCheck         Command = 0 // Check the driver is present
	CommandTransmit      Command = 1 // Transmit the allowed buffer, arg1 = byte count
	CommandReceive       Command = 2 // Receive into the allowed buffer
	CommandEmulate       Command = 3 // Enable (1) or disable (0) tag emulation
	CommandConfigure     Command = 4 // Configure the emulated tag type
	CommandFrameDelayMax Command = 5 // Set the maximum frame delay
)

// SubscribeNum selects an upcall subscription slot.
type SubscribeNum uint32

// NFC driver subscription numbers
const (
	SubscribeTransmit SubscribeNum = 1 // Transmission done, arg0 = return code
	SubscribeReceive  SubscribeNum = 2 // Reception done, arg0 = return code, arg1 = length
	SubscribeSelect   SubscribeNum = 3 // Tag selected by a reader
)

// AllowNum selects a buffer sharing slot.
type AllowNum uint32

// NFC driver allow numbers
const (
	AllowTransmit AllowNum = 1
	AllowReceive  AllowNum = 2
)

// RecvBufferSize is the size of the buffer lent to the kernel for reception.
const RecvBufferSize = 256

// TagType identifies the NFC Forum tag type the driver emulates.
type TagType uint8

// NFC Forum tag types
const (
	TagType1 TagType = 1
	TagType2 TagType = 2
	TagType3 TagType = 3
	TagType4 TagType = 4
	TagType5 TagType = 5
)

func (d DriverNum) String() string {
	return fmt.Sprintf("%#x", uint32(d))
}

func (c Command) String() string {
	switch c {
	case CommandCheck:
		return "check"
	case CommandTransmit:
		return "transmit"
	case CommandReceive:
		return "receive"
	case CommandEmulate:
		return "emulate"
	case CommandConfigure:
		return "configure"
	case CommandFrameDelayMax:
		return "framedelaymax"
	default:
		return fmt.Sprintf("command(%d)", uint32(c))
	}
}

func (s SubscribeNum) String() string {
	switch s {
	case SubscribeTransmit:
		return "transmit"
	case SubscribeReceive:
		return "receive"
	case SubscribeSelect:
		return "select"
	default:
		return fmt.Sprintf("subscribe(%d)", uint32(s))
	}
}

func (a AllowNum) String() string {
	switch a {
	case AllowTransmit:
		return "transmit"
	case AllowReceive:
		return "receive"
	default:
		return fmt.Sprintf("allow(%d)", uint32(a))
	}
}

// String returns the tag type in NFC Forum notation
func (t TagType) String() string {
	if t >= TagType1 && t <= TagType5 {
		return fmt.Sprintf("Type %d", uint8(t))
	}
	return fmt.Sprintf("TagType(%d)", uint8(t))
}
